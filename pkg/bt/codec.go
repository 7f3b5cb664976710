package bt

import (
	"encoding/binary"
	"strings"

	"github.com/lk2023060901/xdooria-ai/pkg/checksum"
	"github.com/lk2023060901/xdooria-ai/pkg/pool/bytebuff"
)

// 字节码格式:
//
//	header  := "BTC" version(1)
//	node    := opcode(1) nparams(1) { uvarint(len) bytes }* node* 0x00
//	trailer := checksum(node 流) 4 字节大端
const (
	bytecodeMagic   = "BTC"
	BytecodeVersion = 1

	opEnd byte = 0
)

// 操作码取值固定，不可调整
var kindOpcodes = map[Kind]byte{
	KindTree:      1,
	KindSelector:  2,
	KindSequence:  3,
	KindFail:      4,
	KindSucceed:   5,
	KindTask:      6,
	KindCondition: 7,
}

var opcodeKinds = func() map[byte]Kind {
	m := make(map[byte]Kind, len(kindOpcodes))
	for k, op := range kindOpcodes {
		m[op] = k
	}
	return m
}()

const (
	headerLen  = len(bytecodeMagic) + 1
	trailerLen = 4
)

var codecSum = checksum.MustNew(checksum.TypeXXHash)

// Encode 将树编码为字节码，Compile 产生的树不会失败
func Encode(t *Tree) ([]byte, error) {
	if t == nil || t.Root == nil {
		return nil, bytecodeErr("nil tree")
	}
	if err := validate(t.Root); err != nil {
		return nil, err
	}

	buf := bytebuff.Get()
	buf.B = append(buf.B, bytecodeMagic...)
	buf.B = append(buf.B, BytecodeVersion)
	buf.B = appendNode(buf.B, t.Root)
	buf.B = binary.BigEndian.AppendUint32(buf.B, codecSum.Sum(buf.B[headerLen:]))
	return bytebuff.Detach(buf), nil
}

func appendNode(b []byte, n *Node) []byte {
	b = append(b, kindOpcodes[n.Kind], byte(len(n.Params)))
	for _, p := range n.Params {
		b = binary.AppendUvarint(b, uint64(len(p)))
		b = append(b, p...)
	}
	for _, c := range n.Children {
		b = appendNode(b, c)
	}
	return append(b, opEnd)
}

// Decode 解码并校验字节码，与 Encode 互逆
func Decode(data []byte, opts ...CompileOption) (*Tree, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) < headerLen+trailerLen {
		return nil, bytecodeErr("truncated: %d bytes", len(data))
	}
	if string(data[:len(bytecodeMagic)]) != bytecodeMagic {
		return nil, bytecodeErr("bad magic")
	}
	if v := data[len(bytecodeMagic)]; v != BytecodeVersion {
		return nil, bytecodeErr("unsupported version %d", v)
	}

	body := data[headerLen : len(data)-trailerLen]
	if !codecSum.Verify(body, binary.BigEndian.Uint32(data[len(data)-trailerLen:])) {
		return nil, bytecodeErr("checksum mismatch")
	}

	d := decoder{buf: body}
	root, err := d.node(0)
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.buf) {
		return nil, bytecodeErr("%d trailing bytes", len(d.buf)-d.pos)
	}
	if err := validate(root); err != nil {
		return nil, err
	}
	return &Tree{Root: root, Signature: o.signature}, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, bytecodeErr("truncated at offset %d", d.pos)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) node(depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, bytecodeErr("nesting deeper than %d", MaxDepth)
	}
	at := d.pos
	op, err := d.readByte()
	if err != nil {
		return nil, err
	}
	kind, ok := opcodeKinds[op]
	if !ok {
		return nil, bytecodeErr("unknown opcode 0x%02x at offset %d", op, at)
	}
	np, err := d.readByte()
	if err != nil {
		return nil, err
	}
	if np > MaxParams {
		return nil, bytecodeErr("%d params at offset %d", np, at)
	}

	n := &Node{Kind: kind}
	if np > 0 {
		n.Params = make([]string, np)
	}
	for i := range n.Params {
		l, w := binary.Uvarint(d.buf[d.pos:])
		if w <= 0 {
			return nil, bytecodeErr("bad param length at offset %d", d.pos)
		}
		d.pos += w
		if l > uint64(len(d.buf)-d.pos) {
			return nil, bytecodeErr("param overruns stream at offset %d", d.pos)
		}
		n.Params[i] = string(d.buf[d.pos : d.pos+int(l)])
		d.pos += int(l)
	}

	for {
		if d.pos >= len(d.buf) {
			return nil, bytecodeErr("missing end marker for node at offset %d", at)
		}
		if d.buf[d.pos] == opEnd {
			d.pos++
			return n, nil
		}
		child, err := d.node(depth + 1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
}

// validate 检查与 Compile 相同的结构约束
func validate(root *Node) error {
	if root.Kind != KindTree {
		return bytecodeErr("root is %s, want TREE", root.Kind.Tag())
	}
	var err error
	root.Walk(func(n *Node, depth int) bool {
		if err != nil {
			return false
		}
		if _, ok := kindOpcodes[n.Kind]; !ok {
			err = bytecodeErr("invalid node kind %d", n.Kind)
			return false
		}
		if depth > MaxDepth {
			err = bytecodeErr("nesting deeper than %d", MaxDepth)
			return false
		}
		if depth > 0 && n.Kind == KindTree {
			err = bytecodeErr("nested TREE")
			return false
		}
		if len(n.Params) > MaxParams {
			err = bytecodeErr("%s has %d params", n.Kind.Tag(), len(n.Params))
			return false
		}
		if n.Kind.needsHandler() && n.Name() == "" {
			err = bytecodeErr("%s without handler name", n.Kind.Tag())
			return false
		}
		for _, p := range n.Params {
			if strings.ContainsAny(p, "\"\n") {
				err = bytecodeErr("param %q is not representable in script text", p)
				return false
			}
		}
		min, max := n.Kind.childBounds()
		if len(n.Children) < min || (max >= 0 && len(n.Children) > max) {
			err = bytecodeErr("%s has %d children", n.Kind.Tag(), len(n.Children))
			return false
		}
		return true
	})
	return err
}
