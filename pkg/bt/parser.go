package bt

import (
	"strings"
)

// CompileOption 编译选项
type CompileOption func(*compileOptions)

type compileOptions struct {
	signature uint64
}

// WithSignature 为编译结果设置原型签名
func WithSignature(sig uint64) CompileOption {
	return func(o *compileOptions) { o.signature = sig }
}

// Compile 将脚本文本编译为行为树
//
// 每行一个节点，形如 [TAG p1="name" p2="arg"]，缩进表示父子关系，
// 缩进步长由第一个缩进行决定。空行与 # 开头的行被忽略。
// 出错时返回 *SyntaxError，不返回部分结果。
func Compile(text string, opts ...CompileOption) (*Tree, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}

	p := parser{}
	root, err := p.parse(text)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root, Signature: o.signature}, nil
}

// MustCompile 同 Compile，出错时 panic，用于内置脚本
func MustCompile(text string, opts ...CompileOption) *Tree {
	t, err := Compile(text, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	step  int
	root  *Node
	stack []*Node
}

func (p *parser) parse(text string) (*Node, error) {
	for i, raw := range strings.Split(text, "\n") {
		line := i + 1
		raw = strings.TrimRight(raw, " \r")
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}

		indent := len(raw) - len(trimmed)
		if strings.ContainsRune(raw[:indent], '\t') {
			return nil, syntaxErr(line, "\\t", "tabs are not allowed in indentation")
		}
		depth, err := p.depth(line, indent)
		if err != nil {
			return nil, err
		}

		node, err := parseLine(line, trimmed)
		if err != nil {
			return nil, err
		}
		if err := p.attach(line, depth, node); err != nil {
			return nil, err
		}
	}

	if p.root == nil {
		return nil, syntaxErr(0, "", "script has no nodes")
	}
	if err := checkArity(p.root); err != nil {
		return nil, err
	}
	return p.root, nil
}

func (p *parser) depth(line, indent int) (int, error) {
	if indent == 0 {
		return 0, nil
	}
	if p.step == 0 {
		p.step = indent
	}
	if indent%p.step != 0 {
		return 0, syntaxErr(line, "", "indentation %d is not a multiple of %d", indent, p.step)
	}
	return indent / p.step, nil
}

func (p *parser) attach(line, depth int, node *Node) error {
	if p.root == nil {
		if node.Kind != KindTree {
			return syntaxErr(line, node.Kind.Tag(), "script must start with TREE")
		}
		if depth != 0 {
			return syntaxErr(line, node.Kind.Tag(), "TREE must not be indented")
		}
		p.root = node
		p.stack = []*Node{node}
		return nil
	}

	if node.Kind == KindTree {
		return syntaxErr(line, "TREE", "TREE may appear only once")
	}
	if depth == 0 {
		return syntaxErr(line, node.Kind.Tag(), "second top-level node")
	}
	if depth > MaxDepth {
		return syntaxErr(line, node.Kind.Tag(), "nesting deeper than %d", MaxDepth)
	}
	if depth > len(p.stack) {
		return syntaxErr(line, node.Kind.Tag(), "indentation skips a level")
	}

	parent := p.stack[depth-1]
	_, max := parent.Kind.childBounds()
	switch {
	case max == 0:
		return syntaxErr(line, node.Kind.Tag(), "%s at line %d cannot have children", parent.Kind.Tag(), parent.Line)
	case max > 0 && len(parent.Children) >= max:
		return syntaxErr(line, node.Kind.Tag(), "%s at line %d accepts exactly one child", parent.Kind.Tag(), parent.Line)
	}
	parent.Children = append(parent.Children, node)
	p.stack = append(p.stack[:depth], node)
	return nil
}

func checkArity(root *Node) error {
	var err error
	root.Walk(func(n *Node, _ int) bool {
		if err != nil {
			return false
		}
		if min, _ := n.Kind.childBounds(); len(n.Children) < min {
			err = syntaxErr(n.Line, n.Kind.Tag(), "%s requires a deeper-indented child", n.Kind.Tag())
			return false
		}
		return true
	})
	return err
}

// parseLine 解析去掉缩进后的一行
func parseLine(line int, s string) (*Node, error) {
	if s[0] != '[' {
		return nil, syntaxErr(line, s, "node must start with '['")
	}
	if s[len(s)-1] != ']' {
		return nil, syntaxErr(line, s, "node must end with ']'")
	}
	body := s[1 : len(s)-1]

	tag, rest, _ := strings.Cut(body, " ")
	kind, ok := KindOf(tag)
	if !ok {
		return nil, syntaxErr(line, tag, "unknown tag")
	}

	params, err := parseParams(line, rest)
	if err != nil {
		return nil, err
	}
	if kind.needsHandler() {
		if len(params) == 0 {
			return nil, syntaxErr(line, tag, "%s requires p1", tag)
		}
		if params[0] == "" {
			return nil, syntaxErr(line, `p1=""`, "empty handler name")
		}
	}
	return &Node{Kind: kind, Params: params, Line: line}, nil
}

// parseParams 解析 key="value" 序列，key 为 p1..p4，不可重复、不可跳号
func parseParams(line int, s string) ([]string, error) {
	var slots [MaxParams]string
	var set [MaxParams]bool
	count := 0

	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			break
		}
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return nil, syntaxErr(line, s, `parameter must be key="value"`)
		}
		key := s[:eq]
		idx, ok := paramIndex(key)
		if !ok {
			return nil, syntaxErr(line, key, "parameter key must be one of p1..p4")
		}
		if set[idx] {
			return nil, syntaxErr(line, key, "duplicate parameter")
		}

		rest := s[eq+1:]
		if rest == "" || rest[0] != '"' {
			return nil, syntaxErr(line, key, "parameter value must be quoted")
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return nil, syntaxErr(line, key, "unterminated parameter value")
		}
		slots[idx] = rest[1 : 1+end]
		set[idx] = true
		count++

		s = rest[end+2:]
		if s != "" && s[0] != ' ' {
			return nil, syntaxErr(line, s, "parameters must be separated by spaces")
		}
	}

	for i := 0; i < count; i++ {
		if !set[i] {
			return nil, syntaxErr(line, paramKey(i), "parameter keys must be contiguous from p1")
		}
	}
	if count == 0 {
		return nil, nil
	}
	return append([]string(nil), slots[:count]...), nil
}

func paramIndex(key string) (int, bool) {
	if len(key) != 2 || key[0] != 'p' || key[1] < '1' || key[1] > '0'+MaxParams {
		return 0, false
	}
	return int(key[1] - '1'), true
}

func paramKey(i int) string {
	return "p" + string(rune('1'+i))
}
