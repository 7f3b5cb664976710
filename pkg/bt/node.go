// Package bt 行为树引擎：脚本编译、处理器注册与逐回合解释执行
package bt

import "strings"

// Status 节点执行结果
type Status uint8

const (
	// StatusInvalid 零值，正常 Tick 不会返回
	StatusInvalid Status = iota
	Success
	Failure
	// Running 多回合动作进行中，对当前 Tick 而言等同于已行动
	Running
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Running:
		return "Running"
	default:
		return "Invalid"
	}
}

// Valid 是否为处理器可返回的合法结果
func (s Status) Valid() bool {
	return s == Success || s == Failure || s == Running
}

// Kind 节点类型
type Kind uint8

const (
	KindInvalid Kind = iota
	KindTree
	KindSelector
	KindSequence
	KindCondition
	KindTask
	KindFail
	KindSucceed
)

var kindTags = map[Kind]string{
	KindTree:      "TREE",
	KindSelector:  "SEL",
	KindSequence:  "SEQ",
	KindCondition: "COND",
	KindTask:      "TASK",
	KindFail:      "FAIL",
	KindSucceed:   "SUCC",
}

var tagKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTags))
	for k, tag := range kindTags {
		m[tag] = k
	}
	return m
}()

// Tag 脚本中的标签名
func (k Kind) Tag() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}
	return "INVALID"
}

func (k Kind) String() string {
	return k.Tag()
}

// KindOf 按标签查找节点类型
func KindOf(tag string) (Kind, bool) {
	k, ok := tagKinds[tag]
	return k, ok
}

// minChildren/maxChildren 子节点数量约束，-1 表示不限
func (k Kind) childBounds() (min, max int) {
	switch k {
	case KindCondition, KindSucceed:
		return 1, 1
	case KindTask, KindFail:
		return 0, 0
	default:
		return 0, -1
	}
}

// needsHandler COND 与 TASK 的 p1 为处理器名，必填
func (k Kind) needsHandler() bool {
	return k == KindCondition || k == KindTask
}

// MaxParams 单个节点最多参数个数（p1..p4）
const MaxParams = 4

// MaxDepth 节点最大嵌套深度，根节点为 0
const MaxDepth = 128

// Node 行为树节点
type Node struct {
	Kind     Kind
	Params   []string
	Children []*Node
	// Line 源码行号，仅用于诊断，不参与比较
	Line int
}

// Name 处理器名，无参数时为空
func (n *Node) Name() string {
	if len(n.Params) == 0 {
		return ""
	}
	return n.Params[0]
}

// Args 传给处理器的参数，即 Params[1:]
func (n *Node) Args() []string {
	if len(n.Params) <= 1 {
		return nil
	}
	return n.Params[1:]
}

// Equal 结构比较，忽略行号
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind || len(n.Params) != len(o.Params) || len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Params {
		if n.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Walk 先序深度优先遍历，fn 返回 false 时不进入子节点
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// String 单行形式，例如 [COND p1="d100" p2="40"]
func (n *Node) String() string {
	var sb strings.Builder
	writeNodeLine(&sb, n)
	return sb.String()
}

func writeNodeLine(sb *strings.Builder, n *Node) {
	sb.WriteByte('[')
	sb.WriteString(n.Kind.Tag())
	for i, p := range n.Params {
		sb.WriteString(" p")
		sb.WriteByte(byte('1' + i))
		sb.WriteString(`="`)
		sb.WriteString(p)
		sb.WriteByte('"')
	}
	sb.WriteByte(']')
}
