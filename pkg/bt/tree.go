package bt

import "strings"

// Tree 编译后的行为树，构建后只读，可被任意数量的实体共享
type Tree struct {
	Root *Node
	// Signature 所属原型的稳定标识，未指定时为 0
	Signature uint64
}

// Equal 结构相等且签名相同
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Signature == o.Signature && t.Root.Equal(o.Root)
}

// Size 节点总数
func (t *Tree) Size() int {
	n := 0
	t.Root.Walk(func(*Node, int) bool {
		n++
		return true
	})
	return n
}

// Handlers 脚本引用的处理器名，按首次出现顺序去重
func (t *Tree) Handlers() (conditions, tasks []string) {
	seen := make(map[string]bool)
	t.Root.Walk(func(n *Node, _ int) bool {
		if !n.Kind.needsHandler() {
			return true
		}
		key := n.Kind.Tag() + ":" + n.Name()
		if seen[key] {
			return true
		}
		seen[key] = true
		if n.Kind == KindCondition {
			conditions = append(conditions, n.Name())
		} else {
			tasks = append(tasks, n.Name())
		}
		return true
	})
	return conditions, tasks
}

// Format 输出规范文本，两空格缩进
func Format(t *Tree) string {
	var sb strings.Builder
	t.Root.Walk(func(n *Node, depth int) bool {
		for i := 0; i < depth; i++ {
			sb.WriteString("  ")
		}
		writeNodeLine(&sb, n)
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

func (t *Tree) String() string {
	return Format(t)
}
