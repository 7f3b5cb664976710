package bt

import (
	"fmt"
	"sort"
	"sync"
)

// Predicate 条件处理器，args 为 p2 起的参数
type Predicate[C any] func(ctx C, args []string) bool

// Action 任务处理器，可修改实体与世界状态
type Action[C any] func(ctx C, args []string) Status

// Registry 处理器注册表，C 为求值上下文类型
type Registry[C any] struct {
	mu         sync.RWMutex
	conditions map[string]Predicate[C]
	tasks      map[string]Action[C]
}

// NewRegistry 创建注册表
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		conditions: make(map[string]Predicate[C]),
		tasks:      make(map[string]Action[C]),
	}
}

// RegisterCondition 注册条件，重名、空名或 nil 函数视为编程错误并 panic
func (r *Registry[C]) RegisterCondition(name string, fn Predicate[C]) {
	if name == "" || fn == nil {
		panic("bt: RegisterCondition with empty name or nil predicate")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.conditions[name]; dup {
		panic(fmt.Sprintf("bt: condition %q registered twice", name))
	}
	r.conditions[name] = fn
}

// RegisterTask 注册任务，规则同 RegisterCondition
func (r *Registry[C]) RegisterTask(name string, fn Action[C]) {
	if name == "" || fn == nil {
		panic("bt: RegisterTask with empty name or nil action")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tasks[name]; dup {
		panic(fmt.Sprintf("bt: task %q registered twice", name))
	}
	r.tasks[name] = fn
}

// ResolveCondition 查找条件
func (r *Registry[C]) ResolveCondition(name string) (Predicate[C], error) {
	r.mu.RLock()
	fn, ok := r.conditions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownHandlerError{Kind: HandlerCondition, Name: name}
	}
	return fn, nil
}

// ResolveTask 查找任务
func (r *Registry[C]) ResolveTask(name string) (Action[C], error) {
	r.mu.RLock()
	fn, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownHandlerError{Kind: HandlerTask, Name: name}
	}
	return fn, nil
}

// Conditions 已注册的条件名，按字母序
func (r *Registry[C]) Conditions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.conditions)
}

// Tasks 已注册的任务名，按字母序
func (r *Registry[C]) Tasks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.tasks)
}

// Check 返回树中引用但未注册的处理器
func (r *Registry[C]) Check(t *Tree) []*UnknownHandlerError {
	var missing []*UnknownHandlerError
	conds, tasks := t.Handlers()
	for _, name := range conds {
		if _, err := r.ResolveCondition(name); err != nil {
			missing = append(missing, err.(*UnknownHandlerError))
		}
	}
	for _, name := range tasks {
		if _, err := r.ResolveTask(name); err != nil {
			missing = append(missing, err.(*UnknownHandlerError))
		}
	}
	return missing
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
