package bt

import (
	"sync"
)

// Blackboard 实体的跨回合记忆，例如上次看到玩家的位置
//
// 树本身不保存实体状态，需要跨 Tick 保留的数据放在这里，由处理器读写。
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewBlackboard 创建黑板
func NewBlackboard() *Blackboard {
	return &Blackboard{data: make(map[string]any)}
}

func (bb *Blackboard) Set(key string, value any) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	bb.data[key] = value
}

func (bb *Blackboard) Get(key string) (any, bool) {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	val, ok := bb.data[key]
	return val, ok
}

// Lookup 按类型读取，类型不符时视为不存在
func Lookup[T any](bb *Blackboard, key string) (T, bool) {
	var zero T
	val, ok := bb.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := val.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

func (bb *Blackboard) Delete(key string) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	delete(bb.data, key)
}
