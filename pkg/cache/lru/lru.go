// Package lru 并发安全的泛型 LRU 缓存，用于编译产物（表达式程序、行为树根节点）
package lru

import (
	"container/list"
	"sync"
)

// Config LRU 配置
type Config struct {
	// MaxSize 最大条目数
	MaxSize int `mapstructure:"max_size" validate:"min=1"`
}

func DefaultConfig() *Config {
	return &Config{MaxSize: 128}
}

// Stats 命中统计
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate 命中率，没有访问时为 0
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// LRU 基于双向链表的 LRU 缓存
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	items   map[K]*list.Element
	stats   Stats
	onEvict func(key K, value V)
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 设置淘汰回调，回调在持有锁时执行，Clear 不触发
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) { c.onEvict = fn }
}

// New 创建 LRU 缓存，cfg 为 nil 或 MaxSize 非正时使用默认容量
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) *LRU[K, V] {
	size := DefaultConfig().MaxSize
	if cfg != nil && cfg.MaxSize > 0 {
		size = cfg.MaxSize
	}
	c := &LRU[K, V]{
		size:  size,
		order: list.New(),
		items: make(map[K]*list.Element, size),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(key)
}

func (c *LRU[K, V]) lookup(key K) (V, bool) {
	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value)
}

func (c *LRU[K, V]) store(key K, value V) {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(elem)
		return
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	for c.order.Len() > c.size {
		c.evict(c.order.Back())
	}
}

// GetOrCreate 原子地获取或创建，create 在锁内执行，返回错误时不缓存
func (c *LRU[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return v, err
	}
	c.store(key, v)
	return v, nil
}

func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// Keys 从最近使用到最久未使用
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*entry[K, V]).key)
	}
	return keys
}

func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear 清空条目，统计保留
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element, c.size)
}

// Close 清空缓存，可重复调用
func (c *LRU[K, V]) Close() error {
	c.Clear()
	return nil
}

func (c *LRU[K, V]) evict(elem *list.Element) {
	c.order.Remove(elem)
	ent := elem.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.stats.Evictions++
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
