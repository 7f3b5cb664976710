package ai

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Source 行为树来源
type Source string

const (
	SourceOverride Source = "override"
	SourceBundle   Source = "bundle"
	SourceEmbedded Source = "embedded"
)

// Config 脚本库配置
type Config struct {
	// ScriptsDir 覆盖脚本目录，同名 .bts 文件优先于内置脚本
	ScriptsDir string `mapstructure:"scripts_dir"`
	// Bundle 预编译脚本包路径
	Bundle string `mapstructure:"bundle"`
	// CacheSize 已编译根节点缓存容量
	CacheSize int `mapstructure:"cache_size" validate:"omitempty,min=1"`
	// Watch 监听 ScriptsDir 变化并热加载
	Watch bool `mapstructure:"watch"`
}

// Option 脚本库选项
type Option func(*Library)

// WithBundle 使用预编译脚本包
func WithBundle(b *Bundle) Option {
	return func(l *Library) { l.bundle = b }
}

// WithLogger 设置日志器
func WithLogger(log logger.Logger) Option {
	return func(l *Library) {
		if log != nil {
			l.logger = log
		}
	}
}

type compiled struct {
	tree   *bt.Tree
	source Source
}

// Library 原型查找表，按需编译且每个原型只编译一次，可并发访问
type Library struct {
	cfg    Config
	bundle *Bundle
	logger logger.Logger

	// roots 以规范化源码的 xxhash 为键，相同脚本共享根节点
	roots *lru.LRU[uint64, *bt.Node]

	mu    sync.Mutex
	trees map[Archetype]compiled
}

// NewLibrary 创建脚本库
func NewLibrary(cfg Config, opts ...Option) *Library {
	size := cfg.CacheSize
	if size <= 0 {
		size = 32
	}
	l := &Library{
		cfg:    cfg,
		logger: logger.NewNoop(),
		roots:  lru.New[uint64, *bt.Node](&lru.Config{MaxSize: size}),
		trees:  make(map[Archetype]compiled),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("ai")
	return l
}

// Profile 原型描述
func (l *Library) Profile(a Archetype) (*Profile, error) {
	p, ok := LookupProfile(a)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownArchetype, "id %d", uint16(a))
	}
	return p, nil
}

// ProfileBySignature 按签名查找原型，读档时使用
func (l *Library) ProfileBySignature(sig uint64) (*Profile, error) {
	p, ok := LookupProfile(Archetype(sig >> 48))
	if !ok || p.Signature() != sig {
		return nil, errors.Wrapf(ErrUnknownArchetype, "signature %#016x", sig)
	}
	return p, nil
}

// Archetypes 已知原型
func (l *Library) Archetypes() []Archetype {
	return Archetypes()
}

// Tree 返回原型的行为树，首次调用时编译
func (l *Library) Tree(a Archetype) (*bt.Tree, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.trees[a]; ok {
		return c.tree, nil
	}
	c, err := l.build(a)
	if err != nil {
		return nil, err
	}
	l.trees[a] = c
	l.logger.Debug("behavior tree ready", "archetype", a.String(), "source", string(c.source), "nodes", c.tree.Size())
	return c.tree, nil
}

// SourceOf 已编译原型的来源，未编译时返回空
func (l *Library) SourceOf(a Archetype) Source {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trees[a].source
}

// Preload 编译全部原型，任一失败即返回
func (l *Library) Preload() error {
	for _, a := range Archetypes() {
		if _, err := l.Tree(a); err != nil {
			return err
		}
	}
	return nil
}

// Reload 重新校验全部脚本，成功后丢弃已编译的树；失败时保留旧树
func (l *Library) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fresh := make(map[Archetype]compiled, len(l.trees))
	for _, a := range Archetypes() {
		c, err := l.load(a)
		if err != nil {
			return err
		}
		fresh[a] = c
	}
	st := l.roots.Stats()
	l.roots.Clear()
	l.trees = make(map[Archetype]compiled, len(fresh))
	l.logger.Info("behavior trees reloaded",
		"archetypes", len(fresh),
		"shared_roots", st.Hits,
		"root_hit_rate", st.HitRate(),
	)
	return nil
}

// Close 释放缓存
func (l *Library) Close() error {
	return l.roots.Close()
}

// build 加载后通过缓存共享根节点
func (l *Library) build(a Archetype) (compiled, error) {
	c, err := l.load(a)
	if err != nil {
		return compiled{}, err
	}
	key := xxhash.Sum64String(bt.Format(c.tree))
	root, err := l.roots.GetOrCreate(key, func() (*bt.Node, error) { return c.tree.Root, nil })
	if err != nil {
		return compiled{}, err
	}
	c.tree = &bt.Tree{Root: root, Signature: c.tree.Signature}
	return c, nil
}

// load 按 覆盖文件 > 脚本包 > 内置脚本 的顺序取源码并编译
func (l *Library) load(a Archetype) (compiled, error) {
	p, err := l.Profile(a)
	if err != nil {
		return compiled{}, err
	}
	sig := bt.WithSignature(p.Signature())

	if l.cfg.ScriptsDir != "" {
		path := filepath.Join(l.cfg.ScriptsDir, p.File)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			t, err := bt.Compile(string(data), sig)
			if err != nil {
				return compiled{}, errors.Wrapf(err, "script %s", path)
			}
			return compiled{tree: t, source: SourceOverride}, nil
		case !os.IsNotExist(err):
			return compiled{}, errors.Wrapf(err, "read script %s", path)
		}
	}

	if l.bundle != nil {
		t, ok, err := l.bundle.Tree(a, sig)
		if err != nil {
			return compiled{}, err
		}
		if ok {
			return compiled{tree: t, source: SourceBundle}, nil
		}
	}

	text, err := p.Script()
	if err != nil {
		return compiled{}, errors.Wrapf(err, "embedded script for %s", a)
	}
	t, err := bt.Compile(text, sig)
	if err != nil {
		return compiled{}, errors.Wrapf(err, "embedded script %s", p.File)
	}
	return compiled{tree: t, source: SourceEmbedded}, nil
}
