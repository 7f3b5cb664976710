package app

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Loggers 具名日志通道，例如单独落盘的 trace 日志
//
// 未配置的通道从主日志派生，调用方无需判空
type Loggers struct {
	mu      sync.RWMutex
	base    logger.Logger
	entries map[string]logger.Logger
	owned   []logger.Logger
}

// NewLoggers 按配置创建具名通道，base 为 nil 时使用 Noop
// 通道配置不与默认值合并，需要写全输出方式
func NewLoggers(base logger.Logger, configs map[string]*logger.Config) (*Loggers, error) {
	if base == nil {
		base = logger.NewNoop()
	}
	ls := &Loggers{base: base, entries: make(map[string]logger.Logger, len(configs))}
	for name, cfg := range configs {
		if cfg == nil {
			continue
		}
		l, err := logger.NewExact(cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "logger %q", name)
		}
		named := l.Named(name)
		ls.entries[name] = named
		ls.owned = append(ls.owned, named)
	}
	return ls, nil
}

// For 获取具名通道
func (ls *Loggers) For(name string) logger.Logger {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	if l, ok := ls.entries[name]; ok {
		return l
	}
	return ls.base.Named(name)
}

// Configured 通道是否有独立配置
func (ls *Loggers) Configured(name string) bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	_, ok := ls.entries[name]
	return ok
}

// Sync 刷新由配置创建的通道，不刷新 base
func (ls *Loggers) Sync() error {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	var errs error
	for _, l := range ls.owned {
		errs = errors.CombineErrors(errs, l.Sync())
	}
	return errs
}
