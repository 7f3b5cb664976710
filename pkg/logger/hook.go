package logger

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Hook 写入前的过滤器，返回 false 丢弃该条日志
type Hook interface {
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

// hookedCore 依次执行 hooks，With 附加的字段也参与过滤
type hookedCore struct {
	zapcore.Core
	hooks []Hook
	bound []zapcore.Field
}

// NewHookedCore 包装 core，hooks 为空时原样返回
func NewHookedCore(core zapcore.Core, hooks ...Hook) zapcore.Core {
	if len(hooks) == 0 {
		return core
	}
	return &hookedCore{Core: core, hooks: hooks}
}

func (h *hookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if h.Enabled(entry.Level) {
		return ce.AddCore(entry, h)
	}
	return ce
}

func (h *hookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(h.bound) > 0 {
		all = append(slices.Clip(h.bound), fields...)
	}
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, all) {
			return nil
		}
	}
	return h.Core.Write(entry, fields)
}

func (h *hookedCore) With(fields []zapcore.Field) zapcore.Core {
	return &hookedCore{
		Core:  h.Core.With(fields),
		hooks: h.hooks,
		bound: append(slices.Clip(h.bound), fields...),
	}
}

// MuteHook 丢弃名称以指定前缀开头的 logger 输出，例如 "trace"
func MuteHook(prefixes ...string) Hook {
	return HookFunc(func(entry zapcore.Entry, _ []zapcore.Field) bool {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(entry.LoggerName, p) {
				return false
			}
		}
		return true
	})
}

// OnlyHook 带有 key 字段的日志只保留取值在 values 中的条目，没有该字段的日志不受影响
//
// 常用于只追踪某个角色：OnlyHook("actor", "Claire")
func OnlyHook(key string, values ...string) Hook {
	return HookFunc(func(_ zapcore.Entry, fields []zapcore.Field) bool {
		for _, f := range fields {
			if f.Key != key {
				continue
			}
			return slices.Contains(values, fieldString(f))
		}
		return true
	})
}

func fieldString(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return fmt.Sprint(f.Integer)
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			return s.String()
		}
	}
	if f.Interface != nil {
		return fmt.Sprint(f.Interface)
	}
	return ""
}
