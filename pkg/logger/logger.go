// Package logger 基于 zap 的结构化日志
package logger

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 日志接口，其他模块只依赖此接口
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	DebugContext(ctx context.Context, msg string, keysAndValues ...any)
	InfoContext(ctx context.Context, msg string, keysAndValues ...any)
	WarnContext(ctx context.Context, msg string, keysAndValues ...any)
	ErrorContext(ctx context.Context, msg string, keysAndValues ...any)

	Named(name string) Logger
	WithFields(keysAndValues ...any) Logger

	Sync() error
}

var _ Logger = (*BaseLogger)(nil)

// ContextFieldExtractor 从 context 提取日志字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type ctxFieldsKey struct{}

// ContextWithFields 将 key-value 字段附加到 context，*Context 日志方法会自动带上
func ContextWithFields(ctx context.Context, keysAndValues ...any) context.Context {
	prev, _ := ctx.Value(ctxFieldsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(keysAndValues))
	merged = append(merged, prev...)
	merged = append(merged, keysAndValues...)
	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

// DefaultContextExtractor 提取 ContextWithFields 写入的字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	kv, _ := ctx.Value(ctxFieldsKey{}).([]any)
	return toZapFields(kv)
}

// Option 配置选项
type Option func(*BaseLogger)

// WithName 设置 logger 名称
func WithName(name string) Option {
	return func(l *BaseLogger) { l.name = name }
}

// WithHooks 添加钩子
func WithHooks(hooks ...Hook) Option {
	return func(l *BaseLogger) { l.hooks = append(l.hooks, hooks...) }
}

// WithContextExtractor 替换 context 字段提取器
func WithContextExtractor(fn ContextFieldExtractor) Option {
	return func(l *BaseLogger) {
		if fn != nil {
			l.extract = fn
		}
	}
}

// BaseLogger 基于 zap 的 Logger 实现
type BaseLogger struct {
	zl      *zap.Logger
	config  *Config
	name    string
	hooks   []Hook
	extract ContextFieldExtractor
}

// New 创建 BaseLogger，cfg 可以只填写部分字段
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge logger config: %w", err)
	}
	return build(merged, opts...)
}

// NewExact 不合并默认值，零值字段按零值生效
//
// 用于具名通道：enable_console: false 需要真正关闭控制台输出
func NewExact(cfg *Config, opts ...Option) (*BaseLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logger: %w", config.ErrNilConfig)
	}
	c := *cfg
	return build(&c, opts...)
}

func build(merged *Config, opts ...Option) (*BaseLogger, error) {
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	l := &BaseLogger{config: merged, extract: DefaultContextExtractor}
	for _, opt := range opts {
		opt(l)
	}
	if len(merged.Mute) > 0 {
		l.hooks = append(l.hooks, MuteHook(merged.Mute...))
	}
	for key, values := range merged.Only {
		l.hooks = append(l.hooks, OnlyHook(key, values...))
	}

	core, err := l.buildCore()
	if err != nil {
		return nil, err
	}
	l.zl = l.wrap(core)
	return l, nil
}

// NewWithCore 使用现成的 zapcore.Core 创建 Logger，测试中配合 zaptest/observer 使用
func NewWithCore(core zapcore.Core, opts ...Option) *BaseLogger {
	l := &BaseLogger{config: DefaultConfig(), extract: DefaultContextExtractor}
	for _, opt := range opts {
		opt(l)
	}
	l.zl = l.wrap(core)
	return l
}

func (l *BaseLogger) buildCore() (zapcore.Core, error) {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if l.config.TimeFormat != "" {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimeFormat)
	}
	if l.config.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if l.config.Format == ConsoleFormat {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	writers := make([]zapcore.WriteSyncer, 0, 2)
	if l.config.EnableConsole {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if l.config.EnableFile {
		w, err := NewRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create rotation writer: %w", err)
		}
		writers = append(writers, zapcore.AddSync(w))
	}

	return zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), parseLevel(l.config.Level)), nil
}

func (l *BaseLogger) wrap(core zapcore.Core) *zap.Logger {
	core = NewHookedCore(core, l.hooks...)

	options := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if l.config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(parseLevel(l.config.StacktraceLevel)))
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)
	if len(l.config.GlobalFields) > 0 {
		fields := make([]zap.Field, 0, len(l.config.GlobalFields))
		for k, v := range l.config.GlobalFields {
			fields = append(fields, zap.Any(k, v))
		}
		zl = zl.With(fields...)
	}
	if l.name != "" {
		zl = zl.Named(l.name)
	}
	return zl
}

func parseLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...any) {
	l.zl.Debug(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...any) {
	l.zl.Info(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...any) {
	l.zl.Warn(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...any) {
	l.zl.Error(msg, toZapFields(keysAndValues)...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Debug(msg, append(l.extract(ctx), toZapFields(keysAndValues)...)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Info(msg, append(l.extract(ctx), toZapFields(keysAndValues)...)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Warn(msg, append(l.extract(ctx), toZapFields(keysAndValues)...)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Error(msg, append(l.extract(ctx), toZapFields(keysAndValues)...)...)
}

// Named 创建子 logger，名称以 "." 连接
func (l *BaseLogger) Named(name string) Logger {
	return &BaseLogger{
		zl:      l.zl.Named(name),
		config:  l.config,
		name:    name,
		hooks:   l.hooks,
		extract: l.extract,
	}
}

// WithFields 创建带固定字段的 logger
func (l *BaseLogger) WithFields(keysAndValues ...any) Logger {
	fields := toZapFields(keysAndValues)
	if len(fields) == 0 {
		return l
	}
	return &BaseLogger{
		zl:      l.zl.With(fields...),
		config:  l.config,
		name:    l.name,
		hooks:   l.hooks,
		extract: l.extract,
	}
}

func (l *BaseLogger) Sync() error {
	return l.zl.Sync()
}

// toZapFields 转换 key-value 对，支持直接传入 zap.Field
func toZapFields(keysAndValues []any) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	if _, ok := keysAndValues[0].(zap.Field); ok {
		fields := make([]zap.Field, 0, len(keysAndValues))
		for _, v := range keysAndValues {
			if f, ok := v.(zap.Field); ok {
				fields = append(fields, f)
			}
		}
		return fields
	}

	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// Default 返回仅输出到控制台的默认 logger
func Default() Logger {
	defaultOnce.Do(func() {
		l, err := New(DefaultConfig())
		if err != nil {
			defaultLogger = NewNoop()
			return
		}
		defaultLogger = l
	})
	return defaultLogger
}
