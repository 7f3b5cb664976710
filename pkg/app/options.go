package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Options 应用配置选项
type Options struct {
	ID          string
	Name        string
	StopTimeout time.Duration
	Logger      logger.Logger
	Loggers     *Loggers
}

type Option func(*Options)

// DefaultOptions 默认选项，ID 每次启动随机生成
func DefaultOptions() Options {
	return Options{
		ID:          uuid.NewString(),
		Name:        AppName,
		StopTimeout: 10 * time.Second,
		Logger:      logger.Default(),
	}
}

// WithLoggers 设置具名日志通道，Shutdown 时统一刷新
func WithLoggers(ls *Loggers) Option {
	return func(o *Options) { o.Loggers = ls }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithStopTimeout 服务停止的最长等待时间，超时后继续关闭资源
func WithStopTimeout(t time.Duration) Option {
	return func(o *Options) { o.StopTimeout = t }
}
