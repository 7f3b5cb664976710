package config

import (
	"strings"
)

// Option 加载器选项
type Option func(*Loader)

// WithDefaults 设置默认值，key 使用 "sim.turns" 形式
func WithDefaults(defaults map[string]any) Option {
	return func(l *Loader) {
		for key, value := range defaults {
			l.v.SetDefault(key, value)
		}
	}
}

// WithConfigType 文件扩展名无法识别时指定类型
func WithConfigType(configType string) Option {
	return func(l *Loader) { l.v.SetConfigType(configType) }
}

// WithEnvPrefix 开启环境变量覆盖，XDOORIA_AI_SIM_TURNS -> sim.turns
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		if prefix == "" {
			return
		}
		l.v.SetEnvPrefix(prefix)
		l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		l.v.AutomaticEnv()
	}
}
