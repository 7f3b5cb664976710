// Package config 基于 viper 的分层配置加载、合并与校验
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Loader 分层配置加载器
//
// 优先级从低到高：默认值、配置文件、环境变量、Override 显式覆盖
type Loader struct {
	mu   sync.RWMutex
	v    *viper.Viper
	file string
}

// NewLoader 创建加载器
func NewLoader(opts ...Option) *Loader {
	l := &Loader{v: viper.New()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReadFile 读取配置文件
// 文件不存在时 required 为 false 返回 (false, nil)，否则返回 ErrFileNotFound
func (l *Loader) ReadFile(path string, required bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if path == "" {
		if required {
			return false, fmt.Errorf("%w: empty path", ErrFileNotFound)
		}
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if required {
			return false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return false, nil
	}

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	l.file = path
	return true, nil
}

// Override 显式覆盖某个配置项，常用于命令行参数
func (l *Loader) Override(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.v.Set(key, value)
}

// Decode 将全部配置解析到 target，target 中已有的值作为默认值
func (l *Loader) Decode(target any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.v.Unmarshal(target, decodeHook()); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// DecodeKey 解析指定路径，例如 "sim" 或 "handlers"
func (l *Loader) DecodeKey(key string, target any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.v.UnmarshalKey(key, target, decodeHook()); err != nil {
		return fmt.Errorf("failed to decode key %s: %w", key, err)
	}
	return nil
}

// File 已加载的配置文件路径，未加载时为空
func (l *Loader) File() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.file
}

func (l *Loader) String(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetString(key)
}

func (l *Loader) Bool(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetBool(key)
}

// 命令行覆盖的值都是字符串，"a,b" 需要能解析为切片
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
}
