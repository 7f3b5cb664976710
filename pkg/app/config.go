package app

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/spf13/pflag"
)

// EnvPrefix 环境变量前缀，XDOORIA_AI_SIM_TURNS -> sim.turns
const EnvPrefix = "XDOORIA_AI"

var (
	mu         sync.Mutex
	configPath string
	logPath    string
	bindings   = map[string]string{}
)

// BindFlag 将命令行参数绑定到配置项，显式传入的参数优先级最高
func BindFlag(key, flag string) {
	mu.Lock()
	defer mu.Unlock()
	bindings[key] = flag
}

// LoadConfig 从 pflag.CommandLine 与 os.Args 加载配置
// 优先级：命令行显式参数 > 环境变量 > 配置文件 > 默认值
func LoadConfig(target any, opts ...config.Option) error {
	return LoadConfigFrom(pflag.CommandLine, os.Args[1:], target, opts...)
}

// LoadConfigFrom 使用指定 FlagSet 加载配置
// 默认路径下的配置文件不存在时只使用默认值，显式指定的文件必须存在
func LoadConfigFrom(fs *pflag.FlagSet, args []string, target any, opts ...config.Option) error {
	mu.Lock()
	defer mu.Unlock()

	execDir, err := GetExecDir()
	if err != nil {
		return errors.Wrap(err, "failed to get executable directory")
	}
	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "mines.log")

	if fs.Lookup("config") == nil {
		fs.StringP("config", "c", defaultConfig, "path to config file")
	}
	if fs.Lookup("log.path") == nil {
		fs.String("log.path", defaultLog, "output path for logs")
	}
	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return errors.Wrap(err, "failed to parse flags")
		}
	}

	path := fs.Lookup("config").Value.String()
	explicit := fs.Changed("config")
	if !explicit {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			path = env
			explicit = true
		}
	}

	loader := config.NewLoader(append([]config.Option{config.WithEnvPrefix(EnvPrefix)}, opts...)...)
	if _, err := loader.ReadFile(path, explicit); err != nil {
		return err
	}
	configPath = loader.File()

	if fs.Changed("log.path") {
		loader.Override("log.output_path", fs.Lookup("log.path").Value.String())
	}
	for key, name := range bindings {
		if f := fs.Lookup(name); f != nil && f.Changed {
			loader.Override(key, f.Value.String())
		}
	}

	if err := loader.Decode(target); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}

	logPath = loader.String("log.output_path")
	if loader.Bool("log.enable_file") && logPath != "" {
		_ = os.MkdirAll(filepath.Dir(logPath), 0o755)
	}
	return nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 最终加载的配置文件路径，未加载文件时为空
func GetConfigPath() string {
	mu.Lock()
	defer mu.Unlock()
	return configPath
}

func GetLogPath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}
