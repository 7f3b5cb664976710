package main

import (
	"fmt"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/save"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/sim"
	"github.com/lk2023060901/xdooria-ai/pkg/app"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
	"github.com/spf13/pflag"
)

// 运行模式
const (
	ModeRun   = "run"
	ModeBatch = "batch"
	ModeServe = "serve"
)

// RenderConfig 终端画面配置
type RenderConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	LogLines int  `mapstructure:"log_lines" validate:"min=0"`
}

// Config 定义 mines 模拟器的完整配置结构
type Config struct {
	Log     logger.Config             `mapstructure:"log"`
	Loggers map[string]*logger.Config `mapstructure:"loggers"`

	// 运行模式：run | batch | serve
	Mode string `mapstructure:"mode" validate:"oneof=run batch serve"`

	// 脚本库
	AI ai.Config `mapstructure:"ai"`

	// 条件与任务参数
	Handlers handlers.Config `mapstructure:"handlers"`

	// 存档与脚本包信封
	Framer framer.Config `mapstructure:"framer"`

	// 会话
	Sim sim.Config `mapstructure:"sim"`

	// 批量模拟
	Batch sim.BatchConfig `mapstructure:"batch"`

	// 回合驱动服务
	Server sim.ServerConfig `mapstructure:"server"`

	Render RenderConfig `mapstructure:"render"`

	// Prometheus 配置
	Prometheus prometheus.Config `mapstructure:"prometheus"`

	// Tick 统计窗口
	Window metrics.WindowConfig `mapstructure:"window"`
}

// defaultConfig 配置文件缺省项的默认值
func defaultConfig() Config {
	return Config{
		Log:        *logger.DefaultConfig(),
		Mode:       ModeRun,
		AI:         ai.Config{CacheSize: 64},
		Handlers:   handlers.DefaultConfig(),
		Framer:     *framer.DefaultConfig(),
		Sim:        sim.DefaultConfig(),
		Batch:      sim.DefaultBatchConfig(),
		Server:     sim.DefaultServerConfig(),
		Render:     RenderConfig{LogLines: 6},
		Prometheus: *prometheus.DefaultConfig(),
		Window:     *metrics.DefaultWindowConfig(),
	}
}

func init() {
	pflag.String("mode", ModeRun, "run mode: run, batch or serve")
	pflag.Uint64("seed", 0, "random seed, 0 picks one from the clock")
	pflag.Int("turns", 0, "maximum turns per session")
	pflag.String("save", "", "write a save file when the session ends")
	pflag.String("load", "", "start from a save file")
	pflag.Bool("trace", false, "log every evaluated tree node at debug level")
	pflag.Bool("render", false, "draw the map after every turn")
	pflag.Bool("version", false, "print version information and exit")

	app.RegisterFormat("bytecode", bt.BytecodeVersion)
	app.RegisterFormat("save", save.Version)

	app.BindFlag("mode", "mode")
	app.BindFlag("sim.seed", "seed")
	app.BindFlag("sim.turns", "turns")
	app.BindFlag("sim.save", "save")
	app.BindFlag("sim.load", "load")
	app.BindFlag("sim.scheduler.trace", "trace")
	app.BindFlag("render.enabled", "render")
}

func main() {
	cfg := defaultConfig()

	// 1. 加载配置
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}
	if v, _ := pflag.CommandLine.GetBool("version"); v {
		fmt.Println(app.GetInfo().String())
		return
	}
	if err := config.NewValidator().Validate(&cfg); err != nil {
		panic(err)
	}
	if cfg.Sim.Scheduler.Trace {
		cfg.Log.Level = logger.DebugLevel
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 4. 运行
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
