package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/render"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/sim"
	"github.com/lk2023060901/xdooria-ai/pkg/app"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
)

// 具名日志通道
const (
	loggerSim   = "sim"
	loggerTrace = "trace"
)

// provideLoggers 按 loggers 配置创建具名日志通道
func provideLoggers(cfg *Config, l logger.Logger) (*app.Loggers, error) {
	return app.NewLoggers(l, cfg.Loggers)
}

// provideAppOptions 提供应用选项
func provideAppOptions(l logger.Logger, ls *app.Loggers) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
		app.WithLoggers(ls),
	}
}

// providePrometheusConfig 提供 Prometheus 配置
func providePrometheusConfig(cfg *Config) *prometheus.Config {
	return &cfg.Prometheus
}

// provideFramer 提供存档与脚本包信封
func provideFramer(cfg *Config) (framer.Framer, error) {
	return framer.New(&cfg.Framer)
}

// provideLibrary 加载脚本包并预编译全部原型
func provideLibrary(cfg *Config, f framer.Framer, l logger.Logger) (*ai.Library, func(), error) {
	opts := []ai.Option{ai.WithLogger(l)}
	if cfg.AI.Bundle != "" {
		data, err := os.ReadFile(cfg.AI.Bundle)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read bundle %s", cfg.AI.Bundle)
		}
		b, err := ai.UnmarshalBundle(data, f)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bundle %s", cfg.AI.Bundle)
		}
		opts = append(opts, ai.WithBundle(b))
	}
	lib := ai.NewLibrary(cfg.AI, opts...)
	if err := lib.Preload(); err != nil {
		_ = lib.Close()
		return nil, nil, err
	}
	return lib, func() { _ = lib.Close() }, nil
}

// provideHandlers 提供条件与任务集合
func provideHandlers(cfg *Config, l logger.Logger) (*handlers.Set, func()) {
	set := handlers.New(cfg.Handlers, l)
	return set, func() { _ = set.Close() }
}

// provideMetrics 在 Prometheus 客户端上注册模拟指标
func provideMetrics(cfg *Config, c *prometheus.Client) (*metrics.Metrics, error) {
	return metrics.New(c, &cfg.Window)
}

// provideDeps 组装会话依赖
func provideDeps(lib *ai.Library, set *handlers.Set, f framer.Framer, m *metrics.Metrics, l logger.Logger, ls *app.Loggers) sim.Deps {
	deps := sim.Deps{
		Library:  lib,
		Handlers: set,
		Framer:   f,
		Recorder: m,
		Logger:   l,
	}
	if ls.Configured(loggerSim) {
		deps.Logger = ls.For(loggerSim)
	}
	if ls.Configured(loggerTrace) {
		deps.TraceLogger = ls.For(loggerTrace)
	}
	return deps
}

// provideAppComponents 按运行模式组装服务与前台任务
func provideAppComponents(
	cfg *Config,
	deps sim.Deps,
	promClient *prometheus.Client,
	m *metrics.Metrics,
	l logger.Logger,
) (app.Components, error) {
	comps := app.Components{
		Servers: []app.Server{promClient},
	}
	if cfg.AI.Watch && cfg.AI.ScriptsDir != "" {
		comps.Servers = append(comps.Servers, &scriptWatcher{dir: cfg.AI.ScriptsDir, lib: deps.Library, logger: l})
	}

	switch cfg.Mode {
	case ModeRun:
		comps.Task = runTask(cfg, deps, l)
	case ModeBatch:
		comps.Task = batchTask(cfg, deps, l)
	case ModeServe:
		comps.Servers = append(comps.Servers, sim.NewServer(cfg.Server, cfg.Sim, deps, m.Window()))
	default:
		return app.Components{}, errors.Newf("unknown mode %q", cfg.Mode)
	}
	return comps, nil
}

func runTask(cfg *Config, deps sim.Deps, l logger.Logger) app.Task {
	return func(ctx context.Context) error {
		var opts []sim.SessionOption
		if cfg.Render.Enabled {
			opts = append(opts, sim.WithOutput(os.Stdout, render.New(render.WithLogLines(cfg.Render.LogLines))))
		}
		s, err := sim.NewSession(cfg.Sim, deps, opts...)
		if err != nil {
			return err
		}
		res, err := s.Run(ctx, cfg.Sim.Turns)
		if err != nil {
			return err
		}
		return writeJSON(res)
	}
}

func batchTask(cfg *Config, deps sim.Deps, l logger.Logger) app.Task {
	return func(ctx context.Context) error {
		rep, err := sim.Batch(ctx, cfg.Batch, cfg.Sim, deps)
		if rep != nil {
			l.Info("batch finished",
				"runs", rep.Runs,
				"failed", rep.Failed,
				"player_deaths", rep.PlayerDeaths,
				"avg_turns", rep.AvgTurns,
				"stalls", rep.Stalls,
				"duration", rep.Duration,
			)
			if werr := writeJSON(rep); werr != nil {
				return werr
			}
		}
		return err
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scriptWatcher 监听脚本目录并热加载
type scriptWatcher struct {
	dir    string
	lib    *ai.Library
	logger logger.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *scriptWatcher) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		if err := ai.Watch(ctx, w.dir, w.lib, w.logger, nil); err != nil {
			w.logger.Error("script watcher stopped", "error", err)
		}
	}()
	return nil
}

func (w *scriptWatcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return nil
}
