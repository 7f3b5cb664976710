//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/xdooria-ai/pkg/app"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
)

func InitApp(cfg *Config, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,
		provideLoggers,
		provideAppOptions,

		// 2. 信封与脚本库
		provideFramer,
		provideLibrary,

		// 3. 条件与任务
		provideHandlers,

		// 4. Prometheus 客户端与模拟指标
		providePrometheusConfig,
		prometheus.New,
		provideMetrics,

		// 5. 会话依赖与组件
		provideDeps,
		provideAppComponents,
		app.Bind,
	))
}
