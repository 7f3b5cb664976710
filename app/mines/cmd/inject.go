//go:build !wireinject
// +build !wireinject

package main

import (
	"github.com/lk2023060901/xdooria-ai/pkg/app"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
)

// InitApp 按 wire.go 中的 provider 顺序组装应用，修改 provider 时两处同步
func InitApp(cfg *Config, l logger.Logger) (app.Application, func(), error) {
	loggers, err := provideLoggers(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	v := provideAppOptions(l, loggers)
	baseApp := app.NewBaseApp(v...)
	framer, err := provideFramer(cfg)
	if err != nil {
		return nil, nil, err
	}
	library, cleanup, err := provideLibrary(cfg, framer, l)
	if err != nil {
		return nil, nil, err
	}
	set, cleanup2 := provideHandlers(cfg, l)
	config := providePrometheusConfig(cfg)
	client, err := prometheus.New(config, l)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	metrics, err := provideMetrics(cfg, client)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	deps := provideDeps(library, set, framer, metrics, l, loggers)
	components, err := provideAppComponents(cfg, deps, client, metrics, l)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	application := app.Bind(baseApp, components)
	return application, func() {
		cleanup2()
		cleanup()
	}, nil
}
