// Package prometheus 封装独立 Registry 与指标 HTTP 服务
package prometheus

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client 拥有独立 Registry 的指标客户端，同时实现 app.Server
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	mu      sync.Mutex
	names   map[string]struct{}
	server  *http.Server
	boundTo string
}

// New 创建客户端，cfg 为 nil 时使用默认配置
func New(cfg *Config, l logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}

	c := &Client{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
		names:    make(map[string]struct{}),
	}
	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if cfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return c, nil
}

// Registry 返回底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回指标 HTTP Handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *Client) reserve(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.names[name]; ok {
		return ErrMetricExists
	}
	c.names[name] = struct{}{}
	return nil
}

func (c *Client) release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.names, name)
}

// NewCounter 创建并注册 CounterVec
func (c *Client) NewCounter(name, help string, labels []string) (*prometheus.CounterVec, error) {
	if err := c.reserve(name); err != nil {
		return nil, err
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.registry.Register(vec); err != nil {
		c.release(name)
		return nil, err
	}
	return vec, nil
}

// NewGauge 创建并注册 GaugeVec
func (c *Client) NewGauge(name, help string, labels []string) (*prometheus.GaugeVec, error) {
	if err := c.reserve(name); err != nil {
		return nil, err
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.registry.Register(vec); err != nil {
		c.release(name)
		return nil, err
	}
	return vec, nil
}

// NewHistogram 创建并注册 HistogramVec，buckets 为 nil 时使用默认桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*prometheus.HistogramVec, error) {
	if err := c.reserve(name); err != nil {
		return nil, err
	}
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if err := c.registry.Register(vec); err != nil {
		c.release(name)
		return nil, err
	}
	return vec, nil
}

// Start 启动指标 HTTP 服务，未启用时直接返回
func (c *Client) Start() error {
	if !c.config.HTTPServer.Enabled {
		return nil
	}

	ln, err := net.Listen("tcp", c.config.HTTPServer.Addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())
	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	c.mu.Lock()
	c.server = srv
	c.boundTo = ln.Addr().String()
	c.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped", "error", err)
		}
	}()
	c.logger.Info("metrics server listening", "addr", c.boundTo, "path", c.config.HTTPServer.Path)
	return nil
}

// Addr 返回实际监听地址，未启动时为空
func (c *Client) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boundTo
}

// Stop 关闭指标 HTTP 服务
func (c *Client) Stop() error {
	c.mu.Lock()
	srv := c.server
	c.server = nil
	c.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.HTTPServer.Timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
