// Package app 进程生命周期：后台服务、前台任务、信号与有序关闭
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

var ErrAppAlreadyRunning = errors.New("application is already running")

// Application 应用接口
type Application interface {
	Run() error
	Shutdown() error
	Context() context.Context
	// Logger 获取具名日志通道
	Logger(name string) logger.Logger
}

// Server 后台服务，例如指标 HTTP 与回合驱动器
type Server interface {
	Start() error
	Stop() error
}

type Closer interface {
	Close() error
}

// Task 前台任务，返回后应用退出
type Task func(ctx context.Context) error

// BaseApp Application 的基础实现
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	loggers *Loggers

	mu      sync.RWMutex
	servers []Server
	closers []Closer
	task    Task
	running []Server

	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建 BaseApp
func NewBaseApp(opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	l := o.Logger.Named(o.Name)
	loggers := o.Loggers
	if loggers == nil {
		loggers, _ = NewLoggers(l, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseApp{
		opts:    o,
		logger:  l,
		loggers: loggers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context 应用生命周期上下文，Shutdown 时取消
func (a *BaseApp) Context() context.Context {
	return a.ctx
}

func (a *BaseApp) Logger(name string) logger.Logger {
	return a.loggers.For(name)
}

// SetTask 设置前台任务，未设置时 Run 阻塞到收到信号
func (a *BaseApp) SetTask(t Task) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.task = t
}

func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 添加资源，Shutdown 时逆序关闭
func (a *BaseApp) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

// Run 启动服务并阻塞，直到前台任务结束、收到信号或 Shutdown
//
// 前台任务返回 context.Canceled 视为正常退出
func (a *BaseApp) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	info := GetInfo()
	a.logger.Info("application starting",
		"name", info.AppName,
		"version", info.Version,
		"commit", info.GitCommit,
		"formats", info.Formats,
		"id", a.opts.ID,
	)

	if err := a.startServers(); err != nil {
		_ = a.Shutdown()
		return err
	}

	a.mu.RLock()
	task := a.task
	a.mu.RUnlock()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	taskDone := make(chan error, 1)
	if task != nil {
		go func() { taskDone <- task(a.ctx) }()
	}

	var runErr error
	select {
	case sig := <-quit:
		a.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	case runErr = <-taskDone:
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}
		if runErr != nil {
			a.logger.Error("task failed", "error", runErr)
		}
	}

	return errors.CombineErrors(runErr, a.Shutdown())
}

// startServers 顺序启动，失败时只有已启动的服务会在 Shutdown 中停止
func (a *BaseApp) startServers() error {
	a.mu.RLock()
	servers := append([]Server(nil), a.servers...)
	a.mu.RUnlock()

	for i, srv := range servers {
		if err := srv.Start(); err != nil {
			a.logger.Error("failed to start server", "index", i, "error", err)
			return errors.Wrapf(err, "start server %d", i)
		}
		a.mu.Lock()
		a.running = append(a.running, srv)
		a.mu.Unlock()
	}
	return nil
}

// Shutdown 停止服务并逆序关闭资源，重复调用无副作用
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.cancel()
	a.logger.Info("application shutting down")

	a.mu.RLock()
	running := append([]Server(nil), a.running...)
	closers := append([]Closer(nil), a.closers...)
	a.mu.RUnlock()

	a.stopServers(running)

	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
			errs = errors.CombineErrors(errs, err)
		}
	}

	a.logger.Info("application exited")
	_ = a.loggers.Sync()
	_ = a.logger.Sync()
	return errs
}

func (a *BaseApp) stopServers(servers []Server) {
	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(s Server) {
			defer wg.Done()
			if err := s.Stop(); err != nil {
				a.logger.Error("failed to stop server", "error", err)
			}
		}(srv)
	}

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		a.logger.Debug("all servers stopped")
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("shutdown timeout, forcing exit", "timeout", a.opts.StopTimeout)
	}
}
