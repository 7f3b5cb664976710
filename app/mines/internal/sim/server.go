package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/robfig/cron/v3"
)

// ServerConfig 回合驱动服务配置
type ServerConfig struct {
	// Interval 两回合之间的间隔
	Interval time.Duration `mapstructure:"interval" validate:"min=1ms"`
	// StatusEvery 每隔多少回合输出一次统计日志，0 表示不输出
	StatusEvery int `mapstructure:"status_every" validate:"min=0"`
	// Restart 玩家死亡后以新种子重开
	Restart bool `mapstructure:"restart"`
	// Autosave 定时存档的 cron 表达式，例如 "@every 1m"，需要同时配置 sim.save
	Autosave string `mapstructure:"autosave"`
}

// DefaultServerConfig 默认服务配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{Interval: 200 * time.Millisecond, StatusEvery: 50, Restart: true}
}

// Server 按固定间隔推进会话，实现 app.Server
type Server struct {
	cfg     ServerConfig
	base    Config
	deps    Deps
	window  *metrics.Window
	logger  logger.Logger
	mu      sync.Mutex
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}

	cron      *cron.Cron
	autosaves atomic.Int64
}

// NewServer 创建回合驱动服务，window 可为 nil
func NewServer(cfg ServerConfig, base Config, deps Deps, window *metrics.Window) *Server {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultServerConfig().Interval
	}
	l := deps.Logger
	if l == nil {
		l = logger.NewNoop()
	}
	return &Server{
		cfg:    cfg,
		base:   base,
		deps:   deps,
		window: window,
		logger: l.Named("sim.server"),
	}
}

// Start 创建会话并在后台推进
func (s *Server) Start() error {
	sess, err := NewSession(s.base, s.deps)
	if err != nil {
		return err
	}
	var c *cron.Cron
	if s.cfg.Autosave != "" {
		if s.base.Save == "" {
			return errors.New("sim: autosave needs sim.save")
		}
		c = cron.New()
		if _, err := c.AddFunc(s.cfg.Autosave, s.autosave); err != nil {
			return errors.Wrapf(err, "autosave spec %q", s.cfg.Autosave)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cron = c
	s.session = sess
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
	if c != nil {
		c.Start()
	}
	s.logger.Info("turn driver started", "session", sess.ID, "interval", s.cfg.Interval, "autosave", s.cfg.Autosave)
	return nil
}

func (s *Server) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		rep := s.session.Step()
		if s.cfg.StatusEvery > 0 && rep.Turn%s.cfg.StatusEvery == 0 {
			s.status()
		}
		if rep.PlayerDead {
			s.logger.Info("player died", "session", s.session.ID, "turn", rep.Turn)
			if !s.cfg.Restart {
				s.mu.Unlock()
				return
			}
			if err := s.restart(); err != nil {
				s.logger.Error("failed to restart session", "error", err)
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
	}
}

// restart 以下一个种子重开，调用方持有锁
func (s *Server) restart() error {
	cfg := s.base
	cfg.Seed = s.session.Seed + 1
	cfg.Load = ""
	sess, err := NewSession(cfg, s.deps)
	if err != nil {
		return err
	}
	s.session = sess
	return nil
}

func (s *Server) status() {
	res := s.session.Result()
	fields := []any{
		"session", res.ID,
		"turn", s.session.World.Turn,
		"player_hp", res.PlayerHP,
		"survivors", res.Survivors,
		"stalls", res.Stalls,
	}
	if s.window != nil {
		st := s.window.Stats()
		fields = append(fields, "tps", st.TPS, "avg_tick", time.Duration(st.AvgLatency*float64(time.Second)))
	}
	s.logger.Info("turn driver status", fields...)
}

func (s *Server) autosave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Save(s.base.Save); err != nil {
		s.logger.Error("autosave failed", "path", s.base.Save, "error", err)
		return
	}
	s.autosaves.Add(1)
}

// Autosaves 已完成的定时存档次数
func (s *Server) Autosaves() int64 {
	return s.autosaves.Load()
}

// Session 当前会话
func (s *Server) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Stop 停止推进并按配置写存档
func (s *Server) Stop() error {
	s.mu.Lock()
	cancel, done, c := s.cancel, s.done, s.cron
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	if c != nil {
		<-c.Stop().Done()
	}
	cancel()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
	if s.base.Save != "" {
		return s.session.Save(s.base.Save)
	}
	return nil
}
