// Package scheduler 回合调度：效果结算、玩家策略、怪物行为树求值
package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Config 调度参数
type Config struct {
	// ActivationRadius 主动型怪物被激活的距离
	ActivationRadius int `mapstructure:"activation_radius" validate:"min=1"`
	// PassiveActivationRadius 非主动型角色被激活的距离
	PassiveActivationRadius int `mapstructure:"passive_activation_radius" validate:"min=1"`
	// Trace 以 Debug 级别记录每个节点的求值
	Trace bool `mapstructure:"trace"`
}

// DefaultConfig 默认调度参数
func DefaultConfig() Config {
	return Config{
		ActivationRadius:        12,
		PassiveActivationRadius: 20,
	}
}

// Library 原型属性与行为树来源，由 *ai.Library 实现
type Library interface {
	Profile(a ai.Archetype) (*ai.Profile, error)
	Tree(a ai.Archetype) (*bt.Tree, error)
}

// Report 单回合结算结果
type Report struct {
	Turn      int
	Acted     int
	Stalled   int
	Paralysed int
	// Killed 本回合死亡的怪物原型
	Killed     []string
	PlayerDead bool
}

// Option 调度器选项
type Option func(*Scheduler)

// WithRecorder 设置指标上报
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.rec = r
		}
	}
}

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTraceLogger 节点求值日志单独输出，未设置时使用 scheduler.trace
func WithTraceLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.traceLog = l }
}

// WithPlayerPolicy 替换玩家行动策略
func WithPlayerPolicy(p PlayerPolicy) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.player = p
		}
	}
}

// Scheduler 单个会话的回合调度器，非并发安全
type Scheduler struct {
	cfg    Config
	lib    Library
	interp *bt.Interpreter[*handlers.Context]
	rng    *rand.Rand
	rec    metrics.Recorder
	logger logger.Logger
	player PlayerPolicy

	traceLog logger.Logger

	// current 正在求值的角色，供 trace 使用
	current *world.Actor
}

// New 创建调度器
func New(cfg Config, lib Library, reg *bt.Registry[*handlers.Context], rng *rand.Rand, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.ActivationRadius <= 0 {
		cfg.ActivationRadius = def.ActivationRadius
	}
	if cfg.PassiveActivationRadius <= 0 {
		cfg.PassiveActivationRadius = def.PassiveActivationRadius
	}
	s := &Scheduler{
		cfg:    cfg,
		lib:    lib,
		rng:    rng,
		rec:    metrics.Noop(),
		logger: logger.NewNoop(),
		player: WanderPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	if s.traceLog == nil {
		s.traceLog = s.logger.Named("trace")
	}

	iopts := []bt.InterpreterOption{
		bt.WithLogger(s.logger),
		bt.WithUnknownHandlerHook(s.rec.UnknownHandler),
	}
	if cfg.Trace {
		iopts = append(iopts, bt.WithTrace(s.trace))
	}
	s.interp = bt.NewInterpreter(reg, iopts...)
	return s
}

// Step 推进一个回合
func (s *Scheduler) Step(w *world.World) Report {
	w.Turn++
	s.rec.Turn()
	rep := Report{Turn: w.Turn}

	paralysed := s.applyEffects(w)
	rep.Paralysed = len(paralysed)

	if p := w.Player; p != nil && p.Alive() && !paralysed[p.ID] {
		p.TurnFinished = false
		s.player(w, s.rng)
	}

	for _, m := range w.Monsters() {
		if !m.Alive() || paralysed[m.ID] {
			continue
		}
		m.TurnFinished = false
		if !s.active(w, m) {
			continue
		}
		if s.act(w, m) {
			rep.Acted++
		} else {
			rep.Stalled++
		}
	}

	rep.Killed = s.reap(w)
	rep.PlayerDead = w.Player == nil || !w.Player.Alive()
	return rep
}

// active 是否在激活范围内
func (s *Scheduler) active(w *world.World, m *world.Actor) bool {
	if w.Player == nil || !w.Player.Alive() {
		return false
	}
	radius := s.cfg.PassiveActivationRadius
	if p, err := s.lib.Profile(m.Archetype); err == nil && p.Aggressive {
		radius = s.cfg.ActivationRadius
	}
	return world.BlockDistance(m.Pos, w.Player.Pos) <= radius
}

// act 求值一次行为树，返回角色是否自行结束了回合
func (s *Scheduler) act(w *world.World, m *world.Actor) bool {
	archetype := m.Archetype.String()
	tree, err := s.lib.Tree(m.Archetype)
	if err != nil {
		s.logger.Error("no tree for actor", "actor", m.Name, "archetype", archetype, "error", err)
		m.FinishTurn()
		s.rec.Stall(archetype)
		return false
	}

	s.current = m
	ctx := handlers.NewContext(w, m, s.rng, s.logger)
	start := time.Now()
	status := s.interp.Tick(tree, ctx)
	s.rec.Tick(archetype, status, time.Since(start))
	s.current = nil

	if m.TurnFinished {
		return true
	}
	s.logger.Debug("turn stalled", "actor", m.Name, "archetype", archetype, "status", status.String())
	m.FinishTurn()
	s.rec.Stall(archetype)
	return false
}

// reap 移除死亡的怪物
func (s *Scheduler) reap(w *world.World) []string {
	var killed []string
	for _, a := range w.Actors() {
		if a.Player || a.Alive() {
			continue
		}
		w.Remove(a.ID)
		w.Logf("%s dies", a.Name)
		s.rec.Killed(a.Archetype.String())
		killed = append(killed, a.Archetype.String())
	}
	return killed
}

func (s *Scheduler) trace(ev bt.TraceEvent) {
	name := ""
	if s.current != nil {
		name = s.current.Name
	}
	s.traceLog.Debug("tick node",
		"actor", name,
		"depth", ev.Depth,
		"node", ev.Node.String(),
		"status", ev.Status.String(),
	)
}
