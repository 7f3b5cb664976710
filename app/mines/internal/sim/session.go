// Package sim 模拟会话、批量运行与回合驱动服务
package sim

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/render"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/save"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/scheduler"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Config 单个会话的配置
type Config struct {
	// Seed 随机种子，0 表示按时间生成
	Seed uint64 `mapstructure:"seed"`
	// Turns 运行回合数上限
	Turns int `mapstructure:"turns" validate:"min=1"`
	// Level 关卡文件，为空使用内置关卡
	Level string `mapstructure:"level"`
	// Save 结束时写入的存档路径
	Save string `mapstructure:"save"`
	// Load 启动时读取的存档路径，优先于 Level
	Load string `mapstructure:"load"`

	Scheduler scheduler.Config `mapstructure:"scheduler"`
}

// DefaultConfig 默认会话配置
func DefaultConfig() Config {
	return Config{
		Turns:     200,
		Scheduler: scheduler.DefaultConfig(),
	}
}

// Deps 会话共享的依赖，均可跨会话并发使用
type Deps struct {
	Library  *ai.Library
	Handlers *handlers.Set
	Framer   framer.Framer
	Recorder metrics.Recorder
	Logger   logger.Logger
	// TraceLogger 节点求值日志，为 nil 时从 Logger 派生
	TraceLogger logger.Logger
}

// Result 会话结束时的统计
type Result struct {
	ID         string         `json:"id"`
	Seed       uint64         `json:"seed"`
	Turns      int            `json:"turns"`
	PlayerDead bool           `json:"player_dead"`
	PlayerHP   int            `json:"player_hp"`
	Acted      int            `json:"acted"`
	Stalls     int            `json:"stalls"`
	Kills      map[string]int `json:"kills"`
	Survivors  int            `json:"survivors"`
	Duration   time.Duration  `json:"duration"`
}

// SessionOption 会话选项
type SessionOption func(*Session)

// WithOutput 每回合把画面写到 out
func WithOutput(out io.Writer, r *render.Renderer) SessionOption {
	return func(s *Session) {
		s.out = out
		s.renderer = r
	}
}

// WithPlayerPolicy 替换玩家策略
func WithPlayerPolicy(p scheduler.PlayerPolicy) SessionOption {
	return func(s *Session) { s.policy = p }
}

// Session 一局模拟：世界、调度器与随机源，非并发安全
type Session struct {
	ID    string
	Seed  uint64
	World *world.World

	cfg      Config
	deps     Deps
	sched    *scheduler.Scheduler
	logger   logger.Logger
	policy   scheduler.PlayerPolicy
	out      io.Writer
	renderer *render.Renderer

	result Result
}

// NewSession 按配置创建会话：读档或加载关卡
func NewSession(cfg Config, deps Deps, opts ...SessionOption) (*Session, error) {
	if deps.Library == nil || deps.Handlers == nil {
		return nil, errors.New("sim: session needs a library and a handler set")
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.Noop()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoop()
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	s := &Session{
		ID:   uuid.NewString(),
		Seed: cfg.Seed,
		cfg:  cfg,
		deps: deps,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = deps.Logger.Named("sim").WithFields("session", s.ID, "seed", s.Seed)

	w, err := s.loadWorld()
	if err != nil {
		return nil, err
	}
	s.World = w

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	sopts := []scheduler.Option{
		scheduler.WithRecorder(deps.Recorder),
		scheduler.WithLogger(deps.Logger),
		scheduler.WithPlayerPolicy(s.policy),
	}
	if deps.TraceLogger != nil {
		sopts = append(sopts, scheduler.WithTraceLogger(deps.TraceLogger))
	}
	s.sched = scheduler.New(cfg.Scheduler, deps.Library, deps.Handlers.NewRegistry(), rng, sopts...)
	s.result = Result{ID: s.ID, Seed: s.Seed, Kills: make(map[string]int)}
	return s, nil
}

func (s *Session) loadWorld() (*world.World, error) {
	if s.cfg.Load != "" {
		if s.deps.Framer == nil {
			return nil, errors.New("sim: loading a save needs a framer")
		}
		w, err := save.Read(s.cfg.Load, s.deps.Framer, s.deps.Library)
		if err != nil {
			return nil, err
		}
		s.logger.Info("save loaded", "path", s.cfg.Load, "turn", w.Turn)
		return w, nil
	}

	var (
		lf    *world.LevelFile
		level *world.Level
		err   error
	)
	if s.cfg.Level != "" {
		lf, level, err = world.LoadLevel(s.cfg.Level)
	} else {
		lf, level, err = world.DefaultLevel()
	}
	if err != nil {
		return nil, err
	}
	return world.Populate(lf, level)
}

// Step 推进一回合
func (s *Session) Step() scheduler.Report {
	rep := s.sched.Step(s.World)
	s.result.Turns++
	s.result.Acted += rep.Acted
	s.result.Stalls += rep.Stalled
	for _, k := range rep.Killed {
		s.result.Kills[k]++
	}
	if s.out != nil && s.renderer != nil {
		fmt.Fprintln(s.out, s.renderer.Frame(s.World))
	}
	return rep
}

// Run 运行至多 turns 回合，玩家死亡或 ctx 取消时提前结束
func (s *Session) Run(ctx context.Context, turns int) (*Result, error) {
	if turns <= 0 {
		turns = s.cfg.Turns
	}
	start := time.Now()
	s.logger.Info("session started", "turns", turns, "monsters", len(s.World.Monsters()))

	var runErr error
	for i := 0; i < turns; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if rep := s.Step(); rep.PlayerDead {
			s.logger.Info("player died", "turn", rep.Turn)
			break
		}
	}
	s.result.Duration += time.Since(start)

	if s.cfg.Save != "" {
		if err := s.Save(s.cfg.Save); err != nil {
			return s.Result(), err
		}
	}
	res := s.Result()
	s.logger.Info("session finished",
		"turns", res.Turns,
		"player_dead", res.PlayerDead,
		"stalls", res.Stalls,
		"survivors", res.Survivors,
		"duration", res.Duration,
	)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return res, runErr
}

// Save 写入存档
func (s *Session) Save(path string) error {
	if s.deps.Framer == nil {
		return errors.New("sim: saving needs a framer")
	}
	if err := save.Write(path, s.World, s.deps.Framer); err != nil {
		return err
	}
	s.logger.Info("session saved", "path", path, "turn", s.World.Turn)
	return nil
}

// Result 当前统计的副本
func (s *Session) Result() *Result {
	res := s.result
	res.Kills = make(map[string]int, len(s.result.Kills))
	for k, v := range s.result.Kills {
		res.Kills[k] = v
	}
	if p := s.World.Player; p != nil {
		res.PlayerHP = p.HP
		res.PlayerDead = !p.Alive()
	} else {
		res.PlayerDead = true
	}
	res.Survivors = len(s.World.Monsters())
	return &res
}
