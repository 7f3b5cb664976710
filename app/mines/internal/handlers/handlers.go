package handlers

import (
	"github.com/expr-lang/expr/vm"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Config 处理器参数
type Config struct {
	// HPLowPercent hp_low 的阈值，HP 不高于上限的该百分比时成立
	HPLowPercent int `mapstructure:"hp_low_percent" validate:"min=1,max=100"`
	// RangedFalloff 远程攻击每格衰减的命中率
	RangedFalloff int `mapstructure:"ranged_falloff" validate:"min=0,max=100"`
	// EffectTurns 未指定时效果持续回合
	EffectTurns int `mapstructure:"effect_turns" validate:"min=1"`
	// ExprCacheSize expr 条件编译结果缓存容量
	ExprCacheSize int `mapstructure:"expr_cache_size" validate:"min=1"`
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		HPLowPercent:  30,
		RangedFalloff: 5,
		EffectTurns:   3,
		ExprCacheSize: 64,
	}
}

// Set 处理器集合，持有 expr 程序缓存，可被多个会话共享
type Set struct {
	cfg    Config
	exprs  *lru.LRU[string, *vm.Program]
	logger logger.Logger
}

// New 创建处理器集合，零值字段使用默认值
func New(cfg Config, log logger.Logger) *Set {
	def := DefaultConfig()
	if cfg.HPLowPercent == 0 {
		cfg.HPLowPercent = def.HPLowPercent
	}
	if cfg.EffectTurns == 0 {
		cfg.EffectTurns = def.EffectTurns
	}
	if cfg.ExprCacheSize == 0 {
		cfg.ExprCacheSize = def.ExprCacheSize
	}
	if log == nil {
		log = logger.NewNoop()
	}
	return &Set{
		cfg:    cfg,
		exprs:  lru.New[string, *vm.Program](&lru.Config{MaxSize: cfg.ExprCacheSize}),
		logger: log.Named("handlers"),
	}
}

// Register 注册全部条件与任务
func (s *Set) Register(reg *bt.Registry[*Context]) {
	reg.RegisterCondition("player_in_range", s.playerInRange)
	reg.RegisterCondition("player_visible", s.playerVisible)
	reg.RegisterCondition("has_effect", s.hasEffect)
	reg.RegisterCondition("has_equipped", s.hasEquipped)
	reg.RegisterCondition("hp_low", s.hpLow)
	reg.RegisterCondition("d100", s.d100)
	reg.RegisterCondition("expr", s.expr)

	reg.RegisterTask("idle", s.idle)
	reg.RegisterTask("end", s.idle)
	reg.RegisterTask("move_rnd", s.moveRandom)
	reg.RegisterTask("move_away", s.moveAway)
	reg.RegisterTask("chase_player", s.chasePlayer)
	reg.RegisterTask("attack", s.attack)
	reg.RegisterTask("attack_basic", s.attack)
	reg.RegisterTask("attack_effect", s.attackEffect)
	reg.RegisterTask("attack_ranged", s.attackRanged)
	reg.RegisterTask("attack_special", s.attackSpecial)
	reg.RegisterTask("save_player_pos", s.savePlayerPos)
	reg.RegisterTask("goto_last_player_pos", s.gotoLastPlayerPos)
	reg.RegisterTask("drink_potion", s.drinkPotion)
	reg.RegisterTask("apply_effect", s.applyEffect)
	reg.RegisterTask("print_message", s.printMessage)
}

// NewRegistry 创建已注册全部处理器的注册表
func (s *Set) NewRegistry() *bt.Registry[*Context] {
	reg := bt.NewRegistry[*Context]()
	s.Register(reg)
	return reg
}

// Close 释放 expr 缓存
func (s *Set) Close() error {
	return s.exprs.Close()
}
