// Package handlers 宿主侧的行为树条件与任务
package handlers

import (
	"math/rand/v2"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// Context 单次 Tick 的求值上下文，Tick 结束即丢弃
type Context struct {
	World  *world.World
	Self   *world.Actor
	Player *world.Actor
	Rand   *rand.Rand
	Log    logger.Logger
}

// NewContext 为 self 构造本回合的求值上下文
func NewContext(w *world.World, self *world.Actor, rng *rand.Rand, log logger.Logger) *Context {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Context{World: w, Self: self, Player: w.Player, Rand: rng, Log: log}
}

// playerAlive 玩家存在且存活
func (c *Context) playerAlive() bool {
	return c.Player != nil && c.Player.Alive()
}

// distance 到玩家的网格距离，玩家不存在时返回极大值
func (c *Context) distance() int {
	if !c.playerAlive() {
		return int(^uint(0) >> 1)
	}
	return world.BlockDistance(c.Self.Pos, c.Player.Pos)
}

// roll 掷 d100，返回 1..100
func (c *Context) roll() int {
	return c.Rand.IntN(100) + 1
}

// target 按角色名取目标：player 或 self
func (c *Context) target(role string) *world.Actor {
	switch role {
	case "player":
		if c.playerAlive() {
			return c.Player
		}
		return nil
	case "self", "":
		return c.Self
	default:
		return nil
	}
}
