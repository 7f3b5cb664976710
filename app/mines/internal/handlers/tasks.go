package handlers

import (
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
)

// KeyLastPlayerPos 记忆中最后看到玩家的位置
const KeyLastPlayerPos = "last_player_pos"

const (
	// SlotArmor 护甲槽位，吸血攻击对着甲目标无效
	SlotArmor = "ARM"
	// AttackLeech 吸血
	AttackLeech = "Lch"
)

// 命中率上下限
const (
	minHitChance = 5
	maxHitChance = 95
)

func (s *Set) idle(c *Context, _ []string) bt.Status {
	c.Self.FinishTurn()
	return bt.Success
}

func (s *Set) moveRandom(c *Context, _ []string) bt.Status {
	around := c.World.WalkableAround(c.Self.Pos)
	if len(around) == 0 {
		return bt.Failure
	}
	return s.step(c, around[c.Rand.IntN(len(around))])
}

func (s *Set) moveAway(c *Context, _ []string) bt.Status {
	if !c.playerAlive() {
		return bt.Failure
	}
	best, bestDist := world.Position{}, c.distance()
	found := false
	for _, p := range c.World.WalkableAround(c.Self.Pos) {
		if d := world.BlockDistance(p, c.Player.Pos); d > bestDist {
			best, bestDist, found = p, d, true
		}
	}
	if !found {
		return bt.Failure
	}
	return s.step(c, best)
}

func (s *Set) chasePlayer(c *Context, _ []string) bt.Status {
	if !c.playerAlive() {
		return bt.Failure
	}
	next, ok := c.World.NextStep(c.Self.Pos, c.Player.Pos)
	if !ok {
		return bt.Failure
	}
	if next == c.Player.Pos {
		// 斜向相邻时换到与玩家正交相邻的格子
		for _, p := range c.World.WalkableAround(c.Self.Pos) {
			if world.BlockDistance(p, c.Player.Pos) == 1 {
				return s.step(c, p)
			}
		}
		return bt.Failure
	}
	return s.step(c, next)
}

func (s *Set) attack(c *Context, args []string) bt.Status {
	if !s.adjacent(c) {
		return bt.Failure
	}
	alwaysHit := len(args) > 0 && args[0] == "1"
	if alwaysHit || c.roll() <= HitChance(c.Self.Skl, c.Player.Skl) {
		s.hit(c, c.Self.Str)
	} else {
		c.World.Logf("%s misses %s", c.Self.Name, c.Player.Name)
	}
	c.Self.FinishTurn()
	return bt.Success
}

func (s *Set) attackEffect(c *Context, args []string) bt.Status {
	if len(args) < 1 {
		s.logger.Warn("attack_effect needs an effect", "actor", c.Self.Name)
		return bt.Failure
	}
	if !s.adjacent(c) {
		return bt.Failure
	}
	turns := s.turnsArg(c, args, 1)
	if c.roll() <= HitChance(c.Self.Skl, c.Player.Skl) {
		s.hit(c, c.Self.Str)
		if c.Player.Alive() {
			c.Player.AddEffect(args[0], turns)
			c.World.Logf("%s is afflicted with %s", c.Player.Name, args[0])
		}
	} else {
		c.World.Logf("%s misses %s", c.Self.Name, c.Player.Name)
	}
	c.Self.FinishTurn()
	return bt.Success
}

// attackSpecial attack_special <Lch> [ignore_armor]
// Lch 吸血：命中且目标未着甲（或 ignore_armor 为 1）时按造成的伤害回复生命
func (s *Set) attackSpecial(c *Context, args []string) bt.Status {
	if len(args) < 1 {
		s.logger.Warn("attack_special needs an attack type", "actor", c.Self.Name)
		return bt.Failure
	}
	if !s.adjacent(c) {
		return bt.Failure
	}
	ignoreArmor := len(args) > 1 && args[1] == "1"
	if c.roll() <= HitChance(c.Self.Skl, c.Player.Skl) {
		dmg := s.hit(c, c.Self.Str)
		armored := c.Player.Equipped[SlotArmor] != ""
		switch {
		case args[0] != AttackLeech:
			s.logger.Warn("unknown special attack", "actor", c.Self.Name, "type", args[0])
		case ignoreArmor || !armored:
			if c.Self.Heal(dmg) > 0 {
				c.World.Logf("%s is healed", c.Self.Name)
			}
		}
	} else {
		c.World.Logf("%s misses %s", c.Self.Name, c.Player.Name)
	}
	c.Self.FinishTurn()
	return bt.Success
}

// attackRanged attack_ranged <STR|SKL> [effect] [turns]
// 带效果时只施加效果不造成伤害
func (s *Set) attackRanged(c *Context, args []string) bt.Status {
	if !c.playerAlive() {
		return bt.Failure
	}
	dist := c.distance()
	if dist > c.Self.AgroRadius || !c.World.LineOfSight(c.Self.Pos, c.Player.Pos) {
		return bt.Failure
	}
	stat := c.Self.Str
	if len(args) > 0 && args[0] == "SKL" {
		stat = c.Self.Skl
	}
	chance := clamp(HitChance(c.Self.Skl, c.Player.Skl)-s.cfg.RangedFalloff*dist, minHitChance, maxHitChance)
	switch {
	case c.roll() > chance:
		c.World.Logf("%s shoots at %s and misses", c.Self.Name, c.Player.Name)
	case len(args) > 1 && args[1] != "":
		c.Player.AddEffect(args[1], s.turnsArg(c, args, 2))
		c.World.Logf("%s hits %s with %s", c.Self.Name, c.Player.Name, args[1])
	default:
		s.hit(c, stat)
	}
	c.Self.FinishTurn()
	return bt.Success
}

func (s *Set) savePlayerPos(c *Context, _ []string) bt.Status {
	if !c.playerAlive() {
		return bt.Failure
	}
	c.Self.Memory.Set(KeyLastPlayerPos, c.Player.Pos)
	return bt.Success
}

func (s *Set) gotoLastPlayerPos(c *Context, _ []string) bt.Status {
	target, ok := bt.Lookup[world.Position](c.Self.Memory, KeyLastPlayerPos)
	if !ok {
		return bt.Failure
	}
	if c.Self.Pos == target {
		c.Self.Memory.Delete(KeyLastPlayerPos)
		return bt.Success
	}
	next, ok := c.World.NextStep(c.Self.Pos, target)
	if !ok || c.World.Move(c.Self, next) != nil {
		c.Self.Memory.Delete(KeyLastPlayerPos)
		return bt.Failure
	}
	if c.Self.Pos == target {
		c.Self.Memory.Delete(KeyLastPlayerPos)
	}
	c.Self.FinishTurn()
	return bt.Success
}

func (s *Set) drinkPotion(c *Context, args []string) bt.Status {
	kind := "HP"
	if len(args) > 0 && args[0] != "" {
		kind = args[0]
	}
	if c.Self.Potions[kind] <= 0 {
		return bt.Failure
	}
	c.Self.Potions[kind]--
	if kind == "HP" {
		healed := c.Self.Heal(c.Self.MaxHP / 2)
		c.World.Logf("%s drinks a potion and recovers %d HP", c.Self.Name, healed)
	} else {
		c.World.Logf("%s drinks a %s potion", c.Self.Name, kind)
	}
	c.Self.FinishTurn()
	return bt.Success
}

func (s *Set) applyEffect(c *Context, args []string) bt.Status {
	if len(args) < 2 {
		s.logger.Warn("apply_effect needs <player|self> <effect>", "actor", c.Self.Name)
		return bt.Failure
	}
	t := c.target(args[0])
	if t == nil {
		return bt.Failure
	}
	t.AddEffect(args[1], s.turnsArg(c, args, 2))
	return bt.Success
}

func (s *Set) printMessage(c *Context, args []string) bt.Status {
	if len(args) > 0 {
		c.World.Logf("%s: %s", c.Self.Name, args[0])
	}
	return bt.Success
}

// step 移动一格并结束回合
func (s *Set) step(c *Context, to world.Position) bt.Status {
	if err := c.World.Move(c.Self, to); err != nil {
		return bt.Failure
	}
	c.Self.FinishTurn()
	return bt.Success
}

func (s *Set) adjacent(c *Context) bool {
	return c.playerAlive() && c.distance() == 1
}

// hit 返回造成的伤害
func (s *Set) hit(c *Context, power int) int {
	dmg := max(1, power-c.Player.Def)
	died := c.Player.Damage(dmg)
	c.World.Logf("%s hits %s for %d damage", c.Self.Name, c.Player.Name, dmg)
	if died {
		c.World.Logf("%s is killed by %s", c.Player.Name, c.Self.Name)
	}
	return dmg
}

func (s *Set) turnsArg(c *Context, args []string, i int) int {
	if len(args) <= i || args[i] == "" {
		return s.cfg.EffectTurns
	}
	n, ok := s.intArg(c, "turns", args[i])
	if !ok || n <= 0 {
		return s.cfg.EffectTurns
	}
	return n
}

// HitChance 命中率 50 + 2*(攻方技巧-守方技巧)，限制在 [5,95]
func HitChance(attacker, defender int) int {
	return clamp(50+2*(attacker-defender), minHitChance, maxHitChance)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
