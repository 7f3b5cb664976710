package handlers

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEnv expr 条件可见的变量，roll() 每次调用掷一次 d100
type ExprEnv struct {
	Turn          int        `expr:"turn"`
	Distance      int        `expr:"distance"`
	Visible       bool       `expr:"visible"`
	HP            int        `expr:"hp"`
	MaxHP         int        `expr:"max_hp"`
	HPPercent     int        `expr:"hp_percent"`
	Str           int        `expr:"str"`
	Def           int        `expr:"def"`
	Skl           int        `expr:"skl"`
	AgroRadius    int        `expr:"agro_radius"`
	Effects       []string   `expr:"effects"`
	PlayerHP      int        `expr:"player_hp"`
	PlayerEffects []string   `expr:"player_effects"`
	Roll          func() int `expr:"roll"`
}

func (s *Set) playerInRange(c *Context, args []string) bool {
	if !c.playerAlive() {
		return false
	}
	r := c.Self.AgroRadius
	if len(args) > 0 {
		n, ok := s.intArg(c, "player_in_range", args[0])
		if !ok {
			return false
		}
		r = n
	}
	return c.distance() <= r
}

func (s *Set) playerVisible(c *Context, _ []string) bool {
	if !c.playerAlive() || c.distance() > c.Self.AgroRadius {
		return false
	}
	return c.World.LineOfSight(c.Self.Pos, c.Player.Pos)
}

func (s *Set) hasEffect(c *Context, args []string) bool {
	if len(args) < 2 {
		s.logger.Warn("has_effect needs <player|self> <effect>", "args", args)
		return false
	}
	t := c.target(args[0])
	return t != nil && t.HasEffect(args[1])
}

func (s *Set) hasEquipped(c *Context, args []string) bool {
	if len(args) < 1 {
		return len(c.Self.Equipped) > 0
	}
	return c.Self.Equipped[args[0]] != ""
}

func (s *Set) hpLow(c *Context, _ []string) bool {
	return c.Self.HP*100 <= c.Self.MaxHP*s.cfg.HPLowPercent
}

func (s *Set) d100(c *Context, args []string) bool {
	if len(args) < 1 {
		s.logger.Warn("d100 needs a chance")
		return false
	}
	chance, ok := s.intArg(c, "d100", args[0])
	if !ok {
		return false
	}
	return c.roll() <= chance
}

func (s *Set) expr(c *Context, args []string) bool {
	if len(args) < 1 || args[0] == "" {
		s.logger.Warn("expr needs an expression")
		return false
	}
	program, err := s.compile(args[0])
	if err != nil {
		s.logger.Warn("expr compile failed", "expr", args[0], "error", err)
		return false
	}
	out, err := expr.Run(program, s.env(c))
	if err != nil {
		s.logger.Warn("expr run failed", "expr", args[0], "error", err)
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// compile 编译并缓存 expr 程序
func (s *Set) compile(code string) (*vm.Program, error) {
	return s.exprs.GetOrCreate(code, func() (*vm.Program, error) {
		p, err := expr.Compile(code, expr.Env(ExprEnv{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrapf(err, "compile %q", code)
		}
		return p, nil
	})
}

func (s *Set) env(c *Context) ExprEnv {
	env := ExprEnv{
		Turn:       c.World.Turn,
		Distance:   c.distance(),
		HP:         c.Self.HP,
		MaxHP:      c.Self.MaxHP,
		Str:        c.Self.Str,
		Def:        c.Self.Def,
		Skl:        c.Self.Skl,
		AgroRadius: c.Self.AgroRadius,
		Effects:    c.Self.EffectNames(),
		Roll:       c.roll,
	}
	if c.Self.MaxHP > 0 {
		env.HPPercent = c.Self.HP * 100 / c.Self.MaxHP
	}
	if c.playerAlive() {
		env.Visible = s.playerVisible(c, nil)
		env.PlayerHP = c.Player.HP
		env.PlayerEffects = c.Player.EffectNames()
	}
	return env
}

func (s *Set) intArg(c *Context, handler, raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("invalid integer argument", "handler", handler, "actor", c.Self.Name, "value", raw)
		return 0, false
	}
	return n, true
}
