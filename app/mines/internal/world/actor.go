package world

import (
	"sort"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
)

// 状态效果
const (
	EffectPoison    = "Psd"
	EffectParalysis = "Par"
)

// Actor 地图上的角色，玩家与怪物共用
type Actor struct {
	ID        int
	Name      string
	Glyph     rune
	Archetype ai.Archetype
	Player    bool
	Pos       Position

	HP         int
	MaxHP      int
	Str        int
	Def        int
	Skl        int
	AgroRadius int

	// Effects 效果名 -> 剩余回合
	Effects map[string]int
	// Potions 药水种类 -> 数量
	Potions map[string]int
	// Equipped 槽位 -> 物品名
	Equipped map[string]string

	// TurnFinished 本回合是否已行动
	TurnFinished bool
	// Memory 跨回合记忆
	Memory *bt.Blackboard
}

// NewActor 按原型属性创建怪物或 NPC
func NewActor(p *ai.Profile, pos Position) *Actor {
	a := &Actor{
		Name:       p.Name,
		Glyph:      p.Glyph,
		Archetype:  p.ID,
		Pos:        pos,
		HP:         p.Stats.HP,
		MaxHP:      p.Stats.HP,
		Str:        p.Stats.Str,
		Def:        p.Stats.Def,
		Skl:        p.Stats.Skl,
		AgroRadius: p.Stats.AgroRadius,
		Effects:    make(map[string]int),
		Potions:    make(map[string]int),
		Equipped:   make(map[string]string),
		Memory:     bt.NewBlackboard(),
	}
	for k, v := range p.Stats.Potions {
		a.Potions[k] = v
	}
	for k, v := range p.Stats.Equipped {
		a.Equipped[k] = v
	}
	return a
}

// NewPlayer 按关卡配置创建玩家
func NewPlayer(spec PlayerSpec) *Actor {
	a := &Actor{
		Name:       "player",
		Glyph:      '@',
		Player:     true,
		Pos:        spec.Pos,
		HP:         spec.HP,
		MaxHP:      spec.HP,
		Str:        spec.Str,
		Def:        spec.Def,
		Skl:        spec.Skl,
		AgroRadius: 8,
		Effects:    make(map[string]int),
		Potions:    make(map[string]int),
		Equipped:   map[string]string{"WPN": "pickaxe"},
		Memory:     bt.NewBlackboard(),
	}
	for k, v := range spec.Potions {
		a.Potions[k] = v
	}
	return a
}

func (a *Actor) Alive() bool {
	return a.HP > 0
}

// HasEffect 效果是否生效
func (a *Actor) HasEffect(name string) bool {
	return a.Effects[name] > 0
}

// AddEffect 施加效果，已存在时取较长的剩余回合
func (a *Actor) AddEffect(name string, turns int) {
	if turns <= 0 {
		return
	}
	if a.Effects[name] < turns {
		a.Effects[name] = turns
	}
}

// EffectNames 生效中的效果，按名称排序
func (a *Actor) EffectNames() []string {
	names := make([]string, 0, len(a.Effects))
	for k, v := range a.Effects {
		if v > 0 {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Damage 扣血，返回是否因此死亡
func (a *Actor) Damage(n int) bool {
	if n <= 0 || !a.Alive() {
		return false
	}
	a.HP -= n
	if a.HP < 0 {
		a.HP = 0
	}
	return a.HP == 0
}

// Heal 回血，不超过上限，返回实际回复量
func (a *Actor) Heal(n int) int {
	if n <= 0 || !a.Alive() {
		return 0
	}
	before := a.HP
	a.HP = min(a.MaxHP, a.HP+n)
	return a.HP - before
}

// FinishTurn 标记本回合已行动
func (a *Actor) FinishTurn() {
	a.TurnFinished = true
}
