package scheduler

import (
	"math/rand/v2"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
)

// PlayerPolicy 玩家的自动行动策略
type PlayerPolicy func(w *world.World, rng *rand.Rand)

// IdlePolicy 玩家原地不动
func IdlePolicy(w *world.World, _ *rand.Rand) {
	w.Player.FinishTurn()
}

// WanderPolicy 反击相邻的敌对怪物，血量低时喝药，否则随机走动
func WanderPolicy(w *world.World, rng *rand.Rand) {
	p := w.Player
	defer p.FinishTurn()

	for _, m := range w.Monsters() {
		if world.BlockDistance(p.Pos, m.Pos) != 1 {
			continue
		}
		if prof, ok := ai.LookupProfile(m.Archetype); !ok || !prof.Aggressive {
			continue
		}
		if rng.IntN(100)+1 <= handlers.HitChance(p.Skl, m.Skl) {
			dmg := max(1, p.Str-m.Def)
			m.Damage(dmg)
			w.Logf("%s hits %s for %d damage", p.Name, m.Name, dmg)
		} else {
			w.Logf("%s misses %s", p.Name, m.Name)
		}
		return
	}

	if p.HP*100 <= p.MaxHP*30 && p.Potions["HP"] > 0 {
		p.Potions["HP"]--
		w.Logf("%s drinks a potion and recovers %d HP", p.Name, p.Heal(p.MaxHP/2))
		return
	}

	if rng.IntN(2) == 0 {
		return
	}
	if around := w.WalkableAround(p.Pos); len(around) > 0 {
		_ = w.Move(p, around[rng.IntN(len(around))])
	}
}
