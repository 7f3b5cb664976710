package scheduler

import "github.com/lk2023060901/xdooria-ai/app/mines/internal/world"

// applyEffects 结算持续效果并返回本回合被麻痹的角色
func (s *Scheduler) applyEffects(w *world.World) map[int]bool {
	paralysed := make(map[int]bool)
	for _, a := range w.Actors() {
		if !a.Alive() || len(a.Effects) == 0 {
			continue
		}
		if a.HasEffect(world.EffectParalysis) {
			paralysed[a.ID] = true
			w.Logf("%s is paralysed", a.Name)
		}
		if a.HasEffect(world.EffectPoison) {
			if a.Damage(1) {
				w.Logf("%s succumbs to poison", a.Name)
			}
		}
		for name, left := range a.Effects {
			if left <= 1 {
				delete(a.Effects, name)
				continue
			}
			a.Effects[name] = left - 1
		}
	}
	return paralysed
}
