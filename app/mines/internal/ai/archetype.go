// Package ai 怪物与 NPC 原型：脚本、属性与行为树库
package ai

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Archetype 原型标识，数值写入存档，只可追加不可调整
type Archetype uint16

const (
	ArchetypeUnknown Archetype = 0

	NPCStatic        Archetype = 1
	NPCWanderer      Archetype = 2
	MonsterBasic     Archetype = 3
	MonsterBat       Archetype = 4
	MonsterHerobrine Archetype = 5
	MonsterKobold    Archetype = 6
	MonsterShelob    Archetype = 7
	MonsterSpider    Archetype = 8
	MonsterTroll     Archetype = 9
	MonsterWraith    Archetype = 10
)

// ErrUnknownArchetype 未知原型
var ErrUnknownArchetype = errors.New("ai: unknown archetype")

var archetypeKeys = map[Archetype]string{
	NPCStatic:        "npc.static",
	NPCWanderer:      "npc.wanderer",
	MonsterBasic:     "monster.basic",
	MonsterBat:       "monster.bat",
	MonsterHerobrine: "monster.herobrine",
	MonsterKobold:    "monster.kobold",
	MonsterShelob:    "monster.shelob",
	MonsterSpider:    "monster.spider",
	MonsterTroll:     "monster.troll",
	MonsterWraith:    "monster.wraith",
}

var keyArchetypes = func() map[string]Archetype {
	m := make(map[string]Archetype, len(archetypeKeys))
	for a, k := range archetypeKeys {
		m[k] = a
	}
	return m
}()

// String 稳定键，例如 monster.spider
func (a Archetype) String() string {
	if k, ok := archetypeKeys[a]; ok {
		return k
	}
	return "unknown"
}

// ParseArchetype 按稳定键查找原型
func ParseArchetype(key string) (Archetype, error) {
	if a, ok := keyArchetypes[key]; ok {
		return a, nil
	}
	return ArchetypeUnknown, errors.Wrapf(ErrUnknownArchetype, "%q", key)
}

// Archetypes 全部原型，按数值升序
func Archetypes() []Archetype {
	out := make([]Archetype, 0, len(archetypeKeys))
	for a := range archetypeKeys {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
