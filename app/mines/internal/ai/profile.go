package ai

import (
	"embed"
	"strings"

	"github.com/cespare/xxhash/v2"
)

//go:embed scripts/*.bts
var scriptsFS embed.FS

// Stats 原型初始属性
type Stats struct {
	HP         int
	Str        int
	Def        int
	Skl        int
	AgroRadius int
	Potions    map[string]int
	Equipped   map[string]string
}

// Profile 原型描述
//
// 对外能力只有三项：提供脚本（文本或字节码）、是否主动攻击、稳定签名。
type Profile struct {
	ID         Archetype
	Name       string
	Glyph      rune
	Aggressive bool
	// File 脚本文件名，scripts 目录覆盖时使用同名文件
	File  string
	Stats Stats
}

// Key 稳定键
func (p *Profile) Key() string {
	return p.ID.String()
}

// Signature 原型签名：高 16 位为 ID，低 48 位为键的 xxhash
func (p *Profile) Signature() uint64 {
	return uint64(p.ID)<<48 | xxhash.Sum64String(p.Key())&0xFFFFFFFFFFFF
}

// Script 内置脚本文本
func (p *Profile) Script() (string, error) {
	data, err := scriptsFS.ReadFile("scripts/" + p.File)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var profiles = map[Archetype]*Profile{
	NPCStatic: {
		ID: NPCStatic, Name: "Claire", Glyph: 'n', File: "npc_static.bts",
		Stats: Stats{HP: 30, Str: 2, Def: 1, Skl: 2},
	},
	NPCWanderer: {
		ID: NPCWanderer, Name: "Miles", Glyph: 'N', File: "npc_wanderer.bts",
		Stats: Stats{HP: 30, Str: 2, Def: 1, Skl: 2},
	},
	MonsterBasic: {
		ID: MonsterBasic, Name: "rat", Glyph: 'r', Aggressive: true, File: "monster_basic.bts",
		Stats: Stats{HP: 8, Str: 3, Def: 0, Skl: 2, AgroRadius: 6},
	},
	MonsterBat: {
		ID: MonsterBat, Name: "bat", Glyph: 'b', Aggressive: true, File: "monster_bat.bts",
		Stats: Stats{HP: 6, Str: 3, Def: 0, Skl: 5, AgroRadius: 8},
	},
	MonsterHerobrine: {
		ID: MonsterHerobrine, Name: "Herobrine", Glyph: 'H', Aggressive: true, File: "monster_herobrine.bts",
		Stats: Stats{HP: 100, Str: 12, Def: 6, Skl: 10, AgroRadius: 99},
	},
	MonsterKobold: {
		ID: MonsterKobold, Name: "kobold", Glyph: 'k', Aggressive: true, File: "monster_kobold.bts",
		Stats: Stats{
			HP: 18, Str: 5, Def: 2, Skl: 4, AgroRadius: 7,
			Potions:  map[string]int{"HP": 1},
			Equipped: map[string]string{"WPN": "dagger"},
		},
	},
	MonsterShelob: {
		ID: MonsterShelob, Name: "Shelob", Glyph: 'S', Aggressive: true, File: "monster_shelob.bts",
		Stats: Stats{HP: 40, Str: 6, Def: 3, Skl: 6, AgroRadius: 8},
	},
	MonsterSpider: {
		ID: MonsterSpider, Name: "spider", Glyph: 's', Aggressive: true, File: "monster_spider.bts",
		Stats: Stats{HP: 12, Str: 3, Def: 1, Skl: 4, AgroRadius: 6},
	},
	MonsterTroll: {
		ID: MonsterTroll, Name: "troll", Glyph: 'T', Aggressive: true, File: "monster_troll.bts",
		Stats: Stats{HP: 45, Str: 9, Def: 4, Skl: 3, AgroRadius: 6},
	},
	MonsterWraith: {
		ID: MonsterWraith, Name: "wraith", Glyph: 'W', Aggressive: true, File: "monster_wraith.bts",
		Stats: Stats{HP: 25, Str: 6, Def: 2, Skl: 8, AgroRadius: 10},
	},
}

// LookupProfile 查找原型描述
func LookupProfile(a Archetype) (*Profile, bool) {
	p, ok := profiles[a]
	return p, ok
}

// ArchetypeForFile 按脚本文件名查找原型，例如 monster_troll.bts
func ArchetypeForFile(name string) (Archetype, bool) {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	for _, p := range profiles {
		if p.File == base {
			return p.ID, true
		}
	}
	return ArchetypeUnknown, false
}
