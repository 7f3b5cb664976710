// Package save 存档：世界快照经 msgpack 序列化后封装为 save 信封
package save

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/lk2023060901/xdooria-ai/pkg/serializer"
)

// Version 快照格式版本
const Version = 1

// ErrVersion 快照版本不支持
var ErrVersion = errors.New("save: unsupported snapshot version")

// Profiles 按签名解析原型，由 *ai.Library 实现
type Profiles interface {
	ProfileBySignature(sig uint64) (*ai.Profile, error)
}

// Snapshot 世界快照
type Snapshot struct {
	Version  int             `codec:"version"`
	Level    string          `codec:"level"`
	Rows     []string        `codec:"rows"`
	Turn     int             `codec:"turn"`
	Messages []string        `codec:"messages"`
	Actors   []ActorSnapshot `codec:"actors"`
}

// ActorSnapshot 角色快照，怪物以原型签名标识
type ActorSnapshot struct {
	ID         int               `codec:"id"`
	Name       string            `codec:"name"`
	Player     bool              `codec:"player"`
	Signature  uint64            `codec:"sig"`
	Pos        world.Position    `codec:"pos"`
	HP         int               `codec:"hp"`
	MaxHP      int               `codec:"max_hp"`
	Str        int               `codec:"str"`
	Def        int               `codec:"def"`
	Skl        int               `codec:"skl"`
	AgroRadius int               `codec:"agro"`
	Effects    map[string]int    `codec:"effects"`
	Potions    map[string]int    `codec:"potions"`
	Equipped   map[string]string `codec:"equipped"`
	// LastPlayerPos 记忆中的玩家位置
	LastPlayerPos *world.Position `codec:"last_player_pos"`
}

// Capture 生成快照，已死亡的怪物不保存
func Capture(w *world.World) *Snapshot {
	s := &Snapshot{
		Version:  Version,
		Level:    w.Level.Name,
		Rows:     w.Level.Rows(),
		Turn:     w.Turn,
		Messages: w.Messages(),
	}
	for _, a := range w.Actors() {
		if !a.Player && !a.Alive() {
			continue
		}
		as := ActorSnapshot{
			ID:         a.ID,
			Name:       a.Name,
			Player:     a.Player,
			Pos:        a.Pos,
			HP:         a.HP,
			MaxHP:      a.MaxHP,
			Str:        a.Str,
			Def:        a.Def,
			Skl:        a.Skl,
			AgroRadius: a.AgroRadius,
			Effects:    a.Effects,
			Potions:    a.Potions,
			Equipped:   a.Equipped,
		}
		if !a.Player {
			if p, ok := ai.LookupProfile(a.Archetype); ok {
				as.Signature = p.Signature()
			}
		}
		if pos, ok := bt.Lookup[world.Position](a.Memory, handlers.KeyLastPlayerPos); ok {
			as.LastPlayerPos = &pos
		}
		s.Actors = append(s.Actors, as)
	}
	return s
}

// Restore 由快照重建世界
func Restore(s *Snapshot, profiles Profiles) (*world.World, error) {
	if s.Version != Version {
		return nil, errors.Wrapf(ErrVersion, "version %d", s.Version)
	}
	level, err := world.NewLevel(s.Level, s.Rows)
	if err != nil {
		return nil, errors.Wrap(err, "restore level")
	}
	w := world.New(level)
	w.Turn = s.Turn
	for _, m := range s.Messages {
		w.Logf("%s", m)
	}

	for _, as := range s.Actors {
		var a *world.Actor
		if as.Player {
			a = world.NewPlayer(world.PlayerSpec{Pos: as.Pos})
		} else {
			p, err := profiles.ProfileBySignature(as.Signature)
			if err != nil {
				return nil, errors.Wrapf(err, "actor %d (%s)", as.ID, as.Name)
			}
			a = world.NewActor(p, as.Pos)
		}
		a.ID = as.ID
		a.Name = as.Name
		a.HP, a.MaxHP = as.HP, as.MaxHP
		a.Str, a.Def, a.Skl = as.Str, as.Def, as.Skl
		a.AgroRadius = as.AgroRadius
		a.Effects = copyMap(as.Effects)
		a.Potions = copyMap(as.Potions)
		a.Equipped = copyMap(as.Equipped)
		if as.LastPlayerPos != nil {
			a.Memory.Set(handlers.KeyLastPlayerPos, *as.LastPlayerPos)
		}
		if _, err := w.Spawn(a); err != nil {
			return nil, errors.Wrapf(err, "restore actor %d", as.ID)
		}
	}
	if w.Player == nil {
		return nil, errors.New("save: snapshot has no player")
	}
	return w, nil
}

// Marshal 序列化并封装世界
func Marshal(w *world.World, f framer.Framer) ([]byte, error) {
	payload, err := serializer.Encode(Capture(w))
	if err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	return f.Encode(framer.KindSave, payload)
}

// Unmarshal 解封并重建世界
func Unmarshal(data []byte, f framer.Framer, profiles Profiles) (*world.World, error) {
	payload, err := framer.DecodeKind(f, data, framer.KindSave)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := serializer.Decode(payload, &s); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return Restore(&s, profiles)
}

// Write 写入存档，先写临时文件再改名
func Write(path string, w *world.World, f framer.Framer) error {
	data, err := Marshal(w, f)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create save directory")
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write save")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "commit save")
	}
	return nil
}

// Read 读取存档
func Read(path string, f framer.Framer, profiles Profiles) (*world.World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read save %s", path)
	}
	w, err := Unmarshal(data, f, profiles)
	if err != nil {
		return nil, errors.Wrapf(err, "load save %s", path)
	}
	return w, nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
