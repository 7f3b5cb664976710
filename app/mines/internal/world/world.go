// Package world 网格地图、角色与空间查询
package world

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
)

// MaxMessages 消息日志保留条数
const MaxMessages = 64

// ErrBlocked 目标格不可通行
var ErrBlocked = errors.New("world: position blocked")

// World 一局游戏的全部可变状态，单会话内只在回合循环中访问
type World struct {
	Level  *Level
	Player *Actor
	Turn   int

	actors   map[int]*Actor
	nextID   int
	messages []string
}

// New 创建空世界
func New(level *Level) *World {
	return &World{
		Level:  level,
		actors: make(map[int]*Actor),
		nextID: 1,
	}
}

// Spawn 加入角色并分配 ID；ID 已设置时沿用（读档）
func (w *World) Spawn(a *Actor) (*Actor, error) {
	if !w.Level.Floor(a.Pos) {
		return nil, errors.Wrapf(ErrBlocked, "spawn %s at %v", a.Name, a.Pos)
	}
	if other := w.ActorAt(a.Pos); other != nil {
		return nil, errors.Wrapf(ErrBlocked, "spawn %s at %v occupied by %s", a.Name, a.Pos, other.Name)
	}
	if a.ID == 0 {
		a.ID = w.nextID
	}
	if _, dup := w.actors[a.ID]; dup {
		return nil, errors.Newf("actor id %d already in use", a.ID)
	}
	if a.ID >= w.nextID {
		w.nextID = a.ID + 1
	}
	w.actors[a.ID] = a
	if a.Player {
		w.Player = a
	}
	return a, nil
}

// Actor 按 ID 查找
func (w *World) Actor(id int) *Actor {
	return w.actors[id]
}

// Actors 全部角色，按 ID 升序
func (w *World) Actors() []*Actor {
	out := make([]*Actor, 0, len(w.actors))
	for _, a := range w.actors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Monsters 除玩家以外的存活角色，按 ID 升序
func (w *World) Monsters() []*Actor {
	all := w.Actors()
	out := all[:0]
	for _, a := range all {
		if !a.Player && a.Alive() {
			out = append(out, a)
		}
	}
	return out
}

// Remove 移除角色
func (w *World) Remove(id int) {
	if a, ok := w.actors[id]; ok && a == w.Player {
		w.Player = nil
	}
	delete(w.actors, id)
}

// ActorAt 位置上的存活角色
func (w *World) ActorAt(p Position) *Actor {
	for _, a := range w.actors {
		if a.Pos == p && a.Alive() {
			return a
		}
	}
	return nil
}

// Walkable 地形可通行且未被占用
func (w *World) Walkable(p Position) bool {
	return w.Level.Floor(p) && w.ActorAt(p) == nil
}

// Move 移动到相邻格
func (w *World) Move(a *Actor, to Position) error {
	if !w.Walkable(to) {
		return errors.Wrapf(ErrBlocked, "%s to %v", a.Name, to)
	}
	a.Pos = to
	return nil
}

// Logf 写入消息日志，超出上限时丢弃最旧的
func (w *World) Logf(format string, args ...any) {
	w.messages = append(w.messages, fmt.Sprintf(format, args...))
	if over := len(w.messages) - MaxMessages; over > 0 {
		w.messages = append(w.messages[:0], w.messages[over:]...)
	}
}

// Messages 消息日志副本，旧的在前
func (w *World) Messages() []string {
	return append([]string(nil), w.messages...)
}

// Populate 按关卡文件创建世界：先玩家，再按文件顺序刷怪
func Populate(lf *LevelFile, level *Level) (*World, error) {
	w := New(level)
	if _, err := w.Spawn(NewPlayer(lf.Player)); err != nil {
		return nil, err
	}
	for i, s := range lf.Spawns {
		a, err := ai.ParseArchetype(s.Archetype)
		if err != nil {
			return nil, errors.Wrapf(err, "spawn %d", i)
		}
		p, _ := ai.LookupProfile(a)
		actor := NewActor(p, s.Pos)
		if s.Name != "" {
			actor.Name = s.Name
		}
		if _, err := w.Spawn(actor); err != nil {
			return nil, err
		}
	}
	return w, nil
}
