package world

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLevel(t *testing.T, rows ...string) *Level {
	t.Helper()
	l, err := NewLevel("test", rows)
	require.NoError(t, err)
	return l
}

func TestNewLevel(t *testing.T) {
	l := mustLevel(t, "###", "#.#", "###")
	assert.Equal(t, 3, l.Width)
	assert.Equal(t, 3, l.Height)
	assert.True(t, l.Floor(Position{1, 1}))
	assert.False(t, l.Floor(Position{0, 1}))
	assert.False(t, l.Floor(Position{5, 5}))
	assert.Equal(t, []string{"###", "#.#", "###"}, l.Rows())

	_, err := NewLevel("bad", []string{"##", "#"})
	assert.Error(t, err)
	_, err = NewLevel("bad", []string{"#x"})
	assert.Error(t, err)
	_, err = NewLevel("bad", nil)
	assert.Error(t, err)
}

func TestBlockDistance(t *testing.T) {
	assert.Equal(t, 0, BlockDistance(Position{2, 2}, Position{2, 2}))
	assert.Equal(t, 2, BlockDistance(Position{1, 1}, Position{2, 2}))
	assert.Equal(t, 7, BlockDistance(Position{0, 5}, Position{4, 2}))
}

func TestDefaultLevel(t *testing.T) {
	lf, level, err := DefaultLevel()
	require.NoError(t, err)
	assert.Equal(t, "abandoned mines", lf.Name)

	w, err := Populate(lf, level)
	require.NoError(t, err)
	require.NotNil(t, w.Player)
	assert.Equal(t, 1, w.Player.ID)
	assert.Len(t, w.Monsters(), len(lf.Spawns))

	seen := map[ai.Archetype]bool{}
	for _, m := range w.Monsters() {
		seen[m.Archetype] = true
	}
	for _, a := range ai.Archetypes() {
		assert.True(t, seen[a], "level lacks %s", a)
	}
	assert.Equal(t, "Claire", w.Actor(2).Name)
}

func TestParseLevelErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": "name: x\nrows: ['...']\nplayer: {pos: {x: 0, y: 0}}\nbogus: 1\n",
		"player wall":   "name: x\nrows: ['#..']\nplayer: {pos: {x: 0, y: 0}}\n",
		"archetype":     "name: x\nrows: ['...']\nplayer: {pos: {x: 0, y: 0}}\nspawns: [{archetype: monster.dragon, pos: {x: 1, y: 0}}]\n",
		"overlap":       "name: x\nrows: ['...']\nplayer: {pos: {x: 0, y: 0}}\nspawns: [{archetype: monster.bat, pos: {x: 0, y: 0}}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseLevel(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	doc := "name: tiny\nrows: ['....']\nplayer: {pos: {x: 0, y: 0}, hp: 5}\nspawns: [{archetype: monster.bat, pos: {x: 3, y: 0}, name: flappy}]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	lf, level, err := LoadLevel(path)
	require.NoError(t, err)
	w, err := Populate(lf, level)
	require.NoError(t, err)
	assert.Equal(t, "flappy", w.Monsters()[0].Name)

	_, _, err = LoadLevel(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSpawnAndMove(t *testing.T) {
	w := New(mustLevel(t, "#####", "#...#", "#####"))
	p, err := w.Spawn(NewPlayer(PlayerSpec{Pos: Position{1, 1}, HP: 10}))
	require.NoError(t, err)
	bat, _ := ai.LookupProfile(ai.MonsterBat)
	m, err := w.Spawn(NewActor(bat, Position{3, 1}))
	require.NoError(t, err)
	assert.Equal(t, 2, m.ID)

	_, err = w.Spawn(NewActor(bat, Position{3, 1}))
	assert.ErrorIs(t, err, ErrBlocked)
	_, err = w.Spawn(NewActor(bat, Position{0, 0}))
	assert.ErrorIs(t, err, ErrBlocked)

	assert.ErrorIs(t, w.Move(p, Position{0, 1}), ErrBlocked)
	require.NoError(t, w.Move(p, Position{2, 1}))
	assert.ErrorIs(t, w.Move(p, Position{3, 1}), ErrBlocked)
	assert.Same(t, m, w.ActorAt(Position{3, 1}))

	preset := NewActor(bat, Position{1, 1})
	preset.ID = 10
	_, err = w.Spawn(preset)
	require.NoError(t, err)
	w.Remove(preset.ID)
	assert.Nil(t, w.Actor(10))

	w.Remove(p.ID)
	assert.Nil(t, w.Player)
}

func TestMonstersSkipDead(t *testing.T) {
	w := New(mustLevel(t, "....."))
	bat, _ := ai.LookupProfile(ai.MonsterBat)
	a, _ := w.Spawn(NewActor(bat, Position{0, 0}))
	b, _ := w.Spawn(NewActor(bat, Position{2, 0}))
	assert.True(t, b.Damage(b.HP))
	assert.Equal(t, []*Actor{a}, w.Monsters())
	assert.Nil(t, w.ActorAt(b.Pos))
}

func TestActorState(t *testing.T) {
	kobold, _ := ai.LookupProfile(ai.MonsterKobold)
	a := NewActor(kobold, Position{})
	a.Damage(10)
	assert.Equal(t, 8, a.HP)
	assert.Equal(t, 9, a.Heal(9))
	assert.Equal(t, 1, a.Heal(5))
	assert.Equal(t, 0, a.Heal(5))
	assert.False(t, a.Damage(0))

	a.AddEffect(EffectPoison, 3)
	a.AddEffect(EffectPoison, 1)
	a.AddEffect(EffectParalysis, 0)
	assert.Equal(t, 3, a.Effects[EffectPoison])
	assert.Equal(t, []string{EffectPoison}, a.EffectNames())

	// 原型表不随实例修改
	a.Potions["HP"] = 0
	again := NewActor(kobold, Position{})
	assert.Equal(t, 1, again.Potions["HP"])
}

func TestMessagesBounded(t *testing.T) {
	w := New(mustLevel(t, "."))
	for i := 0; i < MaxMessages+10; i++ {
		w.Logf("msg %d", i)
	}
	msgs := w.Messages()
	assert.Len(t, msgs, MaxMessages)
	assert.Equal(t, "msg 10", msgs[0])
}

func TestWalkableAround(t *testing.T) {
	w := New(mustLevel(t, "###", "#..", "#.."))
	assert.Equal(t, []Position{{2, 1}, {1, 2}, {2, 2}}, w.WalkableAround(Position{1, 1}))
}

func TestLineOfSight(t *testing.T) {
	w := New(mustLevel(t,
		".....",
		"..#..",
		".....",
	))
	assert.True(t, w.LineOfSight(Position{0, 0}, Position{4, 0}))
	assert.False(t, w.LineOfSight(Position{0, 1}, Position{4, 1}))
	assert.True(t, w.LineOfSight(Position{0, 1}, Position{2, 1}))
	assert.True(t, w.LineOfSight(Position{1, 1}, Position{1, 1}))
}

func TestNextStep(t *testing.T) {
	w := New(mustLevel(t,
		"#######",
		"#..#..#",
		"#..#..#",
		"#.....#",
		"#######",
	))
	step, ok := w.NextStep(Position{1, 1}, Position{5, 1})
	require.True(t, ok)
	assert.Equal(t, Position{2, 2}, step)

	_, ok = w.NextStep(Position{1, 1}, Position{1, 1})
	assert.False(t, ok)
	_, ok = w.NextStep(Position{1, 1}, Position{3, 1})
	assert.False(t, ok)

	boxed := New(mustLevel(t, ".#."))
	_, ok = boxed.NextStep(Position{0, 0}, Position{2, 0})
	assert.False(t, ok)
}
