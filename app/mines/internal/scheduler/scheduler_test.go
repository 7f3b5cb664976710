package scheduler

import (
	"cmp"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeLibrary 用固定脚本替换指定原型
type fakeLibrary struct {
	*ai.Library
	trees map[ai.Archetype]*bt.Tree
}

func (f *fakeLibrary) Tree(a ai.Archetype) (*bt.Tree, error) {
	if t, ok := f.trees[a]; ok {
		return t, nil
	}
	return f.Library.Tree(a)
}

type recorder struct {
	mu      sync.Mutex
	ticks   map[string]int
	stalls  map[string]int
	unknown []string
	turns   int
	killed  []string
}

func newRecorder() *recorder {
	return &recorder{ticks: map[string]int{}, stalls: map[string]int{}}
}

func (r *recorder) Tick(a string, _ bt.Status, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks[a]++
}

func (r *recorder) UnknownHandler(e *bt.UnknownHandlerError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unknown = append(r.unknown, e.Name)
}

func (r *recorder) Stall(a string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stalls[a]++
}

func (r *recorder) Turn() { r.turns++ }

func (r *recorder) Killed(a string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killed = append(r.killed, a)
}

func newWorld(t *testing.T, player world.Position, spawns map[world.Position]ai.Archetype) *world.World {
	t.Helper()
	level, err := world.NewLevel("test", []string{
		"####################",
		"#..................#",
		"#..................#",
		"#..................#",
		"####################",
	})
	require.NoError(t, err)
	w := world.New(level)
	_, err = w.Spawn(world.NewPlayer(world.PlayerSpec{Pos: player, HP: 50, Str: 1, Def: 20, Skl: 1}))
	require.NoError(t, err)
	// 按行优先顺序生成，actor ID 与位置一一对应
	positions := slices.SortedFunc(maps.Keys(spawns), func(a, b world.Position) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})
	for _, pos := range positions {
		p, _ := ai.LookupProfile(spawns[pos])
		_, err := w.Spawn(world.NewActor(p, pos))
		require.NoError(t, err)
	}
	return w
}

func newScheduler(t *testing.T, trees map[ai.Archetype]string, opts ...Option) (*Scheduler, *recorder) {
	t.Helper()
	lib := &fakeLibrary{Library: ai.NewLibrary(ai.Config{}), trees: map[ai.Archetype]*bt.Tree{}}
	t.Cleanup(func() { _ = lib.Close() })
	for a, src := range trees {
		lib.trees[a] = bt.MustCompile(src)
	}
	set := handlers.New(handlers.DefaultConfig(), nil)
	t.Cleanup(func() { _ = set.Close() })

	rec := newRecorder()
	opts = append([]Option{WithRecorder(rec), WithPlayerPolicy(IdlePolicy)}, opts...)
	return New(DefaultConfig(), lib, set.NewRegistry(), rand.New(rand.NewPCG(1, 2)), opts...), rec
}

func TestStepTicksActiveMonsters(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, map[world.Position]ai.Archetype{
		{X: 5, Y: 1}: ai.MonsterBasic,
		{X: 8, Y: 3}: ai.NPCStatic,
	})
	s, rec := newScheduler(t, nil)

	rep := s.Step(w)
	assert.Equal(t, 1, rep.Turn)
	assert.Equal(t, 2, rep.Acted)
	assert.Zero(t, rep.Stalled)
	assert.Equal(t, 1, rec.turns)
	assert.Equal(t, 1, rec.ticks["monster.basic"])
	assert.Equal(t, 1, rec.ticks["npc.static"])
	for _, m := range w.Monsters() {
		assert.True(t, m.TurnFinished, m.Name)
	}
}

func TestActivationRadius(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, map[world.Position]ai.Archetype{
		{X: 18, Y: 3}: ai.MonsterBasic,
		{X: 10, Y: 1}: ai.NPCStatic,
	})
	s, rec := newScheduler(t, nil)
	s.cfg.ActivationRadius = 5
	s.cfg.PassiveActivationRadius = 8

	rep := s.Step(w)
	assert.Zero(t, rep.Acted)
	assert.Empty(t, rec.ticks)

	s.cfg.PassiveActivationRadius = 9
	rep = s.Step(w)
	assert.Equal(t, 1, rep.Acted)
	assert.Equal(t, 1, rec.ticks["npc.static"])
}

func TestStallCounted(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, map[world.Position]ai.Archetype{
		{X: 3, Y: 1}: ai.NPCStatic,
	})
	s, rec := newScheduler(t, map[ai.Archetype]string{
		ai.NPCStatic: "[TREE]\n  [SEL]\n    [TASK p1=\"print_message\" p2=\"hello\"]\n",
	})

	rep := s.Step(w)
	assert.Equal(t, 1, rep.Stalled)
	assert.Equal(t, 1, rec.stalls["npc.static"])
	assert.True(t, w.Monsters()[0].TurnFinished)
	msgs := w.Messages()
	assert.Equal(t, "Claire: hello", msgs[len(msgs)-1])
}

func TestUnknownHandlerReported(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, map[world.Position]ai.Archetype{
		{X: 3, Y: 1}: ai.MonsterKobold,
	})
	s, rec := newScheduler(t, map[ai.Archetype]string{
		ai.MonsterKobold: "[TREE]\n  [SEL]\n    [TASK p1=\"break_stuff\"]\n    [TASK p1=\"idle\"]\n",
	})

	rep := s.Step(w)
	s.Step(w)
	assert.Equal(t, 1, rep.Acted)
	assert.Equal(t, []string{"break_stuff", "break_stuff"}, rec.unknown)
}

func TestEffects(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, map[world.Position]ai.Archetype{
		{X: 3, Y: 1}: ai.MonsterBasic,
		{X: 6, Y: 1}: ai.MonsterBat,
	})
	s, rec := newScheduler(t, nil)
	mons := w.Monsters()
	rat, bat := mons[0], mons[1]
	rat.AddEffect(world.EffectParalysis, 1)
	bat.AddEffect(world.EffectPoison, 5)
	bat.HP = 1

	rep := s.Step(w)
	assert.Equal(t, 1, rep.Paralysed)
	assert.False(t, rat.TurnFinished)
	assert.False(t, rat.HasEffect(world.EffectParalysis))
	assert.Equal(t, []string{"monster.bat"}, rep.Killed)
	assert.Equal(t, []string{"monster.bat"}, rec.killed)
	assert.Nil(t, w.Actor(bat.ID))

	s.Step(w)
	assert.True(t, rat.TurnFinished)
}

func TestPoisonTicksDown(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, nil)
	s, _ := newScheduler(t, nil)
	w.Player.AddEffect(world.EffectPoison, 2)
	hp := w.Player.HP

	s.Step(w)
	s.Step(w)
	s.Step(w)
	assert.Equal(t, hp-2, w.Player.HP)
	assert.Empty(t, w.Player.Effects)
}

func TestMonstersActInIDOrder(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, nil)
	spider, _ := ai.LookupProfile(ai.MonsterSpider)
	troll, _ := ai.LookupProfile(ai.MonsterTroll)
	for i, p := range []*ai.Profile{troll, spider, troll} {
		_, err := w.Spawn(world.NewActor(p, world.Position{X: 3 + 2*i, Y: 3}))
		require.NoError(t, err)
	}
	say := "[TREE]\n  [SEL]\n    [SEQ]\n      [TASK p1=\"print_message\" p2=\"turn\"]\n      [TASK p1=\"idle\"]\n"
	s, _ := newScheduler(t, map[ai.Archetype]string{ai.MonsterSpider: say, ai.MonsterTroll: say})

	s.Step(w)
	msgs := w.Messages()
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, []string{"troll: turn", "spider: turn", "troll: turn"}, msgs[len(msgs)-3:])
}

func TestPlayerDeath(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, map[world.Position]ai.Archetype{
		{X: 2, Y: 1}: ai.MonsterWraith,
	})
	s, _ := newScheduler(t, nil)
	w.Player.HP = 1

	rep := s.Step(w)
	assert.True(t, rep.PlayerDead)
	assert.NotNil(t, w.Player)

	rep = s.Step(w)
	assert.Zero(t, rep.Acted)
}

func TestDefaultLevelDeterministic(t *testing.T) {
	run := func() []string {
		lf, level, err := world.DefaultLevel()
		require.NoError(t, err)
		w, err := world.Populate(lf, level)
		require.NoError(t, err)
		s, _ := newScheduler(t, nil, WithPlayerPolicy(WanderPolicy))
		for i := 0; i < 40; i++ {
			s.Step(w)
		}
		return w.Messages()
	}
	assert.Equal(t, run(), run())
}

func TestTraceOption(t *testing.T) {
	w := newWorld(t, world.Position{X: 1, Y: 1}, map[world.Position]ai.Archetype{
		{X: 3, Y: 1}: ai.NPCStatic,
	})
	lib := ai.NewLibrary(ai.Config{})
	defer lib.Close()
	set := handlers.New(handlers.DefaultConfig(), nil)
	defer set.Close()

	cfg := DefaultConfig()
	cfg.Trace = true
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(cfg, lib, set.NewRegistry(), rand.New(rand.NewPCG(1, 1)),
		WithPlayerPolicy(IdlePolicy),
		WithTraceLogger(logger.NewWithCore(core)),
	)
	rep := s.Step(w)
	assert.Equal(t, 1, rep.Acted)

	entries := logs.FilterMessage("tick node").All()
	require.NotEmpty(t, entries)
	npc := w.Monsters()[0]
	assert.Equal(t, npc.Name, entries[0].ContextMap()["actor"])
}
