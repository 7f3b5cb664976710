package save

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/handlers"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/compress"
	"github.com/lk2023060901/xdooria-ai/pkg/framer"
	"github.com/lk2023060901/xdooria-ai/pkg/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultWorld(t *testing.T) *world.World {
	t.Helper()
	lf, level, err := world.DefaultLevel()
	require.NoError(t, err)
	w, err := world.Populate(lf, level)
	require.NoError(t, err)
	return w
}

func newFramer(t *testing.T, c compress.Type) framer.Framer {
	t.Helper()
	f, err := framer.New(&framer.Config{Compress: c, CompressMinBytes: 1})
	require.NoError(t, err)
	return f
}

func TestRoundTrip(t *testing.T) {
	w := defaultWorld(t)
	w.Turn = 42
	w.Logf("hello")
	spider := w.Monsters()[5]
	spider.HP = 3
	spider.AddEffect(world.EffectPoison, 2)
	spider.Memory.Set(handlers.KeyLastPlayerPos, world.Position{X: 4, Y: 4})
	w.Player.Potions["HP"] = 1

	lib := ai.NewLibrary(ai.Config{})
	defer lib.Close()
	path := filepath.Join(t.TempDir(), "saves", "slot1.sav")
	f := newFramer(t, compress.TypeZstd)
	require.NoError(t, Write(path, w, f))

	got, err := Read(path, f, lib)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Turn)
	assert.Equal(t, w.Messages(), got.Messages())
	assert.Equal(t, w.Level.Rows(), got.Level.Rows())
	require.Len(t, got.Actors(), len(w.Actors()))

	for _, a := range w.Actors() {
		b := got.Actor(a.ID)
		require.NotNil(t, b, a.Name)
		assert.Equal(t, a.Name, b.Name)
		assert.Equal(t, a.Archetype, b.Archetype)
		assert.Equal(t, a.Glyph, b.Glyph)
		assert.Equal(t, a.Pos, b.Pos)
		assert.Equal(t, a.HP, b.HP)
		assert.Equal(t, a.Player, b.Player)
		assert.Equal(t, a.EffectNames(), b.EffectNames())
	}
	restored := got.Actor(spider.ID)
	pos, ok := bt.Lookup[world.Position](restored.Memory, handlers.KeyLastPlayerPos)
	require.True(t, ok)
	assert.Equal(t, world.Position{X: 4, Y: 4}, pos)
	assert.Equal(t, 1, got.Player.Potions["HP"])
}

func TestCaptureSkipsDead(t *testing.T) {
	w := defaultWorld(t)
	victim := w.Monsters()[0]
	victim.Damage(victim.HP)

	s := Capture(w)
	for _, a := range s.Actors {
		assert.NotEqual(t, victim.ID, a.ID)
	}
	assert.Len(t, s.Actors, len(w.Actors())-1)
}

func TestUnknownSignature(t *testing.T) {
	w := defaultWorld(t)
	s := Capture(w)
	s.Actors[1].Signature ^= 1

	lib := ai.NewLibrary(ai.Config{})
	defer lib.Close()
	_, err := Restore(s, lib)
	assert.ErrorIs(t, err, ai.ErrUnknownArchetype)
}

func TestRestoreErrors(t *testing.T) {
	lib := ai.NewLibrary(ai.Config{})
	defer lib.Close()

	s := Capture(defaultWorld(t))
	s.Version = 99
	_, err := Restore(s, lib)
	assert.ErrorIs(t, err, ErrVersion)

	noPlayer := &Snapshot{Version: Version, Level: "x", Rows: []string{"..."}}
	_, err = Restore(noPlayer, lib)
	assert.Error(t, err)
}

func TestUnmarshalRejectsBundle(t *testing.T) {
	f := newFramer(t, compress.TypeNone)
	payload, err := serializer.Encode(ai.NewBundle())
	require.NoError(t, err)
	data, err := f.Encode(framer.KindBundle, payload)
	require.NoError(t, err)

	_, err = Unmarshal(data, f, ai.NewLibrary(ai.Config{}))
	assert.ErrorIs(t, err, framer.ErrKind)
}

func TestReadCorrupt(t *testing.T) {
	w := defaultWorld(t)
	f := newFramer(t, compress.TypeNone)
	path := filepath.Join(t.TempDir(), "slot.sav")
	require.NoError(t, Write(path, w, f))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Read(path, f, ai.NewLibrary(ai.Config{}))
	assert.ErrorIs(t, err, framer.ErrChecksum)

	_, err = Read(filepath.Join(t.TempDir(), "missing.sav"), f, ai.NewLibrary(ai.Config{}))
	assert.Error(t, err)
}
