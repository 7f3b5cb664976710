package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type simSection struct {
	Seed     int64         `mapstructure:"seed"`
	Turns    int           `mapstructure:"turns" validate:"min=1"`
	Interval time.Duration `mapstructure:"interval"`
	Mode     string        `mapstructure:"mode" validate:"oneof=run batch serve"`
}

type aiSection struct {
	ScriptsDir string            `mapstructure:"scripts_dir"`
	CacheSize  int               `mapstructure:"cache_size"`
	Overrides  map[string]string `mapstructure:"overrides"`
	Trace      *bool             `mapstructure:"trace"`
}

type testConfig struct {
	Sim    simSection `mapstructure:"sim"`
	AI     aiSection  `mapstructure:"ai"`
	Labels []string   `mapstructure:"labels"`
}

func TestMergeConfig(t *testing.T) {
	on := true
	dst := &testConfig{
		Sim:    simSection{Seed: 1, Turns: 100, Mode: "run"},
		AI:     aiSection{CacheSize: 64, Overrides: map[string]string{"monster.troll": "troll.bts"}},
		Labels: []string{"default"},
	}
	src := &testConfig{
		Sim:    simSection{Turns: 5},
		AI:     aiSection{Overrides: map[string]string{"monster.bat": "bat.bts"}, Trace: &on},
		Labels: []string{"a", "b"},
	}

	out, err := MergeConfig(dst, src)
	require.NoError(t, err)
	assert.Same(t, dst, out)
	assert.Equal(t, int64(1), out.Sim.Seed)
	assert.Equal(t, 5, out.Sim.Turns)
	assert.Equal(t, "run", out.Sim.Mode)
	assert.Equal(t, 64, out.AI.CacheSize)
	assert.Len(t, out.AI.Overrides, 2)
	require.NotNil(t, out.AI.Trace)
	assert.True(t, *out.AI.Trace)
	assert.Equal(t, []string{"a", "b"}, out.Labels)
}

func TestMergeConfigNil(t *testing.T) {
	_, err := MergeConfig[testConfig](nil, nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	src := &testConfig{}
	out, err := MergeConfig(nil, src)
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&testConfig{Sim: simSection{Turns: 0, Mode: "fly"}})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "testConfig.Sim.Turns")
	assert.Contains(t, err.Error(), "must be one of [run batch serve]")

	assert.NoError(t, v.Validate(&testConfig{Sim: simSection{Turns: 1, Mode: "batch"}}))
	assert.ErrorIs(t, v.Validate(nil), ErrNilConfig)
}

func TestValidatorCustomRule(t *testing.T) {
	type level struct {
		Name string `validate:"level_name"`
	}
	v := NewValidator()
	require.NoError(t, v.RegisterValidation("level_name", func(fl validator.FieldLevel) bool {
		return filepath.Ext(fl.Field().String()) == ".yaml"
	}))

	assert.NoError(t, v.Validate(&level{Name: "mines.yaml"}))
	assert.Error(t, v.Validate(&level{Name: "mines.txt"}))
}

func TestLoaderReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sim:
  seed: 42
  turns: 300
  interval: 250ms
  mode: batch
ai:
  scripts_dir: ./scripts
`), 0o644))

	l := NewLoader(WithDefaults(map[string]any{"ai.cache_size": 32}))
	loaded, err := l.ReadFile(path, true)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, path, l.File())

	cfg := testConfig{Labels: []string{"default"}}
	require.NoError(t, l.Decode(&cfg))
	assert.Equal(t, int64(42), cfg.Sim.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.Sim.Interval)
	assert.Equal(t, 32, cfg.AI.CacheSize)
	assert.Equal(t, []string{"default"}, cfg.Labels)

	var sim simSection
	require.NoError(t, l.DecodeKey("sim", &sim))
	assert.Equal(t, "batch", sim.Mode)
	assert.Equal(t, "./scripts", l.String("ai.scripts_dir"))
}

func TestLoaderOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sim:\n  turns: 10\n  interval: 1s\n"), 0o644))

	l := NewLoader()
	_, err := l.ReadFile(path, true)
	require.NoError(t, err)
	l.Override("sim.turns", "25")
	l.Override("sim.interval", "50ms")
	l.Override("labels", "a,b")

	var cfg testConfig
	require.NoError(t, l.Decode(&cfg))
	assert.Equal(t, 25, cfg.Sim.Turns)
	assert.Equal(t, 50*time.Millisecond, cfg.Sim.Interval)
	assert.Equal(t, []string{"a", "b"}, cfg.Labels)
}

func TestLoaderEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sim:\n  turns: 10\n"), 0o644))
	t.Setenv("XDOORIA_AI_SIM_TURNS", "77")

	l := NewLoader(WithEnvPrefix("XDOORIA_AI"))
	_, err := l.ReadFile(path, false)
	require.NoError(t, err)

	var cfg testConfig
	require.NoError(t, l.Decode(&cfg))
	assert.Equal(t, 77, cfg.Sim.Turns)
}

func TestLoaderMissingFile(t *testing.T) {
	l := NewLoader()
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	loaded, err := l.ReadFile(missing, false)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Empty(t, l.File())

	_, err = l.ReadFile(missing, true)
	assert.ErrorIs(t, err, ErrFileNotFound)
}
