package bt

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry[int]()
	reg.RegisterCondition("even", func(n int, _ []string) bool { return n%2 == 0 })
	reg.RegisterTask("noop", func(int, []string) Status { return Success })

	pred, err := reg.ResolveCondition("even")
	require.NoError(t, err)
	assert.True(t, pred(4, nil))

	act, err := reg.ResolveTask("noop")
	require.NoError(t, err)
	assert.Equal(t, Success, act(0, nil))

	_, err = reg.ResolveTask("even")
	assert.ErrorIs(t, err, ErrUnknownHandler)
	var uh *UnknownHandlerError
	require.True(t, errors.As(err, &uh))
	assert.Equal(t, HandlerTask, uh.Kind)
	assert.Equal(t, "even", uh.Name)

	_, err = reg.ResolveCondition("noop")
	assert.ErrorIs(t, err, ErrUnknownHandler)
	assert.Contains(t, err.Error(), `condition handler "noop"`)
}

func TestRegistryPanics(t *testing.T) {
	reg := NewRegistry[int]()
	reg.RegisterTask("idle", func(int, []string) Status { return Success })

	assert.Panics(t, func() { reg.RegisterTask("idle", func(int, []string) Status { return Success }) })
	assert.Panics(t, func() { reg.RegisterTask("", func(int, []string) Status { return Success }) })
	assert.Panics(t, func() { reg.RegisterTask("x", nil) })
	assert.Panics(t, func() { reg.RegisterCondition("", func(int, []string) bool { return true }) })
	assert.Panics(t, func() { reg.RegisterCondition("x", nil) })

	// 条件与任务分属不同命名空间
	assert.NotPanics(t, func() { reg.RegisterCondition("idle", func(int, []string) bool { return true }) })
}

func TestRegistryNames(t *testing.T) {
	reg := stubRegistry([]string{"hp_low", "d100", "player_visible"}, []string{"move_rnd", "attack", "idle"})
	assert.Equal(t, []string{"d100", "hp_low", "player_visible"}, reg.Conditions())
	assert.Equal(t, []string{"attack", "idle", "move_rnd"}, reg.Tasks())
}

func TestRegistryCheck(t *testing.T) {
	reg := stubRegistry([]string{"player_in_range"}, []string{"move_rnd", "idle"})
	missing := reg.Check(MustCompile(trollScript))

	names := make([]string, 0, len(missing))
	for _, m := range missing {
		names = append(names, string(m.Kind)+":"+m.Name)
	}
	assert.Equal(t, []string{
		"condition:player_visible", "condition:hp_low",
		"task:move_away", "task:attack", "task:chase_player",
	}, names)
}
