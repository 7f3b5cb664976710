package bt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type cell struct{ X, Y int }

func TestBlackboard(t *testing.T) {
	bb := NewBlackboard()
	bb.Set("last_player_pos", cell{3, 4})
	bb.Set("turns_fleeing", 2)
	bb.Set("mood", "angry")
	bb.Set("alerted", true)

	pos, ok := Lookup[cell](bb, "last_player_pos")
	assert.True(t, ok)
	assert.Equal(t, cell{3, 4}, pos)

	_, ok = Lookup[cell](bb, "mood")
	assert.False(t, ok)

	n, ok := Lookup[int](bb, "turns_fleeing")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	bb.Delete("mood")
	_, ok = bb.Get("mood")
	assert.False(t, ok)
	alerted, ok := Lookup[bool](bb, "alerted")
	assert.True(t, ok)
	assert.True(t, alerted)
}
