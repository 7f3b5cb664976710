package metrics

import (
	"testing"
	"time"

	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics(t *testing.T) (*Metrics, *prometheus.Client) {
	t.Helper()
	cfg := prometheus.DefaultConfig()
	c, err := prometheus.New(cfg, logger.NewNoop())
	require.NoError(t, err)
	m, err := New(c, nil)
	require.NoError(t, err)
	return m, c
}

func TestRecorderCounters(t *testing.T) {
	m, _ := newMetrics(t)

	m.Tick("monster.troll", bt.Success, 3*time.Microsecond)
	m.Tick("monster.troll", bt.Success, 5*time.Microsecond)
	m.Tick("monster.troll", bt.Failure, time.Microsecond)
	m.UnknownHandler(&bt.UnknownHandlerError{Kind: bt.HandlerTask, Name: "break_stuff"})
	m.Stall("npc.static")
	m.Turn()
	m.Turn()
	m.Killed("monster.bat")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks.WithLabelValues("monster.troll", "Success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("monster.troll", "Failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unknown.WithLabelValues("task", "break_stuff")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stalls.WithLabelValues("npc.static")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.killed.WithLabelValues("monster.bat")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tickDuration))

	stats := m.Window().Stats()
	assert.EqualValues(t, 3, stats.TotalCount)
}

func TestDuplicateRegistration(t *testing.T) {
	_, c := newMetrics(t)
	_, err := New(c, nil)
	assert.ErrorIs(t, err, prometheus.ErrMetricExists)
}

func TestNoop(t *testing.T) {
	r := Noop()
	r.Tick("x", bt.Running, time.Second)
	r.UnknownHandler(&bt.UnknownHandlerError{})
	r.Stall("x")
	r.Turn()
	r.Killed("x")
}

func TestWindow(t *testing.T) {
	w, err := NewWindow(&WindowConfig{WindowSize: 10 * time.Second, BucketCount: 10})
	require.NoError(t, err)
	now := time.Unix(1000, 0)
	w.now = func() time.Time { return now }

	w.Record(0.002, true)
	w.Record(0.004, false)
	now = now.Add(3 * time.Second)
	w.Record(0.001, true)

	s := w.Stats()
	assert.EqualValues(t, 3, s.TotalCount)
	assert.InDelta(t, 0.3, s.TPS, 1e-9)
	assert.InDelta(t, 0.007/3, s.AvgLatency, 1e-9)
	assert.InDelta(t, 0.001, s.MinLatency, 1e-9)
	assert.InDelta(t, 0.004, s.MaxLatency, 1e-9)
	assert.InDelta(t, 200.0/3, s.SuccessRate, 1e-9)

	// 前两条滑出窗口
	now = now.Add(8 * time.Second)
	s = w.Stats()
	assert.EqualValues(t, 1, s.TotalCount)

	now = now.Add(time.Hour)
	assert.Zero(t, w.Stats().TotalCount)

	_, err = NewWindow(&WindowConfig{WindowSize: 5, BucketCount: 10})
	assert.Error(t, err)
}
