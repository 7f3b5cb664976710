package prometheus

import (
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "empty namespace", config: &Config{}, wantErr: true},
		{name: "enabled without addr", config: &Config{Namespace: "mines", HTTPServer: HTTPServerConfig{Enabled: true}}, wantErr: true},
		{name: "enabled fills defaults", config: &Config{Namespace: "mines", HTTPServer: HTTPServerConfig{Enabled: true, Addr: ":0"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			if tt.config.HTTPServer.Enabled {
				assert.Equal(t, "/metrics", tt.config.HTTPServer.Path)
			}
		})
	}
}

func TestMetricsRegistration(t *testing.T) {
	c, err := New(DefaultConfig(), nil)
	require.NoError(t, err)

	ticks, err := c.NewCounter("ticks_total", "behavior tree ticks", []string{"archetype", "status"})
	require.NoError(t, err)
	ticks.WithLabelValues("monster.troll", "Success").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(ticks.WithLabelValues("monster.troll", "Success")))

	_, err = c.NewCounter("ticks_total", "dup", nil)
	assert.ErrorIs(t, err, ErrMetricExists)

	h, err := c.NewHistogram("tick_duration_seconds", "tick latency", []string{"archetype"}, nil)
	require.NoError(t, err)
	h.WithLabelValues("monster.troll").Observe(0.001)

	g, err := c.NewGauge("actors_alive", "living actors", nil)
	require.NoError(t, err)
	g.WithLabelValues().Set(3)

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}

func TestHTTPServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPServer.Enabled = true
	cfg.HTTPServer.Addr = "127.0.0.1:0"

	c, err := New(cfg, nil)
	require.NoError(t, err)
	turns, err := c.NewCounter("turns_total", "turns", nil)
	require.NoError(t, err)
	turns.WithLabelValues().Add(5)

	require.NoError(t, c.Start())
	defer c.Stop()

	resp, err := http.Get("http://" + c.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mines_turns_total 5")
}

func TestStartDisabled(t *testing.T) {
	c, err := New(nil, nil)
	require.NoError(t, err)
	assert.NoError(t, c.Start())
	assert.Empty(t, c.Addr())
	assert.NoError(t, c.Stop())
}
