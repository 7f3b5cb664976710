// Package metrics 行为树与回合调度的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder 调度器上报接口
type Recorder interface {
	Tick(archetype string, status bt.Status, d time.Duration)
	UnknownHandler(e *bt.UnknownHandlerError)
	Stall(archetype string)
	Turn()
	Killed(archetype string)
}

// tickBuckets 单次 Tick 一般在微秒级
var tickBuckets = prom.ExponentialBuckets(1e-6, 4, 10)

// Metrics 基于 pkg/prometheus 的 Recorder 实现
type Metrics struct {
	ticks        *prom.CounterVec
	unknown      *prom.CounterVec
	stalls       *prom.CounterVec
	turns        *prom.CounterVec
	killed       *prom.CounterVec
	tickDuration *prom.HistogramVec

	window *Window
}

// New 在 client 上注册全部指标
func New(c *prometheus.Client, window *WindowConfig) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.ticks, err = c.NewCounter("ticks_total", "Behavior tree ticks by archetype and result.", []string{"archetype", "status"}); err != nil {
		return nil, errors.Wrap(err, "ticks_total")
	}
	if m.unknown, err = c.NewCounter("unknown_handlers_total", "Unregistered handlers reached during ticks.", []string{"kind", "name"}); err != nil {
		return nil, errors.Wrap(err, "unknown_handlers_total")
	}
	if m.stalls, err = c.NewCounter("turn_stalls_total", "Ticks that returned without consuming the actor's turn.", []string{"archetype"}); err != nil {
		return nil, errors.Wrap(err, "turn_stalls_total")
	}
	if m.turns, err = c.NewCounter("turns_total", "World turns simulated.", nil); err != nil {
		return nil, errors.Wrap(err, "turns_total")
	}
	if m.killed, err = c.NewCounter("actors_killed_total", "Actors removed after dying.", []string{"archetype"}); err != nil {
		return nil, errors.Wrap(err, "actors_killed_total")
	}
	if m.tickDuration, err = c.NewHistogram("tick_duration_seconds", "Wall time of a single tree tick.", []string{"archetype"}, tickBuckets); err != nil {
		return nil, errors.Wrap(err, "tick_duration_seconds")
	}
	if m.window, err = NewWindow(window); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) Tick(archetype string, status bt.Status, d time.Duration) {
	m.ticks.WithLabelValues(archetype, status.String()).Inc()
	m.tickDuration.WithLabelValues(archetype).Observe(d.Seconds())
	m.window.Record(d.Seconds(), status == bt.Success)
}

func (m *Metrics) UnknownHandler(e *bt.UnknownHandlerError) {
	m.unknown.WithLabelValues(string(e.Kind), e.Name).Inc()
}

func (m *Metrics) Stall(archetype string) {
	m.stalls.WithLabelValues(archetype).Inc()
}

func (m *Metrics) Turn() {
	m.turns.WithLabelValues().Inc()
}

func (m *Metrics) Killed(archetype string) {
	m.killed.WithLabelValues(archetype).Inc()
}

// Window 最近一段时间的 Tick 统计
func (m *Metrics) Window() *Window {
	return m.window
}

type noop struct{}

// Noop 丢弃全部上报
func Noop() Recorder { return noop{} }

func (noop) Tick(string, bt.Status, time.Duration)  {}
func (noop) UnknownHandler(*bt.UnknownHandlerError) {}
func (noop) Stall(string)                           {}
func (noop) Turn()                                  {}
func (noop) Killed(string)                          {}
