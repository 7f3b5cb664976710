package metrics

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	// 窗口大小
	WindowSize time.Duration `mapstructure:"window_size" json:"window_size" yaml:"window_size"`
	// 桶数量
	BucketCount int `mapstructure:"bucket_count" json:"bucket_count" yaml:"bucket_count"`
}

// DefaultWindowConfig 默认配置
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		WindowSize:  60 * time.Second,
		BucketCount: 60,
	}
}

// bucket 时间桶
type bucket struct {
	slot       int64 // 所属时间片序号
	count      int64
	totalTime  float64
	minLatency float64
	maxLatency float64
	successCnt int64
}

// Window 滑动窗口统计器，按时间片惰性轮转
type Window struct {
	size     time.Duration
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets []bucket
}

// NewWindow 创建滑动窗口统计器
func NewWindow(cfg *WindowConfig) (*Window, error) {
	newCfg, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge window config")
	}
	if newCfg.BucketCount <= 0 || newCfg.WindowSize < time.Duration(newCfg.BucketCount) {
		return nil, errors.Newf("invalid window: size %s with %d buckets", newCfg.WindowSize, newCfg.BucketCount)
	}
	w := &Window{
		size:     newCfg.WindowSize,
		interval: newCfg.WindowSize / time.Duration(newCfg.BucketCount),
		now:      time.Now,
		buckets:  make([]bucket, newCfg.BucketCount),
	}
	for i := range w.buckets {
		w.buckets[i].slot = -1
	}
	return w, nil
}

func (w *Window) slot(t time.Time) int64 {
	return t.UnixNano() / int64(w.interval)
}

// Record 记录一次 Tick
func (w *Window) Record(latency float64, success bool) {
	s := w.slot(w.now())

	w.mu.Lock()
	defer w.mu.Unlock()

	b := &w.buckets[s%int64(len(w.buckets))]
	if b.slot != s {
		*b = bucket{slot: s, minLatency: latency}
	}
	b.count++
	b.totalTime += latency
	if success {
		b.successCnt++
	}
	if latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}
}

// Stats 统计结果
type Stats struct {
	// 每秒 Tick 数
	TPS float64 `json:"tps"`
	// 平均耗时（秒）
	AvgLatency float64 `json:"avg_latency"`
	MinLatency float64 `json:"min_latency"`
	MaxLatency float64 `json:"max_latency"`
	// 返回 Success 的比例 (0-100)
	SuccessRate float64 `json:"success_rate"`
	TotalCount  int64   `json:"total_count"`
}

// Stats 获取窗口内的统计
func (w *Window) Stats() Stats {
	cur := w.slot(w.now())
	oldest := cur - int64(len(w.buckets)) + 1

	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		stats      Stats
		totalTime  float64
		successCnt int64
		seen       bool
	)
	for _, b := range w.buckets {
		if b.slot < oldest || b.slot > cur || b.count == 0 {
			continue
		}
		stats.TotalCount += b.count
		totalTime += b.totalTime
		successCnt += b.successCnt
		if !seen || b.minLatency < stats.MinLatency {
			stats.MinLatency = b.minLatency
		}
		if b.maxLatency > stats.MaxLatency {
			stats.MaxLatency = b.maxLatency
		}
		seen = true
	}

	stats.TPS = float64(stats.TotalCount) / w.size.Seconds()
	if stats.TotalCount > 0 {
		stats.AvgLatency = totalTime / float64(stats.TotalCount)
		stats.SuccessRate = float64(successCnt) / float64(stats.TotalCount) * 100
	}
	return stats
}
