package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
)

// BatchConfig 批量模拟配置
type BatchConfig struct {
	// Runs 会话数量
	Runs int `mapstructure:"runs" validate:"min=1"`
	// Workers 并发会话数
	Workers int `mapstructure:"workers" validate:"min=1"`
}

// DefaultBatchConfig 默认批量配置
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{Runs: 16, Workers: 4}
}

// BatchReport 批量模拟汇总
type BatchReport struct {
	Runs         int            `json:"runs"`
	Failed       int            `json:"failed"`
	PlayerDeaths int            `json:"player_deaths"`
	TotalTurns   int            `json:"total_turns"`
	AvgTurns     float64        `json:"avg_turns"`
	Stalls       int            `json:"stalls"`
	Kills        map[string]int `json:"kills"`
	Duration     time.Duration  `json:"duration"`
	Results      []*Result      `json:"results"`
}

// newPool 创建会话协程池
var newPool = func(size int) (*ants.Pool, error) {
	return ants.NewPool(size)
}

// Batch 以 ants 协程池并发运行多个会话
//
// 第 i 个会话的种子为 base.Seed+i，存档读写在批量模式下不生效。
func Batch(ctx context.Context, cfg BatchConfig, base Config, deps Deps) (*BatchReport, error) {
	if cfg.Runs <= 0 {
		return nil, errors.Newf("sim: invalid run count %d", cfg.Runs)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if base.Seed == 0 {
		base.Seed = uint64(time.Now().UnixNano())
	}
	base.Save, base.Load = "", ""

	pool, err := newPool(cfg.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create worker pool")
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []*Result
		errs    error
	)
	start := time.Now()
	for i := 0; i < cfg.Runs; i++ {
		runCfg := base
		runCfg.Seed = base.Seed + uint64(i)

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			res, err := runOne(ctx, runCfg, deps)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = errors.CombineErrors(errs, errors.Wrapf(err, "seed %d", runCfg.Seed))
				return
			}
			results = append(results, res)
		})
		if submitErr != nil {
			wg.Done()
			// 已提交的会话结束后才释放协程池
			wg.Wait()
			return nil, errors.Wrap(submitErr, "failed to submit session")
		}
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Seed < results[j].Seed })
	rep := &BatchReport{
		Runs:     cfg.Runs,
		Failed:   cfg.Runs - len(results),
		Kills:    make(map[string]int),
		Duration: time.Since(start),
		Results:  results,
	}
	for _, r := range results {
		rep.TotalTurns += r.Turns
		rep.Stalls += r.Stalls
		if r.PlayerDead {
			rep.PlayerDeaths++
		}
		for k, v := range r.Kills {
			rep.Kills[k] += v
		}
	}
	if len(results) > 0 {
		rep.AvgTurns = float64(rep.TotalTurns) / float64(len(results))
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, errs
}

func runOne(ctx context.Context, cfg Config, deps Deps) (*Result, error) {
	s, err := NewSession(cfg, deps)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, cfg.Turns)
}
