package montecarlo

// concurrent.go — worker pool para las iteraciones de la simulación.
//
// Cada iteración escribe en su propia posición de results, así que la salida
// concatenada es la misma con 1 o N workers.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

func (sim *Simulator) runIterations(ctx context.Context, s *domain.Series, cfg Config) ([]iterationResult, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > cfg.Iterations {
		workers = cfg.Iterations
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]iterationResult, cfg.Iterations)
	workCh := make(chan int, workers)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		done     atomic.Int64
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if ctx.Err() != nil {
					continue
				}
				res, err := sim.iterate(s, cfg, i)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				results[i] = res

				if n := done.Add(1); sim.progressEvery > 0 && n%int64(sim.progressEvery) == 0 {
					slog.Debug("simulation progress",
						"done", n,
						"iterations", cfg.Iterations,
						"pct", float64(n)/float64(cfg.Iterations)*100,
					)
				}
			}
		}()
	}

feed:
	for i := 0; i < cfg.Iterations; i++ {
		select {
		case workCh <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(workCh)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("simulation iterations complete",
		"iterations", cfg.Iterations,
		"sample_size", cfg.SampleSize,
		"workers", workers,
	)
	return results, nil
}
