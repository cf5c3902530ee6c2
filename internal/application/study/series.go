package study

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// loadSeries devuelve la serie de rg: de la caché si la cubre, si no del
// provider (y entonces la guarda en caché).
func (r *Runner) loadSeries(ctx context.Context, rg Range) (*domain.Series, error) {
	if rg.Pair == "" {
		return nil, fmt.Errorf("loadSeries: empty pair: %w", domain.ErrInvalidParameter)
	}

	if r.store != nil && !r.opts.Refresh {
		cached, err := r.store.LoadCandles(ctx, rg.Pair, rg.Interval, rg.From, rg.To)
		if err != nil {
			slog.Warn("candle cache read failed", "symbol", rg.Pair, "err", err)
		} else if covers(cached, rg) {
			slog.Info("series loaded", "symbol", rg.Pair, "source", "cache", "candles", len(cached))
			return domain.NewSeries(cached)
		}
	}

	candles, err := r.provider.FetchCandles(ctx, rg.Pair, rg.Interval, rg.From, rg.To)
	if err != nil {
		return nil, fmt.Errorf("loadSeries: fetch %s: %w", rg.Pair, err)
	}
	series, err := domain.NewSeries(candles)
	if err != nil {
		return nil, fmt.Errorf("loadSeries: %s: %w", rg.Pair, err)
	}
	slog.Info("series loaded", "symbol", rg.Pair, "source", "provider", "candles", series.Len())

	if r.store != nil {
		if err := r.store.SaveCandles(ctx, rg.Pair, rg.Interval, candles); err != nil {
			slog.Warn("candle cache write failed", "symbol", rg.Pair, "err", err)
		}
	}
	return series, nil
}

// covers indica si las velas cacheadas llegan a ambos extremos del rango,
// con una vela de tolerancia por cada lado. Los huecos internos no se detectan.
func covers(cached []domain.Candle, rg Range) bool {
	if len(cached) == 0 || rg.From.IsZero() || rg.To.IsZero() {
		return false
	}
	step := rg.Interval.Duration()
	if step == 0 {
		step = time.Minute
	}
	first := cached[0].Timestamp
	last := cached[len(cached)-1].Timestamp
	return !first.After(rg.From.Add(step)) && !last.Before(rg.To.Add(-step))
}
