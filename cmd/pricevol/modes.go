package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alejandrodnm/pricevol/config"
	"github.com/alejandrodnm/pricevol/internal/adapters/csvfile"
	"github.com/alejandrodnm/pricevol/internal/adapters/report"
	"github.com/alejandrodnm/pricevol/internal/application/study"
	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/alejandrodnm/pricevol/internal/ports"
)

func studyRange(cfg *config.Config) (study.Range, error) {
	interval, err := domain.ParseInterval(cfg.Simulation.Interval)
	if err != nil {
		return study.Range{}, err
	}
	from, to, err := cfg.Range()
	if err != nil {
		return study.Range{}, err
	}
	return study.Range{Pair: cfg.Simulation.Pair, Interval: interval, From: from, To: to}, nil
}

func runSimulation(ctx context.Context, runner *study.Runner, cfg *config.Config) error {
	rg, err := studyRange(cfg)
	if err != nil {
		return err
	}
	runs, err := runner.RunSimulation(ctx, study.SimulationParams{
		Range:        rg,
		Iterations:   cfg.Simulation.Iterations,
		SampleSize:   cfg.Simulation.SampleSize,
		HoldingHours: cfg.Simulation.HoldingHours,
		Seed:         cfg.Simulation.Seed,
		Workers:      cfg.Simulation.Workers,
	})
	if err != nil {
		return err
	}
	slog.Info("simulations complete", "runs", len(runs))
	return nil
}

func runEvents(ctx context.Context, runner *study.Runner, cfg *config.Config) error {
	rg, err := studyRange(cfg)
	if err != nil {
		return err
	}

	features := make([]domain.FeatureKey, 0, len(cfg.Events.Features))
	for _, name := range cfg.Events.Features {
		k, err := domain.ParseFeatureKey(name)
		if err != nil {
			return err
		}
		features = append(features, k)
	}
	directions := make([]domain.Direction, 0, len(cfg.Events.Directions))
	for _, name := range cfg.Events.Directions {
		d, err := domain.ParseDirection(name)
		if err != nil {
			return err
		}
		directions = append(directions, d)
	}

	studies, err := runner.RunEventStudy(ctx, study.EventParams{
		Range:         rg,
		HoldingPeriod: cfg.Events.HoldingPeriod,
		Thresholds:    cfg.Events.Thresholds,
		Features:      features,
		Directions:    directions,
	})
	if err != nil {
		return err
	}
	slog.Info("event study complete", "counts", len(studies))
	return nil
}

func runHistory(ctx context.Context, runner *study.Runner, console *report.Console, symbol string) error {
	runs, studies, err := runner.History(ctx, symbol)
	if err != nil {
		return err
	}
	console.PrintHistory(runs, studies)
	return nil
}

// runFetch descarga la serie configurada y la guarda como CSV, para poder
// repetir los análisis offline con -csv.
func runFetch(ctx context.Context, provider ports.CandleProvider, cfg *config.Config, path string) error {
	rg, err := studyRange(cfg)
	if err != nil {
		return err
	}
	candles, err := provider.FetchCandles(ctx, rg.Pair, rg.Interval, rg.From, rg.To)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	if err := csvfile.Write(f, candles); err != nil {
		return err
	}
	slog.Info("candles written", "path", path, "candles", len(candles))
	return nil
}
