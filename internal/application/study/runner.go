package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/pricevol/internal/analysis"
	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/alejandrodnm/pricevol/internal/montecarlo"
	"github.com/alejandrodnm/pricevol/internal/ports"
	"github.com/alejandrodnm/pricevol/internal/stats"
	"github.com/google/uuid"
)

// ErrNoStorage se devuelve al pedir el histórico sin storage configurado.
var ErrNoStorage = errors.New("storage not configured")

// Range identifica la serie de velas a analizar.
type Range struct {
	Pair     string
	Interval domain.Interval
	From     time.Time
	To       time.Time
}

// SimulationParams configura RunSimulation. Se ejecuta una simulación por
// cada horizonte de HoldingHours; cada una muestrea con HorizonSeed(Seed, h),
// así que los horizontes no comparten filas de entrada.
type SimulationParams struct {
	Range
	Iterations   int
	SampleSize   int
	HoldingHours []int
	Seed         uint64
	Workers      int
}

// EventParams configura RunEventStudy. Features vacío = las 15 columnas;
// Directions vacío = positive y negative.
type EventParams struct {
	Range
	HoldingPeriod time.Duration
	Thresholds    []float64
	Features      []domain.FeatureKey
	Directions    []domain.Direction
}

// Options ajusta el comportamiento del Runner.
type Options struct {
	// Refresh ignora la caché de velas y vuelve a descargar la serie.
	Refresh bool
	// Samplers sustituye la fuente de aleatoriedad (tests).
	Samplers func(seed uint64) montecarlo.SamplerFactory
}

// Runner orquesta carga de velas, análisis, informe y persistencia.
type Runner struct {
	provider ports.CandleProvider
	store    ports.Storage // nil = sin caché ni persistencia
	reporter ports.Reporter
	opts     Options
	now      func() time.Time
}

// NewRunner crea un Runner con todas las dependencias inyectadas.
func NewRunner(provider ports.CandleProvider, store ports.Storage, reporter ports.Reporter, opts Options) *Runner {
	if opts.Samplers == nil {
		opts.Samplers = montecarlo.SeededSamplers
	}
	return &Runner{
		provider: provider,
		store:    store,
		reporter: reporter,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HorizonSeed deriva la semilla del horizonte h a partir de seed.
// El SimulationRun guarda seed; la derivación es determinista.
func HorizonSeed(seed uint64, h int) uint64 {
	return seed ^ (uint64(h) * 0x9e3779b97f4a7c15)
}

// RunSimulation ejecuta la simulación Monte Carlo para cada horizonte de p,
// resume las distribuciones low, high y joined, las reporta y las guarda.
func (r *Runner) RunSimulation(ctx context.Context, p SimulationParams) ([]domain.SimulationRun, error) {
	if len(p.HoldingHours) == 0 {
		return nil, fmt.Errorf("study.RunSimulation: no holding hours: %w", domain.ErrInvalidParameter)
	}
	for _, h := range p.HoldingHours {
		cfg := montecarlo.Config{HorizonHours: h, Iterations: p.Iterations, SampleSize: p.SampleSize}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("study.RunSimulation: %w", err)
		}
	}

	series, err := r.loadSeries(ctx, p.Range)
	if err != nil {
		return nil, fmt.Errorf("study.RunSimulation: %w", err)
	}

	runs := make([]domain.SimulationRun, 0, len(p.HoldingHours))
	for _, h := range p.HoldingHours {
		start := time.Now()
		sim := montecarlo.New(r.opts.Samplers(HorizonSeed(p.Seed, h)))
		ex, err := sim.Simulate(ctx, series, montecarlo.Config{
			HorizonHours: h,
			Iterations:   p.Iterations,
			SampleSize:   p.SampleSize,
			Workers:      p.Workers,
		})
		if err != nil {
			return nil, fmt.Errorf("study.RunSimulation: horizon %dh: %w", h, err)
		}

		joined := ex.Joined()
		run := domain.SimulationRun{
			ID:           uuid.New().String(),
			Symbol:       p.Pair,
			Interval:     p.Interval,
			From:         p.From,
			To:           p.To,
			HorizonHours: h,
			Iterations:   p.Iterations,
			SampleSize:   p.SampleSize,
			Seed:         p.Seed,
			Low:          stats.Summarize(ex.Low),
			High:         stats.Summarize(ex.High),
			Joined:       stats.Summarize(joined),
			CreatedAt:    r.now(),
		}
		slog.Info("simulation done",
			"symbol", p.Pair,
			"horizon_h", h,
			"samples", len(joined),
			"joined_std", run.Joined.Std,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)

		dists := []ports.Distribution{
			{Name: "low", Samples: ex.Low, Summary: run.Low},
			{Name: "high", Samples: ex.High, Summary: run.High},
			{Name: "joined", Samples: joined, Summary: run.Joined},
		}
		if err := r.reporter.ReportSimulation(ctx, run, dists); err != nil {
			slog.Warn("reporter error", "err", err)
		}
		if r.store != nil {
			if err := r.store.SaveSimulationRun(ctx, run); err != nil {
				slog.Warn("storage error", "run", run.ID, "err", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// RunEventStudy cuenta eventos para cada combinación (feature, dirección,
// threshold) sobre una única derivación de las features.
func (r *Runner) RunEventStudy(ctx context.Context, p EventParams) ([]domain.EventStudy, error) {
	if len(p.Thresholds) == 0 {
		return nil, fmt.Errorf("study.RunEventStudy: no thresholds: %w", domain.ErrInvalidParameter)
	}
	for _, th := range p.Thresholds {
		if math.IsNaN(th) {
			return nil, fmt.Errorf("study.RunEventStudy: NaN threshold: %w", domain.ErrInvalidParameter)
		}
	}
	features := p.Features
	if len(features) == 0 {
		features = domain.FeatureKeys()
	}
	directions := p.Directions
	if len(directions) == 0 {
		directions = []domain.Direction{domain.DirectionPositive, domain.DirectionNegative}
	}

	series, err := r.loadSeries(ctx, p.Range)
	if err != nil {
		return nil, fmt.Errorf("study.RunEventStudy: %w", err)
	}

	matrix, err := analysis.Features(series, p.HoldingPeriod)
	if err != nil {
		return nil, fmt.Errorf("study.RunEventStudy: %w", err)
	}

	created := r.now()
	studies := make([]domain.EventStudy, 0, len(features)*len(directions)*len(p.Thresholds))
	for _, key := range features {
		for _, dir := range directions {
			for _, th := range p.Thresholds {
				studies = append(studies, domain.EventStudy{
					ID:            uuid.New().String(),
					Symbol:        p.Pair,
					Interval:      p.Interval,
					From:          p.From,
					To:            p.To,
					HoldingPeriod: p.HoldingPeriod,
					Feature:       key,
					Direction:     dir,
					Threshold:     th,
					Result:        matrix.Count(key, th, dir),
					CreatedAt:     created,
				})
			}
		}
	}
	slog.Info("event study done",
		"symbol", p.Pair,
		"holding", p.HoldingPeriod,
		"rows", series.Len(),
		"counts", len(studies),
	)

	if err := r.reporter.ReportEvents(ctx, studies); err != nil {
		slog.Warn("reporter error", "err", err)
	}
	if r.store != nil {
		for _, st := range studies {
			if err := r.store.SaveEventStudy(ctx, st); err != nil {
				slog.Warn("storage error", "study", st.ID, "err", err)
			}
		}
	}
	return studies, nil
}

// History devuelve las simulaciones y estudios guardados de symbol.
func (r *Runner) History(ctx context.Context, symbol string) ([]domain.SimulationRun, []domain.EventStudy, error) {
	if r.store == nil {
		return nil, nil, fmt.Errorf("study.History: %w", ErrNoStorage)
	}
	runs, err := r.store.ListSimulationRuns(ctx, symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("study.History: %w", err)
	}
	studies, err := r.store.ListEventStudies(ctx, symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("study.History: %w", err)
	}
	return runs, studies, nil
}
