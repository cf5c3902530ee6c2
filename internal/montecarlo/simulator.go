package montecarlo

// simulator.go — simulación Monte Carlo de excursiones de precio.
//
// Cada iteración elige SampleSize entradas al azar (sin reemplazo) y mide,
// para cada una, la excursión hasta el mínimo Low y el máximo High de las
// velas en (t, t + horizonte]. Las muestras de todas las iteraciones se
// concatenan en dos secuencias planas.

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

const defaultProgressEvery = 10000

// Config controla una simulación.
type Config struct {
	HorizonHours int
	Iterations   int
	SampleSize   int
	Workers      int // goroutines para las iteraciones (<= 0 = NumCPU)
}

// Validate comprueba los parámetros que no dependen de la serie.
func (c Config) Validate() error {
	if c.HorizonHours < 0 {
		return fmt.Errorf("horizon %dh: %w", c.HorizonHours, domain.ErrInvalidParameter)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations %d: %w", c.Iterations, domain.ErrInvalidParameter)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample size %d: %w", c.SampleSize, domain.ErrInvalidParameter)
	}
	return nil
}

// Simulator ejecuta simulaciones con una fuente de aleatoriedad inyectada.
type Simulator struct {
	samplers      SamplerFactory
	progressEvery int
}

// New crea un Simulator. Si samplers es nil usa SeededSamplers(0).
func New(samplers SamplerFactory) *Simulator {
	if samplers == nil {
		samplers = SeededSamplers(0)
	}
	return &Simulator{samplers: samplers, progressEvery: defaultProgressEvery}
}

// Simulate devuelve las excursiones low/high de cfg.Iterations × cfg.SampleSize
// entradas. Una entrada sin velas en su ventana produce NaN en ambas secuencias.
//
// El orden de salida es el de las iteraciones, independientemente de Workers.
// Si ctx se cancela no se devuelve resultado parcial.
func (sim *Simulator) Simulate(ctx context.Context, s *domain.Series, cfg Config) (domain.Excursions, error) {
	if s == nil {
		return domain.Excursions{}, fmt.Errorf("montecarlo.Simulate: nil series: %w", domain.ErrMalformedSeries)
	}
	if err := cfg.Validate(); err != nil {
		return domain.Excursions{}, fmt.Errorf("montecarlo.Simulate: %w", err)
	}
	if err := checkSampleSize(s.Len(), cfg.SampleSize); err != nil {
		return domain.Excursions{}, fmt.Errorf("montecarlo.Simulate: %w", err)
	}

	perIter, err := sim.runIterations(ctx, s, cfg)
	if err != nil {
		return domain.Excursions{}, fmt.Errorf("montecarlo.Simulate: %w", err)
	}

	total := cfg.Iterations * cfg.SampleSize
	out := domain.Excursions{
		Low:  make([]float64, 0, total),
		High: make([]float64, 0, total),
	}
	for _, it := range perIter {
		out.Low = append(out.Low, it.low...)
		out.High = append(out.High, it.high...)
	}
	return out, nil
}

// iterationResult son las excursiones de una iteración.
type iterationResult struct {
	low  []float64
	high []float64
}

// iterate ejecuta la iteración i.
func (sim *Simulator) iterate(s *domain.Series, cfg Config, i int) (iterationResult, error) {
	entries, err := sim.samplers(i).Sample(s.Len(), cfg.SampleSize)
	if err != nil {
		return iterationResult{}, fmt.Errorf("iteration %d: %w", i, err)
	}
	if len(entries) != cfg.SampleSize {
		return iterationResult{}, fmt.Errorf("iteration %d: sampler returned %d rows, want %d: %w",
			i, len(entries), cfg.SampleSize, domain.ErrInvalidParameter)
	}

	horizon := time.Duration(cfg.HorizonHours) * time.Hour
	res := iterationResult{
		low:  make([]float64, len(entries)),
		high: make([]float64, len(entries)),
	}
	for j, row := range entries {
		if row < 0 || row >= s.Len() {
			return iterationResult{}, fmt.Errorf("iteration %d: entry row %d out of range: %w", i, row, domain.ErrInvalidParameter)
		}
		res.low[j], res.high[j] = Excursion(s, row, horizon)
	}
	return res, nil
}

// Excursion mide, desde el Close de la fila entry, la excursión relativa al
// mínimo Low y al máximo High de las velas en (t, t+horizon].
// Ventana vacía: (NaN, NaN).
func Excursion(s *domain.Series, entry int, horizon time.Duration) (low, high float64) {
	lo, hi := s.ForwardWindow(entry, horizon)
	if lo == hi {
		return math.NaN(), math.NaN()
	}

	minLow := math.Inf(1)
	maxHigh := math.Inf(-1)
	for k := lo; k < hi; k++ {
		c := s.At(k)
		minLow = math.Min(minLow, c.Low)
		maxHigh = math.Max(maxHigh, c.High)
	}

	price := s.At(entry).Close
	return (minLow - price) / price, (maxHigh - price) / price
}
