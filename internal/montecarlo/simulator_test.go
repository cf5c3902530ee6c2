package montecarlo_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/alejandrodnm/pricevol/internal/montecarlo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture de 10 velas horarias: {close, high, low}
var fixture = [10][3]float64{
	{100, 102, 99},
	{101, 103, 100},
	{99, 101, 97},
	{105, 106, 98},
	{103, 104, 101},
	{104, 108, 102},
	{102, 105, 100},
	{98, 103, 96},
	{100, 101, 97},
	{101, 102, 99},
}

// Excursiones calculadas a mano con horizonte de 2h: (minLow-close)/close y
// (maxHigh-close)/close sobre las dos velas siguientes. La fila 9 no tiene ventana.
var (
	wantLow  = [10]float64{-3.0 / 100, -4.0 / 101, -1.0 / 99, -4.0 / 105, -3.0 / 103, -8.0 / 104, -6.0 / 102, -1.0 / 98, -1.0 / 100, math.NaN()}
	wantHigh = [10]float64{3.0 / 100, 5.0 / 101, 7.0 / 99, 3.0 / 105, 5.0 / 103, 1.0 / 104, 1.0 / 102, 4.0 / 98, 2.0 / 100, math.NaN()}
)

func fixtureSeries(t *testing.T) *domain.Series {
	t.Helper()
	start := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, len(fixture))
	for i, f := range fixture {
		candles[i] = domain.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      f[0],
			Close:     f[0],
			High:      f[1],
			Low:       f[2],
			Volume:    1,
		}
	}
	s, err := domain.NewSeries(candles)
	require.NoError(t, err)
	return s
}

type fixedSampler struct{ rows []int }

func (f fixedSampler) Sample(_, _ int) ([]int, error) { return f.rows, nil }

func fixed(rows ...int) montecarlo.SamplerFactory {
	return func(int) montecarlo.Sampler { return fixedSampler{rows: rows} }
}

func assertExcursion(t *testing.T, want, got float64, msg string) {
	t.Helper()
	if math.IsNaN(want) {
		assert.True(t, math.IsNaN(got), msg)
		return
	}
	assert.InDelta(t, want, got, 1e-12, msg)
}

func TestSimulate_HandComputedEntries(t *testing.T) {
	s := fixtureSeries(t)
	sim := montecarlo.New(fixed(0, 4, 8))

	out, err := sim.Simulate(context.Background(), s, montecarlo.Config{
		HorizonHours: 2, Iterations: 1, SampleSize: 3, Workers: 1,
	})
	require.NoError(t, err)
	require.Len(t, out.Low, 3)
	require.Len(t, out.High, 3)

	assert.InDelta(t, -0.03, out.Low[0], 1e-12)
	assert.InDelta(t, 0.03, out.High[0], 1e-12)
	assert.InDelta(t, -3.0/103, out.Low[1], 1e-12)
	assert.InDelta(t, 5.0/103, out.High[1], 1e-12)
	assert.InDelta(t, -0.01, out.Low[2], 1e-12)
	assert.InDelta(t, 0.02, out.High[2], 1e-12)
}

func TestSimulate_SeededEntriesMatchHandComputedTable(t *testing.T) {
	s := fixtureSeries(t)
	const seed = 42

	rows, err := montecarlo.SeededSamplers(seed)(0).Sample(s.Len(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	out, err := montecarlo.New(montecarlo.SeededSamplers(seed)).Simulate(context.Background(), s, montecarlo.Config{
		HorizonHours: 2, Iterations: 1, SampleSize: 3,
	})
	require.NoError(t, err)
	require.Len(t, out.Low, 3)
	require.Len(t, out.High, 3)

	for j, row := range rows {
		assertExcursion(t, wantLow[row], out.Low[j], "low")
		assertExcursion(t, wantHigh[row], out.High[j], "high")
	}
}

func TestSimulate_EmptyWindowPropagatesNaN(t *testing.T) {
	s := fixtureSeries(t)
	out, err := montecarlo.New(fixed(9)).Simulate(context.Background(), s, montecarlo.Config{
		HorizonHours: 2, Iterations: 2, SampleSize: 1,
	})
	require.NoError(t, err)
	require.Len(t, out.Low, 2)
	for i := range out.Low {
		assert.True(t, math.IsNaN(out.Low[i]))
		assert.True(t, math.IsNaN(out.High[i]))
	}
}

func TestSimulate_FlatConcatenationAcrossIterations(t *testing.T) {
	s := fixtureSeries(t)
	out, err := montecarlo.New(montecarlo.SeededSamplers(7)).Simulate(context.Background(), s, montecarlo.Config{
		HorizonHours: 2, Iterations: 50, SampleSize: 4,
	})
	require.NoError(t, err)
	assert.Len(t, out.Low, 200)
	assert.Len(t, out.High, 200)
}

func TestSimulate_SameOutputForAnyWorkerCount(t *testing.T) {
	s := fixtureSeries(t)
	cfg := montecarlo.Config{HorizonHours: 3, Iterations: 200, SampleSize: 5}

	cfg.Workers = 1
	a, err := montecarlo.New(montecarlo.SeededSamplers(99)).Simulate(context.Background(), s, cfg)
	require.NoError(t, err)

	cfg.Workers = 8
	b, err := montecarlo.New(montecarlo.SeededSamplers(99)).Simulate(context.Background(), s, cfg)
	require.NoError(t, err)

	require.Equal(t, len(a.Low), len(b.Low))
	for i := range a.Low {
		assertExcursion(t, a.Low[i], b.Low[i], "low")
		assertExcursion(t, a.High[i], b.High[i], "high")
	}
}

func TestSimulate_SampleSizeExceedsPopulation(t *testing.T) {
	s := fixtureSeries(t)
	_, err := montecarlo.New(nil).Simulate(context.Background(), s, montecarlo.Config{
		HorizonHours: 1, Iterations: 1, SampleSize: 11,
	})
	assert.ErrorIs(t, err, domain.ErrSampleSizeExceedsPopulation)
}

func TestSimulate_InvalidConfig(t *testing.T) {
	s := fixtureSeries(t)
	sim := montecarlo.New(nil)

	_, err := sim.Simulate(context.Background(), s, montecarlo.Config{HorizonHours: 1, Iterations: 0, SampleSize: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = sim.Simulate(context.Background(), s, montecarlo.Config{HorizonHours: 1, Iterations: 1, SampleSize: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestSimulate_CancelledContext(t *testing.T) {
	s := fixtureSeries(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := montecarlo.New(nil).Simulate(ctx, s, montecarlo.Config{
		HorizonHours: 1, Iterations: 1000, SampleSize: 2,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.Low)
}

func TestExcursion_ZeroHorizon(t *testing.T) {
	s := fixtureSeries(t)
	low, high := montecarlo.Excursion(s, 0, 0)
	assert.True(t, math.IsNaN(low))
	assert.True(t, math.IsNaN(high))
}
