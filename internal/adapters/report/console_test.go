package report_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/pricevol/internal/adapters/report"
	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/alejandrodnm/pricevol/internal/ports"
	"github.com/alejandrodnm/pricevol/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeStudy(dir domain.Direction, events int) domain.EventStudy {
	return domain.EventStudy{
		ID: "st", Symbol: "BTCUSDT", Interval: "1h",
		From: t0, To: t0.Add(24 * time.Hour), HoldingPeriod: 2 * time.Hour,
		Feature:   domain.FeatureKey{Start: domain.PriceClose, Agg: domain.RollingMaxHigh},
		Direction: dir,
		Threshold: 0.01,
		Result:    domain.EventResult{Events: events, Population: 5, Defined: 4},
		CreatedAt: t0,
	}
}

func TestConsole_ReportEvents(t *testing.T) {
	var buf bytes.Buffer
	c := report.NewConsoleWriter(&buf, 0)

	err := c.ReportEvents(context.Background(), []domain.EventStudy{
		makeStudy(domain.DirectionPositive, 3),
		makeStudy(domain.DirectionNegative, 1),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "Close__to__Rolling_Max_High__Relative_Difference")
	assert.Contains(t, out, "positive")
	assert.Contains(t, out, "negative")
	assert.Contains(t, out, "60.00%") // 3/5
	assert.Contains(t, out, "75.00%") // 3/4
	assert.Contains(t, out, "20.00%") // 1/5
}

func TestConsole_ReportEvents_Empty(t *testing.T) {
	var buf bytes.Buffer
	c := report.NewConsoleWriter(&buf, 0)

	require.NoError(t, c.ReportEvents(context.Background(), nil))
	assert.Contains(t, buf.String(), "no event studies")
}

func TestConsole_ReportSimulation(t *testing.T) {
	var buf bytes.Buffer
	c := report.NewConsoleWriter(&buf, 5)

	low := []float64{-0.02, -0.01, -0.01, 0, math.NaN()}
	high := []float64{0, 0.01, 0.01, 0.03, math.NaN()}
	ex := domain.Excursions{Low: low, High: high}

	run := domain.SimulationRun{
		Symbol: "BTCUSDT", Interval: "1h", HorizonHours: 4,
		Iterations: 1, SampleSize: 5, Seed: 42,
		Low: stats.Summarize(low), High: stats.Summarize(high), Joined: stats.Summarize(ex.Joined()),
	}
	dists := []ports.Distribution{
		{Name: "low", Samples: low, Summary: run.Low},
		{Name: "high", Samples: high, Summary: run.High},
		{Name: "joined", Samples: ex.Joined(), Summary: run.Joined},
	}

	require.NoError(t, c.ReportSimulation(context.Background(), run, dists))

	out := buf.String()
	assert.Contains(t, out, "horizon 4h")
	assert.Contains(t, out, "seed 42")
	assert.Contains(t, out, "[low]")
	assert.Contains(t, out, "[high]")
	assert.Contains(t, out, "[joined]")
	assert.Contains(t, out, "-1.000%") // media de low
	assert.Contains(t, out, "#")
	assert.Contains(t, out, "|")
}

func TestConsole_ReportSimulation_AllNaN(t *testing.T) {
	var buf bytes.Buffer
	c := report.NewConsoleWriter(&buf, 5)

	samples := []float64{math.NaN(), math.NaN()}
	dists := []ports.Distribution{{Name: "low", Samples: samples, Summary: stats.Summarize(samples)}}

	require.NoError(t, c.ReportSimulation(context.Background(), domain.SimulationRun{Symbol: "BTCUSDT"}, dists))
	out := buf.String()
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "sin valores definidos")
}

func TestConsole_PrintHistory(t *testing.T) {
	var buf bytes.Buffer
	c := report.NewConsoleWriter(&buf, 0)

	c.PrintHistory(
		[]domain.SimulationRun{{Symbol: "BTCUSDT", Interval: "1h", HorizonHours: 8, CreatedAt: t0,
			Low: domain.Summary{Mean: -0.01}, High: domain.Summary{Mean: 0.01}, Joined: domain.Summary{Std: math.NaN()}}},
		[]domain.EventStudy{makeStudy(domain.DirectionPositive, 2)},
	)

	out := buf.String()
	assert.Contains(t, out, "SIMULATIONS (1)")
	assert.Contains(t, out, "EVENT STUDIES (1)")
	assert.Contains(t, out, "8h")
	assert.Contains(t, out, "2/5")
	assert.Equal(t, 1, strings.Count(out, "SIMULATIONS"))
}

func TestConsole_PrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	report.NewConsoleWriter(&buf, 0).PrintHistory(nil, nil)
	assert.Contains(t, buf.String(), "no stored results")
}
