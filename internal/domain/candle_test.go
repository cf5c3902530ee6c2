package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

func hourly(closes ...float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		out[i] = domain.Candle{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	return out
}

func TestNewSeries_Valid(t *testing.T) {
	in := hourly(100, 101, 99)
	s, err := domain.NewSeries(in)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, t0, s.First())
	assert.Equal(t, t0.Add(2*time.Hour), s.Last())
}

func TestNewSeries_CopiesInput(t *testing.T) {
	in := hourly(100, 101)
	s, err := domain.NewSeries(in)
	require.NoError(t, err)

	in[0].Close = 1
	assert.Equal(t, 100.0, s.At(0).Close)

	out := s.Candles()
	out[1].Close = 1
	assert.Equal(t, 101.0, s.At(1).Close)
}

func TestNewSeries_Empty(t *testing.T) {
	_, err := domain.NewSeries(nil)
	assert.ErrorIs(t, err, domain.ErrMalformedSeries)
}

func TestNewSeries_NonMonotonic(t *testing.T) {
	in := hourly(100, 101, 102)
	in[2].Timestamp = in[0].Timestamp

	_, err := domain.NewSeries(in)
	require.ErrorIs(t, err, domain.ErrMalformedSeries)

	var rowErr *domain.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Row)
}

func TestNewSeries_ZeroPrice(t *testing.T) {
	in := hourly(100, 101, 102)
	in[1].Low = 0

	_, err := domain.NewSeries(in)
	require.ErrorIs(t, err, domain.ErrNonPositivePrice)

	var rowErr *domain.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 1, rowErr.Row)
}

func TestForwardWindow(t *testing.T) {
	s, err := domain.NewSeries(hourly(100, 101, 99, 105, 103))
	require.NoError(t, err)

	lo, hi := s.ForwardWindow(0, 2*time.Hour)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 3, hi)

	// última fila: ventana vacía
	lo, hi = s.ForwardWindow(4, 2*time.Hour)
	assert.Equal(t, lo, hi)

	// ventana de duración cero: (T, T] vacía
	lo, hi = s.ForwardWindow(0, 0)
	assert.Equal(t, lo, hi)
}

func TestNormalizeCandles(t *testing.T) {
	c := hourly(1, 2, 3, 4)
	in := []domain.Candle{c[3], c[1], c[0], c[1], c[2]}

	got := domain.NormalizeCandles(in, c[1].Timestamp, c[2].Timestamp)
	require.Len(t, got, 2)
	assert.Equal(t, c[1], got[0])
	assert.Equal(t, c[2], got[1])
	assert.Equal(t, c[3], in[0], "la entrada no se modifica")
}
