package analysis

// forward.go — agregados de la ventana futura (T, T+w] de cada vela.
//
// Los timestamps son estrictamente crecientes, así que los dos extremos de la
// ventana sólo avanzan: se recorre la serie una vez con dos punteros, colas
// monótonas para max/min y una suma acumulada para la media.

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// Annotate calcula, para cada vela, Rolling_Max_High, Rolling_Min_Low,
// Rolling_Max_Close, Rolling_Min_Close y Rolling_Mean_Close sobre las velas con
// timestamp en (T, T+window]. Si la ventana está vacía la fila es indefinida (NaN).
func Annotate(s *domain.Series, window time.Duration) ([]domain.ForwardAggregates, error) {
	if s == nil {
		return nil, fmt.Errorf("analysis.Annotate: nil series: %w", domain.ErrMalformedSeries)
	}
	if window < 0 {
		return nil, fmt.Errorf("analysis.Annotate: window %s: %w", window, domain.ErrInvalidParameter)
	}

	n := s.Len()
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		c := s.At(i)
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}

	maxHigh := newExtremum(highs, greater)
	minLow := newExtremum(lows, less)
	maxClose := newExtremum(closes, greater)
	minClose := newExtremum(closes, less)

	out := make([]domain.ForwardAggregates, n)
	sum := 0.0
	hi := 0 // la ventana actual es [i+1, hi)

	for i := 0; i < n; i++ {
		// La fila i deja de estar estrictamente después de T_i.
		if hi > i {
			maxHigh.evict(i)
			minLow.evict(i)
			maxClose.evict(i)
			minClose.evict(i)
			sum -= closes[i]
		}
		if hi < i+1 {
			hi = i + 1
		}

		end := s.At(i).Timestamp.Add(window)
		for hi < n && !s.At(hi).Timestamp.After(end) {
			maxHigh.push(hi)
			minLow.push(hi)
			maxClose.push(hi)
			minClose.push(hi)
			sum += closes[hi]
			hi++
		}

		ts := s.At(i).Timestamp
		count := hi - (i + 1)
		if count == 0 {
			out[i] = domain.UndefinedAggregates(ts)
			sum = 0 // ventana vacía: descartar el error de redondeo acumulado
			continue
		}

		row := domain.ForwardAggregates{Timestamp: ts}
		row.Values[domain.RollingMaxHigh] = maxHigh.value()
		row.Values[domain.RollingMinLow] = minLow.value()
		row.Values[domain.RollingMaxClose] = maxClose.value()
		row.Values[domain.RollingMinClose] = minClose.value()
		row.Values[domain.RollingMeanClose] = clamp(sum/float64(count), row.Values[domain.RollingMinClose], row.Values[domain.RollingMaxClose])
		out[i] = row
	}

	return out, nil
}

func greater(a, b float64) bool { return a > b }
func less(a, b float64) bool    { return a < b }

// clamp mantiene min <= mean <= max frente al redondeo de la suma acumulada.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// extremum es una cola monótona de índices: el frente es siempre el índice
// del mejor valor (máximo o mínimo según better) dentro de la ventana.
type extremum struct {
	vals   []float64
	better func(a, b float64) bool
	q      []int
}

func newExtremum(vals []float64, better func(a, b float64) bool) *extremum {
	return &extremum{vals: vals, better: better}
}

func (e *extremum) push(j int) {
	for len(e.q) > 0 && !e.better(e.vals[e.q[len(e.q)-1]], e.vals[j]) {
		e.q = e.q[:len(e.q)-1]
	}
	e.q = append(e.q, j)
}

func (e *extremum) evict(j int) {
	if len(e.q) > 0 && e.q[0] == j {
		e.q = e.q[1:]
	}
}

func (e *extremum) value() float64 { return e.vals[e.q[0]] }
