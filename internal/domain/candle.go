package domain

import (
	"math"
	"sort"
	"time"
)

// Candle es una vela OHLCV de un bucket de tiempo fijo.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series es una serie de velas validada y ordenada por Timestamp.
// Es inmutable: NewSeries copia las velas del caller y nada en el core
// modifica la copia después.
type Series struct {
	candles []Candle
}

// NewSeries valida las velas y devuelve la copia de trabajo privada.
//
// Reglas:
//   - al menos una vela
//   - timestamps estrictamente crecientes (sin duplicados)
//   - precios y volumen finitos
//   - Open, High, Low, Close > 0
//
// El slice de entrada nunca se modifica.
func NewSeries(candles []Candle) (*Series, error) {
	if len(candles) == 0 {
		return nil, &RowError{Row: 0, Err: ErrMalformedSeries, Msg: "empty series"}
	}

	cp := make([]Candle, len(candles))
	copy(cp, candles)

	for i, c := range cp {
		if c.Timestamp.IsZero() {
			return nil, &RowError{Row: i, Err: ErrMalformedSeries, Msg: "missing timestamp"}
		}
		if i > 0 && !c.Timestamp.After(cp[i-1].Timestamp) {
			return nil, &RowError{Row: i, Err: ErrMalformedSeries, Msg: "timestamps not strictly ascending"}
		}
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &RowError{Row: i, Err: ErrMalformedSeries, Msg: "non-finite value"}
			}
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return nil, &RowError{Row: i, Err: ErrNonPositivePrice, Msg: "price must be > 0"}
		}
	}

	return &Series{candles: cp}, nil
}

// Len devuelve el número de velas.
func (s *Series) Len() int { return len(s.candles) }

// At devuelve la vela i.
func (s *Series) At(i int) Candle { return s.candles[i] }

// Candles devuelve una copia de las velas.
func (s *Series) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// First and Last timestamps of the series.
func (s *Series) First() time.Time { return s.candles[0].Timestamp }
func (s *Series) Last() time.Time  { return s.candles[len(s.candles)-1].Timestamp }

// ForwardWindow devuelve el rango de índices [lo, hi) de las velas cuyo
// timestamp cae en (t_i, t_i + d]. Si lo == hi la ventana está vacía.
func (s *Series) ForwardWindow(i int, d time.Duration) (lo, hi int) {
	start := s.candles[i].Timestamp
	end := start.Add(d)
	lo = i + 1
	hi = lo + sort.Search(len(s.candles)-lo, func(j int) bool {
		return s.candles[lo+j].Timestamp.After(end)
	})
	return lo, hi
}

// NormalizeCandles filtra candles al rango [from, to], ordena por Timestamp y
// elimina duplicados (se queda con la primera). Devuelve un slice nuevo.
func NormalizeCandles(candles []Candle, from, to time.Time) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if c.Timestamp.Before(from) || c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	dedup := out[:0]
	for i, c := range out {
		if i > 0 && c.Timestamp.Equal(dedup[len(dedup)-1].Timestamp) {
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}
