package analysis

import (
	"fmt"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// Derive calcula las 15 diferencias relativas (agg - start) / start por fila,
// start ∈ {Close, Low, High} y agg ∈ los cinco agregados de aggs[i].
// Un agregado indefinido (NaN) produce una diferencia indefinida.
//
// aggs debe ser el resultado de Annotate sobre la misma serie.
func Derive(s *domain.Series, aggs []domain.ForwardAggregates) ([]domain.RelativeDifferences, error) {
	if s == nil {
		return nil, fmt.Errorf("analysis.Derive: nil series: %w", domain.ErrMalformedSeries)
	}
	if len(aggs) != s.Len() {
		return nil, fmt.Errorf("analysis.Derive: %d aggregate rows for %d candles: %w",
			len(aggs), s.Len(), domain.ErrInvalidParameter)
	}

	out := make([]domain.RelativeDifferences, len(aggs))
	for i, agg := range aggs {
		c := s.At(i)
		if !agg.Timestamp.Equal(c.Timestamp) {
			return nil, fmt.Errorf("analysis.Derive: row %d timestamp mismatch: %w", i, domain.ErrInvalidParameter)
		}
		row := domain.RelativeDifferences{Timestamp: c.Timestamp}
		for _, p := range domain.StartPrices {
			start := p.Of(c)
			for _, a := range domain.Aggregates {
				row.Values[p][a] = RelativeDifference(start, agg.Get(a))
			}
		}
		out[i] = row
	}
	return out, nil
}

// RelativeDifference devuelve (value - reference) / reference.
// NaN en value se propaga. reference > 0 lo garantiza domain.NewSeries.
func RelativeDifference(reference, value float64) float64 {
	return (value - reference) / reference
}
