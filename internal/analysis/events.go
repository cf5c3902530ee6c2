package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// FeatureMatrix es la serie derivada completa para una ventana: agregados
// futuros y las 15 diferencias relativas por fila. Se calcula por consulta;
// no hay caché entre llamadas.
type FeatureMatrix struct {
	Window     time.Duration
	Aggregates []domain.ForwardAggregates
	Rows       []domain.RelativeDifferences
}

// Features ejecuta Annotate y Derive sobre s.
func Features(s *domain.Series, window time.Duration) (*FeatureMatrix, error) {
	aggs, err := Annotate(s, window)
	if err != nil {
		return nil, err
	}
	rows, err := Derive(s, aggs)
	if err != nil {
		return nil, err
	}
	return &FeatureMatrix{Window: window, Aggregates: aggs, Rows: rows}, nil
}

// Count cuenta eventos sobre la columna key.
//   - DirectionPositive: valor >= threshold
//   - DirectionNegative: valor <  threshold
//
// Las filas indefinidas no cuentan como evento pero sí en Population.
func (m *FeatureMatrix) Count(key domain.FeatureKey, threshold float64, dir domain.Direction) domain.EventResult {
	res := domain.EventResult{Population: len(m.Rows)}
	for _, row := range m.Rows {
		v := row.Get(key)
		if math.IsNaN(v) {
			continue
		}
		res.Defined++
		switch dir {
		case domain.DirectionNegative:
			if v < threshold {
				res.Events++
			}
		default:
			if v >= threshold {
				res.Events++
			}
		}
	}
	return res
}

// CountEvents deriva la matriz de features para holdingPeriod y cuenta los
// eventos de key en la dirección dir.
func CountEvents(s *domain.Series, holdingPeriod time.Duration, threshold float64, key domain.FeatureKey, dir domain.Direction) (domain.EventResult, error) {
	if math.IsNaN(threshold) {
		return domain.EventResult{}, fmt.Errorf("analysis.CountEvents: NaN threshold: %w", domain.ErrInvalidParameter)
	}
	m, err := Features(s, holdingPeriod)
	if err != nil {
		return domain.EventResult{}, fmt.Errorf("analysis.CountEvents: %w", err)
	}
	return m.Count(key, threshold, dir), nil
}

// CountPositiveEvents cuenta las filas donde el precio superó threshold
// dentro del holding period (valor >= threshold).
func CountPositiveEvents(s *domain.Series, holdingPeriod time.Duration, threshold float64, key domain.FeatureKey) (events, population int, err error) {
	res, err := CountEvents(s, holdingPeriod, threshold, key, domain.DirectionPositive)
	return res.Events, res.Population, err
}

// CountNegativeEvents cuenta las filas donde el precio cayó por debajo de
// threshold (normalmente negativo) dentro del holding period.
func CountNegativeEvents(s *domain.Series, holdingPeriod time.Duration, threshold float64, key domain.FeatureKey) (events, population int, err error) {
	res, err := CountEvents(s, holdingPeriod, threshold, key, domain.DirectionNegative)
	return res.Events, res.Population, err
}
