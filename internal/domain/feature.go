package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PriceField es el precio de referencia de una fila: Close, Low o High.
type PriceField int

const (
	PriceClose PriceField = iota
	PriceLow
	PriceHigh
)

// StartPrices en el orden de las columnas derivadas.
var StartPrices = [...]PriceField{PriceClose, PriceLow, PriceHigh}

func (p PriceField) String() string {
	switch p {
	case PriceClose:
		return "Close"
	case PriceLow:
		return "Low"
	case PriceHigh:
		return "High"
	}
	return fmt.Sprintf("PriceField(%d)", int(p))
}

// Of devuelve el precio p de la vela c.
func (p PriceField) Of(c Candle) float64 {
	switch p {
	case PriceLow:
		return c.Low
	case PriceHigh:
		return c.High
	default:
		return c.Close
	}
}

// Aggregate identifica uno de los cinco agregados de la ventana futura.
type Aggregate int

const (
	RollingMaxHigh Aggregate = iota
	RollingMinLow
	RollingMaxClose
	RollingMinClose
	RollingMeanClose
)

// Aggregates en el orden de las columnas derivadas.
var Aggregates = [...]Aggregate{RollingMaxHigh, RollingMinLow, RollingMaxClose, RollingMinClose, RollingMeanClose}

func (a Aggregate) String() string {
	switch a {
	case RollingMaxHigh:
		return "Rolling_Max_High"
	case RollingMinLow:
		return "Rolling_Min_Low"
	case RollingMaxClose:
		return "Rolling_Max_Close"
	case RollingMinClose:
		return "Rolling_Min_Close"
	case RollingMeanClose:
		return "Rolling_Mean_Close"
	}
	return fmt.Sprintf("Aggregate(%d)", int(a))
}

// ForwardAggregates son los agregados de la ventana (T, T+w] de una fila.
// Si la ventana no tiene velas todos los campos son NaN (indefinidos), nunca 0.
type ForwardAggregates struct {
	Timestamp time.Time
	Values    [len(Aggregates)]float64
}

// UndefinedAggregates devuelve una fila con todos los agregados indefinidos.
func UndefinedAggregates(ts time.Time) ForwardAggregates {
	row := ForwardAggregates{Timestamp: ts}
	for i := range row.Values {
		row.Values[i] = math.NaN()
	}
	return row
}

// Get devuelve el agregado a.
func (r ForwardAggregates) Get(a Aggregate) float64 { return r.Values[a] }

// Defined es false cuando la ventana estaba vacía.
func (r ForwardAggregates) Defined() bool { return !math.IsNaN(r.Values[RollingMaxHigh]) }

// FeatureKey identifica una de las 15 columnas de diferencia relativa.
type FeatureKey struct {
	Start PriceField
	Agg   Aggregate
}

// FeatureKeys lista las 15 combinaciones en orden Close, Low, High × agregados.
func FeatureKeys() []FeatureKey {
	keys := make([]FeatureKey, 0, len(StartPrices)*len(Aggregates))
	for _, p := range StartPrices {
		for _, a := range Aggregates {
			keys = append(keys, FeatureKey{Start: p, Agg: a})
		}
	}
	return keys
}

// String usa el nombre de columna histórico, p.ej.
// "Close__to__Rolling_Max_High__Relative_Difference".
func (k FeatureKey) String() string {
	return k.Start.String() + "__to__" + k.Agg.String() + "__Relative_Difference"
}

// ParseFeatureKey acepta el nombre de columna completo o la forma corta
// "Close__to__Rolling_Max_High".
func ParseFeatureKey(s string) (FeatureKey, error) {
	name := strings.TrimSuffix(strings.TrimSpace(s), "__Relative_Difference")
	for _, k := range FeatureKeys() {
		if k.Start.String()+"__to__"+k.Agg.String() == name {
			return k, nil
		}
	}
	return FeatureKey{}, fmt.Errorf("domain.ParseFeatureKey: %q: %w", s, ErrUnknownFeature)
}

// RelativeDifferences son las 15 diferencias relativas de una fila,
// indexadas [PriceField][Aggregate]. NaN = indefinido.
type RelativeDifferences struct {
	Timestamp time.Time
	Values    [len(StartPrices)][len(Aggregates)]float64
}

// Get devuelve el valor de la columna k.
func (r RelativeDifferences) Get(k FeatureKey) float64 { return r.Values[k.Start][k.Agg] }

// Direction del evento buscado.
type Direction int

const (
	// DirectionPositive cuenta filas con valor >= threshold.
	DirectionPositive Direction = iota
	// DirectionNegative cuenta filas con valor < threshold.
	DirectionNegative
)

func (d Direction) String() string {
	if d == DirectionNegative {
		return "negative"
	}
	return "positive"
}

// ParseDirection acepta "positive"/"up" o "negative"/"down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "up", "":
		return DirectionPositive, nil
	case "negative", "down":
		return DirectionNegative, nil
	}
	return 0, fmt.Errorf("domain.ParseDirection: %q: %w", s, ErrInvalidParameter)
}
