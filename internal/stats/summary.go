// Package stats resume distribuciones empíricas de excursiones para el informe.
package stats

import (
	"math"
	"slices"

	"github.com/alejandrodnm/pricevol/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summarize devuelve media y desviación estándar muestral (n-1) de samples.
// Los NaN (entradas sin ventana) se excluyen y se cuentan en NaNCount.
// Con menos de dos valores definidos Std es NaN, igual que pandas.
func Summarize(samples []float64) domain.Summary {
	defined := Defined(samples)
	sum := domain.Summary{
		N:        len(defined),
		NaNCount: len(samples) - len(defined),
		Mean:     math.NaN(),
		Std:      math.NaN(),
		Min:      math.NaN(),
		Max:      math.NaN(),
	}
	if len(defined) == 0 {
		return sum
	}

	sum.Min = slices.Min(defined)
	sum.Max = slices.Max(defined)
	if len(defined) == 1 {
		sum.Mean = defined[0]
		return sum
	}
	sum.Mean, sum.Std = stat.MeanStdDev(defined, nil)
	return sum
}

// Defined devuelve una copia de samples sin NaN.
func Defined(samples []float64) []float64 {
	out := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Bin es una barra del histograma: [Lo, Hi), la última incluye Hi.
type Bin struct {
	Lo      float64
	Hi      float64
	Count   int
	Density float64 // Count / (N × ancho), comparable con NormalDensity
	Normal  float64 // densidad normal ajustada en el centro de la barra
}

// Histogram reparte los valores definidos de samples en bins barras de igual
// ancho entre el mínimo y el máximo, con la densidad de la normal ajustada
// (media y std muestral) en el centro de cada barra.
func Histogram(samples []float64, bins int) []Bin {
	defined := Defined(samples)
	if len(defined) == 0 || bins <= 0 {
		return nil
	}
	slices.Sort(defined)

	lo, hi := defined[0], defined[len(defined)-1]
	if lo == hi {
		hi = lo + 1e-9
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram exige que el último divisor sea > al máximo
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, defined, nil)

	s := Summarize(defined)
	out := make([]Bin, bins)
	n := float64(len(defined))
	for i := range out {
		width := dividers[i+1] - dividers[i]
		out[i] = Bin{
			Lo:      dividers[i],
			Hi:      dividers[i+1],
			Count:   int(counts[i]),
			Density: counts[i] / (n * width),
			Normal:  NormalDensity(s.Mean, s.Std, (dividers[i]+dividers[i+1])/2),
		}
	}
	return out
}

// NormalDensity devuelve la pdf de N(mean, std) en x; NaN si std no es > 0.
func NormalDensity(mean, std, x float64) float64 {
	if !(std > 0) || math.IsNaN(mean) {
		return math.NaN()
	}
	return distuv.Normal{Mu: mean, Sigma: std}.Prob(x)
}
