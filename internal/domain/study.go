package domain

import "time"

// EventResult es el resultado de un conteo de eventos.
//
// Population es el total de filas de la serie derivada, incluidas las filas
// cuya feature es indefinida (cola de la serie). Defined cuenta sólo las
// filas con valor, para quien quiera la tasa filtrada.
type EventResult struct {
	Events     int
	Population int
	Defined    int
}

// Rate devuelve Events / Population (0 si Population es 0).
func (r EventResult) Rate() float64 {
	if r.Population == 0 {
		return 0
	}
	return float64(r.Events) / float64(r.Population)
}

// DefinedRate devuelve Events / Defined (0 si no hay filas definidas).
func (r EventResult) DefinedRate() float64 {
	if r.Defined == 0 {
		return 0
	}
	return float64(r.Events) / float64(r.Defined)
}

// EventStudy es una consulta de eventos ejecutada y persistida.
type EventStudy struct {
	ID            string
	Symbol        string
	Interval      Interval
	From          time.Time
	To            time.Time
	HoldingPeriod time.Duration
	Feature       FeatureKey
	Direction     Direction
	Threshold     float64
	Result        EventResult
	CreatedAt     time.Time
}

// Summary resume una muestra empírica: media y desviación estándar muestral
// (denominador n-1) sobre los valores definidos. NaNCount son los excluidos.
type Summary struct {
	N        int
	NaNCount int
	Mean     float64
	Std      float64
	Min      float64
	Max      float64
}

// Excursions son las dos secuencias planas de una simulación Monte Carlo.
type Excursions struct {
	Low  []float64
	High []float64
}

// Joined concatena Low y High (la distribución "joined" del informe).
func (e Excursions) Joined() []float64 {
	out := make([]float64, 0, len(e.Low)+len(e.High))
	out = append(out, e.Low...)
	return append(out, e.High...)
}

// SimulationRun es una ejecución Monte Carlo para un horizonte.
type SimulationRun struct {
	ID           string
	Symbol       string
	Interval     Interval
	From         time.Time
	To           time.Time
	HorizonHours int
	Iterations   int
	SampleSize   int
	Seed         uint64
	Low          Summary
	High         Summary
	Joined       Summary
	CreatedAt    time.Time
}
