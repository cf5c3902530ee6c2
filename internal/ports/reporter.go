package ports

import (
	"context"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// Distribution es una muestra de excursiones con su resumen, lista para
// histograma y curva normal.
type Distribution struct {
	Name    string // "low", "high" o "joined"
	Samples []float64
	Summary domain.Summary
}

// Reporter presenta los resultados al usuario.
type Reporter interface {
	ReportEvents(ctx context.Context, studies []domain.EventStudy) error
	ReportSimulation(ctx context.Context, run domain.SimulationRun, dists []Distribution) error
}
