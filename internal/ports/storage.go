package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// CandleStore cachea velas descargadas para no volver a pedirlas al exchange.
type CandleStore interface {
	SaveCandles(ctx context.Context, symbol string, interval domain.Interval, candles []domain.Candle) error
	// LoadCandles devuelve las velas guardadas con Timestamp en [from, to], ordenadas.
	LoadCandles(ctx context.Context, symbol string, interval domain.Interval, from, to time.Time) ([]domain.Candle, error)
}

// Storage persiste velas y los resultados de cada estudio.
type Storage interface {
	CandleStore

	SaveSimulationRun(ctx context.Context, run domain.SimulationRun) error
	ListSimulationRuns(ctx context.Context, symbol string) ([]domain.SimulationRun, error)

	SaveEventStudy(ctx context.Context, study domain.EventStudy) error
	ListEventStudies(ctx context.Context, symbol string) ([]domain.EventStudy, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
