package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// CandleProvider obtiene velas históricas de un exchange o proveedor de datos.
type CandleProvider interface {
	// FetchCandles devuelve las velas de symbol con Timestamp en [from, to],
	// ordenadas y sin duplicados. Pagina y reintenta internamente.
	FetchCandles(ctx context.Context, symbol string, interval domain.Interval, from, to time.Time) ([]domain.Candle, error)
}
