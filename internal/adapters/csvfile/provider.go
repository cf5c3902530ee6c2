package csvfile

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

// Provider implementa ports.CandleProvider sobre un fichero CSV local.
// Ignora symbol e interval: el fichero ya es una serie concreta.
type Provider struct {
	path string
}

// NewProvider crea un Provider que lee path en cada llamada.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// FetchCandles devuelve las velas del fichero con Timestamp en [from, to].
// Un from o to cero no acota por ese lado.
func (p *Provider) FetchCandles(ctx context.Context, _ string, _ domain.Interval, from, to time.Time) ([]domain.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candles, err := LoadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("csvfile.FetchCandles: %w", err)
	}

	out := candles[:0]
	for _, c := range candles {
		if !from.IsZero() && c.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
