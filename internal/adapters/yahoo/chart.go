package yahoo

// chart.go — velas históricas desde /v8/finance/chart.
//
// Yahoo limita el rango de las velas intradía por petición, así que el rango
// se descarga en tramos semanales desde to hacia atrás hasta from.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
)

const (
	chunkSpan       = 7 * 24 * time.Hour
	defaultLookback = 365 * 24 * time.Hour
)

var chartIntervals = map[domain.Interval]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "60m",
	"1d":  "1d",
	"1w":  "1wk",
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchCandles descarga las velas de symbol con Timestamp en [from, to].
// Un to cero es ahora; un from cero es un año antes de to.
//
// Yahoo devuelve la apertura de cada barra; el Timestamp es apertura +
// intervalo, el instante en que la vela está cerrada, igual que en binance.
// Las barras con algún precio null (huecos de mercado) se descartan.
func (c *Client) FetchCandles(ctx context.Context, symbol string, interval domain.Interval, from, to time.Time) ([]domain.Candle, error) {
	yi, ok := chartIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("yahoo.FetchCandles: %q: %w", interval, domain.ErrUnknownInterval)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultLookback)
	}
	if symbol == "" || to.Before(from) {
		return nil, fmt.Errorf("yahoo.FetchCandles: symbol %q range %s..%s: %w",
			symbol, from.Format(time.DateTime), to.Format(time.DateTime), domain.ErrInvalidParameter)
	}
	symbol = strings.ToUpper(symbol)
	step := interval.Duration()

	var all []domain.Candle
	chunk := 0
	for end := to; end.After(from); chunk++ {
		start := end.Add(-chunkSpan)
		if start.Before(from) {
			start = from
		}

		// La barra que abre en start-step cierra en start.
		candles, err := c.fetchChart(ctx, symbol, yi, step, start.Add(-step), end)
		if err != nil {
			return nil, fmt.Errorf("yahoo.FetchCandles: chunk %d (%s..%s): %w",
				chunk, start.Format(time.DateOnly), end.Format(time.DateOnly), err)
		}
		all = append(all, candles...)

		slog.Debug("fetched chart chunk",
			"symbol", symbol,
			"interval", interval,
			"chunk", chunk,
			"count", len(candles),
			"total", len(all),
		)
		end = start
	}

	return domain.NormalizeCandles(all, from, to), nil
}

// fetchChart pide las barras que abren en [period1, period2).
func (c *Client) fetchChart(ctx context.Context, symbol, interval string, step time.Duration, period1, period2 time.Time) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("period1", strconv.FormatInt(period1.Unix(), 10))
	q.Set("period2", strconv.FormatInt(period2.Unix(), 10))
	q.Set("includePrePost", "false")

	var resp chartResponse
	if err := c.get(ctx, c.baseURL+"/v8/finance/chart/"+url.PathEscape(symbol)+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error %s: %s", e.Code, e.Description)
	}
	// Fines de semana y festivos llegan sin timestamps.
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Timestamp) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data: %w", domain.ErrMalformedSeries)
	}
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n ||
		len(quote.Close) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("misaligned quote arrays for %d timestamps: %w", n, domain.ErrMalformedSeries)
	}

	out := make([]domain.Candle, 0, n)
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		volume := 0.0
		if quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		out = append(out, domain.Candle{
			Timestamp: time.Unix(ts, 0).UTC().Add(step),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    volume,
		})
	}
	return out, nil
}
