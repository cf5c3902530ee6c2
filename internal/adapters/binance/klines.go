package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	klinesPerPage  = 1000
	klinesMaxPages = 10000
)

// rawKline es una fila de /api/v3/klines:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...]
type rawKline []json.RawMessage

// FetchCandles descarga las velas de symbol entre from y to (ambos incluidos),
// paginando de 1000 en 1000 desde from.
//
// El Timestamp de cada vela es su close_time + 1ms, es decir, el instante en
// que la vela está cerrada. Los precios llegan como strings y se convierten a
// float64 una única vez, vía decimal.
func (c *Client) FetchCandles(ctx context.Context, symbol string, interval domain.Interval, from, to time.Time) ([]domain.Candle, error) {
	step := interval.Duration()
	if step == 0 {
		return nil, fmt.Errorf("binance.FetchCandles: %q: %w", interval, domain.ErrUnknownInterval)
	}
	if symbol == "" || to.Before(from) {
		return nil, fmt.Errorf("binance.FetchCandles: symbol %q range %s..%s: %w",
			symbol, from.Format(time.DateTime), to.Format(time.DateTime), domain.ErrInvalidParameter)
	}
	symbol = strings.ToUpper(symbol)

	var all []domain.Candle
	start := from
	for page := 0; page < klinesMaxPages; page++ {
		q := url.Values{}
		q.Set("symbol", symbol)
		q.Set("interval", string(interval))
		q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
		q.Set("endTime", strconv.FormatInt(to.UnixMilli(), 10))
		q.Set("limit", strconv.Itoa(klinesPerPage))

		var resp []rawKline
		if err := c.get(ctx, c.baseURL+"/api/v3/klines?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("binance.FetchCandles: page %d: %w", page, err)
		}
		if len(resp) == 0 {
			break
		}

		var lastOpen time.Time
		for i, rk := range resp {
			candle, openTime, err := parseKline(rk)
			if err != nil {
				return nil, fmt.Errorf("binance.FetchCandles: page %d row %d: %w", page, i, err)
			}
			all = append(all, candle)
			lastOpen = openTime
		}

		slog.Debug("fetched klines page",
			"symbol", symbol,
			"interval", interval,
			"page", page,
			"count", len(resp),
			"total", len(all),
		)

		if len(resp) < klinesPerPage {
			break
		}
		next := lastOpen.Add(step)
		if next.After(to) || !next.After(start) {
			break
		}
		start = next
	}

	return domain.NormalizeCandles(all, from, to), nil
}

// parseKline convierte una fila cruda en Candle y devuelve también su open time.
func parseKline(rk rawKline) (domain.Candle, time.Time, error) {
	if len(rk) < 7 {
		return domain.Candle{}, time.Time{}, fmt.Errorf("kline has %d fields: %w", len(rk), domain.ErrMalformedSeries)
	}

	var openMs, closeMs int64
	if err := json.Unmarshal(rk[0], &openMs); err != nil {
		return domain.Candle{}, time.Time{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(rk[6], &closeMs); err != nil {
		return domain.Candle{}, time.Time{}, fmt.Errorf("close time: %w", err)
	}

	var vals [5]float64
	for i := range vals {
		var d decimal.Decimal
		if err := json.Unmarshal(rk[i+1], &d); err != nil {
			return domain.Candle{}, time.Time{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = d.InexactFloat64()
	}

	return domain.Candle{
		Timestamp: time.UnixMilli(closeMs + 1).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, time.UnixMilli(openMs).UTC(), nil
}
