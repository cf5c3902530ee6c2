// Package csvfile lee series OHLCV desde CSV, como fuente offline de velas.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/shopspring/decimal"
)

var requiredColumns = [...]string{"Timestamp", "Open", "High", "Low", "Close", "Volume"}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.DateTime, // '%Y-%m-%d %H:%M:%S'
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// LoadFile abre path y lo pasa a Read.
func LoadFile(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvfile.LoadFile: open %q: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parsea un CSV con cabecera que contenga (en cualquier orden) las columnas
// Timestamp, Open, High, Low, Close y Volume. Columnas extra se ignoran.
//
// Timestamp acepta epoch unix en s, ms, µs o ns, RFC3339 o "2006-01-02 15:04:05"
// (UTC). No reordena: el orden y la unicidad los valida domain.NewSeries.
func Read(r io.Reader) ([]domain.Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csvfile.Read: header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, fmt.Errorf("csvfile.Read: %w", err)
	}

	var candles []domain.Candle
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvfile.Read: %w", err)
		}

		ts, err := parseTimestamp(rec[idx[0]])
		if err != nil {
			return nil, &domain.RowError{Row: row, Err: domain.ErrMalformedSeries, Msg: err.Error()}
		}
		var vals [5]float64
		for i := range vals {
			d, err := decimal.NewFromString(strings.TrimSpace(rec[idx[i+1]]))
			if err != nil {
				return nil, &domain.RowError{Row: row, Err: domain.ErrMalformedSeries,
					Msg: fmt.Sprintf("column %s: %v", requiredColumns[i+1], err)}
			}
			vals[i] = d.InexactFloat64()
		}

		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return candles, nil
}

// Write escribe candles en el mismo formato que lee Read (timestamps RFC3339).
func Write(w io.Writer, candles []domain.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(requiredColumns[:]); err != nil {
		return fmt.Errorf("csvfile.Write: header: %w", err)
	}
	for _, c := range candles {
		rec := []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csvfile.Write: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnIndex(header []string) ([len(requiredColumns)]int, error) {
	var idx [len(requiredColumns)]int
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for i, col := range requiredColumns {
		p, ok := pos[strings.ToLower(col)]
		if !ok {
			return idx, fmt.Errorf("missing column %q: %w", col, domain.ErrMalformedSeries)
		}
		idx[i] = p
	}
	return idx, nil
}

// parseTimestamp elige la unidad de un epoch entero por magnitud:
// s < 1e11 <= ms < 1e14 <= µs < 1e17 <= ns. Los negativos se rechazan.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch {
		case n < 0:
			return time.Time{}, fmt.Errorf("negative epoch timestamp %q", s)
		case n < 1e11:
			return time.Unix(n, 0).UTC(), nil
		case n < 1e14:
			return time.UnixMilli(n).UTC(), nil
		case n < 1e17:
			return time.UnixMicro(n).UTC(), nil
		default:
			return time.Unix(0, n).UTC(), nil
		}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
