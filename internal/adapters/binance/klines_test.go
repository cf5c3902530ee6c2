package binance_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/pricevol/internal/adapters/binance"
	"github.com/alejandrodnm/pricevol/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var from = time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

// kline genera una fila como la devuelve la API para la vela que abre en open.
func kline(open time.Time, step time.Duration, price float64) []any {
	p := strconv.FormatFloat(price, 'f', 8, 64)
	return []any{
		open.UnixMilli(), p, strconv.FormatFloat(price+1, 'f', 8, 64),
		strconv.FormatFloat(price-1, 'f', 8, 64), p, "12.50000000",
		open.Add(step).UnixMilli() - 1, "0", 10, "0", "0", "0",
	}
}

func newTestClient(srv *httptest.Server) *binance.Client {
	return binance.NewClient(binance.Config{BaseURL: srv.URL, MaxRetries: 2, RetryWait: time.Millisecond})
}

func TestFetchCandles_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))

		rows := [][]any{
			kline(from, time.Hour, 100),
			kline(from.Add(time.Hour), time.Hour, 101.5),
			kline(from.Add(2*time.Hour), time.Hour, 99.25),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).FetchCandles(context.Background(), "btcusdt", "1h", from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 3)

	// Timestamp = close_time + 1ms = apertura de la siguiente vela
	assert.Equal(t, from.Add(time.Hour), candles[0].Timestamp)
	assert.InDelta(t, 100.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 101.0, candles[0].High, 1e-9)
	assert.InDelta(t, 99.0, candles[0].Low, 1e-9)
	assert.InDelta(t, 12.5, candles[0].Volume, 1e-9)
	assert.InDelta(t, 99.25, candles[2].Close, 1e-9)
}

func TestFetchCandles_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		startMs, err := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		assert.NoError(t, err)
		start := time.UnixMilli(startMs).UTC()

		// 1500 velas de 1m desde from: página llena y luego 500
		end := from.Add(1500 * time.Minute)
		var rows [][]any
		for ts := start; ts.Before(end) && len(rows) < 1000; ts = ts.Add(time.Minute) {
			rows = append(rows, kline(ts, time.Minute, 100))
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).FetchCandles(context.Background(), "ETHUSDT", "1m", from, from.Add(2000*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, candles, 1500)

	for i := 1; i < len(candles); i++ {
		require.True(t, candles[i].Timestamp.After(candles[i-1].Timestamp), "row %d", i)
	}
}

func TestFetchCandles_FiltersRangeAndDuplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rows := [][]any{
			kline(from.Add(-2*time.Hour), time.Hour, 90), // cierra antes de from
			kline(from, time.Hour, 100),
			kline(from, time.Hour, 100),
			kline(from.Add(5*time.Hour), time.Hour, 110), // cierra después de to
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).FetchCandles(context.Background(), "BTCUSDT", "1h", from, from.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, from.Add(time.Hour), candles[0].Timestamp)
}

func TestFetchCandles_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([][]any{kline(from, time.Hour, 100)})
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).FetchCandles(context.Background(), "BTCUSDT", "1h", from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchCandles_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCandles(context.Background(), "BTCUSDT", "1h", from, from.Add(time.Hour))
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "1 intento + 2 retries")
}

func TestFetchCandles_RetriesRateLimit(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusTeapot} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(status)
					return
				}
				json.NewEncoder(w).Encode([][]any{kline(from, time.Hour, 100)})
			}))
			defer srv.Close()

			candles, err := newTestClient(srv).FetchCandles(context.Background(), "BTCUSDT", "1h", from, from.Add(time.Hour))
			require.NoError(t, err)
			assert.Len(t, candles, 1)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestFetchCandles_RateLimitExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCandles(context.Background(), "BTCUSDT", "1h", from, from.Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited (429)")
	assert.Equal(t, int32(3), calls.Load(), "1 intento + 2 retries")
}

func TestFetchCandles_RetriesTransportError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// cortar la conexión sin respuesta
			conn, _, err := w.(http.Hijacker).Hijack()
			if assert.NoError(t, err) {
				conn.Close()
			}
			return
		}
		json.NewEncoder(w).Encode([][]any{kline(from, time.Hour, 100)})
	}))
	defer srv.Close()

	candles, err := newTestClient(srv).FetchCandles(context.Background(), "BTCUSDT", "1h", from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchCandles_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCandles(context.Background(), "NOPE", "1h", from, from.Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid symbol")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCandles_UnknownInterval(t *testing.T) {
	c := binance.NewClient(binance.Config{})
	_, err := c.FetchCandles(context.Background(), "BTCUSDT", "7m", from, from.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrUnknownInterval)
}

func TestFetchCandles_MalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1716163200000,"abc","1","1","1","1",1716166799999]]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCandles(context.Background(), "BTCUSDT", "1h", from, from.Add(time.Hour))
	assert.Error(t, err)
}
