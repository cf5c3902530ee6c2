package storage

// sqlite.go — caché de velas y resultados de estudios.
//
// Tablas:
//   - `candles`: una fila por (symbol, interval, ts), UPSERT. Evita volver a
//     descargar la misma serie en cada ejecución.
//   - `simulation_runs`: resumen de cada simulación Monte Carlo (no las muestras).
//   - `event_studies`: un conteo de eventos por (feature, dirección, threshold).
//
// Los timestamps se guardan como milisegundos unix. SQLite convierte NaN a
// NULL, así que los resúmenes indefinidos se leen con sql.NullFloat64.

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/pricevol/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS candles (
    symbol   TEXT    NOT NULL,
    interval TEXT    NOT NULL,
    ts       INTEGER NOT NULL,
    open     REAL    NOT NULL,
    high     REAL    NOT NULL,
    low      REAL    NOT NULL,
    close    REAL    NOT NULL,
    volume   REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, interval, ts)
);

CREATE TABLE IF NOT EXISTS simulation_runs (
    id            TEXT PRIMARY KEY,
    symbol        TEXT    NOT NULL,
    interval      TEXT    NOT NULL,
    from_ts       INTEGER NOT NULL,
    to_ts         INTEGER NOT NULL,
    horizon_hours INTEGER NOT NULL,
    iterations    INTEGER NOT NULL,
    sample_size   INTEGER NOT NULL,
    seed          INTEGER NOT NULL,
    low_n INTEGER, low_nan INTEGER, low_mean REAL, low_std REAL, low_min REAL, low_max REAL,
    high_n INTEGER, high_nan INTEGER, high_mean REAL, high_std REAL, high_min REAL, high_max REAL,
    joined_n INTEGER, joined_nan INTEGER, joined_mean REAL, joined_std REAL, joined_min REAL, joined_max REAL,
    created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_studies (
    id         TEXT PRIMARY KEY,
    symbol     TEXT    NOT NULL,
    interval   TEXT    NOT NULL,
    from_ts    INTEGER NOT NULL,
    to_ts      INTEGER NOT NULL,
    holding_ms INTEGER NOT NULL,
    feature    TEXT    NOT NULL,
    direction  TEXT    NOT NULL,
    threshold  REAL    NOT NULL,
    events     INTEGER NOT NULL,
    population INTEGER NOT NULL,
    defined    INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_symbol    ON simulation_runs(symbol, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_studies_symbol ON event_studies(symbol, created_at DESC);
`

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveCandles hace upsert de las velas en una sola transacción.
func (s *SQLiteStorage) SaveCandles(ctx context.Context, symbol string, interval domain.Interval, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCandles: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, interval, ts) DO UPDATE SET
			open   = excluded.open,
			high   = excluded.high,
			low    = excluded.low,
			close  = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveCandles: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			symbol, string(interval), c.Timestamp.UnixMilli(),
			c.Open, c.High, c.Low, c.Close, c.Volume,
		); err != nil {
			return fmt.Errorf("storage.SaveCandles: upsert %s: %w", c.Timestamp.Format(time.DateTime), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveCandles: commit: %w", err)
	}
	return nil
}

// LoadCandles devuelve las velas con ts en [from, to], ordenadas por ts.
func (s *SQLiteStorage) LoadCandles(ctx context.Context, symbol string, interval domain.Interval, from, to time.Time) ([]domain.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND interval = ? AND ts BETWEEN ? AND ?
		ORDER BY ts ASC
	`, symbol, string(interval), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage.LoadCandles: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var c domain.Candle
		var ts int64
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("storage.LoadCandles: scan row: %w", err)
		}
		c.Timestamp = time.UnixMilli(ts).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveSimulationRun persiste el resumen de una simulación.
func (s *SQLiteStorage) SaveSimulationRun(ctx context.Context, run domain.SimulationRun) error {
	args := []any{
		run.ID, run.Symbol, string(run.Interval), run.From.UnixMilli(), run.To.UnixMilli(),
		run.HorizonHours, run.Iterations, run.SampleSize, int64(run.Seed),
	}
	for _, sum := range []domain.Summary{run.Low, run.High, run.Joined} {
		args = append(args, sum.N, sum.NaNCount,
			nullable(sum.Mean), nullable(sum.Std), nullable(sum.Min), nullable(sum.Max))
	}
	args = append(args, run.CreatedAt.UnixMilli())

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_runs
			(id, symbol, interval, from_ts, to_ts, horizon_hours, iterations, sample_size, seed,
			 low_n, low_nan, low_mean, low_std, low_min, low_max,
			 high_n, high_nan, high_mean, high_std, high_min, high_max,
			 joined_n, joined_nan, joined_mean, joined_std, joined_min, joined_max,
			 created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...); err != nil {
		return fmt.Errorf("storage.SaveSimulationRun: insert %s: %w", run.ID, err)
	}
	return nil
}

// ListSimulationRuns devuelve las simulaciones de symbol, las más recientes primero.
func (s *SQLiteStorage) ListSimulationRuns(ctx context.Context, symbol string) ([]domain.SimulationRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, interval, from_ts, to_ts, horizon_hours, iterations, sample_size, seed,
		       low_n, low_nan, low_mean, low_std, low_min, low_max,
		       high_n, high_nan, high_mean, high_std, high_min, high_max,
		       joined_n, joined_nan, joined_mean, joined_std, joined_min, joined_max,
		       created_at
		FROM simulation_runs
		WHERE symbol = ?
		ORDER BY created_at DESC, id
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("storage.ListSimulationRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.SimulationRun
	for rows.Next() {
		var (
			run                domain.SimulationRun
			interval           string
			fromMs, toMs, seed int64
			createdMs          int64
			sums               [3]summaryRow
		)
		dest := []any{&run.ID, &run.Symbol, &interval, &fromMs, &toMs,
			&run.HorizonHours, &run.Iterations, &run.SampleSize, &seed}
		for i := range sums {
			dest = append(dest, sums[i].fields()...)
		}
		dest = append(dest, &createdMs)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("storage.ListSimulationRuns: scan row: %w", err)
		}

		run.Interval = domain.Interval(interval)
		run.From = time.UnixMilli(fromMs).UTC()
		run.To = time.UnixMilli(toMs).UTC()
		run.Seed = uint64(seed)
		run.Low, run.High, run.Joined = sums[0].summary(), sums[1].summary(), sums[2].summary()
		run.CreatedAt = time.UnixMilli(createdMs).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveEventStudy persiste un conteo de eventos.
func (s *SQLiteStorage) SaveEventStudy(ctx context.Context, st domain.EventStudy) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO event_studies
			(id, symbol, interval, from_ts, to_ts, holding_ms, feature, direction,
			 threshold, events, population, defined, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		st.ID, st.Symbol, string(st.Interval), st.From.UnixMilli(), st.To.UnixMilli(),
		st.HoldingPeriod.Milliseconds(), st.Feature.String(), st.Direction.String(),
		st.Threshold, st.Result.Events, st.Result.Population, st.Result.Defined,
		st.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("storage.SaveEventStudy: insert %s: %w", st.ID, err)
	}
	return nil
}

// ListEventStudies devuelve los estudios de symbol, los más recientes primero.
func (s *SQLiteStorage) ListEventStudies(ctx context.Context, symbol string) ([]domain.EventStudy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, interval, from_ts, to_ts, holding_ms, feature, direction,
		       threshold, events, population, defined, created_at
		FROM event_studies
		WHERE symbol = ?
		ORDER BY created_at DESC, id
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("storage.ListEventStudies: query: %w", err)
	}
	defer rows.Close()

	var studies []domain.EventStudy
	for rows.Next() {
		var (
			st                                 domain.EventStudy
			interval, feature, direction       string
			fromMs, toMs, holdingMs, createdMs int64
		)
		if err := rows.Scan(&st.ID, &st.Symbol, &interval, &fromMs, &toMs, &holdingMs,
			&feature, &direction, &st.Threshold,
			&st.Result.Events, &st.Result.Population, &st.Result.Defined, &createdMs,
		); err != nil {
			return nil, fmt.Errorf("storage.ListEventStudies: scan row: %w", err)
		}

		if st.Feature, err = domain.ParseFeatureKey(feature); err != nil {
			return nil, fmt.Errorf("storage.ListEventStudies: %w", err)
		}
		if st.Direction, err = domain.ParseDirection(direction); err != nil {
			return nil, fmt.Errorf("storage.ListEventStudies: %w", err)
		}
		st.Interval = domain.Interval(interval)
		st.From = time.UnixMilli(fromMs).UTC()
		st.To = time.UnixMilli(toMs).UTC()
		st.HoldingPeriod = time.Duration(holdingMs) * time.Millisecond
		st.CreatedAt = time.UnixMilli(createdMs).UTC()
		studies = append(studies, st)
	}
	return studies, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// nullable guarda NaN/Inf como NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// summaryRow son las seis columnas de un domain.Summary.
type summaryRow struct {
	n, nan                sql.NullInt64
	mean, std, minV, maxV sql.NullFloat64
}

func (r *summaryRow) fields() []any {
	return []any{&r.n, &r.nan, &r.mean, &r.std, &r.minV, &r.maxV}
}

func (r *summaryRow) summary() domain.Summary {
	return domain.Summary{
		N:        int(r.n.Int64),
		NaNCount: int(r.nan.Int64),
		Mean:     orNaN(r.mean),
		Std:      orNaN(r.std),
		Min:      orNaN(r.minV),
		Max:      orNaN(r.maxV),
	}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
