package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de pricevol.
type Config struct {
	Source     string           `yaml:"source"` // binance | yahoo
	Binance    BinanceConfig    `yaml:"binance"`
	Yahoo      YahooConfig      `yaml:"yahoo"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Simulation SimulationConfig `yaml:"simulation"`
	Events     EventsConfig     `yaml:"events"`
}

// BinanceConfig controla el cliente de klines.
type BinanceConfig struct {
	BaseURL    string        `yaml:"base_url"`
	MaxRetries int           `yaml:"max_retries"`
	RetryWait  time.Duration `yaml:"retry_wait"` // espera base del backoff exponencial
	Timeout    time.Duration `yaml:"timeout"`
}

// YahooConfig controla el cliente de la API de chart de Yahoo Finance.
type YahooConfig struct {
	BaseURL    string        `yaml:"base_url"`
	MaxRetries int           `yaml:"max_retries"`
	RetryWait  time.Duration `yaml:"retry_wait"`
	Timeout    time.Duration `yaml:"timeout"`
}

// StorageConfig controla dónde se cachean velas y resultados.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o "" para desactivar
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// SimulationConfig son los parámetros de la simulación Monte Carlo.
type SimulationConfig struct {
	Pair         string `yaml:"pair"`
	Interval     string `yaml:"interval"`
	From         string `yaml:"from"` // "2006-01-02 15:04:05" o "2006-01-02", UTC
	To           string `yaml:"to"`
	Iterations   int    `yaml:"iterations"`
	SampleSize   int    `yaml:"sample_size"`
	HoldingHours []int  `yaml:"holding_hours"`
	Seed         uint64 `yaml:"seed"`
	Workers      int    `yaml:"workers"` // 0 = NumCPU
	Bins         int    `yaml:"bins"`    // barras del histograma
}

// EventsConfig son los parámetros del conteo de eventos. Usa el par y el
// rango de Simulation.
type EventsConfig struct {
	HoldingPeriod time.Duration `yaml:"holding_period"`
	Thresholds    []float64     `yaml:"thresholds"`
	Features      []string      `yaml:"features"`   // vacío = las 15
	Directions    []string      `yaml:"directions"` // vacío = positive y negative
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Range devuelve el rango [From, To] de la simulación.
func (c *Config) Range() (from, to time.Time, err error) {
	if from, err = ParseTime(c.Simulation.From); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config.Range: from: %w", err)
	}
	if to, err = ParseTime(c.Simulation.To); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config.Range: to: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("config.Range: to %s before from %s", c.Simulation.To, c.Simulation.From)
	}
	return from, to, nil
}

// ParseTime acepta "2006-01-02 15:04:05", "2006-01-02" o RFC3339. Sin zona = UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.DateTime, time.DateOnly, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PRICEVOL_SOURCE"); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.Yahoo.BaseURL = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Binance.BaseURL = v
	}
	if v, ok := os.LookupEnv("PRICEVOL_DSN"); ok {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PRICEVOL_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PRICEVOL_SEED %q: %w", v, err)
		}
		cfg.Simulation.Seed = seed
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Source == "" {
		cfg.Source = "binance"
	}
	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://api.binance.com"
	}
	if cfg.Binance.MaxRetries <= 0 {
		cfg.Binance.MaxRetries = 3
	}
	if cfg.Binance.RetryWait <= 0 {
		cfg.Binance.RetryWait = 500 * time.Millisecond
	}
	if cfg.Binance.Timeout <= 0 {
		cfg.Binance.Timeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Simulation.Pair == "" {
		cfg.Simulation.Pair = "BTCUSDT"
	}
	if cfg.Simulation.Interval == "" {
		cfg.Simulation.Interval = "1h"
	}
	if cfg.Simulation.From == "" {
		cfg.Simulation.From = "2024-05-20 00:00:00"
	}
	if cfg.Simulation.To == "" {
		cfg.Simulation.To = "2024-09-19 00:00:00"
	}
	if cfg.Simulation.Iterations <= 0 {
		cfg.Simulation.Iterations = 100000
	}
	if cfg.Simulation.SampleSize <= 0 {
		cfg.Simulation.SampleSize = 15
	}
	if len(cfg.Simulation.HoldingHours) == 0 {
		cfg.Simulation.HoldingHours = []int{24, 1}
	}
	if cfg.Simulation.Bins <= 0 {
		cfg.Simulation.Bins = 40
	}
	if cfg.Events.HoldingPeriod <= 0 {
		cfg.Events.HoldingPeriod = 24 * time.Hour
	}
	if len(cfg.Events.Thresholds) == 0 {
		cfg.Events.Thresholds = []float64{0.01, 0.02, 0.05}
	}
}
