package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/pricevol/config"
	"github.com/alejandrodnm/pricevol/internal/adapters/binance"
	"github.com/alejandrodnm/pricevol/internal/adapters/csvfile"
	"github.com/alejandrodnm/pricevol/internal/adapters/report"
	"github.com/alejandrodnm/pricevol/internal/adapters/storage"
	"github.com/alejandrodnm/pricevol/internal/adapters/yahoo"
	"github.com/alejandrodnm/pricevol/internal/application/study"
	"github.com/alejandrodnm/pricevol/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	mode := flag.String("mode", "simulate", "simulate | events | history | fetch")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	refresh := flag.Bool("refresh", false, "ignore the candle cache and download again")
	source := flag.String("source", "", "candle source: binance|yahoo (overrides config)")
	csvPath := flag.String("csv", "", "read candles from this CSV instead of the exchange")
	out := flag.String("out", "candles.csv", "fetch mode: CSV file to write")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *source != "" {
		cfg.Source = *source
	}
	setupLogger(cfg.Log)

	slog.Info("pricevol starting",
		"config", *configPath,
		"mode", *mode,
		"pair", cfg.Simulation.Pair,
		"interval", cfg.Simulation.Interval,
		"source", cfg.Source,
		"csv", *csvPath,
	)

	var provider ports.CandleProvider
	switch {
	case *csvPath != "":
		provider = csvfile.NewProvider(*csvPath)
	case cfg.Source == "binance":
		provider = binance.NewClient(binance.Config{
			BaseURL:    cfg.Binance.BaseURL,
			MaxRetries: cfg.Binance.MaxRetries,
			RetryWait:  cfg.Binance.RetryWait,
			Timeout:    cfg.Binance.Timeout,
		})
	case cfg.Source == "yahoo":
		provider = yahoo.NewClient(yahoo.Config{
			BaseURL:    cfg.Yahoo.BaseURL,
			MaxRetries: cfg.Yahoo.MaxRetries,
			RetryWait:  cfg.Yahoo.RetryWait,
			Timeout:    cfg.Yahoo.Timeout,
		})
	default:
		slog.Error("unknown candle source", "source", cfg.Source)
		os.Exit(2)
	}

	// Un CSV es una serie concreta: no se mezcla con la caché.
	var store ports.Storage
	if cfg.Storage.DSN != "" && (*csvPath == "" || *mode == "history") {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	console := report.NewConsole(cfg.Simulation.Bins)
	runner := study.NewRunner(provider, store, console, study.Options{Refresh: *refresh})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "simulate":
		err = runSimulation(ctx, runner, cfg)
	case "events":
		err = runEvents(ctx, runner, cfg)
	case "history":
		err = runHistory(ctx, runner, console, cfg.Simulation.Pair)
	case "fetch":
		err = runFetch(ctx, provider, cfg, *out)
	default:
		slog.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("pricevol failed", "mode", *mode, "err", err)
		os.Exit(1)
	}

	slog.Info("pricevol done", "mode", *mode)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
