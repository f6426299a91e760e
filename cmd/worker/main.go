package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/helpers/pidfile"
	"fvgvision-worker-go/internal/logging"
	"fvgvision-worker-go/internal/worker"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if w, _ := logging.StartLogdy(cfg); w != nil {
		log.Logger = log.Output(zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, w))
	}

	pid := pidfile.New(cfg.PIDFile)
	if err := pid.Acquire(); err != nil {
		log.Fatal().Err(err).Str("pid_file", cfg.PIDFile).Msg("Cannot start worker")
	}

	os.Exit(run(cfg, pid))
}

func run(cfg *config.Config, pid *pidfile.PIDFile) int {
	defer func() {
		if err := pid.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("source", cfg.VideoSource).
		Str("model", cfg.ModelID).
		Int("port", cfg.Port).
		Msg("Starting FVG Vision worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := worker.New(ctx, cfg, logging.NewServiceLogger(cfg, "worker"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create worker")
		return 1
	}

	if err := w.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Worker stopped with error")
		return 1
	}
	log.Info().Msg("Worker stopped")
	return 0
}
