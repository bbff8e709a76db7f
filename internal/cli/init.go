// Package cli provides the startup and shutdown steps of cmd/kern.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kern/internal/amqp"
	"kern/internal/backend"
	"kern/internal/config"
	"kern/internal/log"
)

// SetupLogger builds the process logger at the given LOG_LEVEL and makes
// it the slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads .env, loads and validates the configuration, and sets
// up logging. It exits the process when the configuration is invalid.
func LoadConfig() (*config.Config, *log.Logger) {
	envErr := config.LoadDotEnv()

	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)
	if envErr != nil {
		logger.Warn("Failed to load .env file", log.FieldError, envErr)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSessionStore creates the configured session store.
func InitSessionStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.Result, error) {
	storeCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateStore(ctx, storeCfg)
}

// InitRelay connects the session event relay. It returns nil when
// AMQP_URL is unset or the broker is unreachable; sessions then stay
// local to this instance.
func InitRelay(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("Session event relay disabled")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		logger.Warn("Session event relay unavailable, continuing without it",
			log.FieldOperation, log.OpStartup,
			log.FieldError, err)
		return nil
	}
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled once cleanup has run or the
// timeout expired.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			log.FieldOperation, log.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
	}()

	return ctx
}
