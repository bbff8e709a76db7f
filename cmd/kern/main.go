package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kern/internal/api"
	"kern/internal/auth"
	"kern/internal/auth/gotrue"
	"kern/internal/cli"
	apphttp "kern/internal/http"
	"kern/internal/log"
)

func main() {
	cfg, logger := cli.LoadConfig()
	ctx := context.Background()

	stores, err := cli.InitSessionStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize session store",
			log.FieldOperation, log.OpStartup,
			log.FieldError, err,
			"backend", cfg.SessionBackend)
		os.Exit(1)
	}

	broker := auth.NewBroker()
	authOpts := []auth.Option{auth.WithLogger(logger)}
	relay := cli.InitRelay(logger, cfg)
	if relay != nil {
		authOpts = append(authOpts, auth.WithForwarder(relay))
	}

	identity := gotrue.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.APITimeout)
	manager := auth.NewManager(stores.Store, identity, broker, authOpts...)

	transport := api.NewTransport(cfg.APIURL, manager, &http.Client{Timeout: cfg.APITimeout}, logger)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		Logger:             logger,
		Auth:               manager,
		API:                api.NewClient(transport),
		Ready:              stores.Ping,
		CookieSecure:       cfg.SessionCookieSecure,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	})
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	// Sign-outs on other instances reach this instance's watchers.
	relayCtx, stopRelay := context.WithCancel(ctx)
	if relay != nil {
		go func() {
			if err := relay.ConsumeWithRetry(relayCtx, broker.Publish); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Session event relay stopped", log.FieldError, err)
			}
		}()
	}

	stopped := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		stopRelay()
		if relay != nil {
			if err := relay.Close(); err != nil {
				logger.Warn("Failed to close session event relay", log.FieldError, err)
			}
		}
		if stores.Cleanup != nil {
			if err := stores.Cleanup(); err != nil {
				logger.Error("Failed to close session store", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting kern server",
		log.FieldOperation, log.OpStartup,
		"addr", cfg.Addr(),
		"api_url", cfg.APIURL,
		"session_backend", cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		os.Exit(1)
	}

	<-stopped.Done()
	logger.Info("Server stopped gracefully")
}
