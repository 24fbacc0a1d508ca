package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apphttp "vies_checker/internal/http"
	"vies_checker/internal/http/router"
	"vies_checker/internal/vat"
	"vies_checker/internal/vat/client"
	"vies_checker/platform/config"
	"vies_checker/platform/logger"
	"vies_checker/platform/telemetry"
	"vies_checker/platform/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "binding", cfg.VIESBinding)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	metricsRegistry := telemetry.NewRegistry()
	vatMetrics := telemetry.NewVATMetrics(metricsRegistry)

	registry, err := client.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize registry client", "error", err)
		panic("failed to initialize registry client: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	vatModule, err := vat.NewModule(registry, cfg, val, vatMetrics, log)
	if err != nil {
		log.Error("failed to initialize vat module", "error", err)
		panic("failed to initialize vat module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Metrics: metricsRegistry,
		Modules: []apphttp.Module{
			vatModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 5 * time.Second,
		// Must cover a WSDL lookup plus a full batch of registry calls.
		WriteTimeout: cfg.VIESTimeout*time.Duration(batchRounds(cfg)+1) + 5*time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("server stopped")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// batchRounds is the number of sequential registry waves a maximal batch needs.
func batchRounds(cfg *config.Config) int {
	return (cfg.VIESBatchMaxItems + cfg.VIESBatchConcurrency - 1) / cfg.VIESBatchConcurrency
}
