// Command rentd serves rent estimates over HTTP from a trained model artifact.
// It starts even when the artifact is missing or unreadable; predictions then
// answer 503 until the process is restarted with a usable artifact.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rent-estimator/api"
	"rent-estimator/config"
	"rent-estimator/inference"
	"rent-estimator/services"
	"rent-estimator/storage"
	"rent-estimator/utils"
)

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.HTTPAddr, "listen address")
	artifactPath := flag.String("artifact", cfg.ArtifactPath, "model artifact to serve")
	flag.Parse()

	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("=== Rent estimate service starting ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StorageOptions(logger))
	if err != nil {
		logger.Error("Listings backend %q unavailable, comparables disabled: %v", cfg.ListingsBackend, err)
	} else {
		defer store.Close()
		if cfg.ListingsCSV != "" {
			preload(ctx, store, cfg.ListingsCSV, logger)
		}
	}

	var finder storage.ComparableFinder
	if store != nil {
		finder = store
	}
	cc := inference.DefaultComparablesConfig()
	cc.Limit = cfg.ComparablesLimit
	cc.Tolerance = cfg.ComparablesTolerance
	comparables := inference.NewComparables(finder, cc, logger)

	svc, err := inference.Load(*artifactPath, inference.Options{
		Limits:      inference.Limits{MaxSize: cfg.MaxSizeSqft, MaxRent: cfg.MaxRent},
		Logger:      logger,
		Comparables: comparables,
	})
	if err != nil {
		logger.Warn("Serving without a model; run the train command and restart")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.NewRouter(svc, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Listening on %s (model state: %s)", *addr, svc.State())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

func preload(ctx context.Context, store storage.ListingStore, path string, logger *utils.Logger) {
	raw, err := storage.ReadListings(path)
	if err != nil {
		logger.Error("Failed to read listings %s: %v", path, err)
		return
	}
	listings := services.NewCleaner(logger).CleanListings(raw)
	if err := store.Write(ctx, listings); err != nil {
		logger.Error("Failed to load listings: %v", err)
		return
	}
	logger.Info("Loaded %d comparable listings from %s", len(listings), path)
}
