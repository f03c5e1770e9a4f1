// Command listings-import loads a listings CSV into the configured listings
// backend so the service can offer comparable properties.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"rent-estimator/config"
	"rent-estimator/services"
	"rent-estimator/storage"
	"rent-estimator/utils"
)

func main() {
	cfg := config.Load()

	file := flag.String("file", cfg.ListingsCSV, "listings CSV to import")
	reset := flag.Bool("reset", cfg.ListingsReset, "clear the store before importing")
	flag.Parse()

	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if *file == "" {
		logger.Error("No listings file given; pass -file or set LISTINGS_CSV")
		os.Exit(1)
	}
	if cfg.ListingsBackend == storage.BackendMemory || cfg.ListingsBackend == "" {
		logger.Error("LISTINGS_BACKEND is memory; nothing would persist. Use postgres or redis")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StorageOptions(logger))
	if err != nil {
		logger.Error("Failed to open %s backend: %v", cfg.ListingsBackend, err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	raw, err := storage.ReadListings(*file)
	if err != nil {
		logger.Error("Failed to read %s: %v", *file, err)
		os.Exit(1)
	}
	listings := services.NewCleaner(logger).CleanListings(raw)
	if len(listings) == 0 {
		logger.Error("All listings were dropped during cleaning. Exiting.")
		os.Exit(1)
	}

	if *reset {
		if err := store.Clear(ctx); err != nil {
			logger.Error("Failed to clear listings: %v", err)
			os.Exit(1)
		}
		logger.Info("Cleared existing listings")
	}

	if err := store.Write(ctx, listings); err != nil {
		logger.Error("Import failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Imported %d of %d listings into %s", len(listings), len(raw), cfg.ListingsBackend)
}
