package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aqi-platform/internal/config"
	"aqi-platform/internal/repository"
	"aqi-platform/internal/simulator"
	"aqi-platform/pkg/database"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	apiURL := flag.String("api-url", cfg.Simulator.APIURL, "Prediction endpoint to post readings to")
	interval := flag.Duration("interval", cfg.Simulator.Interval, "Delay between cycles")
	seed := flag.Int64("seed", cfg.Simulator.Seed, "Random seed, 0 uses the clock")
	once := flag.Bool("once", false, "Run a single cycle and exit")
	flag.Parse()

	logger := logging.NewStructuredLogger("aqi-simulator", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[SIMULATOR_START] Starting sensor network", logging.Fields{
		"api_url":       *apiURL,
		"interval":      interval.String(),
		"store_backend": cfg.Store.Backend,
	})

	// Active sensors come from the same store the API writes to; the memory
	// backend falls back to the seeded catalog.
	var catalog simulator.Catalog
	switch cfg.Store.Backend {
	case "memory":
		catalog = repository.NewSeededMemoryRepository()
	default:
		dbConfig := &database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    2,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}
		metricsCollector := metrics.NewCollector("aqi_simulator")
		db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()
		catalog = repository.NewPostgresRepository(db, logger, metricsCollector)
	}

	runner := simulator.NewRunner(catalog, simulator.Config{
		APIURL:   *apiURL,
		Interval: *interval,
		Seed:     *seed,
	}, logger)

	if *once {
		result, err := runner.RunOnce(ctx)
		if err != nil {
			logger.Fatal(ctx, "[SIMULATOR_ERROR] Cycle failed", logging.Fields{}, err)
		}
		fmt.Printf("Sensors: %d  Sent: %d  Failed: %d\n", result.Sensors, result.Sent, result.Failed)
		return
	}

	if err := runner.Run(ctx); err != nil {
		logger.Error(ctx, "[SIMULATOR_ERROR] Runner stopped", logging.Fields{}, err)
	}
	logger.Info(context.Background(), "[SIMULATOR_STOP] Sensor network stopped", logging.Fields{})
}
