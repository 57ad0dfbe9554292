package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"aqi-platform/internal/auth"
	"aqi-platform/internal/cache"
	"aqi-platform/internal/config"
	"aqi-platform/internal/handlers"
	"aqi-platform/internal/model"
	"aqi-platform/internal/repository"
	"aqi-platform/internal/services"
	"aqi-platform/pkg/database"
	"aqi-platform/pkg/logging"
	"aqi-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateServing(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("aqi-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting AQI API server", logging.Fields{
		"version":       "1.0.0",
		"server_host":   cfg.Server.Host,
		"server_port":   cfg.Server.Port,
		"store_backend": cfg.Store.Backend,
		"cache_backend": cfg.Cache.Backend,
		"model_dir":     cfg.Models.Dir,
	})

	metricsCollector := metrics.NewCollector("aqi_platform")

	// Models are loaded once; a missing or mismatched artifact is fatal
	handle, err := model.LoadHandle(model.NewStore(cfg.Models.Dir))
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load models", logging.Fields{
			"model_dir": cfg.Models.Dir,
		}, err)
	}
	logger.Info(ctx, "[STARTUP] Models loaded", logging.Fields{
		"instant_version":  handle.Instant().Version,
		"forecast_version": handle.Forecast().Version,
	})

	var repo repository.Repository
	switch cfg.Store.Backend {
	case "memory":
		repo = repository.NewSeededMemoryRepository()
	default:
		dbConfig := &database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}

		db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()
		repo = repository.NewPostgresRepository(db, logger, metricsCollector)
	}

	var regionCache cache.Cache
	switch cfg.Cache.Backend {
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.Cache.MemcachedAddrs, cfg.Cache.MemcachedTimeout)
		if err := mc.Ping(); err != nil {
			logger.Warn(ctx, "[STARTUP] Memcached unreachable, requests will fall through", logging.Fields{
				"addrs": cfg.Cache.MemcachedAddrs,
				"error": err.Error(),
			})
		}
		defer mc.Close()
		regionCache = mc
	default:
		regionCache = cache.NewInMemoryCache()
	}

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	handler := handlers.NewHandler(handlers.Services{
		Predictions: services.NewPredictionService(repo, handle, logger, metricsCollector),
		Regions:     services.NewRegionService(repo, regionCache, cfg.Cache.TTL, logger, metricsCollector),
		Sensors:     services.NewSensorService(repo, logger, metricsCollector),
		Auth: services.NewAuthService(repo, issuer, services.AuthConfig{
			AllowRegistration: cfg.Auth.AllowRegistration,
			BcryptCost:        cfg.Auth.BcryptCost,
		}, logger, metricsCollector),
		Health: repo,
	}, rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst), logger, metricsCollector)

	router := mux.NewRouter()
	router.Use(handlers.TimeoutMiddleware(cfg.Server.RequestTimeout))
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
