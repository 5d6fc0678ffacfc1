package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/fx-ledger/internal/config"
	"github.com/Dan9191/fx-ledger/internal/currency"
	"github.com/Dan9191/fx-ledger/internal/handler"
	"github.com/Dan9191/fx-ledger/internal/integrations/cbr"
	"github.com/Dan9191/fx-ledger/internal/integrations/ratesapi"
	"github.com/Dan9191/fx-ledger/internal/repository"
	"github.com/Dan9191/fx-ledger/internal/scheduler"
	"github.com/Dan9191/fx-ledger/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Rate source
	var source currency.Source
	switch cfg.RatesProvider {
	case config.ProviderCBR:
		source = cbr.NewCBRClient(cfg, logger)
	default:
		source = ratesapi.NewClient(cfg, logger)
	}

	// Rate cache: redis when configured, otherwise process memory
	sched := scheduler.NewScheduler(logger)
	var cache currency.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("Failed to ping redis: %v", err)
		}
		cache = currency.NewRedisCache(rdb, cfg.BaseCurrency, cfg.RedisTTL, logger)
	} else {
		mem := currency.NewMemoryCache()
		cache = mem
		if err := sched.Schedule(cfg.RateCacheCleanup, &scheduler.CacheEvictionJob{
			Cache: mem,
			Days:  cfg.RateCacheDays,
			Log:   logger,
		}); err != nil {
			logger.Fatalf("Failed to schedule rate cache cleanup: %v", err)
		}
	}

	// Initialize layers
	converter := currency.NewConverter(source, cache, cfg.BaseCurrency, cfg.RatesTimeout, logger)
	repo := repository.NewRepository()
	svc := service.NewService(repo, converter, logger, cfg)
	h := handler.NewHandler(svc, logger)

	if cfg.RateWarmup != "" {
		if err := sched.Schedule(cfg.RateWarmup, &scheduler.RateWarmupJob{
			Loader:  converter,
			Timeout: cfg.RatesTimeout,
		}); err != nil {
			logger.Fatalf("Failed to schedule rate warm-up: %v", err)
		}
	}
	sched.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Shutdown(ctx)
	}()

	// Setup router
	r := mux.NewRouter()
	h.Register(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		logger.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.CloseAll()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("Shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s (base currency %s, rates provider %s)", addr, cfg.BaseCurrency, cfg.RatesProvider)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
}
