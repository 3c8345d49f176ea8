// cmd/notification-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"studentservices-api/internal/bootstrap"
	"studentservices-api/internal/common/config"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/notification/delivery"
	"studentservices-api/internal/notification/ledger"
)

func main() {
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification worker...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := bootstrap.Postgres(ctx, cfg.Database.Postgres, zapLog)
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := bootstrap.Redis(ctx, cfg.Database.Redis, zapLog)
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	if redisClient == nil {
		zapLog.Fatal("notification worker requires database.redis.address")
	}
	defer redisClient.Close()

	mailer, err := bootstrap.Mailer(ctx, cfg)
	if err != nil {
		zapLog.Fatal("mailer init failed", zap.Error(err))
	}
	if mailer == nil {
		zapLog.Fatal("notification worker requires a mail transport")
	}

	worker := delivery.NewWorker(
		redisClient.Client,
		mailer,
		ledger.New(pg.DB, log),
		bootstrap.WorkerConfig(cfg.Notifications),
		log,
	)

	// --- Health/Metrics server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		status, state := http.StatusOK, "ready"
		if err := redisClient.Ping(r.Context()); err != nil {
			status, state = http.StatusServiceUnavailable, "not_ready"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"status": state})
	})
	mux.Handle("/metrics", promhttp.Handler())

	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", opsServer.Addr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	worker.Run(ctx)

	zapLog.Info("Shutdown signal received, stopping worker...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Health/Metrics server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Notification worker stopped")
}
