// cmd/api-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"studentservices-api/internal/api"
	"studentservices-api/internal/bootstrap"
	"studentservices-api/internal/catalog"
	"studentservices-api/internal/common/auth"
	"studentservices-api/internal/common/config"
	"studentservices-api/internal/common/logger"
	"studentservices-api/internal/common/observability"
	"studentservices-api/internal/contact"
	"studentservices-api/internal/dashboard"
	"studentservices-api/internal/notification/delivery"
	"studentservices-api/internal/notification/dispatcher"
	"studentservices-api/internal/notification/ledger"
	"studentservices-api/internal/notification/scheduler"
	"studentservices-api/internal/notification/templates"
	"studentservices-api/internal/notification/trigger"
	"studentservices-api/internal/portfolio"
	"studentservices-api/internal/requests"
	"studentservices-api/internal/users"
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

	zapLog.Info("Starting api server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	pg, err := bootstrap.Postgres(ctx, cfg.Database.Postgres, zapLog)
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := bootstrap.Redis(ctx, cfg.Database.Redis, zapLog)
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	var rdb redis.Cmdable
	if redisClient != nil {
		defer redisClient.Close()
		rdb = redisClient.Client
	}

	esClient, err := bootstrap.Elasticsearch(ctx, cfg.Database.Elasticsearch, zapLog)
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	mailer, err := bootstrap.Mailer(ctx, cfg)
	if err != nil {
		zapLog.Fatal("mailer init failed", zap.Error(err))
	}
	alerter, err := bootstrap.Alerter(ctx, cfg)
	if err != nil {
		zapLog.Fatal("sms alerter init failed", zap.Error(err))
	}

	strategy, err := delivery.Select(ctx, cfg.Notifications.Delivery.Strategy, rdb, mailer, cfg.Notifications.Worker.QueueKey, log)
	if err != nil {
		zapLog.Fatal("delivery strategy selection failed", zap.Error(err))
	}
	zapLog.Info("Notification delivery selected", zap.String("strategy", strategy.Name()))

	// --- Notification pipeline ---
	requestStore := requests.NewStore(pg.DB)
	userStore := users.NewStore(pg.DB)
	notifications := ledger.New(pg.DB, log)

	disp := dispatcher.New(dispatcher.Deps{
		Renderer: templates.NewRegistry(templates.Options{
			FrontendURL:  cfg.Notifications.FrontendURL,
			ContactEmail: cfg.Notifications.ContactEmail,
			ContactPhone: cfg.Notifications.ContactPhone,
		}),
		Strategy:      strategy,
		Ledger:        notifications,
		Staff:         userStore,
		Requests:      requestStore,
		Alerter:       alerter,
		Observability: obs,
	}, dispatcher.Config{From: cfg.Notifications.FromEmail}, log)

	var index requests.Indexer
	if esClient != nil {
		index = requests.NewSearchIndex(esClient.Client, cfg.Database.Elasticsearch.Index)
	}
	requestService := requests.NewService(requestStore, trigger.New(disp, requestStore, log), userStore, index, log)

	// --- Site content ---
	contactStore := contact.NewStore(pg.DB)
	catalogStore := catalog.NewStore(pg.DB)
	portfolioStore := portfolio.NewStore(pg.DB)

	dash := dashboard.NewService(dashboard.Sources{
		Requests:  requestService,
		Catalog:   catalogStore,
		Portfolio: portfolioStore,
		Contact:   contactStore,
		Queries:   dashboard.NewStore(pg.DB),
	}, rdb, time.Duration(cfg.Database.Redis.DashboardTTL)*time.Second, log)

	tokens := auth.NewTokenManager(
		cfg.Auth.JWT.Secret,
		cfg.Auth.JWT.Issuer,
		time.Duration(cfg.Auth.JWT.TokenTTL)*time.Minute,
		rdb,
	)

	// --- Background work ---
	workerDone := make(chan struct{})
	switch {
	case !cfg.Notifications.Worker.InProcess || strategy.Name() != delivery.ModeQueued:
		close(workerDone)
	case mailer == nil:
		zapLog.Warn("In-process worker requested but no mail transport is configured")
		close(workerDone)
	default:
		worker := delivery.NewWorker(rdb, mailer, notifications, bootstrap.WorkerConfig(cfg.Notifications), log)
		go func() {
			defer close(workerDone)
			worker.Run(ctx)
		}()
	}

	sched := scheduler.New(requestService, scheduler.Config{
		OverdueSweep:      cfg.Notifications.Schedule.OverdueSweep,
		AttachmentCleanup: cfg.Notifications.Schedule.AttachmentCleanup,
	}, log)
	if err := sched.Start(); err != nil {
		zapLog.Fatal("scheduler start failed", zap.Error(err))
	}
	defer sched.Stop()

	// --- HTTP ---
	readiness := map[string]api.Pinger{"postgres": pg}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}
	if esClient != nil {
		readiness["elasticsearch"] = esClient
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(api.Deps{
		Requests:      requestService,
		Notifications: notifications,
		Dispatcher:    disp,
		Contact:       contactStore,
		Catalog:       catalogStore,
		Portfolio:     portfolioStore,
		Dashboard:     dash,
		Users:         userStore,
		Auth:          users.NewAuthenticator(userStore, tokens, log),
		Tokens:        tokens,
		Readiness:     readiness,
	}, log, api.WithAllowedOrigins(cfg.Server.AllowedOrigins))

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutting down api server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	<-workerDone
	zapLog.Info("Api server stopped")
}
