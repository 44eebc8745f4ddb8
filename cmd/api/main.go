package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/clinidesk/frontdesk-api/config"
	"github.com/clinidesk/frontdesk-api/internal/email"
	"github.com/clinidesk/frontdesk-api/internal/handler"
	tokenHandler "github.com/clinidesk/frontdesk-api/internal/handler/token"
	"github.com/clinidesk/frontdesk-api/internal/middleware"
	"github.com/clinidesk/frontdesk-api/internal/repository/cache"
	"github.com/clinidesk/frontdesk-api/internal/repository/instrument"
	"github.com/clinidesk/frontdesk-api/internal/repository/postgres"
	"github.com/clinidesk/frontdesk-api/internal/router"
	"github.com/clinidesk/frontdesk-api/internal/service/frontdesk"
	"github.com/clinidesk/frontdesk-api/internal/service/notification"
	"github.com/clinidesk/frontdesk-api/internal/token"
	"github.com/clinidesk/frontdesk-api/pkg/logger"
	redisBroker "github.com/clinidesk/frontdesk-api/pkg/messaging/redis"
	"github.com/clinidesk/frontdesk-api/pkg/metrics"
	"github.com/clinidesk/frontdesk-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid Redis URL")
	}
	redisClient := goredis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	appMetrics := metrics.NewMetrics(cfg.Monitoring.MetricsNamespace, cfg.Monitoring.MetricsSubsystem)

	// Repositories: instrumentation around the store, cache on top so
	// cache hits never count as store operations.
	tokenRepo := cache.NewTokenCache(
		instrument.NewTokenInstrumentation(postgres.NewTokenRepository(db), appMetrics),
		cfg.Cache.TTL,
	)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Token sequence follows the store on startup so restarts never
	// reissue an identifier.
	sequencer := token.NewSequencer(redisClient, "")
	issued, err := tokenRepo.CountIssued(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count issued tokens")
	}
	if err := sequencer.Sync(context.Background(), issued); err != nil {
		log.Fatal().Err(err).Msg("failed to sync token sequence")
	}

	// Message broker
	appLogger := logger.NewLogger(nil)
	zl := log.Logger
	broker, err := redisBroker.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect broker to Redis")
	}
	defer broker.Close()

	// Follow-up reminders
	var notifier frontdesk.Notifier
	if cfg.Notification.Enabled {
		emailSvc := email.NewSMTPService(cfg.SMTP.ToEmailConfig())
		notifier = notification.NewService(emailSvc, broker, cfg.Notification.ToServiceConfig())
	}

	frontdeskSvc := frontdesk.NewService(tokenRepo, outboxRepo, sequencer, notifier, appMetrics)

	// Handlers and router
	h := handler.NewHandler(db, redisClient)
	tokenH := tokenHandler.NewHandler(frontdeskSvc)

	routerConfig := router.Config{
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: cfg.Monitoring.MetricsNamespace,
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		routerConfig.CORSConfig.AllowOrigins = cfg.Security.AllowedOrigins
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(tokenH, h, routerConfig)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Outbox processor
	processorCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()
	outboxProcessor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		cfg.Outbox.ToWorkerConfig(),
		appLogger,
		appMetrics,
	)
	go outboxProcessor.Start(processorCtx)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopProcessor()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
