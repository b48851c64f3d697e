package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"socialvibe/backend/internal/config"
	"socialvibe/backend/internal/database"
	"socialvibe/backend/internal/events"
	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/job"
	"socialvibe/backend/internal/metrics"
	"socialvibe/backend/internal/middleware"
	"socialvibe/backend/internal/notify"
	"socialvibe/backend/internal/repository"
	"socialvibe/backend/internal/router"
	"socialvibe/backend/internal/service"
	"socialvibe/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title           SocialVibe API
// @version         1.0
// @description     Activities, waitlists, users and chats of the SocialVibe meetup app.
// @host            localhost:3001
// @BasePath        /
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(logger)
	localHub := hub.NewHub()
	broadcaster := newBroadcaster(ctx, cfg, localHub, logger)

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	avatars, err := newAvatarStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to configure avatar storage", zap.Error(err))
	}
	if avatars == nil {
		logger.Info("Avatar storage not configured, uploads disabled")
	}

	store := repository.NewStore(db)
	activities := service.NewActivityService(store, publisher, newMailer(cfg, logger), m, logger)
	users := service.NewUserService(store, activities, avatars, broadcaster, logger)
	chats := service.NewChatService(store, broadcaster, m, logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}

	scheduler := job.NewScheduler(logger)
	if err := scheduler.Add("reconcile", cfg.ReconcileSchedule, job.NewReconcileJob(activities, logger)); err != nil {
		logger.Fatal("Invalid RECONCILE_SCHEDULE", zap.Error(err))
	}
	if limiter != nil {
		if err := scheduler.Add("rate-limit-cleanup", "@every 5m", limiterCleanup{limiter}); err != nil {
			logger.Fatal("Failed to schedule rate limiter cleanup", zap.Error(err))
		}
	}
	scheduler.Start()

	r := router.Setup(router.Config{
		Activities:     activities,
		Users:          users,
		Chats:          chats,
		DB:             db,
		Hub:            localHub,
		Metrics:        m,
		Gatherer:       prometheus.DefaultGatherer,
		AllowedOrigins: cfg.AllowedOrigins(),
		JWTSecret:      cfg.SupabaseJWTSecret,
		RateLimiter:    limiter,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("Server is running",
			zap.String("address", srv.Addr),
			zap.String("swagger", "http://localhost:"+cfg.Port+"/swagger/index.html"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}

// newBroadcaster fans chat events out through Redis when REDIS_URL is set, so
// every instance's websocket clients see them. Otherwise events stay local.
func newBroadcaster(ctx context.Context, cfg *config.Config, local *hub.Hub, logger *zap.Logger) hub.Broadcaster {
	if cfg.RedisURL == "" {
		return local
	}

	client, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis unavailable, chat events stay on this instance", zap.Error(err))
		return local
	}

	relay := hub.NewRedisRelay(client, local, logger)
	go func() {
		defer client.Close()
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Chat relay stopped", zap.Error(err))
		}
	}()
	return relay
}

func newPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return events.NopPublisher{}
	}
	logger.Info("Publishing activity events", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	return events.NewKafkaPublisher(events.KafkaConfig{Brokers: brokers, Topic: cfg.KafkaTopic})
}

func newMailer(cfg *config.Config, logger *zap.Logger) notify.Mailer {
	if cfg.SMTPHost == "" {
		return notify.NopMailer{}
	}
	logger.Info("Promotion e-mails enabled", zap.String("smtp_host", cfg.SMTPHost))
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// newAvatarStore returns nil when the selected driver is not configured.
func newAvatarStore(ctx context.Context, cfg *config.Config) (storage.AvatarStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.AvatarBucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
			return nil, nil
		}
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.AvatarBucket), nil
	}
}

type limiterCleanup struct {
	limiter *middleware.RateLimiter
}

func (l limiterCleanup) Run() { l.limiter.Cleanup() }
