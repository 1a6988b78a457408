package main

//go:generate swag init --dir ../.. -g cmd/api/main.go -o ../../docs

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "eventpublisher/docs"

	"eventpublisher/config"
	"eventpublisher/internal/adapters/auth"
	"eventpublisher/internal/adapters/email"
	statsadapter "eventpublisher/internal/adapters/stats"
	delivery "eventpublisher/internal/delivery/http"
	"eventpublisher/internal/delivery/http/controllers"
	"eventpublisher/internal/delivery/http/middleware"
	"eventpublisher/internal/domain"
	"eventpublisher/internal/migrations"
	"eventpublisher/internal/repository/postgres"
	"eventpublisher/internal/services"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// @title Event Publisher API
// @version 1.0
// @description Event moderation, participation requests and public event catalogue.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an admin JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// 1. Storage
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	if err := migrations.Run(db, cfg.Database.AutoMigrate, logger); err != nil {
		return err
	}

	eventRepo := postgres.NewEventRepository(db)
	requestRepo := postgres.NewParticipationRequestRepository(db)
	userRepo := postgres.NewUserRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)

	// 2. Stats service, optionally behind the Redis read cache
	var stats domain.StatsGateway = statsadapter.NewHTTPClient(cfg.Stats.URL, &http.Client{Timeout: cfg.Stats.Timeout})
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:                  cfg.Redis.Addr,
			Password:              cfg.Redis.Password,
			DB:                    cfg.Redis.DB,
			DialTimeout:           cfg.Redis.Timeout,
			ReadTimeout:           cfg.Redis.Timeout,
			WriteTimeout:          cfg.Redis.Timeout,
			ContextTimeoutEnabled: true,
		})
		defer rdb.Close()
		stats = statsadapter.NewCachedGateway(stats, rdb, cfg.Redis.TTL, logger)
		logger.Info("stats cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL, "timeout", cfg.Redis.Timeout)
	}

	// 3. Email
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mailer.SES.Region,
			AccessKeyID:     cfg.Mailer.SES.AccessKeyID,
			SecretAccessKey: cfg.Mailer.SES.SecretAccessKey,
		},
	}, logger)
	if err != nil {
		return err
	}
	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	// 4. Services
	timeout := cfg.Server.RequestTimeout
	enricher := services.NewEventEnricher(requestRepo, stats, cfg.Stats.Timeout, logger)
	eventSvc := services.NewEventService(eventRepo, userRepo, categoryRepo, enricher, timeout)
	listingSvc := services.NewEventListingService(eventRepo, enricher, stats, cfg.Stats.AppName, cfg.Stats.Timeout, logger, timeout)
	requestSvc := services.NewRequestService(requestRepo, eventRepo, userRepo, emailSvc, logger, timeout, cfg.Mailer.Timeout)
	userSvc := services.NewUserService(userRepo, timeout)
	categorySvc := services.NewCategoryService(categoryRepo, timeout)

	// 5. HTTP
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; admin endpoints will reject every token")
	}
	verifier := auth.NewJWT(cfg.Auth.JWTSecret)
	router := delivery.NewRouter(delivery.Controllers{
		Admin:    controllers.NewAdminController(logger, userSvc, categorySvc, eventSvc, listingSvc),
		Events:   controllers.NewEventController(logger, eventSvc),
		Requests: controllers.NewRequestController(logger, requestSvc),
		Public:   controllers.NewPublicEventController(logger, listingSvc),
	}, middleware.RequireRole(verifier, domain.RoleAdmin, logger))

	var handler http.Handler = router
	handler = middleware.CORS(cfg.Server.CORSOrigins, handler)
	handler = middleware.LoggingMiddleware(logger, handler)
	handler = middleware.Recover(logger, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
