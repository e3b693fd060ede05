package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/backoffice/backoffice/internal/app"
	"github.com/backoffice/backoffice/internal/audit"
	audithttp "github.com/backoffice/backoffice/internal/audit/http"
	"github.com/backoffice/backoffice/internal/auth"
	"github.com/backoffice/backoffice/internal/candidates"
	"github.com/backoffice/backoffice/internal/cashflow"
	"github.com/backoffice/backoffice/internal/events"
	"github.com/backoffice/backoffice/internal/observability"
	"github.com/backoffice/backoffice/internal/platform/cache"
	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/sales"
	"github.com/backoffice/backoffice/internal/shared"
	"github.com/backoffice/backoffice/internal/tickets"
	"github.com/backoffice/backoffice/internal/users"
	"github.com/backoffice/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}
	if err := app.LoadDotEnv(); err != nil {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		logger.Info("publishing events to kafka", slog.Any("brokers", cfg.KafkaBrokers))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close publisher", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	roles := rbac.NewService()
	rbacMW := rbac.Middleware{Service: roles, Logger: logger}
	auditLogger := shared.NewAuditLogger(pool)

	authService := auth.NewService(
		auth.NewRepository(pool),
		auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		auth.NewDenylist(redisClient),
		roles,
		shared.NewCSRFManager(cfg.CSRFSecret),
	)
	authMW := auth.Middleware{Service: authService, CookieName: cfg.AuthCookieName, Logger: logger}

	cashflowService := cashflow.NewService(cashflow.NewRepository(pool), publisher, logger)
	agingCache := cache.NewVersioned(redisClient, "sales", cfg.AgingCacheTTL)
	salesService := sales.NewService(sales.NewRepository(pool), agingCache, publisher, logger)
	candidateService := candidates.NewService(candidates.NewRepository(pool), auditLogger, logger)
	ticketService := tickets.NewService(tickets.NewRepository(pool), auditLogger, logger)
	userService := users.NewService(users.NewRepository(pool), authService, auditLogger, logger)
	auditService := audit.NewService(audit.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		AuthMiddleware:    authMW,
		AuthHandler:       auth.NewHandler(logger, authService, authMW, cfg.IsProduction()),
		RolesHandler:      rbac.NewHandler(roles, rbacMW),
		UsersHandler:      users.NewHandler(logger, userService, rbacMW),
		AuditHandler:      audithttp.NewHandler(logger, auditService, rbacMW),
		CashflowHandler:   cashflow.NewHandler(logger, cashflowService, rbacMW),
		SalesHandler:      sales.NewHandler(logger, salesService, rbacMW),
		CandidatesHandler: candidates.NewHandler(logger, candidateService, rbacMW),
		TicketsHandler:    tickets.NewHandler(logger, ticketService, rbacMW),
		JobHandler:        jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
