package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"agencydesk_backend/internal/deals"
	"agencydesk_backend/internal/deals/ports"
	"agencydesk_backend/internal/email"
	apphttp "agencydesk_backend/internal/http"
	"agencydesk_backend/internal/scheduler"
	"agencydesk_backend/platform/config"
	"agencydesk_backend/platform/db"
	"agencydesk_backend/platform/events"
	"agencydesk_backend/platform/logger"
	"agencydesk_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(cfg.DatabaseURL, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	var queue *scheduler.Client
	if cfg.GetRedisURL() != "" {
		queue, err = scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			panic("failed to initialize scheduler client: " + err.Error())
		}
		defer func() { _ = queue.Close() }()
	} else {
		log.Warn("REDIS_URL not configured; background tasks disabled")
	}

	var mailer ports.MailSender
	if cfg.IsSMTPEnabled() {
		mailer = email.NewSMTPSender(cfg)
	} else {
		log.Warn("SMTP not configured; outbound replies will only be logged")
		mailer = email.NewLogSender(log)
	}

	dealsModule, err := deals.NewModule(pool, cfg, eventBus, val, log, queue, queue, mailer)
	if err != nil {
		log.Error("failed to initialize deals module", "error", err)
		panic("failed to initialize deals module: " + err.Error())
	}
	dealsModule.RegisterHandlers(eventBus)

	app := apphttp.NewApp(cfg, log, dealsModule)
	if err := app.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}

	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
