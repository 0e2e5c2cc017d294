package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradematch_backend/internal/adapters"
	"tradematch_backend/internal/credits"
	"tradematch_backend/internal/distribution"
	"tradematch_backend/internal/events"
	"tradematch_backend/internal/leads"
	"tradematch_backend/internal/scheduler"
	"tradematch_backend/platform/config"
	"tradematch_backend/platform/db"
	"tradematch_backend/platform/logger"
	"tradematch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// The worker reuses the same module wiring as the API so the sweep and
	// reconcile jobs run the exact code paths the handlers do.
	leadsModule := leads.NewModule(pool, eventBus, cfg, val, log)
	creditsModule := credits.NewModule(pool, eventBus, log, val)
	ledger := adapters.NewCreditsLedger(creditsModule.Repository(), eventBus)
	spendGuard := adapters.NewCreditsSpendGuard(creditsModule.Repository())
	leadReader := adapters.NewLeadsReader(leadsModule.Service())
	distributionModule := distribution.NewModule(
		pool, eventBus, cfg, ledger, spendGuard, leadReader, val, log)

	worker, err := scheduler.NewWorker(cfg, distributionModule.Service(), creditsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("scheduler worker running",
		"queue", cfg.AsynqQueueName,
		"sweepInterval", cfg.ExpireSweepInterval.String(),
		"reconcileInterval", cfg.ReconcileInterval.String())
	if err := worker.Run(ctx); err != nil {
		log.Error("scheduler worker exited", "error", err)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
