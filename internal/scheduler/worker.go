package scheduler

import (
	"context"
	"fmt"
	"time"

	"tradematch_backend/internal/credits/transport"
	"tradematch_backend/platform/config"
	"tradematch_backend/platform/logger"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// OfferSweeper flips overdue open offers to EXPIRED.
type OfferSweeper interface {
	ExpireSweep(ctx context.Context) (int, error)
}

// LedgerReconciler compares the entry log against the materialized balances.
type LedgerReconciler interface {
	Reconcile(ctx context.Context) (transport.ReconciliationResponse, error)
}

// Worker consumes the background job queue and registers the periodic
// entries that feed it.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	sweeper   OfferSweeper
	ledger    LedgerReconciler
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper OfferSweeper, ledger LedgerReconciler, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	periodic := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	if err := registerPeriodic(periodic, cfg, queue); err != nil {
		return nil, err
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		scheduler: periodic,
		mux:       mux,
		sweeper:   sweeper,
		ledger:    ledger,
		log:       log,
	}

	mux.HandleFunc(TaskExpireSweep, w.handleExpireSweep)
	mux.HandleFunc(TaskLedgerReconcile, w.handleLedgerReconcile)

	return w, nil
}

func registerPeriodic(periodic *asynq.Scheduler, cfg config.SchedulerConfig, queue string) error {
	sweepTask, err := NewExpireSweepTask(ExpireSweepPayload{EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if _, err := periodic.Register(
		everySpec(cfg.GetExpireSweepInterval(), 5*time.Minute),
		sweepTask, asynq.Queue(queue),
	); err != nil {
		return fmt.Errorf("register expire sweep: %w", err)
	}

	reconcileTask, err := NewLedgerReconcileTask(LedgerReconcilePayload{EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if _, err := periodic.Register(
		everySpec(cfg.GetReconcileInterval(), time.Hour),
		reconcileTask, asynq.Queue(queue),
	); err != nil {
		return fmt.Errorf("register ledger reconcile: %w", err)
	}
	return nil
}

func everySpec(interval, fallback time.Duration) string {
	if interval <= 0 {
		interval = fallback
	}
	return "@every " + interval.String()
}

func (w *Worker) handleExpireSweep(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseExpireSweepPayload(task); err != nil {
		return err
	}

	count, err := w.sweeper.ExpireSweep(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("offer expiry sweep completed", "expired", count)
	}
	return nil
}

func (w *Worker) handleLedgerReconcile(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseLedgerReconcilePayload(task); err != nil {
		return err
	}

	result, err := w.ledger.Reconcile(ctx)
	if err != nil {
		return err
	}
	if !result.Clean {
		w.log.Error("ledger reconciliation found mismatches", "count", len(result.Mismatches))
	}
	return nil
}

// Run starts the periodic scheduler and the worker, and blocks until the
// context is cancelled or either component fails.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
		return nil
	})

	g.Go(func() error {
		if err := w.scheduler.Run(); err != nil {
			return fmt.Errorf("periodic scheduler: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := w.server.Run(w.mux); err != nil {
			return fmt.Errorf("job server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
