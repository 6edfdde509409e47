package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rmendes/userhub/internal/jobs"
	"github.com/rmendes/userhub/internal/notifications"
	"github.com/rmendes/userhub/internal/observability"
)

// JobsRepository is the slice of the jobs store the worker needs.
type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (jobs.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	Reschedule(ctx context.Context, id string, attempts int, runAt time.Time, lastError string) error
}

type Config struct {
	PollInterval time.Duration
	WorkerID     string
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	log      *slog.Logger
	metrics  *observability.Prom
	stats    *observability.DeliveryStats

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	if cfg.WorkerID == "" {
		host, _ := os.Hostname()
		cfg.WorkerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	return &Worker{
		cfg:   cfg,
		repo:  repo,
		log:   slog.Default(),
		stats: observability.NewDeliveryStats(),
	}
}

func (w *Worker) WithNotifier(n notifications.Notifier) *Worker {
	w.notifier = n
	return w
}

func (w *Worker) WithLogger(log *slog.Logger) *Worker {
	w.log = log
	return w
}

func (w *Worker) WithMetrics(m *observability.Prom) *Worker {
	w.metrics = m
	return w
}

func (w *Worker) Stats() observability.DeliveryStatsSnapshot {
	return w.stats.Snapshot()
}

// Run polls for claimable jobs until ctx is cancelled. Between ticks it
// drains the queue so a burst does not wait a poll interval per job.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.Info("worker started", "worker_id", w.cfg.WorkerID, "poll_interval", w.cfg.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker shutting down", "worker_id", w.cfg.WorkerID)
			return nil

		case <-ticker.C:
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("process job", "error", err)
					break
				}

				if !processed {
					break
				}

				if ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
