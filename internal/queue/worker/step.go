package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rmendes/userhub/internal/jobs"
	"github.com/rmendes/userhub/internal/notifications"
)

// ProcessOne claims and executes a single job. The bool reports whether a
// job was available; callers loop while it is true.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	w.stats.IncClaimed()
	start := time.Now()

	err = w.execute(ctx, j)

	dur := time.Since(start)
	w.stats.ObserveDuration(dur)

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.observeResult(j, dur, result)
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.stats.IncDone()
	w.observeResult(j, dur, "done")
	w.log.Info("job done", "job_id", j.ID, "job_type", string(j.Type), "attempts", j.Attempts)

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	switch j.Type {
	case jobs.JobSendPasswordReset:
		decoded, err := jobs.DecodePayload(j)

		if err != nil {
			return err
		}

		p, ok := decoded.(jobs.SendPasswordResetPayload)

		if !ok {
			return fmt.Errorf("%w: %s", jobs.ErrPayloadTypeMismatch, j.Type)
		}

		if w.notifier == nil {
			return errors.New("no notifier configured")
		}

		err = w.notifier.SendPasswordReset(ctx, notifications.SendPasswordResetInput{
			Email: p.Email,
			Name:  p.Name,
			Token: p.Token,
		})

		w.observeSend(err)
		return err

	default:
		return fmt.Errorf("%w: %s", jobs.ErrInvalidJobType, j.Type)
	}
}

// handleFailure decides between a retry and a terminal failure. Payload and
// type errors never retry; they cannot succeed on a second attempt.
func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error) string {
	permanent := errors.Is(cause, jobs.ErrInvalidJobType) ||
		errors.Is(cause, jobs.ErrInvalidJobPayload) ||
		errors.Is(cause, jobs.ErrPayloadTypeMismatch)

	attempts := j.Attempts + 1

	if permanent || attempts >= j.MaxTries {
		w.stats.IncFailed()
		w.log.Error("job failed",
			"job_id", j.ID,
			"job_type", string(j.Type),
			"attempts", attempts,
			"permanent", permanent,
			"error", cause,
		)

		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			w.log.Error("mark failed", "job_id", j.ID, "error", err)
		}

		return "failed"
	}

	delay := ExponentialBackoff(attempts)
	runAt := time.Now().UTC().Add(delay)

	w.stats.IncRetried()
	w.log.Warn("job rescheduled",
		"job_id", j.ID,
		"job_type", string(j.Type),
		"attempts", attempts,
		"next_run_in", delay.String(),
		"error", cause,
	)

	if err := w.repo.Reschedule(ctx, j.ID, attempts, runAt, cause.Error()); err != nil {
		w.log.Error("reschedule", "job_id", j.ID, "error", err)
	}

	return "retry"
}

func (w *Worker) observeSend(err error) {
	if w.metrics == nil {
		return
	}

	outcome := "ok"

	switch {
	case errors.Is(err, notifications.ErrCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}

	w.metrics.NotificationsTotal.WithLabelValues(outcome).Inc()
}

func (w *Worker) observeResult(j jobs.Job, dur time.Duration, result string) {
	if w.metrics == nil {
		return
	}

	w.metrics.JobResults.WithLabelValues(string(j.Type), result).Inc()
	w.metrics.JobDuration.WithLabelValues(string(j.Type), result).Observe(dur.Seconds())
}
