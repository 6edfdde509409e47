package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmendes/userhub/internal/jobs"
	"github.com/rmendes/userhub/internal/observability"
)

const jobColumns = `id, type, payload, status, attempts, max_tries, run_at, last_error, created_at, updated_at`

type JobsRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool) *JobsRepo {
	return &JobsRepo{pool: pool}
}

func (r *JobsRepo) WithMetrics(p *observability.Prom) *JobsRepo {
	r.metrics = p
	return r
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.metrics == nil {
		return fn()
	}

	return r.metrics.ObserveDB(op, fn)
}

func scanJob(row pgx.Row, j *jobs.Job) error {
	return row.Scan(
		&j.ID,
		&j.Type,
		&j.Payload,
		&j.Status,
		&j.Attempts,
		&j.MaxTries,
		&j.RunAt,
		&j.LastError,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
}

func (r *JobsRepo) Enqueue(ctx context.Context, j jobs.Job) error {
	return r.observe("jobs.enqueue", func() error {
		_, err := r.pool.Exec(
			ctx,
			`INSERT INTO jobs (id, type, payload, status, attempts, max_tries, run_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			j.ID, j.Type, j.Payload, j.Status, j.Attempts, j.MaxTries, j.RunAt, j.CreatedAt, j.UpdatedAt,
		)
		return err
	})
}

// ClaimNext atomically takes the oldest runnable pending job. SKIP LOCKED
// lets multiple workers poll the same table without stepping on each other.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (jobs.Job, error) {
	var j jobs.Job

	err := r.observe("jobs.claim_next", func() error {
		row := r.pool.QueryRow(
			ctx,
			`UPDATE jobs
			 SET status = 'processing', locked_by = $1, locked_at = now(), updated_at = now()
			 WHERE id = (
				SELECT id FROM jobs
				WHERE status = 'pending' AND run_at <= now()
				ORDER BY run_at
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			 )
			 RETURNING `+jobColumns,
			workerID,
		)
		return scanJob(row, &j)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobs.Job{}, jobs.ErrJobNotFound
		}

		return jobs.Job{}, err
	}

	return j, nil
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.observe("jobs.mark_done", func() error {
		_, err := r.pool.Exec(
			ctx,
			`UPDATE jobs
			 SET status = 'succeeded', locked_by = NULL, locked_at = NULL, updated_at = now()
			 WHERE id = $1`,
			id,
		)
		return err
	})
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	return r.observe("jobs.mark_failed", func() error {
		_, err := r.pool.Exec(
			ctx,
			`UPDATE jobs
			 SET status = 'failed', last_error = $2, locked_by = NULL, locked_at = NULL, updated_at = now()
			 WHERE id = $1`,
			id,
		)
		return err
	})
}

// Reschedule puts a failed attempt back to pending with a new run time.
func (r *JobsRepo) Reschedule(ctx context.Context, id string, attempts int, runAt time.Time, lastError string) error {
	return r.observe("jobs.reschedule", func() error {
		_, err := r.pool.Exec(
			ctx,
			`UPDATE jobs
			 SET status = 'pending', attempts = $2, run_at = $3, last_error = $4,
			     locked_by = NULL, locked_at = NULL, updated_at = now()
			 WHERE id = $1`,
			id, attempts, runAt, lastError,
		)
		return err
	})
}
