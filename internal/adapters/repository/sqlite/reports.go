package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/domain/model"
)

type reports struct {
	store *Store
}

// Put implements repository.ReportStore.
func (r *reports) Put(ctx context.Context, rep *model.TrendReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, "reports", rep.ID)
		if err != nil {
			return fmt.Errorf("check report %q: %w", rep.ID, err)
		}
		if found {
			return fmt.Errorf("report %q: %w", rep.ID, repository.ErrAlreadyExists)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO reports (id, date, created_at, body) VALUES (?, ?, ?, ?)",
			rep.ID, rep.Date, formatTime(rep.CreatedAt), string(body))
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		return nil
	})
}

// Get implements repository.ReportStore.
func (r *reports) Get(ctx context.Context, id string) (*model.TrendReport, error) {
	return r.one(ctx, "SELECT body FROM reports WHERE id = ?", id)
}

// Latest implements repository.ReportStore.
func (r *reports) Latest(ctx context.Context) (*model.TrendReport, error) {
	return r.one(ctx, "SELECT body FROM reports ORDER BY created_at DESC, seq DESC LIMIT 1")
}

func (r *reports) one(ctx context.Context, query string, args ...any) (*model.TrendReport, error) {
	var body string
	err := r.store.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report: %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	var rep model.TrendReport
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &rep, nil
}

type jobs struct {
	store *Store
}

// Create implements repository.JobStore.
func (j *jobs) Create(ctx context.Context, job *model.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return j.store.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, "jobs", job.ID)
		if err != nil {
			return fmt.Errorf("check job %q: %w", job.ID, err)
		}
		if found {
			return fmt.Errorf("job %q: %w", job.ID, repository.ErrAlreadyExists)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO jobs (id, type, status, start_time, body) VALUES (?, ?, ?, ?, ?)",
			job.ID, job.Type, string(job.Status), formatTime(job.StartTime), string(body))
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return nil
	})
}

// Seal implements repository.JobStore.
func (j *jobs) Seal(ctx context.Context, id string, status model.JobStatus, result model.JobResult, reason string, end time.Time) (*model.Job, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("seal job %q as %s: %w", id, status, repository.ErrInvalidEntity)
	}
	var sealed *model.Job
	err := j.store.withTx(ctx, func(tx *sql.Tx) error {
		job, err := j.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if job.Status != model.JobRunning {
			return fmt.Errorf("job %q is %s: %w", id, job.Status, repository.ErrJobSealed)
		}
		job.Status = status
		job.Result = result
		job.FailureReason = reason
		job.EndTime = &end

		body, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		// The status guard makes a racing second seal a no-op.
		res, err := tx.ExecContext(ctx,
			"UPDATE jobs SET status = ?, body = ? WHERE id = ? AND status = ?",
			string(status), string(body), id, string(model.JobRunning))
		if err != nil {
			return fmt.Errorf("seal job %q: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("job %q: %w", id, repository.ErrJobSealed)
		}
		sealed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

// Get implements repository.JobStore.
func (j *jobs) Get(ctx context.Context, id string) (*model.Job, error) {
	return j.get(ctx, j.store.db, id)
}

func (j *jobs) get(ctx context.Context, q queryer, id string) (*model.Job, error) {
	var body string
	err := q.QueryRowContext(ctx, "SELECT body FROM jobs WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %q: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %q: %w", id, err)
	}
	var job model.Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// List implements repository.JobStore.
func (j *jobs) List(ctx context.Context, jobType string, limit int) ([]*model.Job, error) {
	query := "SELECT body FROM jobs"
	var args []any
	if jobType != "" {
		query += " WHERE type = ?"
		args = append(args, jobType)
	}
	query += " ORDER BY start_time DESC, seq DESC LIMIT ?"
	args = append(args, sqlLimit(limit))

	rows, err := j.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		var job model.Job
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}
