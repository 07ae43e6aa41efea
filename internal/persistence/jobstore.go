package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Job status values for orchestrator_ingest_jobs.status.
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Job mirrors one row of orchestrator_ingest_jobs.
type Job struct {
	ID          string
	DocID       string
	Workspace   string
	JobType     string
	Status      string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
	Result      map[string]any
	Attempts    int
}

type JobStore struct {
	pool *pgxpool.Pool
}

func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

func (j *JobStore) Create(ctx context.Context, id, docID, workspace, jobType string) error {
	_, err := j.pool.Exec(ctx, `
INSERT INTO orchestrator_ingest_jobs (id, doc_id, workspace, job_type, status)
VALUES ($1, $2, $3, $4, $5)`, id, docID, workspace, jobType, JobQueued)
	return err
}

func (j *JobStore) Get(ctx context.Context, workspace, id string) (Job, error) {
	row := j.pool.QueryRow(ctx, `
SELECT id, doc_id, workspace, job_type, status, created_at, started_at, completed_at, error, result, attempts
FROM orchestrator_ingest_jobs WHERE id = $1 AND workspace = $2`, id, workspace)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// GetByID fetches a job by id only, without workspace scoping. Used by the
// ingest worker, which receives only {job_id, type} over the job queue and
// is a trusted internal component rather than a tenant-facing API path.
func (j *JobStore) GetByID(ctx context.Context, id string) (Job, error) {
	row := j.pool.QueryRow(ctx, `
SELECT id, doc_id, workspace, job_type, status, created_at, started_at, completed_at, error, result, attempts
FROM orchestrator_ingest_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// List returns jobs for a workspace, optionally filtered by status, newest first.
func (j *JobStore) List(ctx context.Context, workspace, status string, limit int) ([]Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `
SELECT id, doc_id, workspace, job_type, status, created_at, started_at, completed_at, error, result, attempts
FROM orchestrator_ingest_jobs WHERE workspace = $1`
	args := []any{workspace}
	if status != "" {
		query += ` AND status = $2 ORDER BY created_at DESC LIMIT $3`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2`
		args = append(args, limit)
	}
	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// MarkProcessing bumps attempts and records the start time for a redelivery
// or first delivery. attempts is the source of truth for redelivery counts
// since the job queue substrate does not track delivery counts itself.
func (j *JobStore) MarkProcessing(ctx context.Context, id string) (attempts int, err error) {
	err = j.pool.QueryRow(ctx, `
UPDATE orchestrator_ingest_jobs
SET status = $2, started_at = now(), attempts = attempts + 1
WHERE id = $1
RETURNING attempts`, id, JobProcessing).Scan(&attempts)
	return attempts, err
}

func (j *JobStore) MarkCompleted(ctx context.Context, id string, result map[string]any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = j.pool.Exec(ctx, `
UPDATE orchestrator_ingest_jobs
SET status = $2, completed_at = now(), result = $3, error = NULL
WHERE id = $1`, id, JobCompleted, payload)
	return err
}

func (j *JobStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := j.pool.Exec(ctx, `
UPDATE orchestrator_ingest_jobs
SET status = $2, completed_at = now(), error = $3
WHERE id = $1`, id, JobFailed, errMsg)
	return err
}

// Requeue resets a job back to queued so a restarted consumer group can pick
// it back up; used when a redelivered message's attempts are still under the
// max_redeliveries limit.
func (j *JobStore) Requeue(ctx context.Context, id string) error {
	_, err := j.pool.Exec(ctx, `
UPDATE orchestrator_ingest_jobs SET status = $2 WHERE id = $1`, id, JobQueued)
	return err
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var resultRaw []byte
	var errMsg *string
	if err := row.Scan(&j.ID, &j.DocID, &j.Workspace, &j.JobType, &j.Status, &j.CreatedAt, &j.StartedAt, &j.CompletedAt, &errMsg, &resultRaw, &j.Attempts); err != nil {
		return Job{}, err
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	if len(resultRaw) > 0 {
		_ = json.Unmarshal(resultRaw, &j.Result)
	}
	return j, nil
}
