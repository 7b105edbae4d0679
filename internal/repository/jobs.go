package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/skillscribe/internal/model"
)

const jobColumns = `job_id, request_id, skill_id, file_id, file_name, file_size, file_read_token, file_write_token, job_uri, created_at`

// JobRepository keeps transcription job rows in Postgres.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository constructs a repository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// Put inserts the row or rewrites it when the job id already exists, so a
// redelivered transcription task lands on the same row.
func (r *JobRepository) Put(ctx context.Context, job model.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transcription_jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (job_id) DO UPDATE SET
			request_id = EXCLUDED.request_id,
			skill_id = EXCLUDED.skill_id,
			file_id = EXCLUDED.file_id,
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			file_read_token = EXCLUDED.file_read_token,
			file_write_token = EXCLUDED.file_write_token,
			job_uri = EXCLUDED.job_uri
	`, job.JobID, job.RequestID, job.SkillID, job.FileID, job.FileName, job.FileSize,
		job.FileReadToken, job.FileWriteToken, job.JobURI, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.JobID, err)
	}
	return nil
}

// Get returns the row for jobID or model.ErrJobNotFound.
func (r *JobRepository) Get(ctx context.Context, jobID string) (*model.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM transcription_jobs WHERE job_id=$1`, jobID)
	return loadJob(row, jobID)
}

func loadJob(row pgx.Row, jobID string) (*model.Job, error) {
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("select job %s: %w", jobID, err)
	}
	return job, nil
}

// Delete removes the row for jobID or returns model.ErrJobNotFound.
func (r *JobRepository) Delete(ctx context.Context, jobID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transcription_jobs WHERE job_id=$1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrJobNotFound, jobID)
	}
	return nil
}

// List returns up to limit rows, oldest first.
func (r *JobRepository) List(ctx context.Context, limit int) ([]model.Job, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM transcription_jobs ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var job model.Job
	err := row.Scan(&job.JobID, &job.RequestID, &job.SkillID, &job.FileID, &job.FileName, &job.FileSize,
		&job.FileReadToken, &job.FileWriteToken, &job.JobURI, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
