package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobarin/podcast/internal/models"
	"github.com/google/uuid"
)

const jobColumns = `
	id, episode_id, type, status, attempts,
	started_at, finished_at, error_message, created_at
`

func scanJob(row rowScanner, j *models.Job) error {
	return row.Scan(
		&j.ID, &j.EpisodeID, &j.Type, &j.Status, &j.Attempts,
		&j.StartedAt, &j.FinishedAt, &j.ErrorMessage, &j.CreatedAt,
	)
}

func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, episode_id, type, status, attempts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return db.QueryRowContext(ctx, query, job.ID, job.EpisodeID, job.Type, job.Status, job.Attempts).
		Scan(&job.CreatedAt)
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job := &models.Job{}
	err := scanJob(db.QueryRowContext(ctx, query, id), job)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

func (db *DB) GetEpisodeJobs(ctx context.Context, episodeID uuid.UUID) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE episode_id = $1 ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		var job models.Job
		if err := scanJob(rows, &job); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// UpdateJobStatus stamps started_at when a job starts and finished_at when it ends.
func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	query := `UPDATE jobs SET status = $1, started_at = $2, attempts = attempts + 1 WHERE id = $3`

	if status == models.JobStatusSucceeded || status == models.JobStatusFailed {
		query = `UPDATE jobs SET status = $1, finished_at = $2 WHERE id = $3`
	}

	_, err := db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (db *DB) UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, finished_at = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusFailed, errorMessage, time.Now(), id)
	return err
}
