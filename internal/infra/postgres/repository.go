package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO processing_jobs (
			id, user_id, video_key, archive_key, status, output_format,
			frames_written, frames_selected, file_size, video_duration,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.ArchiveKey, string(job.Status), string(job.OutputFormat),
		job.FramesWritten, job.FramesSelected, job.FileSize, job.VideoDuration,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE processing_jobs SET
			status=$2, archive_key=$3, output_format=$4, frames_written=$5,
			frames_selected=$6, video_duration=$7, attempt=$8, error_message=$9,
			updated_at=$10, completed_at=$11
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ArchiveKey, string(job.OutputFormat), job.FramesWritten,
		job.FramesSelected, job.VideoDuration, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, port.ErrJobNotFound)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, user_id, video_key, archive_key, status, output_format,
			frames_written, frames_selected, file_size, video_duration,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		FROM processing_jobs WHERE id=$1`

	job := &entity.Job{}
	var status, format string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.ArchiveKey, &status, &format,
		&job.FramesWritten, &job.FramesSelected, &job.FileSize, &job.VideoDuration,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	job.OutputFormat = entity.OutputFormat(format)
	return job, nil
}
