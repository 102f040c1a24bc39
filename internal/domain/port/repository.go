package port

import (
	"context"
	"errors"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	// FindByID returns ErrJobNotFound when no job has the given id.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}
