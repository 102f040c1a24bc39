package port

import (
	"context"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, job *entity.Job) error
}
