package port

import (
	"context"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg entity.JobStatusMessage) error
}

// DLQPublisher parks raw messages that will never succeed.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, raw []byte, reason string) error
}
