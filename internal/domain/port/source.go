package port

import (
	"context"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

type VideoSource interface {
	Open(ctx context.Context, path string) (VideoHandle, error)
}

// VideoHandle must be closed exactly once by whoever opened it.
type VideoHandle interface {
	Info() entity.VideoInfo
	FrameAt(ctx context.Context, index int) (entity.DecodedFrame, error)
	Close() error
}
