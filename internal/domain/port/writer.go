package port

import (
	"context"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

type FrameWriter interface {
	EnsureDir() error
	Write(ctx context.Context, frame entity.OutputFrame) (string, error)
}

// FrameWriterFactory binds a writer to one output folder.
type FrameWriterFactory interface {
	ForFolder(folder string) FrameWriter
}
