package port

import (
	"context"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

// FrameExtractor runs one extraction into outputDir. Failures are reported in the result, not panicked.
type FrameExtractor interface {
	Execute(ctx context.Context, videoPath string, outputDir string, cfg entity.ExtractionConfig) entity.ExtractionResult
}
