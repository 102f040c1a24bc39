package port

import "github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"

type FrameTransformer interface {
	Transform(frame entity.DecodedFrame, cfg entity.ExtractionConfig, pad int) (entity.OutputFrame, error)
}
