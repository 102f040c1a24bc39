package imaging

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

const (
	JPEGQuality         = 95
	CompressJPEGQuality = 50
)

type Transformer struct {
	filter imaging.ResampleFilter
}

func NewTransformer() *Transformer {
	return &Transformer{filter: imaging.Lanczos}
}

// Transform resizes and encodes one frame. Compress only lowers JPEG
// quality; PNG and BMP bytes do not depend on it.
func (t *Transformer) Transform(frame entity.DecodedFrame, cfg entity.ExtractionConfig, pad int) (entity.OutputFrame, error) {
	if frame.Image == nil {
		return entity.OutputFrame{}, fmt.Errorf("frame %d has no image", frame.Index)
	}

	img := frame.Image
	if cfg.Resize != nil {
		img = imaging.Resize(img, cfg.Resize.Width, cfg.Resize.Height, t.filter)
	}

	var buf bytes.Buffer
	var err error
	switch cfg.OutputFormat {
	case entity.FormatJPG:
		quality := JPEGQuality
		if cfg.Compress {
			quality = CompressJPEGQuality
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case entity.FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case entity.FormatBMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	default:
		return entity.OutputFrame{}, fmt.Errorf("%w: unsupported output format %q", entity.ErrInvalidConfig, cfg.OutputFormat)
	}
	if err != nil {
		return entity.OutputFrame{}, fmt.Errorf("encode %s: %w", cfg.OutputFormat, err)
	}

	return entity.OutputFrame{
		Index:    frame.Index,
		Filename: FrameFilename(frame.Index, pad, cfg.OutputFormat),
		Data:     buf.Bytes(),
	}, nil
}

// FrameFilename is frame_<index zero-padded to pad digits>.<ext>.
func FrameFilename(index, pad int, format entity.OutputFormat) string {
	return fmt.Sprintf("frame_%0*d.%s", pad, index, format.Extension())
}
