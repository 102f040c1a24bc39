package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyFrame has enough high-frequency detail for JPEG quality to matter.
func noisyFrame(index, w, h int) entity.DecodedFrame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(index*7919 + 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{R: uint8(seed >> 24), G: uint8(x * 3), B: uint8(y * 5), A: 255})
		}
	}
	return entity.DecodedFrame{Index: index, Image: img}
}

func config(format entity.OutputFormat, compress bool, resize *entity.Size) entity.ExtractionConfig {
	cfg := entity.DefaultExtractionConfig()
	cfg.OutputFormat = format
	cfg.Compress = compress
	cfg.Resize = resize
	return cfg
}

func TestTransformResizeExactDimensions(t *testing.T) {
	tr := NewTransformer()

	for _, format := range []entity.OutputFormat{entity.FormatJPG, entity.FormatPNG, entity.FormatBMP} {
		for _, size := range []entity.Size{{Width: 32, Height: 18}, {Width: 7, Height: 50}, {Width: 128, Height: 128}} {
			out, err := tr.Transform(noisyFrame(3, 64, 48), config(format, false, &size), 6)
			require.NoError(t, err)

			img, err := imaging.Decode(bytes.NewReader(out.Data))
			require.NoError(t, err, format)
			assert.Equal(t, size.Width, img.Bounds().Dx(), format)
			assert.Equal(t, size.Height, img.Bounds().Dy(), format)
		}
	}
}

func TestTransformKeepsSourceSizeWithoutResize(t *testing.T) {
	out, err := NewTransformer().Transform(noisyFrame(0, 40, 30), config(entity.FormatPNG, false, nil), 6)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 30), img.Bounds().Size())
}

func TestTransformPNGRoundTripIsLossless(t *testing.T) {
	size := entity.Size{Width: 20, Height: 10}
	frame := noisyFrame(9, 64, 48)

	out, err := NewTransformer().Transform(frame, config(entity.FormatPNG, false, &size), 6)
	require.NoError(t, err)

	want := imaging.Resize(frame.Image, size.Width, size.Height, imaging.Lanczos)
	got, err := imaging.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)

	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			assert.Equal(t,
				color.NRGBAModel.Convert(want.At(x, y)),
				color.NRGBAModel.Convert(got.At(x, y)),
				"pixel %d,%d", x, y)
		}
	}
}

func TestTransformCompressShrinksJPEG(t *testing.T) {
	tr := NewTransformer()
	frame := noisyFrame(1, 128, 96)

	full, err := tr.Transform(frame, config(entity.FormatJPG, false, nil), 6)
	require.NoError(t, err)
	small, err := tr.Transform(frame, config(entity.FormatJPG, true, nil), 6)
	require.NoError(t, err)

	assert.Less(t, len(small.Data), len(full.Data))
}

func TestTransformCompressIgnoredForLosslessFormats(t *testing.T) {
	tr := NewTransformer()
	frame := noisyFrame(2, 48, 32)

	for _, format := range []entity.OutputFormat{entity.FormatPNG, entity.FormatBMP} {
		plain, err := tr.Transform(frame, config(format, false, nil), 6)
		require.NoError(t, err)
		compressed, err := tr.Transform(frame, config(format, true, nil), 6)
		require.NoError(t, err)

		assert.Equal(t, plain.Data, compressed.Data, format)
	}
}

func TestTransformFilename(t *testing.T) {
	out, err := NewTransformer().Transform(noisyFrame(145, 8, 8), config(entity.FormatBMP, false, nil), 6)
	require.NoError(t, err)

	assert.Equal(t, 145, out.Index)
	assert.Equal(t, "frame_000145.bmp", out.Filename)
	assert.Equal(t, "frame_0001234.png", FrameFilename(1234, 7, entity.FormatPNG))
}

func TestTransformFilenamesSortLikeIndices(t *testing.T) {
	prev := ""
	for _, idx := range []int{0, 5, 9, 10, 99, 100, 999999} {
		name := FrameFilename(idx, 6, entity.FormatJPG)
		assert.Greater(t, name, prev)
		prev = name
	}
}

func TestTransformErrors(t *testing.T) {
	tr := NewTransformer()

	_, err := tr.Transform(entity.DecodedFrame{Index: 1}, config(entity.FormatJPG, false, nil), 6)
	assert.Error(t, err)

	_, err = tr.Transform(noisyFrame(1, 4, 4), config("gif", false, nil), 6)
	assert.ErrorIs(t, err, entity.ErrInvalidConfig)
}
