package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ffgo "github.com/u2takey/ffmpeg-go"
)

const sampleProbe = `{
  "streams": [
    {"index": 0, "codec_type": "audio", "codec_name": "aac"},
    {"index": 1, "codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720,
     "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001", "nb_frames": "300", "duration": "10.010000"}
  ],
  "format": {"duration": "10.050000"}
}`

func TestParseProbe(t *testing.T) {
	info, err := parseProbe("/videos/a.mp4", sampleProbe)
	require.NoError(t, err)

	assert.Equal(t, "/videos/a.mp4", info.Path)
	assert.InDelta(t, 29.97, info.FrameRate, 0.001)
	assert.Equal(t, 300, info.TotalFrames)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.InDelta(t, 10.01, info.Duration, 1e-9)
}

func TestParseProbeFallbacks(t *testing.T) {
	raw := `{"streams":[{"codec_type":"video","width":64,"height":48,
		"r_frame_rate":"0/0","avg_frame_rate":"25/1"}],"format":{"duration":"4.0"}}`

	info, err := parseProbe("x.webm", raw)
	require.NoError(t, err)
	assert.Equal(t, 25.0, info.FrameRate)
	assert.Equal(t, 100, info.TotalFrames)
	assert.Equal(t, 4.0, info.Duration)
}

func TestParseProbeErrors(t *testing.T) {
	tests := map[string]string{
		"not json":        `ffprobe: garbage`,
		"audio only":      `{"streams":[{"codec_type":"audio"}]}`,
		"zero frame rate": `{"streams":[{"codec_type":"video","width":2,"height":2,"r_frame_rate":"0/0","avg_frame_rate":"0/0"}]}`,
		"no frame size":   `{"streams":[{"codec_type":"video","r_frame_rate":"30/1"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseProbe("x", raw)
			assert.Error(t, err)
		})
	}
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 30.0, parseRate("30/1"))
	assert.Equal(t, 12.5, parseRate("12.5"))
	assert.Equal(t, 0.0, parseRate("1/0"))
	assert.Equal(t, 0.0, parseRate(""))
}

func TestRGB24ToRGBA(t *testing.T) {
	img := rgb24ToRGBA([]byte{1, 2, 3, 4, 5, 6}, 2, 1)

	assert.Equal(t, []uint8{1, 2, 3, 255, 4, 5, 6, 255}, img.Pix)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := NewSource(nil).Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))

	assert.ErrorIs(t, err, entity.ErrSourceUnavailable)
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}
}

// makeTestVideo renders an ffmpeg test pattern with a visible frame counter.
func makeTestVideo(t *testing.T, frames, fps int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pattern.mp4")
	err := ffgo.Input(fmt.Sprintf("testsrc=size=64x48:rate=%d", fps), ffgo.KwArgs{"f": "lavfi"}).
		Output(path, ffgo.KwArgs{"frames:v": frames, "c:v": "mpeg4", "q:v": 2, "g": 10, "pix_fmt": "yuv420p"}).
		OverWriteOutput().
		Run()
	require.NoError(t, err)
	return path
}

func TestHandleDecodesFrames(t *testing.T) {
	requireFFmpeg(t)
	path := makeTestVideo(t, 60, 30)
	ctx := context.Background()

	handle, err := NewSource(nil).Open(ctx, path)
	require.NoError(t, err)
	defer handle.Close()

	info := handle.Info()
	assert.Equal(t, 30.0, info.FrameRate)
	assert.Equal(t, 60, info.TotalFrames)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 48, info.Height)

	sequential := map[int][]uint8{}
	for i := 0; i < 60; i++ {
		frame, err := handle.FrameAt(ctx, i)
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, i, frame.Index)
		assert.Equal(t, 64, frame.Image.Bounds().Dx())
		if i == 44 || i == 45 {
			sequential[i] = pixels(t, frame)
		}
	}
	assert.NotEqual(t, sequential[44], sequential[45])

	// A fresh handle reaches frame 45 by seeking and must decode the same picture.
	seeker, err := NewSource(nil).Open(ctx, path)
	require.NoError(t, err)
	defer seeker.Close()

	frame, err := seeker.FrameAt(ctx, 45)
	require.NoError(t, err)
	assert.Equal(t, sequential[45], pixels(t, frame))

	// Going backwards restarts the decoder.
	back, err := seeker.FrameAt(ctx, 44)
	require.NoError(t, err)
	assert.Equal(t, sequential[44], pixels(t, back))
}

func TestHandleIndexOutOfRange(t *testing.T) {
	requireFFmpeg(t)
	handle, err := NewSource(nil).Open(context.Background(), makeTestVideo(t, 10, 10))
	require.NoError(t, err)
	defer handle.Close()

	_, err = handle.FrameAt(context.Background(), 10)
	assert.ErrorIs(t, err, entity.ErrIndexOutOfRange)
	_, err = handle.FrameAt(context.Background(), -1)
	assert.ErrorIs(t, err, entity.ErrIndexOutOfRange)
}

func TestOpenUndecodableFile(t *testing.T) {
	requireFFmpeg(t)
	path := filepath.Join(t.TempDir(), "notes.mp4")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a video"), 0o644))

	_, err := NewSource(nil).Open(context.Background(), path)
	assert.ErrorIs(t, err, entity.ErrSourceUnavailable)
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	requireFFmpeg(t)
	handle, err := NewSource(nil).Open(context.Background(), makeTestVideo(t, 5, 5))
	require.NoError(t, err)

	_, err = handle.FrameAt(context.Background(), 0)
	require.NoError(t, err)
	assert.NoError(t, handle.Close())
	assert.NoError(t, handle.Close())

	_, err = handle.FrameAt(context.Background(), 1)
	assert.Error(t, err)
}

func pixels(t *testing.T, frame entity.DecodedFrame) []uint8 {
	t.Helper()
	b := frame.Image.Bounds()
	out := make([]uint8, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := frame.Image.At(x, y).RGBA()
			out = append(out, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return out
}
