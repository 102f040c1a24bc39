package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	ffgo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

func init() {
	ffgo.LogCompiledCommand = false
}

// forwardSeconds is how far ahead of the stream cursor a request may be
// before the decoder seeks instead of reading through.
const forwardSeconds = 2

type Source struct {
	logger *zap.Logger
}

func NewSource(logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{logger: logger}
}

func (s *Source) Open(ctx context.Context, path string) (port.VideoHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrSourceUnavailable, path, err)
	}

	raw, err := ffgo.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe %s: %v", entity.ErrSourceUnavailable, path, err)
	}
	info, err := parseProbe(path, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrSourceUnavailable, path, err)
	}

	s.logger.Debug("video opened",
		zap.String("path", path),
		zap.Float64("fps", info.FrameRate),
		zap.Int("total_frames", info.TotalFrames),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
	)

	return &Handle{
		info:         info,
		frameSize:    info.Width * info.Height * 3,
		forwardLimit: int(forwardSeconds*info.FrameRate) + 1,
		logger:       s.logger.With(zap.String("path", path)),
	}, nil
}

// Handle decodes frames of one video through a single ffmpeg rawvideo pipe.
// Reads are serialized; open one Handle per goroutine for parallel decoding.
type Handle struct {
	info         entity.VideoInfo
	frameSize    int
	forwardLimit int
	logger       *zap.Logger

	mu     sync.Mutex
	stream *decodeStream
	closed bool
}

type decodeStream struct {
	cmd    *exec.Cmd
	pipe   io.ReadCloser
	stderr *bytes.Buffer
	next   int
}

func (h *Handle) Info() entity.VideoInfo {
	return h.info
}

func (h *Handle) FrameAt(ctx context.Context, index int) (entity.DecodedFrame, error) {
	if index < 0 || index >= h.info.TotalFrames {
		return entity.DecodedFrame{}, &entity.FrameError{
			Index: index,
			Op:    "decode",
			Err:   fmt.Errorf("%w: valid range is [0, %d)", entity.ErrIndexOutOfRange, h.info.TotalFrames),
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return entity.DecodedFrame{}, &entity.FrameError{Index: index, Op: "decode", Err: errors.New("handle closed")}
	}

	if h.stream == nil || index < h.stream.next || index-h.stream.next > h.forwardLimit {
		if err := h.restart(index); err != nil {
			return entity.DecodedFrame{}, h.decodeError(index, err)
		}
	}

	for h.stream.next < index {
		if err := ctx.Err(); err != nil {
			return entity.DecodedFrame{}, err
		}
		if _, err := io.CopyN(io.Discard, h.stream.pipe, int64(h.frameSize)); err != nil {
			return entity.DecodedFrame{}, h.decodeError(index, err)
		}
		h.stream.next++
	}

	buf := make([]byte, h.frameSize)
	if _, err := io.ReadFull(h.stream.pipe, buf); err != nil {
		return entity.DecodedFrame{}, h.decodeError(index, err)
	}
	h.stream.next++

	return entity.DecodedFrame{
		Index:     index,
		Timestamp: h.info.Timestamp(index),
		Image:     rgb24ToRGBA(buf, h.info.Width, h.info.Height),
	}, nil
}

// restart starts a fresh decode positioned at index. Input seeking is
// accurate: ffmpeg drops frames before -ss, and the half-frame offset keeps
// frame index-1 out while keeping frame index in.
func (h *Handle) restart(index int) error {
	h.stopStream()

	inputArgs := ffgo.KwArgs{}
	if index > 0 {
		seek := (float64(index) - 0.5) / h.info.FrameRate
		inputArgs["ss"] = strconv.FormatFloat(seek, 'f', 6, 64)
	}

	cmd := ffgo.Input(h.info.Path, inputArgs).
		Output("pipe:", ffgo.KwArgs{
			"format":   "rawvideo",
			"pix_fmt":  "rgb24",
			"s":        fmt.Sprintf("%dx%d", h.info.Width, h.info.Height),
			"vsync":    "passthrough",
			"map":      "0:v:0",
			"loglevel": "error",
		}).
		Compile()

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	h.logger.Debug("decoder started", zap.Int("index", index))
	h.stream = &decodeStream{cmd: cmd, pipe: pipe, stderr: stderr, next: index}
	return nil
}

func (h *Handle) decodeError(index int, err error) error {
	var stderr *bytes.Buffer
	if h.stream != nil {
		stderr = h.stream.stderr
	}
	// The pipe position is unknown after a failed read. Wait in stopStream
	// also finishes copying stderr, so it is safe to read afterwards.
	h.stopStream()
	if stderr != nil && stderr.Len() > 0 {
		err = fmt.Errorf("%v (ffmpeg: %s)", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return &entity.FrameError{Index: index, Op: "decode", Err: fmt.Errorf("%w: %v", entity.ErrDecodeFailure, err)}
}

func (h *Handle) stopStream() {
	if h.stream == nil {
		return
	}
	_ = h.stream.pipe.Close()
	if h.stream.cmd.Process != nil {
		_ = h.stream.cmd.Process.Kill()
	}
	_ = h.stream.cmd.Wait()
	h.stream = nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.stopStream()
	return nil
}

func rgb24ToRGBA(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for src, dst := 0, 0; src+2 < len(buf); src, dst = src+3, dst+4 {
		img.Pix[dst] = buf[src]
		img.Pix[dst+1] = buf[src+1]
		img.Pix[dst+2] = buf[src+2]
		img.Pix[dst+3] = 0xff
	}
	return img
}
