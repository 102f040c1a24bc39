// Package extract writes selected frames of a video file to a folder as images.
//
// A minimal call writes every frame as JPEG:
//
//	res := extract.Extract(ctx, "clip.mp4", "frames", extract.DefaultConfig())
//	if res.Err != nil {
//		log.Fatalf("wrote %d frames before failing: %v", res.FramesWritten, res.Err)
//	}
//
// Decoding needs the ffmpeg and ffprobe executables on PATH.
package extract

import (
	"context"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/filesystem"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/imaging"
	"github.com/fiapx/fiapx-frame-extractor/internal/usecase"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type (
	Config       = entity.ExtractionConfig
	Result       = entity.ExtractionResult
	Status       = entity.RunStatus
	OutputFormat = entity.OutputFormat
	Size         = entity.Size
	FrameError   = entity.FrameError
	// VideoSource decodes frames by index; the default drives ffmpeg.
	VideoSource  = port.VideoSource
	VideoHandle  = port.VideoHandle
	VideoInfo    = entity.VideoInfo
	DecodedFrame = entity.DecodedFrame
)

const (
	Done   = entity.RunStatusDone
	Failed = entity.RunStatusFailed

	JPG = entity.FormatJPG
	PNG = entity.FormatPNG
	BMP = entity.FormatBMP
)

var (
	ErrSourceUnavailable = entity.ErrSourceUnavailable
	ErrInvalidConfig     = entity.ErrInvalidConfig
	ErrIndexOutOfRange   = entity.ErrIndexOutOfRange
	ErrDecodeFailure     = entity.ErrDecodeFailure
	ErrWriteFailure      = entity.ErrWriteFailure
)

// DefaultConfig extracts every frame of the whole video as JPEG, sequentially.
func DefaultConfig() Config {
	return entity.DefaultExtractionConfig()
}

// Seconds fills Config.StartTime and Config.EndTime.
func Seconds(v float64) *float64 {
	return entity.Seconds(v)
}

type options struct {
	logger   *zap.Logger
	fs       afero.Fs
	source   port.VideoSource
	progress usecase.ProgressFunc
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFs writes frames to fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

func WithSource(source VideoSource) Option {
	return func(o *options) { o.source = source }
}

// WithProgress registers fn to run after each written frame. Calls never overlap.
func WithProgress(fn func(written, selected int)) Option {
	return func(o *options) { o.progress = fn }
}

// Extract runs one extraction. It never panics on bad input; failures are
// reported through Result.Err with the number of frames already written.
func Extract(ctx context.Context, videoPath, outputFolder string, cfg Config, opts ...Option) Result {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.source == nil {
		o.source = ffmpeg.NewSource(o.logger)
	}

	var ucOpts []usecase.ExtractFramesOption
	if o.progress != nil {
		ucOpts = append(ucOpts, usecase.WithProgress(o.progress))
	}
	uc := usecase.NewExtractFramesUseCase(
		o.source,
		imaging.NewTransformer(),
		filesystem.NewWriterFactory(o.fs),
		o.logger,
		ucOpts...,
	)
	return uc.Execute(ctx, videoPath, outputFolder, cfg)
}
