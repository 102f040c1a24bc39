package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/selection"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/metrics"
	"github.com/fiapx/fiapx-frame-extractor/internal/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProgressFunc is called after every written frame. Calls are serialized.
type ProgressFunc func(written, selected int)

type ExtractFramesUseCase struct {
	source      port.VideoSource
	transformer port.FrameTransformer
	writers     port.FrameWriterFactory
	logger      *zap.Logger
	progress    ProgressFunc
}

type ExtractFramesOption func(*ExtractFramesUseCase)

func WithProgress(fn ProgressFunc) ExtractFramesOption {
	return func(uc *ExtractFramesUseCase) {
		uc.progress = fn
	}
}

func NewExtractFramesUseCase(
	source port.VideoSource,
	transformer port.FrameTransformer,
	writers port.FrameWriterFactory,
	logger *zap.Logger,
	opts ...ExtractFramesOption,
) *ExtractFramesUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &ExtractFramesUseCase{
		source:      source,
		transformer: transformer,
		writers:     writers,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// run is the mutable state of one Execute call.
type run struct {
	cfg      entity.ExtractionConfig
	writer   port.FrameWriter
	pad      int
	selected int

	mu      sync.Mutex
	written int
	files   []string
}

func (r *run) record(path string, progress ProgressFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written++
	r.files = append(r.files, path)
	metrics.FramesWrittenTotal.Inc()
	if progress != nil {
		progress(r.written, r.selected)
	}
}

func (r *run) snapshot() (int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	files := append([]string(nil), r.files...)
	sort.Strings(files)
	return r.written, files
}

// Execute walks Idle -> Opened -> Selecting -> Extracting -> Done|Failed.
// Config and source errors fail before the output folder is touched.
func (uc *ExtractFramesUseCase) Execute(ctx context.Context, videoPath string, outputDir string, cfg entity.ExtractionConfig) entity.ExtractionResult {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractFramesUseCase.Execute")
	defer span.End()

	started := time.Now()
	result := entity.ExtractionResult{RunID: uuid.New(), State: entity.RunStateIdle}
	log := uc.logger.With(
		zap.String("run_id", result.RunID.String()),
		zap.String("video", videoPath),
		zap.String("output_dir", outputDir),
	)
	span.SetAttributes(
		attribute.String("run.id", result.RunID.String()),
		attribute.String("run.video", videoPath),
	)

	if err := cfg.Validate(); err != nil {
		return uc.fail(span, log, result, err)
	}

	openStart := time.Now()
	handle, err := uc.source.Open(ctx, videoPath)
	if err != nil {
		return uc.fail(span, log, result, fmt.Errorf("open video: %w", err))
	}
	defer func() {
		if err := handle.Close(); err != nil {
			log.Warn("failed to close video", zap.Error(err))
		}
	}()
	metrics.ExtractionStageDuration.WithLabelValues("open").Observe(time.Since(openStart).Seconds())

	info := handle.Info()
	result.Video = info
	result.State = entity.RunStateOpened

	result.State = entity.RunStateSelecting
	indices, err := selection.FromConfig(info, cfg)
	if err != nil {
		return uc.fail(span, log, result, err)
	}
	result.Selected = len(indices)

	r := &run{
		cfg:      cfg,
		writer:   uc.writers.ForFolder(outputDir),
		pad:      selection.PadWidth(info.TotalFrames),
		selected: len(indices),
	}
	if err := r.writer.EnsureDir(); err != nil {
		return uc.fail(span, log, result, err)
	}

	result.State = entity.RunStateExtracting
	from, to := cfg.Window(info.Duration)
	log.Info("extracting frames",
		zap.Float64("from_seconds", from),
		zap.Float64("to_seconds", to),
		zap.Int("selected", len(indices)),
		zap.Int("interval", cfg.FrameInterval),
		zap.String("format", string(cfg.OutputFormat)),
		zap.Bool("parallel", cfg.Parallel),
	)
	span.SetAttributes(
		attribute.Int("run.selected", len(indices)),
		attribute.Bool("run.parallel", cfg.Parallel),
	)

	extractStart := time.Now()
	if cfg.Parallel {
		err = uc.runParallel(ctx, videoPath, r, indices, log)
	} else {
		err = uc.runSequential(ctx, handle, r, indices)
	}
	metrics.ExtractionStageDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())

	result.FramesWritten, result.Files = r.snapshot()
	if err != nil {
		return uc.fail(span, log, result, err)
	}

	result.Status = entity.RunStatusDone
	result.State = entity.RunStateDone
	metrics.ExtractionRunsTotal.WithLabelValues("done").Inc()
	metrics.ExtractionStageDuration.WithLabelValues("total").Observe(time.Since(started).Seconds())
	span.SetAttributes(attribute.Int("run.frames_written", result.FramesWritten))

	log.Info("frames extraction completed",
		zap.Int("frames_written", result.FramesWritten),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result
}

func (uc *ExtractFramesUseCase) runSequential(ctx context.Context, handle port.VideoHandle, r *run, indices []int) error {
	for _, index := range indices {
		if err := ctx.Err(); err != nil {
			return cancelled(err, r)
		}
		path, err := uc.extractOne(ctx, handle, r, index)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cancelled(ctxErr, r)
			}
			return err
		}
		r.record(path, uc.progress)
	}
	return nil
}

// runParallel gives every pool worker its own handle so decoder state is
// never shared between goroutines.
func (uc *ExtractFramesUseCase) runParallel(ctx context.Context, videoPath string, r *run, indices []int, log *zap.Logger) error {
	if len(indices) == 0 {
		return nil
	}
	workers := r.cfg.WorkerCount(len(indices))
	pool := worker.NewPool[int](workers, 2*workers, log)

	setup := func(ctx context.Context, id int) (worker.Handler[int], func(), error) {
		handle, err := uc.source.Open(ctx, videoPath)
		if err != nil {
			return nil, nil, fmt.Errorf("worker %d: open video: %w", id, err)
		}
		metrics.ExtractionWorkers.Inc()
		cleanup := func() {
			metrics.ExtractionWorkers.Dec()
			if err := handle.Close(); err != nil {
				log.Warn("failed to close worker video", zap.Int("worker_id", id), zap.Error(err))
			}
		}
		handler := func(ctx context.Context, index int) error {
			path, err := uc.extractOne(ctx, handle, r, index)
			if err != nil {
				return err
			}
			r.record(path, uc.progress)
			return nil
		}
		return handler, cleanup, nil
	}

	report := pool.Run(ctx, indices, setup)

	// A cancellation that lands after the last frame is written does not fail the run.
	if err := ctx.Err(); err != nil && (report.Skipped > 0 || isContextErr(report.FirstErr)) {
		return cancelled(err, r)
	}
	if report.FirstErr != nil {
		log.Warn("parallel extraction finished with failures",
			zap.Int("processed", report.Processed),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped),
		)
		return report.FirstErr
	}
	return nil
}

func (uc *ExtractFramesUseCase) extractOne(ctx context.Context, handle port.VideoHandle, r *run, index int) (string, error) {
	frame, err := handle.FrameAt(ctx, index)
	if err != nil {
		metrics.FrameFailuresTotal.WithLabelValues("decode").Inc()
		return "", frameError(index, "decode", err)
	}

	out, err := uc.transformer.Transform(frame, r.cfg, r.pad)
	if err != nil {
		metrics.FrameFailuresTotal.WithLabelValues("transform").Inc()
		return "", frameError(index, "transform", err)
	}

	path, err := r.writer.Write(ctx, out)
	if err != nil {
		metrics.FrameFailuresTotal.WithLabelValues("write").Inc()
		return "", frameError(index, "write", err)
	}
	return path, nil
}

func (uc *ExtractFramesUseCase) fail(span trace.Span, log *zap.Logger, result entity.ExtractionResult, err error) entity.ExtractionResult {
	result.Status = entity.RunStatusFailed
	result.State = entity.RunStateFailed
	result.Err = err

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.ExtractionRunsTotal.WithLabelValues("failed").Inc()

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("frames_written", result.FramesWritten),
		zap.Int("selected", result.Selected),
	}
	if index, ok := entity.FailedIndex(err); ok {
		fields = append(fields, zap.Int("frame_index", index))
	}
	log.Error("frame extraction failed", fields...)
	return result
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func frameError(index int, op string, err error) error {
	var fe *entity.FrameError
	if errors.As(err, &fe) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &entity.FrameError{Index: index, Op: op, Err: err}
}

func cancelled(err error, r *run) error {
	written, _ := r.snapshot()
	return fmt.Errorf("extraction cancelled after %d of %d frames: %w", written, r.selected, err)
}
