package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/metrics"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RetryError asks the consumer to requeue the delivery.
type RetryError struct {
	Attempt     int
	MaxAttempts int
	Reason      string
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retryable failure (attempt %d/%d): %s", e.Attempt, e.MaxAttempts, e.Reason)
}

// RetryAttempt sizes the consumer backoff.
func (e *RetryError) RetryAttempt() int {
	return e.Attempt
}

// ProcessJobUseCase turns one queued extraction request into a frames
// archive in object storage.
type ProcessJobUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	extractor port.FrameExtractor
	archiver  port.Archiver
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	fs        afero.Fs
	tempDir   string
	maxRetry  int
	defaults  entity.ExtractionConfig
}

type ProcessJobConfig struct {
	TempDir    string
	MaxRetries int
	// Defaults apply to every field a request leaves unset.
	Defaults entity.ExtractionConfig
	// Fs holds the work directory; nil uses the OS filesystem.
	Fs afero.Fs
}

func NewProcessJobUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	extractor port.FrameExtractor,
	archiver port.Archiver,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessJobConfig,
) *ProcessJobUseCase {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ProcessJobUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		archiver:  archiver,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		fs:        fs,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
		defaults:  cfg.Defaults,
	}
}

// Execute returns an error only when the delivery should be retried.
func (uc *ProcessJobUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessJobUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ExtractionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	switch {
	case errors.Is(err, port.ErrJobNotFound):
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	case err != nil:
		log.Error("failed to load job record", zap.Error(err))
		return fmt.Errorf("find job: %w", err)
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded", job.FramesWritten, log)
	}

	cfg, err := msg.Options.Apply(uc.defaults)
	if err != nil {
		log.Warn("invalid extraction options", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "invalid_options: "+err.Error(), 0, log)
	}

	job.MarkProcessing(cfg.OutputFormat)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	if err := uc.processJobPipeline(ctx, job, msg, rawMsg, cfg, log); err != nil {
		return err
	}

	metrics.ExtractionStageDuration.WithLabelValues("job").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessJobUseCase) processJobPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	cfg entity.ExtractionConfig,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := uc.fs.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer uc.fs.RemoveAll(workDir)

	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(ctxDl, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), 0, log)
	}
	spanDl.End()
	metrics.ExtractionStageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	framesDir := filepath.Join(workDir, "frames")
	result := uc.extractor.Execute(ctx, videoPath, framesDir, cfg)
	if !result.OK() {
		errMsg := "extract_frames: " + result.Err.Error()
		if entity.IsPermanent(result.Err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, result.FramesWritten, log)
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, errMsg, result.FramesWritten, log)
	}

	zipStart := time.Now()
	ctxZip, spanZip := tracer.Start(ctx, "create_zip")
	zipPath := filepath.Join(workDir, "frames.zip")
	if err := uc.archiver.CreateZip(ctxZip, result.Files, zipPath); err != nil {
		spanZip.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), result.FramesWritten, log)
	}
	spanZip.End()
	metrics.ExtractionStageDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	upStart := time.Now()
	ctxUp, spanUp := tracer.Start(ctx, "upload_archive")
	archiveKey := fmt.Sprintf("%s/frames_%s.zip", msg.UserID, job.ID.String())
	if err := uc.uploadArchive(ctxUp, archiveKey, zipPath); err != nil {
		spanUp.End()
		log.Error("archive upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_archive: "+err.Error(), result.FramesWritten, log)
	}
	spanUp.End()
	metrics.ExtractionStageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(archiveKey, result)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()

	log.Info("job completed successfully",
		zap.Int("frames_written", result.FramesWritten),
		zap.Float64("duration_secs", result.Video.Duration),
		zap.String("archive_key", archiveKey),
	)
	return nil
}

func (uc *ProcessJobUseCase) uploadArchive(ctx context.Context, key, zipPath string) error {
	zipFile, err := uc.fs.Open(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zipFile.Close()

	stat, err := zipFile.Stat()
	if err != nil {
		return fmt.Errorf("stat zip: %w", err)
	}
	return uc.storage.UploadArchive(ctx, key, zipFile, stat.Size())
}

func (uc *ProcessJobUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
	framesWritten int,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg, framesWritten)
	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, framesWritten, log)
	}
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to FAILED", zap.Error(err))
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return &RetryError{Attempt: job.Attempt, MaxAttempts: job.MaxAttempts, Reason: errMsg}
}

// handlePermanentFailure parks the message and acks it.
func (uc *ProcessJobUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
	framesWritten int,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg, framesWritten)
	job.ExhaustRetries()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to FAILED", zap.Error(err))
	}

	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}

	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		if err := uc.notifier.NotifyFailure(ctx, msg.UserEmail, job); err != nil {
			log.Warn("failure notification not sent", zap.Error(err))
		}
	}
	return nil
}

func (uc *ProcessJobUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	if err := uc.publisher.PublishStatus(ctx, job.StatusMessage()); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
