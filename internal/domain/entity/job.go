package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job tracks one queued extraction request across attempts.
type Job struct {
	ID             uuid.UUID
	UserID         string
	VideoKey       string
	ArchiveKey     string
	Status         JobStatus
	OutputFormat   OutputFormat
	FramesWritten  int
	FramesSelected int
	FileSize       int64
	VideoDuration  float64
	Attempt        int
	MaxAttempts    int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

func NewJob(userID, videoKey string, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing(format OutputFormat) {
	j.Status = JobStatusProcessing
	j.OutputFormat = format
	j.ErrorMessage = ""
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(archiveKey string, result ExtractionResult) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ArchiveKey = archiveKey
	j.FramesWritten = result.FramesWritten
	j.FramesSelected = result.Selected
	j.VideoDuration = result.Video.Duration
	j.UpdatedAt = now
	j.CompletedAt = &now
}

// MarkFailed keeps the partial frame count of the failed attempt.
func (j *Job) MarkFailed(errMsg string, framesWritten int) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.FramesWritten = framesWritten
	j.UpdatedAt = time.Now().UTC()
}

// ExhaustRetries makes the next CanRetry report false.
func (j *Job) ExhaustRetries() {
	j.Attempt = j.MaxAttempts
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

func (j *Job) StatusMessage() JobStatusMessage {
	return JobStatusMessage{
		JobID:          j.ID,
		UserID:         j.UserID,
		Status:         j.Status,
		VideoKey:       j.VideoKey,
		ArchiveKey:     j.ArchiveKey,
		FramesWritten:  j.FramesWritten,
		FramesSelected: j.FramesSelected,
		Duration:       j.VideoDuration,
		ErrorMessage:   j.ErrorMessage,
		Attempt:        j.Attempt,
		MaxAttempts:    j.MaxAttempts,
	}
}
