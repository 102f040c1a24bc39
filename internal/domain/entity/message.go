package entity

import "github.com/google/uuid"

// ExtractionRequestMessage is the inbound message from the frames.extraction queue.
type ExtractionRequestMessage struct {
	JobID     uuid.UUID          `json:"job_id"`
	UserID    string             `json:"user_id"`
	VideoKey  string             `json:"video_key"`
	FileSize  int64              `json:"file_size"`
	UserEmail string             `json:"user_email"`
	Options   *ExtractionOptions `json:"options,omitempty"`
}

// ExtractionOptions carries per-request overrides; unset fields keep the worker defaults.
type ExtractionOptions struct {
	FrameInterval *int     `json:"frame_interval,omitempty"`
	OutputFormat  string   `json:"output_format,omitempty"`
	Compress      *bool    `json:"compress,omitempty"`
	Resize        string   `json:"resize,omitempty"`
	StartTime     *float64 `json:"start_time,omitempty"`
	EndTime       *float64 `json:"end_time,omitempty"`
	Parallel      *bool    `json:"parallel,omitempty"`
	Workers       *int     `json:"workers,omitempty"`
}

func (o *ExtractionOptions) Apply(base ExtractionConfig) (ExtractionConfig, error) {
	cfg := base
	if o == nil {
		return cfg, cfg.Validate()
	}
	if o.FrameInterval != nil {
		cfg.FrameInterval = *o.FrameInterval
	}
	if o.OutputFormat != "" {
		format, err := ParseOutputFormat(o.OutputFormat)
		if err != nil {
			return cfg, err
		}
		cfg.OutputFormat = format
	}
	if o.Compress != nil {
		cfg.Compress = *o.Compress
	}
	if o.Resize != "" {
		size, err := ParseSize(o.Resize)
		if err != nil {
			return cfg, err
		}
		cfg.Resize = &size
	}
	if o.StartTime != nil {
		cfg.StartTime = Seconds(*o.StartTime)
	}
	if o.EndTime != nil {
		cfg.EndTime = Seconds(*o.EndTime)
	}
	if o.Parallel != nil {
		cfg.Parallel = *o.Parallel
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	return cfg, cfg.Validate()
}

// JobStatusMessage is the outbound message published to the frames.status queue.
type JobStatusMessage struct {
	JobID          uuid.UUID `json:"job_id"`
	UserID         string    `json:"user_id"`
	Status         JobStatus `json:"status"`
	VideoKey       string    `json:"video_key"`
	ArchiveKey     string    `json:"archive_key,omitempty"`
	FramesWritten  int       `json:"frames_written"`
	FramesSelected int       `json:"frames_selected,omitempty"`
	Duration       float64   `json:"duration_seconds,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Attempt        int       `json:"attempt"`
	MaxAttempts    int       `json:"max_attempts"`
}
