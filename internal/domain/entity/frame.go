package entity

import (
	"image"
	"time"

	"github.com/google/uuid"
)

type VideoInfo struct {
	Path        string
	FrameRate   float64
	TotalFrames int
	Width       int
	Height      int
	Duration    float64
}

// Timestamp is the presentation time of the frame at index.
func (v VideoInfo) Timestamp(index int) time.Duration {
	if v.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(index) / v.FrameRate * float64(time.Second))
}

type DecodedFrame struct {
	Index     int
	Timestamp time.Duration
	Image     image.Image
}

type OutputFrame struct {
	Index    int
	Filename string
	Data     []byte
}

type RunStatus string

const (
	RunStatusDone   RunStatus = "DONE"
	RunStatusFailed RunStatus = "FAILED"
)

type RunState int

const (
	RunStateIdle RunState = iota
	RunStateOpened
	RunStateSelecting
	RunStateExtracting
	RunStateDone
	RunStateFailed
)

func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "idle"
	case RunStateOpened:
		return "opened"
	case RunStateSelecting:
		return "selecting"
	case RunStateExtracting:
		return "extracting"
	case RunStateDone:
		return "done"
	case RunStateFailed:
		return "failed"
	}
	return "unknown"
}

// ExtractionResult is the outcome of one run. Err is set iff Status is
// RunStatusFailed; FramesWritten counts frames on disk either way.
type ExtractionResult struct {
	RunID         uuid.UUID
	Status        RunStatus
	State         RunState
	FramesWritten int
	Selected      int
	Files         []string
	Video         VideoInfo
	Err           error
}

func (r ExtractionResult) OK() bool {
	return r.Status == RunStatusDone
}
