package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the video is missing, unreadable or has no decodable video stream.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInvalidConfig is returned before any frame is processed.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrIndexOutOfRange is never expected from a correct selection and indicates a defect.
	ErrIndexOutOfRange = errors.New("frame index out of range")
	ErrDecodeFailure   = errors.New("decode failure")
	ErrWriteFailure    = errors.New("write failure")
)

// FrameError ties a failure to the frame index being processed.
type FrameError struct {
	Index int
	Op    string
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %s: %v", e.Index, e.Op, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// FailedIndex returns the frame index carried by err, if any.
func FailedIndex(err error) (int, bool) {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Index, true
	}
	return 0, false
}

// IsPermanent reports whether retrying the same request cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrSourceUnavailable)
}
