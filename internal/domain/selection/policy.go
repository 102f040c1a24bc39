// Package selection maps an extraction window and stride onto frame indices.
package selection

import (
	"fmt"
	"math"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

// epsilon absorbs float error in seconds*fps products such as 0.1*30.
const epsilon = 1e-9

// Bounds returns the half-open index range [startIndex, endIndex) covered by
// the window. Both ends are clamped to [0, totalFrames] before conversion, so
// out-of-range or non-finite times never overflow.
func Bounds(totalFrames int, frameRate float64, start, end *float64) (int, int) {
	total := float64(totalFrames)

	startIndex := 0
	if start != nil {
		s := math.Floor(*start*frameRate + epsilon)
		switch {
		case !(s < total):
			startIndex = totalFrames
		case s > 0:
			startIndex = int(s)
		}
	}

	endIndex := totalFrames
	if end != nil {
		e := math.Ceil(*end*frameRate - epsilon)
		switch {
		case e < 0:
			endIndex = 0
		case e < total:
			endIndex = int(e)
		}
	}
	return startIndex, endIndex
}

// Select returns the ascending frame indices to extract. An empty window
// yields an empty, non-nil slice.
func Select(totalFrames int, frameRate float64, interval int, start, end *float64) ([]int, error) {
	n, err := Count(totalFrames, frameRate, interval, start, end)
	if err != nil {
		return nil, err
	}

	startIndex, _ := Bounds(totalFrames, frameRate, start, end)
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		indices = append(indices, startIndex+i*interval)
	}
	return indices, nil
}

// Count is len(Select(...)) without allocating.
func Count(totalFrames int, frameRate float64, interval int, start, end *float64) (int, error) {
	if interval < 1 {
		return 0, fmt.Errorf("%w: frame interval must be >= 1, got %d", entity.ErrInvalidConfig, interval)
	}
	if frameRate <= 0 || math.IsNaN(frameRate) || math.IsInf(frameRate, 0) {
		return 0, fmt.Errorf("%w: frame rate must be positive, got %g", entity.ErrInvalidConfig, frameRate)
	}

	startIndex, endIndex := Bounds(totalFrames, frameRate, start, end)
	if startIndex >= endIndex || startIndex >= totalFrames {
		return 0, nil
	}
	return (endIndex - startIndex + interval - 1) / interval, nil
}

// FromConfig selects indices for cfg against the probed video.
func FromConfig(info entity.VideoInfo, cfg entity.ExtractionConfig) ([]int, error) {
	return Select(info.TotalFrames, info.FrameRate, cfg.FrameInterval, cfg.StartTime, cfg.EndTime)
}

// PadWidth is the zero-padding used in frame filenames: at least 6 digits,
// more when the video has more frames than that.
func PadWidth(totalFrames int) int {
	width := len(fmt.Sprint(totalFrames - 1))
	if width < 6 {
		return 6
	}
	return width
}
