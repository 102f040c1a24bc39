package entity

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
)

type OutputFormat string

const (
	FormatJPG OutputFormat = "jpg"
	FormatPNG OutputFormat = "png"
	FormatBMP OutputFormat = "bmp"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	}
	return "", fmt.Errorf("%w: unsupported output format %q (jpg, png, bmp)", ErrInvalidConfig, s)
}

func (f OutputFormat) Valid() bool {
	return f == FormatJPG || f == FormatPNG || f == FormatBMP
}

func (f OutputFormat) Extension() string {
	return string(f)
}

// Size is a target frame size in pixels.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// ParseSize parses "WIDTHxHEIGHT", e.g. "640x360".
func ParseSize(s string) (Size, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("%w: invalid size format %q, want WIDTHxHEIGHT", ErrInvalidConfig, s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return Size{}, fmt.Errorf("%w: invalid width %q", ErrInvalidConfig, parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return Size{}, fmt.Errorf("%w: invalid height %q", ErrInvalidConfig, parts[1])
	}
	return Size{Width: w, Height: h}, nil
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ExtractionConfig selects and shapes the frames written by one extraction run.
// Build it from DefaultExtractionConfig and override fields.
type ExtractionConfig struct {
	// FrameInterval is the stride between extracted frame indices.
	FrameInterval int
	OutputFormat  OutputFormat
	// Compress lowers JPEG quality to shrink files. PNG and BMP output is
	// lossless and is written identically whether Compress is set or not.
	Compress bool
	// Resize scales every frame to exactly Width x Height; nil keeps the
	// source size. Aspect ratio is the caller's concern.
	Resize *Size
	// StartTime and EndTime bound the extraction window in seconds; nil
	// means the start and the end of the video respectively.
	StartTime *float64
	EndTime   *float64
	Parallel  bool
	// Workers sizes the pool in parallel mode; 0 uses runtime.NumCPU().
	Workers int
}

func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		FrameInterval: 1,
		OutputFormat:  FormatJPG,
	}
}

// Validate reports every violated constraint as a single ErrInvalidConfig.
func (c ExtractionConfig) Validate() error {
	var problems []string

	if c.FrameInterval < 1 {
		problems = append(problems, fmt.Sprintf("frame interval must be >= 1, got %d", c.FrameInterval))
	}
	if !c.OutputFormat.Valid() {
		problems = append(problems, fmt.Sprintf("unsupported output format %q (jpg, png, bmp)", c.OutputFormat))
	}
	if c.Resize != nil && (c.Resize.Width <= 0 || c.Resize.Height <= 0) {
		problems = append(problems, fmt.Sprintf("resize dimensions must be positive, got %s", c.Resize))
	}
	if c.StartTime != nil && !finite(*c.StartTime) {
		problems = append(problems, fmt.Sprintf("start time must be finite, got %g", *c.StartTime))
	} else if c.StartTime != nil && *c.StartTime < 0 {
		problems = append(problems, fmt.Sprintf("start time must be >= 0, got %g", *c.StartTime))
	}
	if c.EndTime != nil && !finite(*c.EndTime) {
		problems = append(problems, fmt.Sprintf("end time must be finite, got %g", *c.EndTime))
	} else if c.EndTime != nil && *c.EndTime < 0 {
		problems = append(problems, fmt.Sprintf("end time must be >= 0, got %g", *c.EndTime))
	}
	if c.StartTime != nil && c.EndTime != nil && *c.EndTime < *c.StartTime {
		problems = append(problems, fmt.Sprintf("end time %gs is before start time %gs", *c.EndTime, *c.StartTime))
	}
	if c.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workers cannot be negative, got %d", c.Workers))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WorkerCount is the pool size for a run selecting n frames.
func (c ExtractionConfig) WorkerCount(n int) int {
	workers := c.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if n > 0 && workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Window returns the start and end of the extraction window in seconds,
// using duration when EndTime is unset.
func (c ExtractionConfig) Window(duration float64) (float64, float64) {
	start, end := 0.0, duration
	if c.StartTime != nil {
		start = *c.StartTime
	}
	if c.EndTime != nil {
		end = *c.EndTime
	}
	return start, end
}

// Seconds is a helper for filling StartTime and EndTime.
func Seconds(v float64) *float64 {
	return &v
}
