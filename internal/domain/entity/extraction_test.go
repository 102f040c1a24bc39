package entity

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultExtractionConfig(t *testing.T) {
	cfg := DefaultExtractionConfig()

	assert.Equal(t, 1, cfg.FrameInterval)
	assert.Equal(t, FormatJPG, cfg.OutputFormat)
	assert.False(t, cfg.Compress)
	assert.False(t, cfg.Parallel)
	assert.Nil(t, cfg.Resize)
	assert.Nil(t, cfg.StartTime)
	assert.Nil(t, cfg.EndTime)
	assert.NoError(t, cfg.Validate())
}

func TestExtractionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExtractionConfig)
		wantErr string
	}{
		{"zero interval", func(c *ExtractionConfig) { c.FrameInterval = 0 }, "frame interval"},
		{"unknown format", func(c *ExtractionConfig) { c.OutputFormat = "gif" }, "unsupported output format"},
		{"zero width", func(c *ExtractionConfig) { c.Resize = &Size{Width: 0, Height: 10} }, "resize"},
		{"negative start", func(c *ExtractionConfig) { c.StartTime = Seconds(-1) }, "start time"},
		{"negative end", func(c *ExtractionConfig) { c.EndTime = Seconds(-2) }, "end time"},
		{"NaN start", func(c *ExtractionConfig) { c.StartTime = Seconds(math.NaN()) }, "start time must be finite"},
		{"infinite start", func(c *ExtractionConfig) { c.StartTime = Seconds(math.Inf(1)) }, "start time must be finite"},
		{"NaN end", func(c *ExtractionConfig) { c.EndTime = Seconds(math.NaN()) }, "end time must be finite"},
		{"infinite end", func(c *ExtractionConfig) { c.EndTime = Seconds(math.Inf(1)) }, "end time must be finite"},
		{"inverted window", func(c *ExtractionConfig) {
			c.StartTime = Seconds(10)
			c.EndTime = Seconds(5)
		}, "before start time"},
		{"negative workers", func(c *ExtractionConfig) { c.Workers = -1 }, "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultExtractionConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExtractionConfigValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultExtractionConfig()
	cfg.FrameInterval = 0
	cfg.OutputFormat = "tiff"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame interval")
	assert.Contains(t, err.Error(), "tiff")
}

func TestExtractionConfigEqualWindowIsValid(t *testing.T) {
	cfg := DefaultExtractionConfig()
	cfg.StartTime = Seconds(3)
	cfg.EndTime = Seconds(3)

	assert.NoError(t, cfg.Validate())
}

func TestExtractionConfigHugeFiniteTimesAreValid(t *testing.T) {
	cfg := DefaultExtractionConfig()
	cfg.StartTime = Seconds(1e20)
	cfg.EndTime = Seconds(1e21)

	assert.NoError(t, cfg.Validate())
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"jpg": FormatJPG, "JPEG": FormatJPG, " png ": FormatPNG, "bmp": FormatBMP} {
		got, err := ParseOutputFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseOutputFormat("webp")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseSize(t *testing.T) {
	size, err := ParseSize("640x360")
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 640, Height: 360}, size)
	assert.Equal(t, "640x360", size.String())

	for _, bad := range []string{"640", "ax360", "640xb", "1x2x3", ""} {
		_, err := ParseSize(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, bad)
	}
}

func TestWorkerCount(t *testing.T) {
	cfg := DefaultExtractionConfig()
	cfg.Workers = 4

	assert.Equal(t, 4, cfg.WorkerCount(100))
	assert.Equal(t, 2, cfg.WorkerCount(2))
	assert.Equal(t, 4, cfg.WorkerCount(0))

	cfg.Workers = 0
	want := runtime.NumCPU()
	assert.Equal(t, want, cfg.WorkerCount(want+10))
}

func TestWindow(t *testing.T) {
	cfg := DefaultExtractionConfig()
	start, end := cfg.Window(12.5)
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 12.5, end)

	cfg.StartTime = Seconds(1)
	cfg.EndTime = Seconds(5)
	start, end = cfg.Window(12.5)
	assert.Equal(t, 1.0, start)
	assert.Equal(t, 5.0, end)
}

func TestExtractionOptionsApply(t *testing.T) {
	interval := 5
	compress := true
	opts := &ExtractionOptions{
		FrameInterval: &interval,
		OutputFormat:  "png",
		Compress:      &compress,
		Resize:        "320x240",
		StartTime:     Seconds(1),
		EndTime:       Seconds(5),
	}

	cfg, err := opts.Apply(DefaultExtractionConfig())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.FrameInterval)
	assert.Equal(t, FormatPNG, cfg.OutputFormat)
	assert.True(t, cfg.Compress)
	assert.Equal(t, &Size{Width: 320, Height: 240}, cfg.Resize)
	assert.Equal(t, 1.0, *cfg.StartTime)
	assert.Equal(t, 5.0, *cfg.EndTime)
}

func TestExtractionOptionsApplyNilKeepsBase(t *testing.T) {
	var opts *ExtractionOptions
	base := DefaultExtractionConfig()
	base.FrameInterval = 3

	cfg, err := opts.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)
}

func TestExtractionOptionsApplyInvalid(t *testing.T) {
	zero := 0
	_, err := (&ExtractionOptions{FrameInterval: &zero}).Apply(DefaultExtractionConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = (&ExtractionOptions{Resize: "big"}).Apply(DefaultExtractionConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFrameError(t *testing.T) {
	err := fmt.Errorf("run: %w", &FrameError{Index: 42, Op: "write", Err: ErrWriteFailure})

	assert.ErrorIs(t, err, ErrWriteFailure)
	idx, ok := FailedIndex(err)
	assert.True(t, ok)
	assert.Equal(t, 42, idx)
	assert.Contains(t, err.Error(), "frame 42: write")

	_, ok = FailedIndex(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(fmt.Errorf("x: %w", ErrInvalidConfig)))
	assert.True(t, IsPermanent(fmt.Errorf("x: %w", ErrSourceUnavailable)))
	assert.False(t, IsPermanent(&FrameError{Index: 1, Op: "write", Err: ErrWriteFailure}))
}
