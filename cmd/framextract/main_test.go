package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// parseConfig runs the command with a stub action that captures buildConfig.
func parseConfig(t *testing.T, args ...string) (entity.ExtractionConfig, error) {
	t.Helper()
	var cfg entity.ExtractionConfig
	var cfgErr error
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, cfgErr = buildConfig(cmd)
		return nil
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"framextract"}, args...)))
	return cfg, cfgErr
}

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(t, "clip.mp4", "out")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultExtractionConfig(), cfg)
}

func TestBuildConfigFlags(t *testing.T) {
	cfg, err := parseConfig(t,
		"--interval", "5", "--format", "png", "--resize", "64x48",
		"--start", "1", "--end", "5", "--parallel", "--workers", "3",
		"clip.mp4", "out",
	)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.FrameInterval)
	assert.Equal(t, entity.FormatPNG, cfg.OutputFormat)
	assert.Equal(t, &entity.Size{Width: 64, Height: 48}, cfg.Resize)
	assert.Equal(t, 1.0, *cfg.StartTime)
	assert.Equal(t, 5.0, *cfg.EndTime)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, 3, cfg.Workers)
}

func TestBuildConfigFlagsOverrideProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frame_interval: 30\noutput_format: bmp\ncompress: true\n"), 0o644))

	cfg, err := parseConfig(t, "--profile", path, "--interval", "2", "clip.mp4", "out")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.FrameInterval)
	assert.Equal(t, entity.FormatBMP, cfg.OutputFormat)
	assert.True(t, cfg.Compress)
}

func TestBuildConfigFractionalWindow(t *testing.T) {
	cfg, err := parseConfig(t, "--start", "0.5", "--end", "1e20", "clip.mp4", "out")
	require.NoError(t, err)

	assert.Equal(t, 0.5, *cfg.StartTime)
	assert.Equal(t, 1e20, *cfg.EndTime)
}

func TestBuildConfigInvertedRange(t *testing.T) {
	_, err := parseConfig(t, "--start", "5", "--end", "1", "clip.mp4", "out")
	assert.ErrorIs(t, err, entity.ErrInvalidConfig)
}

func TestProgressReporterLogsEveryTenPercent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	report := progressReporter(zap.New(core))

	for i := 1; i <= 24; i++ {
		report(i, 24)
	}

	entries := logs.FilterMessage("progress").All()
	require.Len(t, entries, 10)
	assert.Equal(t, int64(10), entries[0].ContextMap()["percent"])
	assert.Equal(t, int64(100), entries[9].ContextMap()["percent"])
}
