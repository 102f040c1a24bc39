package config

import (
	"testing"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "frames.extraction", cfg.RabbitMQExtractionQueue)
	assert.Equal(t, "frames.status", cfg.RabbitMQStatusQueue)
	assert.Equal(t, 7, cfg.MaxRetries)

	defaults, err := cfg.ExtractionDefaults()
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultExtractionConfig(), defaults)
}

func TestLoadExtractionOverrides(t *testing.T) {
	t.Setenv("EXTRACT_FRAME_INTERVAL", "15")
	t.Setenv("EXTRACT_OUTPUT_FORMAT", "PNG")
	t.Setenv("EXTRACT_RESIZE", "320x180")
	t.Setenv("EXTRACT_PARALLEL", "true")
	t.Setenv("EXTRACT_WORKERS", "4")
	t.Setenv("WORKER_COUNT", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.WorkerCount)

	defaults, err := cfg.ExtractionDefaults()
	require.NoError(t, err)
	assert.Equal(t, 15, defaults.FrameInterval)
	assert.Equal(t, entity.FormatPNG, defaults.OutputFormat)
	assert.Equal(t, &entity.Size{Width: 320, Height: 180}, defaults.Resize)
	assert.True(t, defaults.Parallel)
	assert.Equal(t, 4, defaults.Workers)
}

func TestExtractionDefaultsRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"format":   {"EXTRACT_OUTPUT_FORMAT": "gif"},
		"resize":   {"EXTRACT_RESIZE": "wide"},
		"interval": {"EXTRACT_FRAME_INTERVAL": "0"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)

			_, err = cfg.ExtractionDefaults()
			assert.ErrorIs(t, err, entity.ErrInvalidConfig)
		})
	}
}
