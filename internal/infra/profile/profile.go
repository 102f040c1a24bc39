// Package profile loads named extraction presets from YAML files, e.g.
//
//	frame_interval: 30
//	output_format: png
//	resize: {width: 640, height: 360}
//	start_time: 1.5
//	parallel: true
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Profile fields left out of the file keep the caller's values.
type Profile struct {
	FrameInterval *int         `yaml:"frame_interval"`
	OutputFormat  string       `yaml:"output_format"`
	Compress      *bool        `yaml:"compress"`
	Resize        *entity.Size `yaml:"resize"`
	StartTime     *float64     `yaml:"start_time"`
	EndTime       *float64     `yaml:"end_time"`
	Parallel      *bool        `yaml:"parallel"`
	Workers       *int         `yaml:"workers"`
}

func LoadProfile(fs afero.Fs, path string) (Profile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Parse rejects unknown keys so typos do not silently fall back to defaults.
func Parse(data []byte) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("%w: parse yaml: %v", entity.ErrInvalidConfig, err)
	}
	return p, nil
}

func (p Profile) Options() *entity.ExtractionOptions {
	opts := &entity.ExtractionOptions{
		FrameInterval: p.FrameInterval,
		OutputFormat:  p.OutputFormat,
		Compress:      p.Compress,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		Parallel:      p.Parallel,
		Workers:       p.Workers,
	}
	if p.Resize != nil {
		opts.Resize = p.Resize.String()
	}
	return opts
}

// Apply overlays the profile on base and validates the result.
func (p Profile) Apply(base entity.ExtractionConfig) (entity.ExtractionConfig, error) {
	return p.Options().Apply(base)
}
