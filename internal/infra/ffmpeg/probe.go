package ffmpeg

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseProbe turns ffprobe JSON into VideoInfo for the first video stream.
// Frame count falls back to duration*fps when the container has no nb_frames.
func parseProbe(path, raw string) (entity.VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return entity.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		return entity.VideoInfo{}, fmt.Errorf("no video stream")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return entity.VideoInfo{}, fmt.Errorf("invalid frame size %dx%d", video.Width, video.Height)
	}

	fps := parseRate(video.RFrameRate)
	if fps <= 0 {
		fps = parseRate(video.AvgFrameRate)
	}
	if fps <= 0 {
		return entity.VideoInfo{}, fmt.Errorf("invalid frame rate %q", video.RFrameRate)
	}

	duration := parseFloat(video.Duration)
	if duration <= 0 {
		duration = parseFloat(out.Format.Duration)
	}

	frames := int(parseFloat(video.NbFrames))
	if frames <= 0 {
		frames = int(math.Round(duration * fps))
	}
	if duration <= 0 {
		duration = float64(frames) / fps
	}

	return entity.VideoInfo{
		Path:        path,
		FrameRate:   fps,
		TotalFrames: frames,
		Width:       video.Width,
		Height:      video.Height,
		Duration:    duration,
	}, nil
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
