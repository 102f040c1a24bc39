package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiapx_extraction_runs_total",
		Help: "Total number of extraction runs, by final status",
	}, []string{"status"})

	ExtractionStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fiapx_extraction_stage_duration_seconds",
		Help:    "Duration of extraction and job pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fiapx_frames_written_total",
		Help: "Total number of frames written across all runs",
	})

	FrameFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiapx_frame_failures_total",
		Help: "Frames that failed, by pipeline step",
	}, []string{"op"})

	ExtractionWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fiapx_extraction_workers",
		Help: "Number of frame workers currently running",
	})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiapx_jobs_processed_total",
		Help: "Total number of queued jobs processed, by status",
	}, []string{"status"})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fiapx_active_jobs",
		Help: "Number of queued jobs currently being processed",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiapx_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
