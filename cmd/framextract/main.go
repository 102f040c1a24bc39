package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/profile"
	"github.com/fiapx/fiapx-frame-extractor/pkg/extract"
	"github.com/fiapx/fiapx-frame-extractor/pkg/logger"
	"github.com/spf13/afero"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "framextract",
		Usage:     "Extract frames from a video file as images",
		ArgsUsage: "<video> <output-folder>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "interval",
				Aliases: []string{"n"},
				Usage:   "Extract every Nth frame",
				Value:   1,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output image format: jpg, png or bmp",
				Value:   "jpg",
			},
			&cli.BoolFlag{
				Name:  "compress",
				Usage: "Lower JPEG quality to shrink files (no effect on png and bmp)",
			},
			&cli.StringFlag{
				Name:  "resize",
				Usage: "Scale frames to WIDTHxHEIGHT, e.g. 640x360",
			},
			&cli.FloatFlag{
				Name:  "start",
				Usage: "Start of the extraction window in seconds",
			},
			&cli.FloatFlag{
				Name:  "end",
				Usage: "End of the extraction window in seconds",
			},
			&cli.BoolFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Usage:   "Decode and write frames on a worker pool",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Worker pool size in parallel mode (0 uses every CPU)",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "YAML file with extraction settings; flags override it",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "info",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 2 {
		return cli.Exit("usage: framextract [flags] <video> <output-folder>", 2)
	}
	videoPath, outputFolder := cmd.Args().Get(0), cmd.Args().Get(1)

	log, err := logger.New(cmd.String("log-level"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("init logger: %v", err), 2)
	}
	defer log.Sync()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	started := time.Now()
	res := extract.Extract(ctx, videoPath, outputFolder, cfg,
		extract.WithLogger(log),
		extract.WithProgress(progressReporter(log)),
	)
	if res.Err != nil {
		log.Error("extraction failed",
			zap.Error(res.Err),
			zap.Int("frames_written", res.FramesWritten),
		)
		return cli.Exit(fmt.Sprintf("extraction failed after %d frames: %v", res.FramesWritten, res.Err), 1)
	}

	log.Info("extraction finished",
		zap.Int("frames_written", res.FramesWritten),
		zap.String("output_folder", outputFolder),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// buildConfig layers defaults, then the profile file, then explicitly set flags.
func buildConfig(cmd *cli.Command) (entity.ExtractionConfig, error) {
	cfg := extract.DefaultConfig()

	if path := cmd.String("profile"); path != "" {
		p, err := profile.LoadProfile(afero.NewOsFs(), path)
		if err != nil {
			return cfg, err
		}
		if cfg, err = p.Apply(cfg); err != nil {
			return cfg, err
		}
	}

	opts := &entity.ExtractionOptions{}
	if cmd.IsSet("interval") {
		v := int(cmd.Int("interval"))
		opts.FrameInterval = &v
	}
	if cmd.IsSet("format") {
		opts.OutputFormat = cmd.String("format")
	}
	if cmd.IsSet("compress") {
		v := cmd.Bool("compress")
		opts.Compress = &v
	}
	if cmd.IsSet("resize") {
		opts.Resize = cmd.String("resize")
	}
	if cmd.IsSet("start") {
		opts.StartTime = extract.Seconds(cmd.Float("start"))
	}
	if cmd.IsSet("end") {
		opts.EndTime = extract.Seconds(cmd.Float("end"))
	}
	if cmd.IsSet("parallel") {
		v := cmd.Bool("parallel")
		opts.Parallel = &v
	}
	if cmd.IsSet("workers") {
		v := int(cmd.Int("workers"))
		opts.Workers = &v
	}
	return opts.Apply(cfg)
}

// progressReporter logs once per completed tenth of the selection.
func progressReporter(log *zap.Logger) func(written, selected int) {
	lastDecile := 0
	return func(written, selected int) {
		if selected <= 0 {
			return
		}
		decile := written * 10 / selected
		if decile <= lastDecile {
			return
		}
		lastDecile = decile
		log.Info("progress",
			zap.Int("percent", decile*10),
			zap.Int("frames_written", written),
			zap.Int("frames_selected", selected),
		)
	}
}
