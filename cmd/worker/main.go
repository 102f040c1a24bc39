package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/infra/archive"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/config"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/email"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/filesystem"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/imaging"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/metrics"
	miniostorage "github.com/fiapx/fiapx-frame-extractor/internal/infra/minio"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/postgres"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-frame-extractor/internal/infra/tracing"
	"github.com/fiapx/fiapx-frame-extractor/internal/usecase"
	"github.com/fiapx/fiapx-frame-extractor/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	defaults, err := cfg.ExtractionDefaults()
	fatalOnErr(err, "load extraction defaults")

	log.Info("starting fiapx-frame-extractor worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing is optional; the worker runs without Jaeger.
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, tracing.ServiceName)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tracing.Shutdown(tp, log)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	err = postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir)
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      cfg.MinIOEndpoint,
		AccessKey:     cfg.MinIOAccessKey,
		SecretKey:     cfg.MinIOSecretKey,
		UseSSL:        cfg.MinIOUseSSL,
		UploadBucket:  cfg.MinIOUploadBucket,
		ArchiveBucket: cfg.MinIOArchiveBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	fs := afero.NewOsFs()
	repo := postgres.NewJobRepository(pool)
	extractor := usecase.NewExtractFramesUseCase(
		ffmpeg.NewSource(log),
		imaging.NewTransformer(),
		filesystem.NewWriterFactory(fs),
		log,
	)
	zipper := archive.NewZipCreator(fs)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	uc := usecase.NewProcessJobUseCase(
		repo, storage, extractor, zipper,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessJobConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
			Defaults:   defaults,
			Fs:         fs,
		},
	)

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQExtractionQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("worker started, consuming extraction requests",
		zap.String("queue", cfg.RabbitMQExtractionQueue),
		zap.Int("frame_interval", defaults.FrameInterval),
		zap.String("output_format", string(defaults.OutputFormat)),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	pub.Close()
	consumer.Close()
	log.Info("worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
