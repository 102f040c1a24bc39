package minio

import (
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Storage struct {
	client        *miniogo.Client
	uploadBucket  string
	archiveBucket string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	UploadBucket  string
	ArchiveBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:        client,
		uploadBucket:  cfg.UploadBucket,
		archiveBucket: cfg.ArchiveBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.archiveBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// DownloadVideo copies the uploaded video to destPath on the local disk,
// where the decoder reads it.
func (s *Storage) DownloadVideo(ctx context.Context, objectKey string, destPath string) error {
	if err := s.client.FGetObject(ctx, s.uploadBucket, objectKey, destPath, miniogo.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download %s/%s: %w", s.uploadBucket, objectKey, err)
	}
	return nil
}

func (s *Storage) UploadArchive(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.archiveBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	return nil
}
