package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GCSPhotoStore stores photos in Google Cloud Storage
type GCSPhotoStore struct {
	client        *gcs.Client
	prefix        string
	pingCountry   string
	uploadTimeout time.Duration
	logger        *zap.Logger
}

// NewGCSPhotoStore creates a GCS client. With cfg.EmulatorHost set the
// client talks to the emulator without credentials.
func NewGCSPhotoStore(ctx context.Context, cfg config.StorageConfig, defaultCountry string, logger *zap.Logger) (*GCSPhotoStore, error) {
	var opts []option.ClientOption
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSPhotoStore{
		client:        client,
		prefix:        cfg.BucketPrefix,
		pingCountry:   defaultCountry,
		uploadTimeout: cfg.UploadTimeout,
		logger:        logger.Named("gcs"),
	}, nil
}

func (s *GCSPhotoStore) Upload(ctx context.Context, country, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	bucket := BucketName(s.prefix, country)
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s/%s: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close object %s/%s: %w", bucket, key, err)
	}
	s.logger.Debug("Photo uploaded", zap.String("bucket", bucket), zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (s *GCSPhotoStore) Download(ctx context.Context, country, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", ErrKeyRequired
	}
	r, err := s.client.Bucket(BucketName(s.prefix, country)).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, "", ErrObjectNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, r.Attrs.ContentType, nil
}

func (s *GCSPhotoStore) Ping(ctx context.Context) error {
	_, err := s.client.Bucket(BucketName(s.prefix, s.pingCountry)).Attrs(ctx)
	return err
}

// Close releases the client
func (s *GCSPhotoStore) Close() error {
	return s.client.Close()
}
