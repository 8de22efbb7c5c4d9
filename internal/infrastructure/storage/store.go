// Package storage keeps visit photos in one bucket per country.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/salescrm/backend/internal/domain/shared"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	// ErrObjectNotFound is returned by Download for a missing key
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrKeyRequired is returned for an empty object key
	ErrKeyRequired = errors.New("storage: object key is required")
)

// PhotoStore uploads and downloads visit photos
type PhotoStore interface {
	Upload(ctx context.Context, country, key string, data []byte, contentType string) error
	Download(ctx context.Context, country, key string) ([]byte, string, error)
	// Ping checks that the default country bucket is reachable
	Ping(ctx context.Context) error
}

// BucketName returns the bucket of a country: {prefix}-{country}
func BucketName(prefix, country string) string {
	return fmt.Sprintf("%s-%s", strings.TrimRight(prefix, "-"), shared.NormalizeCountry(country))
}

// New builds the store selected by cfg.Provider. defaultCountry names the
// bucket checked by Ping.
func New(ctx context.Context, cfg config.StorageConfig, defaultCountry string, logger *zap.Logger) (PhotoStore, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gcs":
		return NewGCSPhotoStore(ctx, cfg, defaultCountry, logger)
	case "s3":
		return NewS3PhotoStore(ctx, cfg, defaultCountry, WithLogger(logger))
	case "memory":
		logger.Warn("Using in-memory photo store; photos are lost on restart")
		return NewMemoryPhotoStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
