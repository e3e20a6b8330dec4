package storage

import (
	"context"
	"fmt"

	appconfig "github.com/softwareparlat/main/internal/config"
)

// New builds the Storage selected by cfg.Driver ("local" or "s3").
func New(ctx context.Context, cfg appconfig.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalDir, cfg.LocalURLPrefix), nil

	case "s3":
		if cfg.S3Region == "" || cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3 config missing: S3_REGION, S3_BUCKET required")
		}
		return NewS3(ctx, S3Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			Prefix:        cfg.S3Prefix,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})

	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER: %s", cfg.Driver)
	}
}
