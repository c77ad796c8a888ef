package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/moments/internal/config"
)

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - ctx: context used when probing or creating remote buckets.
//   - cfg: storage configuration.
//
// Returns:
//   - ObjectStorage: initialized storage implementation.
//   - error: non-nil if the storage cannot be created.
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (ObjectStorage, error) {
	switch StorageType(strings.ToLower(cfg.Type)) {
	case "", StorageTypeLocal:
		return NewLocalStorage(cfg.UploadRoot)
	case StorageTypeS3, StorageTypeR2, StorageTypeS3Compatible:
		s3cfg := &S3Config{
			Type:      StorageType(strings.ToLower(cfg.Type)),
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
		}
		if s3cfg.Type == StorageTypeS3Compatible && cfg.Endpoint != "" {
			s3cfg.Type = detectStorageType(cfg.Endpoint)
		}
		s, err := NewS3Storage(s3cfg)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
