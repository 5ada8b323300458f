// Package blob stores SBOM documents and analysis output on the local
// filesystem or in Google Cloud Storage.
package blob

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
	"github.com/xkilldash9x/sbomrisk/internal/config"
)

// Backends accepted by New.
const (
	BackendFS  = "fs"
	BackendGCS = "gcs"
)

// Store is a schemas.BlobStore that owns releasable resources.
type Store interface {
	schemas.BlobStore
	Close() error
}

// New opens the backend selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case BackendFS, "":
		return NewFSStore(cfg.RootDir, logger)
	case BackendGCS:
		return NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
