package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// GCSStore keeps objects in a single Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	logger *zap.Logger
}

var _ Store = (*GCSStore)(nil)

// NewGCSStore connects to bucket. An empty credentialsFile uses Application
// Default Credentials. Extra client options are appended as given.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string, logger *zap.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs storage requires a bucket name")
	}
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not found at path %s: %w", credentialsFile, err)
		}
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		logger: logger.Named("blob.gcs").With(zap.String("bucket", bucket)),
	}, nil
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, translateGCSError(key, err)
	}
	return r, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.name, key, err)
	}
	// The upload is only committed by Close.
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for gs://%s/%s: %w", s.name, key, err)
	}
	s.logger.Debug("Stored object.", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func translateGCSError(key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("object %s: %w", key, schemas.ErrNotFound)
	}
	return fmt.Errorf("failed to open object %s: %w", key, err)
}
