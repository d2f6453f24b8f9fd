package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSBlobStore stores one object per content blob under an optional name
// prefix. Writes are conditional on the object not existing (blobs are
// immutable) and retried with doubling backoff.
type GCSBlobStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

const (
	gcsMaxRetries   = 4
	gcsWriteTimeout = 50 * time.Second
)

// NewGCSBlobStore wraps an existing client.
func NewGCSBlobStore(client *storage.Client, bucket, prefix string, logger *slog.Logger) *GCSBlobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSBlobStore{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

func (s *GCSBlobStore) objectName(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + "/" + id
}

func (s *GCSBlobStore) Put(ctx context.Context, id string, r io.Reader) error {
	// Buffer once so every retry writes the same content.
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob content for %s: %w", id, err)
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 1; attempt <= gcsMaxRetries; attempt++ {
		err := s.writeOnce(ctx, id, content)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn(
			"Blob upload failed, will retry.",
			"blobId", id,
			"attempt", attempt,
			"maxRetries", gcsMaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload of blob %s failed after all retries: %w", id, lastErr)
}

func (s *GCSBlobStore) writeOnce(ctx context.Context, id string, content []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	object := s.client.Bucket(s.bucket).Object(s.objectName(id))
	w := object.If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		_ = w.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			// The blob already exists; immutable content makes this a success.
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func (s *GCSBlobStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(id)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", id, err)
	}
	return r, nil
}

func (s *GCSBlobStore) Delete(ctx context.Context, id string) error {
	err := s.client.Bucket(s.bucket).Object(s.objectName(id)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}
	return nil
}

func (s *GCSBlobStore) Keys(ctx context.Context) ([]string, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		name := attrs.Name
		if s.prefix != "" {
			name = name[len(s.prefix)+1:]
		}
		keys = append(keys, name)
	}
	return keys, nil
}
