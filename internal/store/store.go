// Package store defines the narrow persistence contracts the engine
// consumes (project records and content blobs behind get/put/delete), plus
// the Firestore, GCS and local SQLite implementations.
package store

import (
	"context"
	"errors"
	"io"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// ErrNotFound is returned when a project or blob id is unknown to the store.
var ErrNotFound = errors.New("not found")

// ProjectStore persists one ProjectState per project. List must return every
// persisted project: the reachability collector scans all of them, not just
// the active one.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*models.ProjectState, error)
	Put(ctx context.Context, state *models.ProjectState) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.ProjectState, error)
}

// BlobStore holds opaque content blobs keyed by id. Blobs are immutable:
// Put of an existing id is a no-op, and Delete of a missing id succeeds so
// GC retries stay idempotent.
type BlobStore interface {
	Put(ctx context.Context, id string, r io.Reader) error
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
	Keys(ctx context.Context) ([]string, error)
}
