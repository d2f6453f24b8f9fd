// Package loader resolves source file ids to decoded PDF handles, and
// imports new source files into blob storage.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/store"
)

// Handle is a decoded source file staged on local disk.
type Handle struct {
	SourceFileID string
	Path         string
	PageCount    int
}

// Loader downloads blobs into a temp directory on first use and caches the
// handles. The reachability collector evicts entries for reclaimed blobs.
type Loader struct {
	blobs  store.BlobStore
	logger *slog.Logger

	mu    sync.Mutex
	dir   string
	cache map[string]*Handle
}

// New creates a loader with a fresh staging directory.
func New(blobs store.BlobStore, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := os.MkdirTemp("", "fluxpdf-cache-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	return &Loader{blobs: blobs, logger: logger, dir: dir, cache: map[string]*Handle{}}, nil
}

// Load returns the decoded handle for a source file id, fetching and
// validating the blob on a cache miss.
func (l *Loader) Load(ctx context.Context, id string) (*Handle, error) {
	l.mu.Lock()
	if h, ok := l.cache[id]; ok {
		l.mu.Unlock()
		return h, nil
	}
	l.mu.Unlock()

	path := filepath.Join(l.dir, id+".pdf")
	if err := l.stageBlob(ctx, id, path); err != nil {
		return nil, err
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count for %s: %w", id, err)
	}
	h := &Handle{SourceFileID: id, Path: path, PageCount: pageCount}

	l.mu.Lock()
	l.cache[id] = h
	l.mu.Unlock()
	l.logger.Debug("Staged source file.", "sourceFileId", id, "pageCount", pageCount)
	return h, nil
}

func (l *Loader) stageBlob(ctx context.Context, id, destPath string) error {
	r, err := l.blobs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch blob %s: %w", id, err)
	}
	defer r.Close()
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create staging file for %s: %w", id, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to copy blob %s to staging file: %w", id, err)
	}
	return nil
}

// Evict drops the cached handle and staged file for one source id.
func (l *Loader) Evict(id string) {
	l.mu.Lock()
	h, ok := l.cache[id]
	if ok {
		delete(l.cache, id)
	}
	l.mu.Unlock()
	if ok {
		_ = os.Remove(h.Path)
	}
}

// EvictAll clears the whole cache.
func (l *Loader) EvictAll() {
	l.mu.Lock()
	handles := l.cache
	l.cache = map[string]*Handle{}
	l.mu.Unlock()
	for _, h := range handles {
		_ = os.Remove(h.Path)
	}
}

// CachedIDs returns the ids currently staged.
func (l *Loader) CachedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.cache))
	for id := range l.cache {
		ids = append(ids, id)
	}
	return ids
}

// Close removes the staging directory.
func (l *Loader) Close() error {
	l.mu.Lock()
	l.cache = map[string]*Handle{}
	dir := l.dir
	l.mu.Unlock()
	return os.RemoveAll(dir)
}

// Import validates and optimizes a local PDF, uploads it as a new content
// blob, and returns the source file record. The staged optimized copy stays
// cached under the new id.
func (l *Loader) Import(ctx context.Context, path, name string) (models.SourceFile, error) {
	logCtx := l.logger.With("path", path, "name", name)

	hash, err := fileHash(path)
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to calculate file hash: %w", err)
	}

	id := models.NewID()
	optimized := filepath.Join(l.dir, id+".pdf")
	if err := optimizePDF(path, optimized); err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to get page count: %w", err)
	}
	info, err := os.Stat(optimized)
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to stat optimized PDF: %w", err)
	}

	f, err := os.Open(optimized)
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to open optimized PDF: %w", err)
	}
	defer f.Close()
	if err := l.blobs.Put(ctx, id, f); err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to upload blob %s: %w", id, err)
	}

	l.mu.Lock()
	l.cache[id] = &Handle{SourceFileID: id, Path: optimized, PageCount: pageCount}
	l.mu.Unlock()

	logCtx.Info("Imported source file.", "sourceFileId", id, "pageCount", pageCount, "fileHash", hash)
	return models.SourceFile{
		ID:        id,
		Name:      name,
		Hash:      hash,
		PageCount: pageCount,
		Size:      info.Size(),
	}, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func fileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
