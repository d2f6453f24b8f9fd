// Package collector reclaims content blobs no longer reachable from any
// project state.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/store"
)

// CacheEvictor lets the collector drop staged copies of reclaimed blobs.
type CacheEvictor interface {
	Evict(id string)
}

const defaultDeleteConcurrency = 8

// Collector computes the reachable blob set across all persisted projects
// plus the live session, then removes every blob outside it. A blob is
// reachable if any page references it, any project lists it as active, or
// any history entry could restore a page from it.
type Collector struct {
	projects    store.ProjectStore
	blobs       store.BlobStore
	cache       CacheEvictor
	logger      *slog.Logger
	concurrency int

	running atomic.Bool
}

// New creates a collector. cache may be nil.
func New(projects store.ProjectStore, blobs store.BlobStore, cache CacheEvictor, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		projects:    projects,
		blobs:       blobs,
		cache:       cache,
		logger:      logger,
		concurrency: defaultDeleteConcurrency,
	}
}

// Run executes one collection pass. live carries the in-memory state of the
// current session, if any; liveRefs carries the blob ids referenced by its
// live history, which may be richer than what has been persisted. If a pass
// is already in flight the new request is dropped and the report says so.
func (c *Collector) Run(ctx context.Context, live *models.ProjectState, liveRefs []string) (*models.ReclaimReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Info("Reclaim pass already in flight, dropping request.")
		return &models.ReclaimReport{Status: "skipped"}, nil
	}
	defer c.running.Store(false)

	reachable := make(map[string]struct{})
	if live != nil {
		addStateRefs(reachable, live)
	}
	for _, id := range liveRefs {
		if id != "" {
			reachable[id] = struct{}{}
		}
	}

	states, err := c.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for reclaim pass: %w", err)
	}
	// The live session's persisted snapshot also contributes refs. A crash
	// before the next save must not lose blobs only the snapshot pins.
	for _, state := range states {
		addStateRefs(reachable, state)
	}

	keys, err := c.blobs.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs for reclaim pass: %w", err)
	}

	var orphans []string
	for _, key := range keys {
		if _, ok := reachable[key]; !ok {
			orphans = append(orphans, key)
		}
	}

	removed, err := c.removeOrphans(ctx, orphans)
	report := &models.ReclaimReport{
		Status:          "completed",
		ScannedProjects: len(states),
		ReachableBlobs:  len(reachable),
		RemovedBlobs:    removed,
	}
	if err != nil {
		report.Status = "partial"
		c.logger.Error("Reclaim pass finished with errors.", "removedBlobs", removed, "error", err)
		return report, err
	}
	c.logger.Info(
		"Reclaim pass completed.",
		"scannedProjects", report.ScannedProjects,
		"reachableBlobs", report.ReachableBlobs,
		"removedBlobs", report.RemovedBlobs,
	)
	return report, nil
}

func (c *Collector) removeOrphans(ctx context.Context, orphans []string) (int, error) {
	var removed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, id := range orphans {
		g.Go(func() error {
			if err := c.blobs.Delete(gctx, id); err != nil {
				return fmt.Errorf("failed to remove orphaned blob %s: %w", id, err)
			}
			if c.cache != nil {
				c.cache.Evict(id)
			}
			removed.Add(1)
			c.logger.Debug("Removed orphaned blob.", "blobId", id)
			return nil
		})
	}
	err := g.Wait()
	return int(removed.Load()), err
}

// addStateRefs folds every blob reference in one project state into the
// reachable set: active sources, page map entries, and the persisted
// history payload trees.
func addStateRefs(reachable map[string]struct{}, state *models.ProjectState) {
	for _, id := range state.ActiveSourceIDs {
		if id != "" {
			reachable[id] = struct{}{}
		}
	}
	for _, source := range state.Sources {
		if source.ID != "" {
			reachable[source.ID] = struct{}{}
		}
	}
	for _, page := range state.PageMap {
		if page.SourceFileID != "" {
			reachable[page.SourceFileID] = struct{}{}
		}
	}
	for _, sc := range state.History {
		scanPayload(reachable, sc.Payload)
	}
}

// scanPayload walks a persisted payload tree collecting source file ids. The
// walk is generic so entries written by newer or unknown command types still
// pin their content. Two shapes count as references: a "sourceFileId" string
// field, and an "id" string inside a "sourceFile" object.
func scanPayload(reachable map[string]struct{}, node any) {
	switch v := node.(type) {
	case map[string]any:
		if id, ok := v["sourceFileId"].(string); ok && id != "" {
			reachable[id] = struct{}{}
		}
		if sf, ok := v["sourceFile"].(map[string]any); ok {
			if id, ok := sf["id"].(string); ok && id != "" {
				reachable[id] = struct{}{}
			}
		}
		for _, child := range v {
			scanPayload(reachable, child)
		}
	case []any:
		for _, child := range v {
			scanPayload(reachable, child)
		}
	}
}
