// Package autosave debounces document changes into persisted saves and
// follows each save with a reclaim pass.
package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// DefaultInterval is the debounce window between the last change and the
// save it triggers.
const DefaultInterval = 2 * time.Second

// SaveFunc persists the current state and returns the saved snapshot plus
// the blob ids its live history references.
type SaveFunc func(ctx context.Context) (*models.ProjectState, []string, error)

// CollectFunc runs one reclaim pass against the given live state.
type CollectFunc func(ctx context.Context, live *models.ProjectState, liveRefs []string) (*models.ReclaimReport, error)

// Orchestrator coalesces bursts of change notifications into one save.
// Collection failures are logged and do not fail the save; unreachable blobs
// stay until the next pass.
type Orchestrator struct {
	save     SaveFunc
	collect  CollectFunc
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New creates an orchestrator. collect may be nil to disable the post-save
// reclaim pass, and interval <= 0 selects DefaultInterval.
func New(save SaveFunc, collect CollectFunc, interval time.Duration, logger *slog.Logger) *Orchestrator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{save: save, collect: collect, interval: interval, logger: logger}
}

// Notify records that the document changed. The pending save, if any, is
// pushed back by one full interval.
func (o *Orchestrator) Notify() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if o.timer != nil {
		o.timer.Reset(o.interval)
		return
	}
	o.timer = time.AfterFunc(o.interval, o.fire)
}

func (o *Orchestrator) fire() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.mu.Unlock()

	if err := o.Flush(context.Background()); err != nil {
		o.logger.Error("Autosave failed.", "error", err)
	}
}

// Flush saves immediately, cancelling any pending debounce, then runs the
// reclaim pass.
func (o *Orchestrator) Flush(ctx context.Context) error {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()

	state, liveRefs, err := o.save(ctx)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	o.logger.Debug("Autosave completed.", "projectId", state.ID)

	if o.collect == nil {
		return nil
	}
	report, err := o.collect(ctx, state, liveRefs)
	if err != nil {
		o.logger.Warn("Post-save reclaim pass failed.", "projectId", state.ID, "error", err)
		return nil
	}
	o.logger.Debug(
		"Post-save reclaim pass finished.",
		"projectId", state.ID,
		"status", report.Status,
		"removedBlobs", report.RemovedBlobs,
	)
	return nil
}

// Close stops the pending save without firing it.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
