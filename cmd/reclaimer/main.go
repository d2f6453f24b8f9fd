package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/collector"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/config"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/gcp"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/store"
)

var (
	reclaimer *collector.Collector
	once      sync.Once
	initErr   error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ReclaimOrphans", reclaimOrphans)
}

// main is required by the Go Functions Framework.
func main() {}

func initClients(ctx context.Context) (*collector.Collector, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	fsClient, err := gcp.NewFirestoreClient(ctx, cfg.GCPProject)
	if err != nil {
		return nil, err
	}
	gcsClient, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	projects := store.NewFirestoreProjectStore(fsClient, cfg.ProjectCollection)
	blobs := store.NewGCSBlobStore(gcsClient, cfg.ContentBucket, cfg.ContentPrefix, slog.Default())
	return collector.New(projects, blobs, nil, slog.Default()), nil
}

// reclaimOrphans is the Cloud Function entry point. It runs one reachability
// pass over every persisted project; the live-session refs are empty here
// because the function has no in-process editor.
func reclaimOrphans(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		reclaimer, initErr = initClients(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var req models.ReclaimRequest
	if err := json.Unmarshal(e.Data(), &req); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	slog.Info("Reclaim pass requested.", "reason", req.Reason, "requestedAt", req.RequestedAt)

	report, err := reclaimer.Run(ctx, nil, nil)
	if err != nil {
		return err
	}
	slog.Info(
		"Reclaim pass finished.",
		"status", report.Status,
		"scannedProjects", report.ScannedProjects,
		"reachableBlobs", report.ReachableBlobs,
		"removedBlobs", report.RemovedBlobs,
	)
	return nil
}
