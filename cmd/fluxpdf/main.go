// fluxpdf is the local-mode CLI: it edits projects against the SQLite
// backend, with the same session, history and reclaim machinery the cloud
// deployment uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/autosave"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/collector"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/config"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/gcp"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/loader"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/session"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(context.Background(), logger); err != nil {
		logger.Error("Command failed.", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: fluxpdf <command> [flags]

commands:
  import   -project <id> <file.pdf>   import a PDF and append its pages
  history  -project <id>              print the undo log of a project
  gc                                  reclaim unreachable content blobs`)
}

func run(ctx context.Context, logger *slog.Logger) error {
	if len(os.Args) < 2 {
		usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", ""))
	if err != nil {
		return err
	}
	db, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch os.Args[1] {
	case "import":
		return runImport(ctx, cfg, db, logger, os.Args[2:])
	case "history":
		return runHistory(ctx, cfg, db, logger, os.Args[2:])
	case "gc":
		return runGC(ctx, cfg, db, logger)
	default:
		usage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func openSession(ctx context.Context, cfg config.Config, db *store.SQLiteStore, ldr *loader.Loader, projectID string, logger *slog.Logger) (*session.Session, error) {
	s := session.New(projectID, db, ldr, cfg.HistoryLimit, logger)
	if err := s.Restore(ctx); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		logger.Info("Starting new project.", "projectId", projectID)
	}
	return s, nil
}

func runImport(ctx context.Context, cfg config.Config, db *store.SQLiteStore, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	projectID := fs.String("project", "", "project id")
	fs.Parse(args)
	if *projectID == "" || fs.NArg() != 1 {
		return errors.New("import needs -project and exactly one PDF path")
	}
	path := fs.Arg(0)

	ldr, err := loader.New(db.Blobs(), logger)
	if err != nil {
		return err
	}
	defer ldr.Close()

	s, err := openSession(ctx, cfg, db, ldr, *projectID, logger)
	if err != nil {
		return err
	}

	// Same save pipeline as the long-running deployment: edits notify the
	// autosave orchestrator, and every save is followed by a reclaim pass.
	c := collector.New(db, db.Blobs(), ldr, logger)
	saver := autosave.New(s.Save, c.Run, cfg.AutosaveInterval, logger)
	defer saver.Close()
	s.SetOnChange(saver.Notify)

	source, err := s.ImportAndAddPages(ctx, path, filepath.Base(path))
	if err != nil {
		return err
	}
	if err := saver.Flush(ctx); err != nil {
		return err
	}
	fmt.Printf("imported %s as %s (%d pages)\n", path, source.ID, source.PageCount)
	return nil
}

func runHistory(ctx context.Context, cfg config.Config, db *store.SQLiteStore, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	projectID := fs.String("project", "", "project id")
	fs.Parse(args)
	if *projectID == "" {
		return errors.New("history needs -project")
	}

	s, err := openSession(ctx, cfg, db, nil, *projectID, logger)
	if err != nil {
		return err
	}
	for i, d := range s.History().List() {
		marker := " "
		if d.Applied {
			marker = "*"
		}
		fmt.Printf("%s %3d  %-16s %s  %s\n", marker, i, d.Type, time.UnixMilli(d.Timestamp).Format(time.RFC3339), d.Label)
	}
	return nil
}

func runGC(ctx context.Context, cfg config.Config, db *store.SQLiteStore, logger *slog.Logger) error {
	// With a workflow configured, hand the pass to the deployed reclaimer
	// instead of walking the local database.
	if cfg.ReclaimWorkflow != "" {
		execClient, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return err
		}
		defer execClient.Close()
		trigger := collector.NewWorkflowTrigger(execClient, cfg.GCPProject, cfg.ReclaimLocation, cfg.ReclaimWorkflow, logger)
		if err := trigger.Trigger(ctx, "manual", time.Now().UnixMilli()); err != nil {
			return err
		}
		fmt.Println("reclaim workflow triggered")
		return nil
	}

	c := collector.New(db, db.Blobs(), nil, logger)
	report, err := c.Run(ctx, nil, nil)
	if err != nil {
		return err
	}
	fmt.Printf("scanned %d projects, %d blobs reachable, %d removed\n",
		report.ScannedProjects, report.ReachableBlobs, report.RemovedBlobs)
	return nil
}
