// Package session ties a document, its history and the stores together into
// the editing surface the application drives.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/command"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/history"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/loader"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/store"
)

// Session is the single-writer editing surface for one project. Every edit
// goes through the history manager so it can be undone, serialized and
// scanned for content references.
type Session struct {
	mu        sync.Mutex
	projectID string
	doc       *document.Document
	history   *history.Manager
	registry  *command.Registry
	migrator  *command.Migrator
	projects  store.ProjectStore
	loader    *loader.Loader
	logger    *slog.Logger
	onChange  func()
	restoring bool
}

// New creates a session for projectID. loader may be nil when the caller
// never imports files through the session.
func New(projectID string, projects store.ProjectStore, ldr *loader.Loader, historyLimit int, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("projectId", projectID)
	doc := document.New()
	s := &Session{
		projectID: projectID,
		doc:       doc,
		history:   history.NewManager(doc, historyLimit, logger),
		registry:  command.NewRegistry(logger),
		migrator:  command.NewMigrator(),
		projects:  projects,
		loader:    ldr,
		logger:    logger,
	}
	s.history.SetOnChange(s.notifyChange)
	return s
}

// SetOnChange installs the change listener, typically the autosave
// orchestrator's Notify. Restores do not fire it.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Session) notifyChange() {
	if s.restoring {
		return
	}
	if s.onChange != nil {
		s.onChange()
	}
}

// Migrator exposes the command migrator so callers can register upgrade
// steps before the first Restore.
func (s *Session) Migrator() *command.Migrator { return s.migrator }

// Document returns the live document. Callers must treat it as read-only;
// all mutation goes through commands.
func (s *Session) Document() *document.Document { return s.doc }

// History exposes undo/redo state for UI wiring.
func (s *Session) History() *history.Manager { return s.history }

// AddPages appends pages drawn from source, registering the source if the
// document does not hold it yet.
func (s *Session) AddPages(source models.SourceFile, pages []models.PageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewAddPages(source, pages))
}

// ImportAndAddPages imports a local PDF into blob storage and appends all of
// its pages as one undoable step.
func (s *Session) ImportAndAddPages(ctx context.Context, path, name string) (models.SourceFile, error) {
	if s.loader == nil {
		return models.SourceFile{}, fmt.Errorf("session has no loader, cannot import %s", path)
	}
	source, err := s.loader.Import(ctx, path, name)
	if err != nil {
		return models.SourceFile{}, err
	}

	pages := make([]models.PageEntry, 0, source.PageCount)
	for i := 0; i < source.PageCount; i++ {
		pages = append(pages, models.PageEntry{
			ID:           models.NewID(),
			Kind:         models.PageKindContent,
			SourceFileID: source.ID,
			SourceIndex:  i,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.history.ExecuteBatch([]command.Command{
		command.NewAddSource(source),
		command.NewAddPages(source, pages),
	}, fmt.Sprintf("Import %s", name))
	if err != nil {
		return models.SourceFile{}, err
	}
	return source, nil
}

// DeletePages removes the given pages.
func (s *Session) DeletePages(pageIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewDeletePages(pageIDs))
}

// DuplicatePages inserts a copy behind each given page.
func (s *Session) DuplicatePages(pageIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewDuplicatePages(pageIDs))
}

// ReorderPages rearranges the document into the given id order.
func (s *Session) ReorderPages(order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewReorderPages(order))
}

// RotatePages turns the given pages by delta degrees clockwise.
func (s *Session) RotatePages(pageIDs []string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewRotatePages(pageIDs, delta))
}

// ResizePages sets the target output size for the given pages. A nil size
// reverts them to their native size.
func (s *Session) ResizePages(pageIDs []string, size *models.PageSize) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewResizePages(pageIDs, size))
}

// SplitGroup inserts a divider page at the given index.
func (s *Session) SplitGroup(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewSplitGroup(index))
}

// RemoveSource removes a source file and every page drawn from it.
func (s *Session) RemoveSource(sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewRemoveSource(sourceID))
}

// AddRedaction places a redaction mark on a page.
func (s *Session) AddRedaction(pageID string, mark models.RedactionMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewAddRedaction(pageID, mark))
}

// UpdateRedaction replaces the mark identified by next.ID with next.
func (s *Session) UpdateRedaction(pageID string, next models.RedactionMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.doc.RedactionByID(pageID, next.ID)
	if !ok {
		return fmt.Errorf("redaction %s not found on page %s", next.ID, pageID)
	}
	cmd, err := command.NewUpdateRedaction(pageID, prev, next)
	if err != nil {
		return err
	}
	return s.history.Execute(cmd)
}

// DeleteRedaction removes the mark identified by markID.
func (s *Session) DeleteRedaction(pageID, markID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.doc.RedactionByID(pageID, markID)
	if !ok {
		return fmt.Errorf("redaction %s not found on page %s", markID, pageID)
	}
	return s.history.Execute(command.NewDeleteRedaction(pageID, mark))
}

// UpdateOutline replaces the outline tree.
func (s *Session) UpdateOutline(next []models.OutlineNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(command.NewUpdateOutline(s.doc.Outline(), next))
}

// Undo reverts the most recent applied edit.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Undo()
}

// Redo re-applies the most recently undone edit.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Redo()
}

// JumpTo moves the history pointer to index, undoing or redoing as needed.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.JumpTo(index)
}

// Save serializes the session into a ProjectState and persists it. It
// returns the saved state and the blob ids the live history references, for
// the post-save reclaim pass.
func (s *Session) Save(ctx context.Context) (*models.ProjectState, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	serialized, pointer, err := s.history.Serialize()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize history: %w", err)
	}
	state := &models.ProjectState{
		ID:              s.projectID,
		ActiveSourceIDs: s.doc.SourceIDs(),
		Sources:         s.doc.Sources(),
		PageMap:         s.doc.Pages(),
		History:         serialized,
		HistoryPointer:  pointer,
		HistoryTrimmed:  s.history.Trimmed(),
		OutlineTree:     s.doc.Outline(),
		UpdatedAt:       time.Now().UnixMilli(),
	}
	if err := s.projects.Put(ctx, state); err != nil {
		return nil, nil, err
	}
	s.logger.Debug("Saved project.", "pages", len(state.PageMap), "historyLen", len(state.History))
	return state, s.history.ReferencedContentIDs(), nil
}

// Restore rebuilds the session from the persisted state.
//
// When the history is complete the document is replayed from empty up to the
// saved pointer, which restores both the page map and full redo capability.
// If a replay step fails the already-applied prefix is kept and the error is
// logged. When the persisted history was trimmed, replay cannot reproduce
// the document, so the persisted snapshot is adopted as-is and the surviving
// history is rehydrated undo-only.
func (s *Session) Restore(ctx context.Context) error {
	state, err := s.projects.Get(ctx, s.projectID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring = true
	defer func() { s.restoring = false }()

	s.doc.Reset()
	target := s.history.Rehydrate(state.History, state.HistoryPointer, s.registry, s.migrator)

	if state.HistoryTrimmed {
		s.adoptSnapshot(state)
		s.history.MarkApplied(target)
		s.logger.Info("Restored project from snapshot.", "pages", s.doc.PageCount(), "historyLen", s.history.Len())
		return nil
	}

	if err := s.history.Replay(target); err != nil {
		s.logger.Error(
			"History replay failed, keeping partially restored document.",
			"pointer", s.history.Pointer(),
			"target", target,
			"error", err,
		)
		return nil
	}
	s.logger.Info("Restored project via replay.", "pages", s.doc.PageCount(), "historyLen", s.history.Len())
	return nil
}

func (s *Session) adoptSnapshot(state *models.ProjectState) {
	for _, source := range state.Sources {
		s.doc.RegisterSource(source)
	}
	s.doc.AppendPages(models.ClonePages(state.PageMap))
	s.doc.SetOutline(models.CloneOutline(state.OutlineTree))
}

// DeleteProject removes the persisted state and clears the session.
func (s *Session) DeleteProject(ctx context.Context) error {
	if err := s.projects.Delete(ctx, s.projectID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Reset()
	s.history.Clear()
	s.logger.Info("Deleted project.")
	return nil
}
