// Package history implements the linear undo/redo log: an append-only,
// pointer-addressed stack of executed commands with atomic batching and a
// retained-length cap.
package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/command"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// DefaultMaxEntries caps the retained history length; the oldest entries are
// dropped first once exceeded.
const DefaultMaxEntries = 100

// Entry is one executed command plus the moment it entered the log.
type Entry struct {
	Command   command.Command
	Timestamp int64
}

// Descriptor is the read-only view of an entry handed to the UI layer.
type Descriptor struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Label     string `json:"label"`
	Timestamp int64  `json:"timestamp"`
	Applied   bool   `json:"applied"`
}

// Manager owns the history of one open project. pointer is the index of the
// most recently applied command; -1 means nothing applied. Entries beyond
// the pointer survive only until the next Execute (linear history, no
// branching).
type Manager struct {
	doc      *document.Document
	entries  []Entry
	pointer  int
	maxLen   int
	trimmed  bool
	logger   *slog.Logger
	onChange func()
}

// NewManager returns an empty history bound to doc.
func NewManager(doc *document.Document, maxLen int, logger *slog.Logger) *Manager {
	if maxLen <= 0 {
		maxLen = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{doc: doc, pointer: -1, maxLen: maxLen, logger: logger}
}

// SetOnChange installs a hook invoked after every successful mutation of the
// document through this manager. The autosave orchestrator subscribes here.
func (m *Manager) SetOnChange(fn func()) {
	m.onChange = fn
}

func (m *Manager) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}

// Execute runs a command and records it. Any redo branch beyond the pointer
// is discarded first; the cap is enforced afterwards by dropping the oldest
// entries.
func (m *Manager) Execute(cmd command.Command) error {
	if m.pointer < len(m.entries)-1 {
		m.entries = m.entries[:m.pointer+1]
	}
	if err := cmd.Execute(m.doc); err != nil {
		return fmt.Errorf("execute %s: %w", cmd.Type(), err)
	}
	m.entries = append(m.entries, Entry{Command: cmd, Timestamp: time.Now().UnixMilli()})
	m.pointer = len(m.entries) - 1
	for len(m.entries) > m.maxLen {
		m.entries = m.entries[1:]
		m.pointer--
		m.trimmed = true
	}
	m.notify()
	return nil
}

// ExecuteBatch records cmds as one atomic unit: zero commands is a no-op,
// one command is recorded plainly, more are wrapped in a Batch.
func (m *Manager) ExecuteBatch(cmds []command.Command, label string) error {
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return m.Execute(cmds[0])
	default:
		return m.Execute(command.NewBatch(label, cmds))
	}
}

// Undo reverts the command at the pointer. A no-op when nothing is applied.
func (m *Manager) Undo() error {
	if m.pointer < 0 {
		return nil
	}
	if err := m.entries[m.pointer].Command.Undo(m.doc); err != nil {
		return fmt.Errorf("undo %s: %w", m.entries[m.pointer].Command.Type(), err)
	}
	m.pointer--
	m.notify()
	return nil
}

// Redo re-applies the command after the pointer. A no-op at the head.
func (m *Manager) Redo() error {
	if m.pointer >= len(m.entries)-1 {
		return nil
	}
	next := m.entries[m.pointer+1].Command
	if err := next.Execute(m.doc); err != nil {
		return fmt.Errorf("redo %s: %w", next.Type(), err)
	}
	m.pointer++
	m.notify()
	return nil
}

// JumpTo steps the pointer to index by repeated undo or redo, preserving the
// same effect ordering as manual stepping.
func (m *Manager) JumpTo(index int) error {
	if index < -1 || index > len(m.entries)-1 {
		return fmt.Errorf("jump to %d: index out of range [-1, %d]", index, len(m.entries)-1)
	}
	for m.pointer > index {
		if err := m.Undo(); err != nil {
			return err
		}
	}
	for m.pointer < index {
		if err := m.Redo(); err != nil {
			return err
		}
	}
	return nil
}

// CanUndo reports whether any applied command remains.
func (m *Manager) CanUndo() bool { return m.pointer >= 0 }

// CanRedo reports whether an undone command can be re-applied.
func (m *Manager) CanRedo() bool { return m.pointer < len(m.entries)-1 }

// UndoName is the label of the command Undo would revert, or "".
func (m *Manager) UndoName() string {
	if !m.CanUndo() {
		return ""
	}
	return m.entries[m.pointer].Command.Label()
}

// RedoName is the label of the command Redo would re-apply, or "".
func (m *Manager) RedoName() string {
	if !m.CanRedo() {
		return ""
	}
	return m.entries[m.pointer+1].Command.Label()
}

// Pointer returns the current pointer position.
func (m *Manager) Pointer() int { return m.pointer }

// Len returns the number of retained entries.
func (m *Manager) Len() int { return len(m.entries) }

// Trimmed reports whether the cap ever evicted entries, meaning the retained
// log no longer reproduces the document from scratch.
func (m *Manager) Trimmed() bool { return m.trimmed }

// List returns descriptors of all retained entries for display.
func (m *Manager) List() []Descriptor {
	out := make([]Descriptor, len(m.entries))
	for i, e := range m.entries {
		out[i] = Descriptor{
			ID:        e.Command.ID(),
			Type:      string(e.Command.Type()),
			Label:     e.Command.Label(),
			Timestamp: e.Timestamp,
			Applied:   i <= m.pointer,
		}
	}
	return out
}

// ReferencedContentIDs unions the content ids referenced by every retained
// command, applied or undone.
func (m *Manager) ReferencedContentIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, e := range m.entries {
		for _, id := range e.Command.ReferencedContentIDs() {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// Serialize produces the persisted history array and pointer. A serialize
// failure of any entry is fatal: silently dropping entries would corrupt the
// log.
func (m *Manager) Serialize() ([]models.SerializedCommand, int, error) {
	out := make([]models.SerializedCommand, 0, len(m.entries))
	for _, e := range m.entries {
		sc, err := e.Command.Serialize()
		if err != nil {
			return nil, 0, err
		}
		sc.Timestamp = e.Timestamp
		out = append(out, sc)
	}
	return out, m.pointer, nil
}

// Rehydrate replaces the log with decoded commands from a persisted history
// without executing anything; the pointer is reset to -1. Entries that fail
// migration-plus-decode are dropped, and the returned target pointer is
// decremented for every dropped entry at or before the saved pointer so the
// caller can replay to the equivalent position.
func (m *Manager) Rehydrate(serialized []models.SerializedCommand, pointer int, reg *command.Registry, mig *command.Migrator) int {
	m.entries = nil
	m.pointer = -1
	target := pointer
	for i, sc := range serialized {
		sc = mig.Normalize(sc)
		cmd, ok := reg.Decode(sc)
		if !ok {
			if i <= pointer {
				target--
			}
			continue
		}
		m.entries = append(m.entries, Entry{Command: cmd, Timestamp: sc.Timestamp})
	}
	if target > len(m.entries)-1 {
		target = len(m.entries) - 1
	}
	if target < -1 {
		target = -1
	}
	return target
}

// MarkApplied positions the pointer without executing anything. Used when
// the document state was adopted from a persisted snapshot rather than
// replayed.
func (m *Manager) MarkApplied(pointer int) {
	if pointer < -1 {
		pointer = -1
	}
	if pointer > len(m.entries)-1 {
		pointer = len(m.entries) - 1
	}
	m.pointer = pointer
}

// Replay redoes entries until the pointer reaches target. On failure the
// already-applied entries stay applied and the error is returned for the
// caller to log; the session deliberately does not re-throw it.
func (m *Manager) Replay(target int) error {
	if target > len(m.entries)-1 {
		target = len(m.entries) - 1
	}
	for m.pointer < target {
		if err := m.Redo(); err != nil {
			return err
		}
	}
	return nil
}

// Clear empties the log, e.g. on project reset.
func (m *Manager) Clear() {
	m.entries = nil
	m.pointer = -1
	m.trimmed = false
}
