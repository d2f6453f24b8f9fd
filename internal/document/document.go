// Package document holds the in-memory state of one open project: the
// linearized page sequence, the source file registry and the outline tree.
// Commands mutate it exclusively through the primitives below.
package document

import (
	"fmt"
	"sort"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// Document is the mutable editor state. It is owned by a single session and
// is not safe for concurrent use; the session serializes access.
type Document struct {
	pages   []models.PageEntry
	sources map[string]models.SourceFile
	outline []models.OutlineNode
}

// New returns an empty document.
func New() *Document {
	return &Document{sources: map[string]models.SourceFile{}}
}

// Reset clears all state. Used before replaying a persisted history.
func (d *Document) Reset() {
	d.pages = nil
	d.sources = map[string]models.SourceFile{}
	d.outline = nil
}

// Pages returns a deep copy of the page sequence.
func (d *Document) Pages() []models.PageEntry {
	return models.ClonePages(d.pages)
}

// PageCount returns the number of entries, dividers included.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// PageByID returns a deep copy of the entry with the given id and its index.
func (d *Document) PageByID(id string) (models.PageEntry, int, bool) {
	for i, p := range d.pages {
		if p.ID == id {
			return p.Clone(), i, true
		}
	}
	return models.PageEntry{}, -1, false
}

// AppendPages appends deep copies of the given entries.
func (d *Document) AppendPages(pages []models.PageEntry) {
	d.pages = append(d.pages, models.ClonePages(pages)...)
}

// InsertPageAt inserts a deep copy of the entry at index, clamped to the
// valid range.
func (d *Document) InsertPageAt(page models.PageEntry, index int) {
	if index < 0 {
		index = 0
	}
	if index > len(d.pages) {
		index = len(d.pages)
	}
	d.pages = append(d.pages, models.PageEntry{})
	copy(d.pages[index+1:], d.pages[index:])
	d.pages[index] = page.Clone()
}

// RemovePage removes the entry with the given id, returning the removed
// entry and its former index.
func (d *Document) RemovePage(id string) (models.PageEntry, int, bool) {
	for i, p := range d.pages {
		if p.ID == id {
			removed := p.Clone()
			d.pages = append(d.pages[:i], d.pages[i+1:]...)
			return removed, i, true
		}
	}
	return models.PageEntry{}, -1, false
}

// RemovePages removes every entry whose id is in ids. Missing ids are
// ignored.
func (d *Document) RemovePages(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := d.pages[:0]
	for _, p := range d.pages {
		if _, ok := drop[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	d.pages = kept
}

// OrderIDs returns the ids of the page sequence in order.
func (d *Document) OrderIDs() []string {
	ids := make([]string, len(d.pages))
	for i, p := range d.pages {
		ids[i] = p.ID
	}
	return ids
}

// Reorder rearranges the page sequence to match order, which must be a
// permutation of the current ids.
func (d *Document) Reorder(order []string) error {
	if len(order) != len(d.pages) {
		return fmt.Errorf("reorder: got %d ids, have %d pages", len(order), len(d.pages))
	}
	byID := make(map[string]models.PageEntry, len(d.pages))
	for _, p := range d.pages {
		byID[p.ID] = p
	}
	next := make([]models.PageEntry, 0, len(order))
	for _, id := range order {
		p, ok := byID[id]
		if !ok {
			return fmt.Errorf("reorder: unknown page id %s", id)
		}
		delete(byID, id)
		next = append(next, p)
	}
	d.pages = next
	return nil
}

// RotatePages adds delta degrees to each listed page, normalized to
// [0, 360).
func (d *Document) RotatePages(ids []string, delta int) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range d.pages {
		if _, ok := want[d.pages[i].ID]; ok {
			d.pages[i].Rotation = ((d.pages[i].Rotation+delta)%360 + 360) % 360
		}
	}
}

// TargetSize returns a copy of the page's target size, or nil.
func (d *Document) TargetSize(id string) *models.PageSize {
	for _, p := range d.pages {
		if p.ID == id {
			if p.TargetSize == nil {
				return nil
			}
			size := *p.TargetSize
			return &size
		}
	}
	return nil
}

// SetTargetSize sets (or clears, with nil) the target size of one page.
func (d *Document) SetTargetSize(id string, size *models.PageSize) {
	for i := range d.pages {
		if d.pages[i].ID == id {
			if size == nil {
				d.pages[i].TargetSize = nil
			} else {
				s := *size
				d.pages[i].TargetSize = &s
			}
			return
		}
	}
}

// AddRedaction appends a redaction mark to a page.
func (d *Document) AddRedaction(pageID string, mark models.RedactionMark) {
	for i := range d.pages {
		if d.pages[i].ID == pageID {
			d.pages[i].Redactions = append(d.pages[i].Redactions, mark)
			return
		}
	}
}

// UpdateRedaction replaces the mark with the same id on the given page.
func (d *Document) UpdateRedaction(pageID string, mark models.RedactionMark) {
	for i := range d.pages {
		if d.pages[i].ID != pageID {
			continue
		}
		for j := range d.pages[i].Redactions {
			if d.pages[i].Redactions[j].ID == mark.ID {
				d.pages[i].Redactions[j] = mark
				return
			}
		}
		return
	}
}

// DeleteRedaction removes the mark with the given id from the page.
func (d *Document) DeleteRedaction(pageID, markID string) {
	for i := range d.pages {
		if d.pages[i].ID != pageID {
			continue
		}
		for j, m := range d.pages[i].Redactions {
			if m.ID == markID {
				d.pages[i].Redactions = append(d.pages[i].Redactions[:j], d.pages[i].Redactions[j+1:]...)
				return
			}
		}
		return
	}
}

// RedactionByID returns a copy of the mark with the given id on the page.
func (d *Document) RedactionByID(pageID, markID string) (models.RedactionMark, bool) {
	for _, p := range d.pages {
		if p.ID != pageID {
			continue
		}
		for _, m := range p.Redactions {
			if m.ID == markID {
				return m, true
			}
		}
		return models.RedactionMark{}, false
	}
	return models.RedactionMark{}, false
}

// RegisterSource adds a source file to the registry. Registering an id that
// is already present overwrites the record.
func (d *Document) RegisterSource(sf models.SourceFile) {
	d.sources[sf.ID] = sf
}

// UnregisterSource removes a source, returning its record.
func (d *Document) UnregisterSource(id string) (models.SourceFile, bool) {
	sf, ok := d.sources[id]
	if ok {
		delete(d.sources, id)
	}
	return sf, ok
}

// HasSource reports whether a source id is registered.
func (d *Document) HasSource(id string) bool {
	_, ok := d.sources[id]
	return ok
}

// Source returns the source record for an id.
func (d *Document) Source(id string) (models.SourceFile, bool) {
	sf, ok := d.sources[id]
	return sf, ok
}

// SourceIDs returns the registered source ids in sorted order.
func (d *Document) SourceIDs() []string {
	ids := make([]string, 0, len(d.sources))
	for id := range d.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sources returns the registered source records sorted by id.
func (d *Document) Sources() []models.SourceFile {
	out := make([]models.SourceFile, 0, len(d.sources))
	for _, id := range d.SourceIDs() {
		out = append(out, d.sources[id])
	}
	return out
}

// Outline returns a deep copy of the outline tree.
func (d *Document) Outline() []models.OutlineNode {
	return models.CloneOutline(d.outline)
}

// SetOutline replaces the outline tree with a deep copy of nodes.
func (d *Document) SetOutline(nodes []models.OutlineNode) {
	d.outline = models.CloneOutline(nodes)
}

// CaptureSnapshots deep-copies the listed pages together with their current
// indices. Ids that are not present are skipped.
func (d *Document) CaptureSnapshots(ids []string) []models.PageSnapshot {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var snaps []models.PageSnapshot
	for i, p := range d.pages {
		if _, ok := want[p.ID]; ok {
			snaps = append(snaps, models.PageSnapshot{Page: p.Clone(), Index: i})
		}
	}
	return snaps
}

// SnapshotsBySource captures every page belonging to the given source,
// symmetric to CaptureSnapshots.
func (d *Document) SnapshotsBySource(sourceID string) []models.PageSnapshot {
	var snaps []models.PageSnapshot
	for i, p := range d.pages {
		if p.SourceFileID == sourceID {
			snaps = append(snaps, models.PageSnapshot{Page: p.Clone(), Index: i})
		}
	}
	return snaps
}

// RestoreSnapshots reinserts captured pages at their original indices,
// ascending, so positions come back exact even for non-contiguous sets.
func (d *Document) RestoreSnapshots(snaps []models.PageSnapshot) {
	ordered := append([]models.PageSnapshot(nil), snaps...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for _, s := range ordered {
		d.InsertPageAt(s.Page, s.Index)
	}
}

// Snapshot is a deep copy of the full document state, used for structural
// equality checks and for building the persisted page map.
type Snapshot struct {
	Pages   []models.PageEntry
	Sources []models.SourceFile
	Outline []models.OutlineNode
}

// Snapshot returns a deep copy of the complete state.
func (d *Document) Snapshot() Snapshot {
	return Snapshot{
		Pages:   d.Pages(),
		Sources: d.Sources(),
		Outline: d.Outline(),
	}
}
