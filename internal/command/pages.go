package command

import (
	"fmt"
	"sort"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// ---------------------------------------------------------------------------
// AddPages
// ---------------------------------------------------------------------------

// AddPages appends page references drawn from one source file, registering
// the source on the way if it is not present yet. Undo removes exactly the
// appended pages, and the source only if this command registered it.
type AddPages struct {
	meta
	source       models.SourceFile
	pages        []models.PageEntry
	executedOnce bool
	addedSource  bool
}

type addPagesPayload struct {
	ID           string             `json:"id"`
	Label        string             `json:"label"`
	SourceFile   models.SourceFile  `json:"sourceFile"`
	Pages        []models.PageEntry `json:"pages"`
	ExecutedOnce bool               `json:"executedOnce"`
	AddedSource  bool               `json:"addedSource"`
}

// NewAddPages builds the command. Pages are deep-copied immediately.
func NewAddPages(source models.SourceFile, pages []models.PageEntry) *AddPages {
	return &AddPages{
		meta:   newMeta(fmt.Sprintf("Add %d pages from %s", len(pages), source.Name)),
		source: source,
		pages:  models.ClonePages(pages),
	}
}

func (c *AddPages) Type() Type { return TypeAddPages }

func (c *AddPages) Execute(doc *document.Document) error {
	if !c.executedOnce {
		c.executedOnce = true
		c.addedSource = !doc.HasSource(c.source.ID)
	}
	if !doc.HasSource(c.source.ID) {
		doc.RegisterSource(c.source)
	}
	doc.AppendPages(c.pages)
	return nil
}

func (c *AddPages) Undo(doc *document.Document) error {
	ids := make([]string, len(c.pages))
	for i, p := range c.pages {
		ids[i] = p.ID
	}
	doc.RemovePages(ids)
	if c.addedSource {
		doc.UnregisterSource(c.source.ID)
	}
	return nil
}

func (c *AddPages) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeAddPages, c.createdAt, addPagesPayload{
		ID:           c.id,
		Label:        c.label,
		SourceFile:   c.source,
		Pages:        c.pages,
		ExecutedOnce: c.executedOnce,
		AddedSource:  c.addedSource,
	})
}

func (c *AddPages) ReferencedContentIDs() []string {
	ids := []string{c.source.ID}
	for _, p := range c.pages {
		if p.SourceFileID != "" && p.SourceFileID != c.source.ID {
			ids = append(ids, p.SourceFileID)
		}
	}
	return ids
}

func decodeAddPages(sc models.SerializedCommand) (Command, error) {
	var p addPagesPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	if p.SourceFile.ID == "" {
		return nil, fmt.Errorf("addPages payload missing sourceFile.id")
	}
	return &AddPages{
		meta:         restoreMeta(p.ID, p.Label, sc.Timestamp),
		source:       p.SourceFile,
		pages:        p.Pages,
		executedOnce: p.ExecutedOnce,
		addedSource:  p.AddedSource,
	}, nil
}

// ---------------------------------------------------------------------------
// DeletePages
// ---------------------------------------------------------------------------

// DeletePages removes a (possibly non-contiguous) selection of pages.
// Snapshot capture happens on the first execute only, so redo reuses the
// captured positions instead of recomputing them.
type DeletePages struct {
	meta
	pageIDs   []string
	snapshots []models.PageSnapshot
	captured  bool
}

type deletePagesPayload struct {
	ID        string                `json:"id"`
	Label     string                `json:"label"`
	PageIDs   []string              `json:"pageIds"`
	Snapshots []models.PageSnapshot `json:"snapshots,omitempty"`
	Captured  bool                  `json:"captured"`
}

func NewDeletePages(pageIDs []string) *DeletePages {
	return &DeletePages{
		meta:    newMeta(fmt.Sprintf("Delete %d pages", len(pageIDs))),
		pageIDs: append([]string(nil), pageIDs...),
	}
}

func (c *DeletePages) Type() Type { return TypeDeletePages }

func (c *DeletePages) Execute(doc *document.Document) error {
	if !c.captured {
		c.snapshots = doc.CaptureSnapshots(c.pageIDs)
		c.captured = true
	}
	doc.RemovePages(c.pageIDs)
	return nil
}

func (c *DeletePages) Undo(doc *document.Document) error {
	doc.RestoreSnapshots(c.snapshots)
	return nil
}

func (c *DeletePages) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeDeletePages, c.createdAt, deletePagesPayload{
		ID:        c.id,
		Label:     c.label,
		PageIDs:   c.pageIDs,
		Snapshots: c.snapshots,
		Captured:  c.captured,
	})
}

func (c *DeletePages) ReferencedContentIDs() []string {
	var ids []string
	for _, s := range c.snapshots {
		if s.Page.SourceFileID != "" {
			ids = append(ids, s.Page.SourceFileID)
		}
	}
	return ids
}

func decodeDeletePages(sc models.SerializedCommand) (Command, error) {
	var p deletePagesPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &DeletePages{
		meta:      restoreMeta(p.ID, p.Label, sc.Timestamp),
		pageIDs:   p.PageIDs,
		snapshots: p.Snapshots,
		captured:  p.Captured,
	}, nil
}

// ---------------------------------------------------------------------------
// DuplicatePages
// ---------------------------------------------------------------------------

// DuplicatePages inserts a copy directly after each selected page. Targets
// are processed from the highest index down so earlier insertions do not
// shift later ones. Duplicate ids are generated on the first execute and
// stored, so redo reproduces identical ids and any later command referencing
// a duplicate stays valid.
type DuplicatePages struct {
	meta
	pageIDs []string
	idMap   map[string]string // original page id -> duplicate id
	sources []string          // source ids of duplicated pages, for reachability
}

type duplicatePagesPayload struct {
	ID      string            `json:"id"`
	Label   string            `json:"label"`
	PageIDs []string          `json:"pageIds"`
	IDMap   map[string]string `json:"idMap,omitempty"`
	Sources []string          `json:"sourceFileIds,omitempty"`
}

func NewDuplicatePages(pageIDs []string) *DuplicatePages {
	return &DuplicatePages{
		meta:    newMeta(fmt.Sprintf("Duplicate %d pages", len(pageIDs))),
		pageIDs: append([]string(nil), pageIDs...),
		idMap:   map[string]string{},
	}
}

func (c *DuplicatePages) Type() Type { return TypeDuplicatePages }

func (c *DuplicatePages) Execute(doc *document.Document) error {
	type target struct {
		entry models.PageEntry
		index int
	}
	targets := make([]target, 0, len(c.pageIDs))
	for _, id := range c.pageIDs {
		entry, idx, ok := doc.PageByID(id)
		if !ok {
			return fmt.Errorf("duplicate: page %s not found", id)
		}
		targets = append(targets, target{entry: entry, index: idx})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].index > targets[j].index })

	if c.idMap == nil {
		c.idMap = map[string]string{}
	}
	// Seed from sources captured on an earlier execute so a redo does not
	// record the same source id again.
	seen := map[string]struct{}{}
	for _, id := range c.sources {
		seen[id] = struct{}{}
	}
	for _, t := range targets {
		dupID, ok := c.idMap[t.entry.ID]
		if !ok {
			dupID = models.NewID()
			c.idMap[t.entry.ID] = dupID
		}
		dup := t.entry.Clone()
		dup.ID = dupID
		doc.InsertPageAt(dup, t.index+1)
		if dup.SourceFileID != "" {
			if _, dup2 := seen[dup.SourceFileID]; !dup2 {
				seen[dup.SourceFileID] = struct{}{}
				c.sources = append(c.sources, dup.SourceFileID)
			}
		}
	}
	return nil
}

func (c *DuplicatePages) Undo(doc *document.Document) error {
	ids := make([]string, 0, len(c.idMap))
	for _, dupID := range c.idMap {
		ids = append(ids, dupID)
	}
	doc.RemovePages(ids)
	return nil
}

func (c *DuplicatePages) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeDuplicatePages, c.createdAt, duplicatePagesPayload{
		ID:      c.id,
		Label:   c.label,
		PageIDs: c.pageIDs,
		IDMap:   c.idMap,
		Sources: c.sources,
	})
}

func (c *DuplicatePages) ReferencedContentIDs() []string {
	return append([]string(nil), c.sources...)
}

func decodeDuplicatePages(sc models.SerializedCommand) (Command, error) {
	var p duplicatePagesPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	idMap := p.IDMap
	if idMap == nil {
		idMap = map[string]string{}
	}
	return &DuplicatePages{
		meta:    restoreMeta(p.ID, p.Label, sc.Timestamp),
		pageIDs: p.PageIDs,
		idMap:   idMap,
		sources: p.Sources,
	}, nil
}

// ---------------------------------------------------------------------------
// ReorderPages
// ---------------------------------------------------------------------------

// ReorderPages applies a full permutation of the page sequence. The previous
// order is captured on the first execute.
type ReorderPages struct {
	meta
	order     []string
	prevOrder []string
}

type reorderPagesPayload struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Order     []string `json:"order"`
	PrevOrder []string `json:"prevOrder,omitempty"`
}

func NewReorderPages(order []string) *ReorderPages {
	return &ReorderPages{
		meta:  newMeta("Reorder pages"),
		order: append([]string(nil), order...),
	}
}

func (c *ReorderPages) Type() Type { return TypeReorderPages }

func (c *ReorderPages) Execute(doc *document.Document) error {
	if c.prevOrder == nil {
		c.prevOrder = doc.OrderIDs()
	}
	return doc.Reorder(c.order)
}

func (c *ReorderPages) Undo(doc *document.Document) error {
	return doc.Reorder(c.prevOrder)
}

func (c *ReorderPages) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeReorderPages, c.createdAt, reorderPagesPayload{
		ID:        c.id,
		Label:     c.label,
		Order:     c.order,
		PrevOrder: c.prevOrder,
	})
}

func (c *ReorderPages) ReferencedContentIDs() []string { return nil }

func decodeReorderPages(sc models.SerializedCommand) (Command, error) {
	var p reorderPagesPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &ReorderPages{
		meta:      restoreMeta(p.ID, p.Label, sc.Timestamp),
		order:     p.Order,
		prevOrder: p.PrevOrder,
	}, nil
}

// ---------------------------------------------------------------------------
// RotatePages
// ---------------------------------------------------------------------------

// RotatePages stores only the rotation delta; the inverse is its negation
// modulo 360.
type RotatePages struct {
	meta
	pageIDs []string
	delta   int
}

type rotatePagesPayload struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	PageIDs []string `json:"pageIds"`
	Delta   int      `json:"delta"`
}

func NewRotatePages(pageIDs []string, delta int) *RotatePages {
	return &RotatePages{
		meta:    newMeta(fmt.Sprintf("Rotate %d pages", len(pageIDs))),
		pageIDs: append([]string(nil), pageIDs...),
		delta:   delta,
	}
}

func (c *RotatePages) Type() Type { return TypeRotatePages }

func (c *RotatePages) Execute(doc *document.Document) error {
	doc.RotatePages(c.pageIDs, c.delta)
	return nil
}

func (c *RotatePages) Undo(doc *document.Document) error {
	doc.RotatePages(c.pageIDs, -c.delta)
	return nil
}

func (c *RotatePages) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeRotatePages, c.createdAt, rotatePagesPayload{
		ID:      c.id,
		Label:   c.label,
		PageIDs: c.pageIDs,
		Delta:   c.delta,
	})
}

func (c *RotatePages) ReferencedContentIDs() []string { return nil }

func decodeRotatePages(sc models.SerializedCommand) (Command, error) {
	var p rotatePagesPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &RotatePages{
		meta:    restoreMeta(p.ID, p.Label, sc.Timestamp),
		pageIDs: p.PageIDs,
		delta:   p.Delta,
	}, nil
}

// ---------------------------------------------------------------------------
// ResizePages
// ---------------------------------------------------------------------------

// ResizePages sets a target dimension on the selection. The previous
// per-page sizes are captured once, like delete snapshots.
type ResizePages struct {
	meta
	pageIDs   []string
	size      *models.PageSize
	prevSizes map[string]*models.PageSize
	captured  bool
}

type resizePagesPayload struct {
	ID        string                      `json:"id"`
	Label     string                      `json:"label"`
	PageIDs   []string                    `json:"pageIds"`
	Size      *models.PageSize            `json:"size,omitempty"`
	PrevSizes map[string]*models.PageSize `json:"prevSizes,omitempty"`
	Captured  bool                        `json:"captured"`
}

func NewResizePages(pageIDs []string, size *models.PageSize) *ResizePages {
	return &ResizePages{
		meta:    newMeta(fmt.Sprintf("Resize %d pages", len(pageIDs))),
		pageIDs: append([]string(nil), pageIDs...),
		size:    size,
	}
}

func (c *ResizePages) Type() Type { return TypeResizePages }

func (c *ResizePages) Execute(doc *document.Document) error {
	if !c.captured {
		c.prevSizes = make(map[string]*models.PageSize, len(c.pageIDs))
		for _, id := range c.pageIDs {
			c.prevSizes[id] = doc.TargetSize(id)
		}
		c.captured = true
	}
	for _, id := range c.pageIDs {
		doc.SetTargetSize(id, c.size)
	}
	return nil
}

func (c *ResizePages) Undo(doc *document.Document) error {
	for _, id := range c.pageIDs {
		doc.SetTargetSize(id, c.prevSizes[id])
	}
	return nil
}

func (c *ResizePages) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeResizePages, c.createdAt, resizePagesPayload{
		ID:        c.id,
		Label:     c.label,
		PageIDs:   c.pageIDs,
		Size:      c.size,
		PrevSizes: c.prevSizes,
		Captured:  c.captured,
	})
}

func (c *ResizePages) ReferencedContentIDs() []string { return nil }

func decodeResizePages(sc models.SerializedCommand) (Command, error) {
	var p resizePagesPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &ResizePages{
		meta:      restoreMeta(p.ID, p.Label, sc.Timestamp),
		pageIDs:   p.PageIDs,
		size:      p.Size,
		prevSizes: p.PrevSizes,
		captured:  p.Captured,
	}, nil
}

// ---------------------------------------------------------------------------
// SplitGroup
// ---------------------------------------------------------------------------

// SplitGroup inserts a divider at a fixed index. The divider id is generated
// on the first execute and reused on redo; undo removes that one divider.
type SplitGroup struct {
	meta
	index     int
	dividerID string
}

type splitGroupPayload struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Index     int    `json:"index"`
	DividerID string `json:"dividerId,omitempty"`
}

func NewSplitGroup(index int) *SplitGroup {
	return &SplitGroup{meta: newMeta("Insert divider"), index: index}
}

func (c *SplitGroup) Type() Type { return TypeSplitGroup }

func (c *SplitGroup) Execute(doc *document.Document) error {
	if c.dividerID == "" {
		c.dividerID = models.NewID()
	}
	doc.InsertPageAt(models.PageEntry{ID: c.dividerID, Kind: models.PageKindDivider}, c.index)
	return nil
}

func (c *SplitGroup) Undo(doc *document.Document) error {
	doc.RemovePages([]string{c.dividerID})
	return nil
}

func (c *SplitGroup) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeSplitGroup, c.createdAt, splitGroupPayload{
		ID:        c.id,
		Label:     c.label,
		Index:     c.index,
		DividerID: c.dividerID,
	})
}

func (c *SplitGroup) ReferencedContentIDs() []string { return nil }

func decodeSplitGroup(sc models.SerializedCommand) (Command, error) {
	var p splitGroupPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &SplitGroup{
		meta:      restoreMeta(p.ID, p.Label, sc.Timestamp),
		index:     p.Index,
		dividerID: p.DividerID,
	}, nil
}
