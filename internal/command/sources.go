package command

import (
	"fmt"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// AddSource registers a source file without adding any pages. It exists so
// an import can be grouped with its AddPages in one batch and undone as a
// unit.
type AddSource struct {
	meta
	source models.SourceFile
}

type addSourcePayload struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	SourceFile models.SourceFile `json:"sourceFile"`
}

func NewAddSource(source models.SourceFile) *AddSource {
	return &AddSource{meta: newMeta(fmt.Sprintf("Add source %s", source.Name)), source: source}
}

func (c *AddSource) Type() Type { return TypeAddSource }

func (c *AddSource) Execute(doc *document.Document) error {
	doc.RegisterSource(c.source)
	return nil
}

func (c *AddSource) Undo(doc *document.Document) error {
	doc.UnregisterSource(c.source.ID)
	return nil
}

func (c *AddSource) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeAddSource, c.createdAt, addSourcePayload{
		ID:         c.id,
		Label:      c.label,
		SourceFile: c.source,
	})
}

func (c *AddSource) ReferencedContentIDs() []string {
	return []string{c.source.ID}
}

func decodeAddSource(sc models.SerializedCommand) (Command, error) {
	var p addSourcePayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	if p.SourceFile.ID == "" {
		return nil, fmt.Errorf("addSource payload missing sourceFile.id")
	}
	return &AddSource{meta: restoreMeta(p.ID, p.Label, sc.Timestamp), source: p.SourceFile}, nil
}

// RemoveSource drops a source registration together with every page that
// belongs to it. Page snapshots and the source record are captured on the
// first execute, symmetric to DeletePages; undo restores both.
type RemoveSource struct {
	meta
	sourceID  string
	source    models.SourceFile
	snapshots []models.PageSnapshot
	captured  bool
}

type removeSourcePayload struct {
	ID         string                `json:"id"`
	Label      string                `json:"label"`
	SourceID   string                `json:"sourceFileId"`
	SourceFile models.SourceFile     `json:"sourceFile,omitempty"`
	Snapshots  []models.PageSnapshot `json:"snapshots,omitempty"`
	Captured   bool                  `json:"captured"`
}

func NewRemoveSource(sourceID string) *RemoveSource {
	return &RemoveSource{meta: newMeta("Remove source"), sourceID: sourceID}
}

func (c *RemoveSource) Type() Type { return TypeRemoveSource }

func (c *RemoveSource) Execute(doc *document.Document) error {
	if !c.captured {
		sf, ok := doc.Source(c.sourceID)
		if !ok {
			return fmt.Errorf("remove source: %s not registered", c.sourceID)
		}
		c.source = sf
		c.snapshots = doc.SnapshotsBySource(c.sourceID)
		c.captured = true
		c.label = fmt.Sprintf("Remove source %s", sf.Name)
	}
	ids := make([]string, len(c.snapshots))
	for i, s := range c.snapshots {
		ids[i] = s.Page.ID
	}
	doc.RemovePages(ids)
	doc.UnregisterSource(c.sourceID)
	return nil
}

func (c *RemoveSource) Undo(doc *document.Document) error {
	doc.RegisterSource(c.source)
	doc.RestoreSnapshots(c.snapshots)
	return nil
}

func (c *RemoveSource) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeRemoveSource, c.createdAt, removeSourcePayload{
		ID:         c.id,
		Label:      c.label,
		SourceID:   c.sourceID,
		SourceFile: c.source,
		Snapshots:  c.snapshots,
		Captured:   c.captured,
	})
}

func (c *RemoveSource) ReferencedContentIDs() []string {
	return []string{c.sourceID}
}

func decodeRemoveSource(sc models.SerializedCommand) (Command, error) {
	var p removeSourcePayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	if p.SourceID == "" {
		return nil, fmt.Errorf("removeSource payload missing sourceFileId")
	}
	return &RemoveSource{
		meta:      restoreMeta(p.ID, p.Label, sc.Timestamp),
		sourceID:  p.SourceID,
		source:    p.SourceFile,
		snapshots: p.Snapshots,
		captured:  p.Captured,
	}, nil
}
