package command

import (
	"fmt"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// The redaction and outline commands carry direct previous/next value pairs.
// No snapshot capture is needed: the values are self-contained.

// AddRedaction places a redaction mark on one page.
type AddRedaction struct {
	meta
	pageID string
	mark   models.RedactionMark
}

type addRedactionPayload struct {
	ID     string               `json:"id"`
	Label  string               `json:"label"`
	PageID string               `json:"pageId"`
	Mark   models.RedactionMark `json:"mark"`
}

func NewAddRedaction(pageID string, mark models.RedactionMark) *AddRedaction {
	if mark.ID == "" {
		mark.ID = models.NewID()
	}
	return &AddRedaction{meta: newMeta("Add redaction"), pageID: pageID, mark: mark}
}

func (c *AddRedaction) Type() Type { return TypeAddRedaction }

func (c *AddRedaction) Execute(doc *document.Document) error {
	doc.AddRedaction(c.pageID, c.mark)
	return nil
}

func (c *AddRedaction) Undo(doc *document.Document) error {
	doc.DeleteRedaction(c.pageID, c.mark.ID)
	return nil
}

func (c *AddRedaction) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeAddRedaction, c.createdAt, addRedactionPayload{
		ID:     c.id,
		Label:  c.label,
		PageID: c.pageID,
		Mark:   c.mark,
	})
}

func (c *AddRedaction) ReferencedContentIDs() []string { return nil }

func decodeAddRedaction(sc models.SerializedCommand) (Command, error) {
	var p addRedactionPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &AddRedaction{meta: restoreMeta(p.ID, p.Label, sc.Timestamp), pageID: p.PageID, mark: p.Mark}, nil
}

// UpdateRedaction replaces a mark with a new geometry.
type UpdateRedaction struct {
	meta
	pageID string
	prev   models.RedactionMark
	next   models.RedactionMark
}

type updateRedactionPayload struct {
	ID     string               `json:"id"`
	Label  string               `json:"label"`
	PageID string               `json:"pageId"`
	Prev   models.RedactionMark `json:"prev"`
	Next   models.RedactionMark `json:"next"`
}

func NewUpdateRedaction(pageID string, prev, next models.RedactionMark) (*UpdateRedaction, error) {
	if prev.ID != next.ID {
		return nil, fmt.Errorf("update redaction: mark id changed from %s to %s", prev.ID, next.ID)
	}
	return &UpdateRedaction{meta: newMeta("Update redaction"), pageID: pageID, prev: prev, next: next}, nil
}

func (c *UpdateRedaction) Type() Type { return TypeUpdateRedaction }

func (c *UpdateRedaction) Execute(doc *document.Document) error {
	doc.UpdateRedaction(c.pageID, c.next)
	return nil
}

func (c *UpdateRedaction) Undo(doc *document.Document) error {
	doc.UpdateRedaction(c.pageID, c.prev)
	return nil
}

func (c *UpdateRedaction) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeUpdateRedaction, c.createdAt, updateRedactionPayload{
		ID:     c.id,
		Label:  c.label,
		PageID: c.pageID,
		Prev:   c.prev,
		Next:   c.next,
	})
}

func (c *UpdateRedaction) ReferencedContentIDs() []string { return nil }

func decodeUpdateRedaction(sc models.SerializedCommand) (Command, error) {
	var p updateRedactionPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &UpdateRedaction{meta: restoreMeta(p.ID, p.Label, sc.Timestamp), pageID: p.PageID, prev: p.Prev, next: p.Next}, nil
}

// DeleteRedaction removes a mark; the caller supplies the current mark so
// undo can put it back.
type DeleteRedaction struct {
	meta
	pageID string
	mark   models.RedactionMark
}

type deleteRedactionPayload struct {
	ID     string               `json:"id"`
	Label  string               `json:"label"`
	PageID string               `json:"pageId"`
	Mark   models.RedactionMark `json:"mark"`
}

func NewDeleteRedaction(pageID string, mark models.RedactionMark) *DeleteRedaction {
	return &DeleteRedaction{meta: newMeta("Delete redaction"), pageID: pageID, mark: mark}
}

func (c *DeleteRedaction) Type() Type { return TypeDeleteRedaction }

func (c *DeleteRedaction) Execute(doc *document.Document) error {
	doc.DeleteRedaction(c.pageID, c.mark.ID)
	return nil
}

func (c *DeleteRedaction) Undo(doc *document.Document) error {
	doc.AddRedaction(c.pageID, c.mark)
	return nil
}

func (c *DeleteRedaction) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeDeleteRedaction, c.createdAt, deleteRedactionPayload{
		ID:     c.id,
		Label:  c.label,
		PageID: c.pageID,
		Mark:   c.mark,
	})
}

func (c *DeleteRedaction) ReferencedContentIDs() []string { return nil }

func decodeDeleteRedaction(sc models.SerializedCommand) (Command, error) {
	var p deleteRedactionPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &DeleteRedaction{meta: restoreMeta(p.ID, p.Label, sc.Timestamp), pageID: p.PageID, mark: p.Mark}, nil
}

// UpdateOutline swaps the whole outline tree between two self-contained
// values.
type UpdateOutline struct {
	meta
	prev []models.OutlineNode
	next []models.OutlineNode
}

type updateOutlinePayload struct {
	ID    string               `json:"id"`
	Label string               `json:"label"`
	Prev  []models.OutlineNode `json:"prev,omitempty"`
	Next  []models.OutlineNode `json:"next,omitempty"`
}

func NewUpdateOutline(prev, next []models.OutlineNode) *UpdateOutline {
	return &UpdateOutline{
		meta: newMeta("Update outline"),
		prev: models.CloneOutline(prev),
		next: models.CloneOutline(next),
	}
}

func (c *UpdateOutline) Type() Type { return TypeUpdateOutline }

func (c *UpdateOutline) Execute(doc *document.Document) error {
	doc.SetOutline(c.next)
	return nil
}

func (c *UpdateOutline) Undo(doc *document.Document) error {
	doc.SetOutline(c.prev)
	return nil
}

func (c *UpdateOutline) Serialize() (models.SerializedCommand, error) {
	return serializePayload(TypeUpdateOutline, c.createdAt, updateOutlinePayload{
		ID:    c.id,
		Label: c.label,
		Prev:  c.prev,
		Next:  c.next,
	})
}

func (c *UpdateOutline) ReferencedContentIDs() []string { return nil }

func decodeUpdateOutline(sc models.SerializedCommand) (Command, error) {
	var p updateOutlinePayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	return &UpdateOutline{meta: restoreMeta(p.ID, p.Label, sc.Timestamp), prev: p.Prev, next: p.Next}, nil
}
