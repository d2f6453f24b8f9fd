package command

import (
	"errors"
	"fmt"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

var errUndecodableChild = errors.New("batch contains an undecodable child command")

// Batch groups child commands into one atomic history entry. Children run
// forward in order on execute and in reverse order on undo, which is the
// correctness invariant for composites with inter-dependent effects
// (add-source-then-add-pages must undo the pages before removing the
// source).
type Batch struct {
	meta
	children []Command
}

type batchPayload struct {
	ID       string                     `json:"id"`
	Label    string                     `json:"label"`
	Commands []models.SerializedCommand `json:"commands"`
}

// NewBatch builds a composite over the given children.
func NewBatch(label string, children []Command) *Batch {
	return &Batch{meta: newMeta(label), children: append([]Command(nil), children...)}
}

func (c *Batch) Type() Type { return TypeBatch }

// Children returns the child commands in execute order.
func (c *Batch) Children() []Command {
	return append([]Command(nil), c.children...)
}

func (c *Batch) Execute(doc *document.Document) error {
	for i, child := range c.children {
		if err := child.Execute(doc); err != nil {
			// Roll back the applied prefix so the batch stays atomic
			// from the caller's perspective.
			for j := i - 1; j >= 0; j-- {
				if undoErr := c.children[j].Undo(doc); undoErr != nil {
					return fmt.Errorf("batch child %d failed (%v); rollback of child %d also failed: %w", i, err, j, undoErr)
				}
			}
			return fmt.Errorf("batch child %d: %w", i, err)
		}
	}
	return nil
}

func (c *Batch) Undo(doc *document.Document) error {
	for i := len(c.children) - 1; i >= 0; i-- {
		if err := c.children[i].Undo(doc); err != nil {
			return fmt.Errorf("batch undo child %d: %w", i, err)
		}
	}
	return nil
}

func (c *Batch) Serialize() (models.SerializedCommand, error) {
	serialized := make([]models.SerializedCommand, 0, len(c.children))
	for _, child := range c.children {
		sc, err := child.Serialize()
		if err != nil {
			return models.SerializedCommand{}, err
		}
		serialized = append(serialized, sc)
	}
	return serializePayload(TypeBatch, c.createdAt, batchPayload{
		ID:       c.id,
		Label:    c.label,
		Commands: serialized,
	})
}

func (c *Batch) ReferencedContentIDs() []string {
	var ids []string
	for _, child := range c.children {
		ids = append(ids, child.ReferencedContentIDs()...)
	}
	return ids
}
