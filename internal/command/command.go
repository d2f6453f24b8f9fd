// Package command implements the invertible document operations, their
// registry, and the serialization/migration pipeline for persisted history.
package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// Type is the tag identifying a command variant. The set is closed; decode
// dispatch goes through the Registry rather than runtime type identity.
type Type string

const (
	TypeAddPages        Type = "addPages"
	TypeAddSource       Type = "addSource"
	TypeDeletePages     Type = "deletePages"
	TypeDuplicatePages  Type = "duplicatePages"
	TypeReorderPages    Type = "reorderPages"
	TypeRotatePages     Type = "rotatePages"
	TypeResizePages     Type = "resizePages"
	TypeSplitGroup      Type = "splitGroup"
	TypeRemoveSource    Type = "removeSource"
	TypeAddRedaction    Type = "addRedaction"
	TypeUpdateRedaction Type = "updateRedaction"
	TypeDeleteRedaction Type = "deleteRedaction"
	TypeUpdateOutline   Type = "updateOutline"
	TypeBatch           Type = "batch"
)

// Command is a self-contained, invertible unit of document mutation.
// Execute and Undo are synchronous and atomic from the caller's perspective.
type Command interface {
	ID() string
	Type() Type
	Label() string
	CreatedAt() int64

	Execute(doc *document.Document) error
	Undo(doc *document.Document) error

	// Serialize produces the persisted form. The payload is eagerly
	// deep-copied and validated to be JSON-safe; violations are fatal.
	Serialize() (models.SerializedCommand, error)

	// ReferencedContentIDs lists every content blob id this command's
	// payload refers to, for reachability analysis over live history.
	ReferencedContentIDs() []string
}

// meta carries the identity fields shared by all variants.
type meta struct {
	id        string
	label     string
	createdAt int64
}

func newMeta(label string) meta {
	return meta{id: models.NewID(), label: label, createdAt: time.Now().UnixMilli()}
}

func (m meta) ID() string       { return m.id }
func (m meta) Label() string    { return m.label }
func (m meta) CreatedAt() int64 { return m.createdAt }

// restoreMeta rebuilds identity from a decoded payload, generating an id
// for legacy records that predate command ids.
func restoreMeta(id, label string, timestamp int64) meta {
	if id == "" {
		id = models.NewID()
	}
	return meta{id: id, label: label, createdAt: timestamp}
}

// serializePayload is the single write path through the serialization
// boundary: validate, then deep-copy by marshalling into a fresh tree so the
// persisted record shares nothing with live objects.
func serializePayload(typ Type, createdAt int64, payload any) (models.SerializedCommand, error) {
	if err := CheckJSONSafe(payload); err != nil {
		return models.SerializedCommand{}, fmt.Errorf("serialize %s: %w", typ, err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.SerializedCommand{}, fmt.Errorf("serialize %s: %w", typ, err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return models.SerializedCommand{}, fmt.Errorf("serialize %s: %w", typ, err)
	}
	return models.SerializedCommand{
		Version:   CurrentVersion,
		Type:      string(typ),
		Payload:   tree,
		Timestamp: createdAt,
	}, nil
}

// decodePayload rehydrates a typed payload struct from the stored tree.
func decodePayload(sc models.SerializedCommand, out any) error {
	raw, err := json.Marshal(sc.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", sc.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", sc.Type, err)
	}
	return nil
}
