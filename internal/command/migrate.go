package command

import (
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 1

// DefaultVersion is assigned to legacy records that predate the version
// field.
const DefaultVersion = 1

// MigrateFunc normalizes a payload from one schema version to the next.
// It receives its own copy of the tree and may mutate it freely.
type MigrateFunc func(payload map[string]any) map[string]any

type migrationKey struct {
	Type    string
	Version int
}

// Migrator normalizes legacy serialized records into the current schema
// before registry lookup. Normalizers are keyed by (type, version); an
// unknown pair passes through untouched, deferring failure to decode.
type Migrator struct {
	target int
	byKey  map[migrationKey]MigrateFunc
}

// NewMigrator returns a migrator targeting the current schema version.
func NewMigrator() *Migrator {
	return &Migrator{target: CurrentVersion, byKey: map[migrationKey]MigrateFunc{}}
}

// Register installs the normalizer that lifts (typ, version) payloads to
// version+1.
func (m *Migrator) Register(typ Type, version int, fn MigrateFunc) {
	if fn == nil {
		return
	}
	m.byKey[migrationKey{Type: string(typ), Version: version}] = fn
}

// Normalize assigns the default version to legacy records and applies
// registered normalizers stepwise until the record reaches the current
// version or no normalizer is registered for its (type, version).
func (m *Migrator) Normalize(sc models.SerializedCommand) models.SerializedCommand {
	if sc.Version <= 0 {
		sc.Version = DefaultVersion
	}
	for sc.Version < m.target {
		fn, ok := m.byKey[migrationKey{Type: sc.Type, Version: sc.Version}]
		if !ok {
			break
		}
		sc.Payload = fn(copyTree(sc.Payload))
		sc.Version++
	}
	return sc
}

func copyTree(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyTreeValue(v)
	}
	return out
}

func copyTreeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyTree(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyTreeValue(e)
		}
		return out
	default:
		return v
	}
}
