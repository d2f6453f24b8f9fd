package command

import (
	"log/slog"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// DecodeFunc rehydrates a command from its persisted form.
type DecodeFunc func(models.SerializedCommand) (Command, error)

// Registry maps type tags to decoders. It is an explicit value constructed
// once at startup and passed to whoever restores history; there is no hidden
// package-level state.
type Registry struct {
	logger   *slog.Logger
	decoders map[Type]DecodeFunc
}

// NewRegistry returns a registry with the full built-in command set
// registered.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger, decoders: map[Type]DecodeFunc{}}
	r.Register(TypeAddPages, decodeAddPages)
	r.Register(TypeAddSource, decodeAddSource)
	r.Register(TypeDeletePages, decodeDeletePages)
	r.Register(TypeDuplicatePages, decodeDuplicatePages)
	r.Register(TypeReorderPages, decodeReorderPages)
	r.Register(TypeRotatePages, decodeRotatePages)
	r.Register(TypeResizePages, decodeResizePages)
	r.Register(TypeSplitGroup, decodeSplitGroup)
	r.Register(TypeRemoveSource, decodeRemoveSource)
	r.Register(TypeAddRedaction, decodeAddRedaction)
	r.Register(TypeUpdateRedaction, decodeUpdateRedaction)
	r.Register(TypeDeleteRedaction, decodeDeleteRedaction)
	r.Register(TypeUpdateOutline, decodeUpdateOutline)
	r.Register(TypeBatch, r.decodeBatch)
	return r
}

// Register installs a decoder for a tag. Registering a tag twice is allowed;
// the later registration wins.
func (r *Registry) Register(t Type, fn DecodeFunc) {
	if t == "" || fn == nil {
		return
	}
	if _, exists := r.decoders[t]; exists {
		r.logger.Warn("Command decoder already registered, replacing.", "type", string(t))
	}
	r.decoders[t] = fn
}

// Decode rehydrates one persisted command. Unknown tags and malformed
// payloads are non-fatal: history restoration must tolerate records written
// by newer or older builds, so both downgrade to (nil, false).
func (r *Registry) Decode(sc models.SerializedCommand) (Command, bool) {
	fn, ok := r.decoders[Type(sc.Type)]
	if !ok {
		r.logger.Warn("Unknown command type in persisted history, dropping entry.", "type", sc.Type)
		return nil, false
	}
	cmd, err := fn(sc)
	if err != nil {
		r.logger.Error("Failed to decode persisted command, dropping entry.", "type", sc.Type, "error", err)
		return nil, false
	}
	return cmd, true
}

// decodeBatch needs the registry itself to rehydrate children, so it is a
// method rather than a free function.
func (r *Registry) decodeBatch(sc models.SerializedCommand) (Command, error) {
	var p batchPayload
	if err := decodePayload(sc, &p); err != nil {
		return nil, err
	}
	children := make([]Command, 0, len(p.Commands))
	for _, child := range p.Commands {
		cmd, ok := r.Decode(child)
		if !ok {
			// A batch missing a child cannot be undone coherently.
			// Dropping the whole batch keeps history consistent.
			return nil, errUndecodableChild
		}
		children = append(children, cmd)
	}
	return &Batch{
		meta:     restoreMeta(p.ID, p.Label, sc.Timestamp),
		children: children,
	}, nil
}
