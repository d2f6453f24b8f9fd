package models

import "github.com/google/uuid"

// PageKind distinguishes content pages from structural dividers in the page
// sequence. Dividers never carry a source file reference.
type PageKind string

const (
	PageKindContent PageKind = "page"
	PageKindDivider PageKind = "divider"
)

// PageSize is a target page dimension in PDF points.
type PageSize struct {
	Width  float64 `json:"width" firestore:"width"`
	Height float64 `json:"height" firestore:"height"`
}

// RedactionMark is a rectangular redaction area on a single page.
type RedactionMark struct {
	ID     string  `json:"id" firestore:"id"`
	X      float64 `json:"x" firestore:"x"`
	Y      float64 `json:"y" firestore:"y"`
	Width  float64 `json:"width" firestore:"width"`
	Height float64 `json:"height" firestore:"height"`
}

// PageEntry is one element of the linearized page sequence: either a
// reference into a source file or a divider.
type PageEntry struct {
	ID           string          `json:"id" firestore:"id"`
	Kind         PageKind        `json:"kind" firestore:"kind"`
	SourceFileID string          `json:"sourceFileId,omitempty" firestore:"sourceFileId,omitempty"`
	SourceIndex  int             `json:"sourceIndex" firestore:"sourceIndex"`
	Rotation     int             `json:"rotation" firestore:"rotation"`
	TargetSize   *PageSize       `json:"targetSize,omitempty" firestore:"targetSize,omitempty"`
	Redactions   []RedactionMark `json:"redactions,omitempty" firestore:"redactions,omitempty"`
}

// IsDivider reports whether the entry is a structural divider.
func (p PageEntry) IsDivider() bool {
	return p.Kind == PageKindDivider
}

// Clone returns a deep copy of the entry. Commands and snapshots must never
// share mutable sub-objects with the live page list.
func (p PageEntry) Clone() PageEntry {
	out := p
	if p.TargetSize != nil {
		size := *p.TargetSize
		out.TargetSize = &size
	}
	if p.Redactions != nil {
		out.Redactions = append([]RedactionMark(nil), p.Redactions...)
	}
	return out
}

// ClonePages deep-copies a page sequence.
func ClonePages(pages []PageEntry) []PageEntry {
	if pages == nil {
		return nil
	}
	out := make([]PageEntry, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}

// SourceFile describes an imported content blob. The binary itself lives in
// blob storage under ID; this record is the metadata commands carry around.
type SourceFile struct {
	ID        string `json:"id" firestore:"id"`
	Name      string `json:"name" firestore:"name"`
	Hash      string `json:"hash" firestore:"hash"`
	PageCount int    `json:"pageCount" firestore:"pageCount"`
	Size      int64  `json:"size" firestore:"size"`
}

// OutlineNode is one node of the document outline tree.
type OutlineNode struct {
	ID       string        `json:"id" firestore:"id"`
	Title    string        `json:"title" firestore:"title"`
	PageID   string        `json:"pageId,omitempty" firestore:"pageId,omitempty"`
	Children []OutlineNode `json:"children,omitempty" firestore:"children,omitempty"`
}

// CloneOutline deep-copies an outline tree.
func CloneOutline(nodes []OutlineNode) []OutlineNode {
	if nodes == nil {
		return nil
	}
	out := make([]OutlineNode, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Children = CloneOutline(n.Children)
	}
	return out
}

// PageSnapshot captures a deep-copied page together with its original index,
// so delete-style commands can restore exact positions on undo.
type PageSnapshot struct {
	Page  PageEntry `json:"page" firestore:"page"`
	Index int       `json:"index" firestore:"index"`
}

// SerializedCommand is the persisted form of a single history entry. Payload
// holds only JSON-safe values; the serialization boundary enforces that.
type SerializedCommand struct {
	Version   int            `json:"version" firestore:"version"`
	Type      string         `json:"type" firestore:"type"`
	Payload   map[string]any `json:"payload" firestore:"payload"`
	Timestamp int64          `json:"timestamp" firestore:"timestamp"`
}

// ProjectState is the persisted unit for one project: the current page
// sequence plus the full serialized command history. It is the authoritative
// scope for blob reachability.
type ProjectState struct {
	ID              string              `json:"id" firestore:"id"`
	ActiveSourceIDs []string            `json:"activeSourceIds" firestore:"activeSourceIds"`
	Sources         []SourceFile        `json:"sources,omitempty" firestore:"sources,omitempty"`
	PageMap         []PageEntry         `json:"pageMap" firestore:"pageMap"`
	History         []SerializedCommand `json:"history" firestore:"history"`
	HistoryPointer  int                 `json:"historyPointer" firestore:"historyPointer"`
	HistoryTrimmed  bool                `json:"historyTrimmed,omitempty" firestore:"historyTrimmed,omitempty"`
	OutlineTree     []OutlineNode       `json:"outlineTree,omitempty" firestore:"outlineTree,omitempty"`
	Metadata        map[string]string   `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	UpdatedAt       int64               `json:"updatedAt" firestore:"updatedAt"`
}

// NewID returns a fresh identifier for pages, commands and source files.
func NewID() string {
	return uuid.NewString()
}
