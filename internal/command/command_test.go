package command

import (
	"reflect"
	"testing"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

func page(id, sourceID string, sourceIndex int) models.PageEntry {
	return models.PageEntry{
		ID:           id,
		Kind:         models.PageKindContent,
		SourceFileID: sourceID,
		SourceIndex:  sourceIndex,
	}
}

func mustExec(t *testing.T, doc *document.Document, cmd Command) {
	t.Helper()
	if err := cmd.Execute(doc); err != nil {
		t.Fatalf("execute %s: %v", cmd.Type(), err)
	}
}

func mustUndo(t *testing.T, doc *document.Document, cmd Command) {
	t.Helper()
	if err := cmd.Undo(doc); err != nil {
		t.Fatalf("undo %s: %v", cmd.Type(), err)
	}
}

func TestAddPagesUndoRemovesSourceOnlyIfOwned(t *testing.T) {
	source := models.SourceFile{ID: "s1", Name: "report.pdf", PageCount: 2}
	pages := []models.PageEntry{page("a", "s1", 0), page("b", "s1", 1)}

	// Fresh source: undo removes it again.
	doc := document.New()
	cmd := NewAddPages(source, pages)
	mustExec(t, doc, cmd)
	if !doc.HasSource("s1") || doc.PageCount() != 2 {
		t.Fatalf("after execute: hasSource=%v pages=%d", doc.HasSource("s1"), doc.PageCount())
	}
	mustUndo(t, doc, cmd)
	if doc.HasSource("s1") || doc.PageCount() != 0 {
		t.Fatalf("after undo: hasSource=%v pages=%d", doc.HasSource("s1"), doc.PageCount())
	}

	// Pre-registered source: undo must leave it alone.
	doc = document.New()
	doc.RegisterSource(source)
	cmd = NewAddPages(source, pages)
	mustExec(t, doc, cmd)
	mustUndo(t, doc, cmd)
	if !doc.HasSource("s1") {
		t.Fatal("undo removed a source the command did not register")
	}
}

func TestDeletePagesRestoresNonContiguousSelection(t *testing.T) {
	doc := document.New()
	doc.AppendPages([]models.PageEntry{
		page("a", "s", 0), page("b", "s", 1), page("c", "s", 2), page("d", "s", 3), page("e", "s", 4),
	})

	cmd := NewDeletePages([]string{"b", "d"})
	mustExec(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"a", "c", "e"}) {
		t.Fatalf("after delete: %v", got)
	}

	mustUndo(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("after undo: %v", got)
	}

	// Redo reuses the captured snapshots; positions stay exact through a
	// second cycle.
	mustExec(t, doc, cmd)
	mustUndo(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("after second cycle: %v", got)
	}
}

func TestDuplicatePagesReusesIDsOnRedo(t *testing.T) {
	doc := document.New()
	doc.AppendPages([]models.PageEntry{page("a", "s1", 0), page("b", "s1", 1)})

	cmd := NewDuplicatePages([]string{"a"})
	mustExec(t, doc, cmd)

	order := doc.OrderIDs()
	if len(order) != 3 || order[0] != "a" || order[2] != "b" {
		t.Fatalf("after duplicate: %v", order)
	}
	dupID := order[1]
	if dupID == "a" || dupID == "" {
		t.Fatalf("duplicate got id %q", dupID)
	}

	mustUndo(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("after undo: %v", got)
	}

	mustExec(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"a", dupID, "b"}) {
		t.Fatalf("redo produced different ids: %v, want duplicate %s", got, dupID)
	}

	if got := cmd.ReferencedContentIDs(); !reflect.DeepEqual(got, []string{"s1"}) {
		t.Fatalf("referenced ids = %v, want [s1]", got)
	}

	// Repeated undo/redo cycles must not accumulate source references.
	mustUndo(t, doc, cmd)
	mustExec(t, doc, cmd)
	if got := cmd.ReferencedContentIDs(); !reflect.DeepEqual(got, []string{"s1"}) {
		t.Fatalf("referenced ids after second redo = %v, want [s1]", got)
	}
	sc, err := cmd.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if ids, _ := sc.Payload["sourceFileIds"].([]any); len(ids) != 1 {
		t.Fatalf("serialized sourceFileIds = %v, want one entry", sc.Payload["sourceFileIds"])
	}
}

func TestDuplicatePagesFailsOnMissingPage(t *testing.T) {
	doc := document.New()
	doc.AppendPages([]models.PageEntry{page("a", "s", 0)})
	if err := NewDuplicatePages([]string{"nope"}).Execute(doc); err == nil {
		t.Fatal("expected error for unknown page id")
	}
}

func TestReorderPagesRoundTrip(t *testing.T) {
	doc := document.New()
	doc.AppendPages([]models.PageEntry{page("a", "s", 0), page("b", "s", 1), page("c", "s", 2)})

	cmd := NewReorderPages([]string{"c", "a", "b"})
	mustExec(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("after reorder: %v", got)
	}
	mustUndo(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("after undo: %v", got)
	}
}

func TestRotatePagesInverse(t *testing.T) {
	doc := document.New()
	doc.AppendPages([]models.PageEntry{page("a", "s", 0)})

	cmd := NewRotatePages([]string{"a"}, 90)
	mustExec(t, doc, cmd)
	mustExec(t, doc, cmd)
	p, _, _ := doc.PageByID("a")
	if p.Rotation != 180 {
		t.Fatalf("rotation = %d, want 180", p.Rotation)
	}
	mustUndo(t, doc, cmd)
	mustUndo(t, doc, cmd)
	p, _, _ = doc.PageByID("a")
	if p.Rotation != 0 {
		t.Fatalf("rotation after undos = %d, want 0", p.Rotation)
	}
}

func TestResizePagesRestoresPreviousSizes(t *testing.T) {
	doc := document.New()
	withSize := page("a", "s", 0)
	withSize.TargetSize = &models.PageSize{Width: 210, Height: 297}
	doc.AppendPages([]models.PageEntry{withSize, page("b", "s", 1)})

	cmd := NewResizePages([]string{"a", "b"}, &models.PageSize{Width: 595, Height: 842})
	mustExec(t, doc, cmd)
	if got := doc.TargetSize("b"); got == nil || got.Width != 595 {
		t.Fatalf("b size after resize = %+v", got)
	}

	mustUndo(t, doc, cmd)
	if got := doc.TargetSize("a"); got == nil || got.Width != 210 {
		t.Fatalf("a size after undo = %+v, want 210x297", got)
	}
	if got := doc.TargetSize("b"); got != nil {
		t.Fatalf("b size after undo = %+v, want nil", got)
	}
}

func TestSplitGroupStableDividerID(t *testing.T) {
	doc := document.New()
	doc.AppendPages([]models.PageEntry{page("a", "s", 0), page("b", "s", 1)})

	cmd := NewSplitGroup(1)
	mustExec(t, doc, cmd)
	order := doc.OrderIDs()
	if len(order) != 3 {
		t.Fatalf("after split: %v", order)
	}
	dividerID := order[1]
	p, _, _ := doc.PageByID(dividerID)
	if !p.IsDivider() {
		t.Fatalf("inserted page is not a divider: %+v", p)
	}

	mustUndo(t, doc, cmd)
	mustExec(t, doc, cmd)
	if got := doc.OrderIDs()[1]; got != dividerID {
		t.Fatalf("redo generated a new divider id %s, want %s", got, dividerID)
	}
}

func TestRemoveSourceRestoresPagesAndRecord(t *testing.T) {
	doc := document.New()
	doc.RegisterSource(models.SourceFile{ID: "s1", Name: "one.pdf"})
	doc.RegisterSource(models.SourceFile{ID: "s2", Name: "two.pdf"})
	doc.AppendPages([]models.PageEntry{
		page("a", "s1", 0), page("b", "s2", 0), page("c", "s1", 1), page("d", "s2", 1),
	})

	cmd := NewRemoveSource("s1")
	mustExec(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Fatalf("after remove: %v", got)
	}
	if doc.HasSource("s1") {
		t.Fatal("source still registered after remove")
	}
	if cmd.Label() != "Remove source one.pdf" {
		t.Fatalf("label = %q", cmd.Label())
	}

	mustUndo(t, doc, cmd)
	if got := doc.OrderIDs(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("after undo: %v", got)
	}
	sf, ok := doc.Source("s1")
	if !ok || sf.Name != "one.pdf" {
		t.Fatalf("source record after undo = %+v, %v", sf, ok)
	}
}

func TestRemoveSourceFailsWhenUnregistered(t *testing.T) {
	doc := document.New()
	if err := NewRemoveSource("ghost").Execute(doc); err == nil {
		t.Fatal("expected error for unregistered source")
	}
}

func TestUpdateRedactionRejectsIDChange(t *testing.T) {
	prev := models.RedactionMark{ID: "r1", X: 1}
	next := models.RedactionMark{ID: "r2", X: 2}
	if _, err := NewUpdateRedaction("a", prev, next); err == nil {
		t.Fatal("expected error for changed mark id")
	}
}

func TestRedactionCommandsRoundTrip(t *testing.T) {
	doc := document.New()
	doc.AppendPages([]models.PageEntry{page("a", "s", 0)})

	add := NewAddRedaction("a", models.RedactionMark{X: 10, Y: 20, Width: 5, Height: 5})
	mustExec(t, doc, add)
	marks := doc.Pages()[0].Redactions
	if len(marks) != 1 || marks[0].ID == "" {
		t.Fatalf("marks after add: %+v", marks)
	}
	markID := marks[0].ID

	upd, err := NewUpdateRedaction("a", marks[0], models.RedactionMark{ID: markID, X: 50, Y: 20, Width: 5, Height: 5})
	if err != nil {
		t.Fatal(err)
	}
	mustExec(t, doc, upd)
	m, _ := doc.RedactionByID("a", markID)
	if m.X != 50 {
		t.Fatalf("mark after update: %+v", m)
	}
	mustUndo(t, doc, upd)
	m, _ = doc.RedactionByID("a", markID)
	if m.X != 10 {
		t.Fatalf("mark after update undo: %+v", m)
	}

	del := NewDeleteRedaction("a", m)
	mustExec(t, doc, del)
	if _, ok := doc.RedactionByID("a", markID); ok {
		t.Fatal("mark survived delete")
	}
	mustUndo(t, doc, del)
	if _, ok := doc.RedactionByID("a", markID); !ok {
		t.Fatal("mark missing after delete undo")
	}
}

func TestUpdateOutlineSwap(t *testing.T) {
	doc := document.New()
	doc.SetOutline([]models.OutlineNode{{ID: "n1", Title: "Intro"}})

	next := []models.OutlineNode{
		{ID: "n1", Title: "Introduction", Children: []models.OutlineNode{{ID: "n2", Title: "Scope"}}},
	}
	cmd := NewUpdateOutline(doc.Outline(), next)
	mustExec(t, doc, cmd)
	if got := doc.Outline(); len(got) != 1 || got[0].Title != "Introduction" || len(got[0].Children) != 1 {
		t.Fatalf("outline after update: %+v", got)
	}
	mustUndo(t, doc, cmd)
	if got := doc.Outline(); len(got) != 1 || got[0].Title != "Intro" || len(got[0].Children) != 0 {
		t.Fatalf("outline after undo: %+v", got)
	}
}
