package command

import (
	"reflect"
	"testing"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/document"
	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

func TestBatchUndoRunsInReverseOrder(t *testing.T) {
	source := models.SourceFile{ID: "s1", Name: "import.pdf", PageCount: 2}
	pages := []models.PageEntry{page("a", "s1", 0), page("b", "s1", 1)}

	doc := document.New()
	batch := NewBatch("Import import.pdf", []Command{
		NewAddSource(source),
		NewAddPages(source, pages),
	})
	mustExec(t, doc, batch)
	if doc.PageCount() != 2 || !doc.HasSource("s1") {
		t.Fatalf("after batch: pages=%d hasSource=%v", doc.PageCount(), doc.HasSource("s1"))
	}

	// Reverse order: pages come out before the source registration, so the
	// AddPages undo never touches a missing source.
	mustUndo(t, doc, batch)
	if doc.PageCount() != 0 || doc.HasSource("s1") {
		t.Fatalf("after batch undo: pages=%d hasSource=%v", doc.PageCount(), doc.HasSource("s1"))
	}
}

func TestBatchRollsBackOnChildFailure(t *testing.T) {
	source := models.SourceFile{ID: "s1", Name: "import.pdf"}
	pages := []models.PageEntry{page("a", "s1", 0), page("b", "s1", 1)}

	doc := document.New()
	batch := NewBatch("doomed", []Command{
		NewAddPages(source, pages),
		// Wrong permutation length, guaranteed to fail after the first
		// child has already applied.
		NewReorderPages([]string{"a"}),
	})
	if err := batch.Execute(doc); err == nil {
		t.Fatal("expected batch to fail")
	}
	if doc.PageCount() != 0 || doc.HasSource("s1") {
		t.Fatalf("failed batch left effects behind: pages=%d hasSource=%v", doc.PageCount(), doc.HasSource("s1"))
	}
}

func TestBatchReferencedContentIDsUnion(t *testing.T) {
	batch := NewBatch("multi", []Command{
		NewAddSource(models.SourceFile{ID: "s1"}),
		NewAddSource(models.SourceFile{ID: "s2"}),
	})
	if got := batch.ReferencedContentIDs(); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Fatalf("referenced ids = %v", got)
	}
}
