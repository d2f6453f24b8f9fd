package collector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProjects struct {
	states  []*models.ProjectState
	listErr error
}

func (f *fakeProjects) Get(context.Context, string) (*models.ProjectState, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProjects) Put(context.Context, *models.ProjectState) error { return nil }
func (f *fakeProjects) Delete(context.Context, string) error            { return nil }
func (f *fakeProjects) List(context.Context) ([]*models.ProjectState, error) {
	return f.states, f.listErr
}

type fakeBlobs struct {
	mu      sync.Mutex
	content map[string][]byte
}

func newFakeBlobs(ids ...string) *fakeBlobs {
	f := &fakeBlobs{content: map[string][]byte{}}
	for _, id := range ids {
		f.content[id] = []byte(id)
	}
	return f
}

func (f *fakeBlobs) Put(_ context.Context, id string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[id] = data
	return nil
}

func (f *fakeBlobs) Get(_ context.Context, id string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.content[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.content, id)
	return nil
}

func (f *fakeBlobs) Keys(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.content))
	for id := range f.content {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeBlobs) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.content[id]
	return ok
}

type fakeCache struct {
	mu      sync.Mutex
	evicted []string
}

func (f *fakeCache) Evict(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, id)
}

func TestRunRemovesOnlyUnreachableBlobs(t *testing.T) {
	// One source feeds three pages; two were deleted but the delete still
	// sits in history, so its snapshots keep the source reachable even
	// though only one page remains in the page map.
	state := &models.ProjectState{
		ID:              "p1",
		ActiveSourceIDs: []string{"src-active"},
		PageMap: []models.PageEntry{
			{ID: "a", Kind: models.PageKindContent, SourceFileID: "src-pages", SourceIndex: 0},
		},
		History: []models.SerializedCommand{
			{
				Version: 1,
				Type:    "deletePages",
				Payload: map[string]any{
					"pageIds": []any{"b", "c"},
					"snapshots": []any{
						map[string]any{"page": map[string]any{"id": "b", "sourceFileId": "src-pages"}, "index": 1},
						map[string]any{"page": map[string]any{"id": "c", "sourceFileId": "src-pages"}, "index": 2},
					},
				},
			},
		},
	}
	blobs := newFakeBlobs("src-active", "src-pages", "orphan-1", "orphan-2")
	cache := &fakeCache{}
	c := New(&fakeProjects{states: []*models.ProjectState{state}}, blobs, cache, quietLogger())

	report, err := c.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != "completed" || report.ScannedProjects != 1 || report.RemovedBlobs != 2 {
		t.Fatalf("report = %+v", report)
	}
	if !blobs.has("src-active") || !blobs.has("src-pages") {
		t.Fatal("reachable blob removed")
	}
	if blobs.has("orphan-1") || blobs.has("orphan-2") {
		t.Fatal("orphan survived")
	}
	sort.Strings(cache.evicted)
	if len(cache.evicted) != 2 || cache.evicted[0] != "orphan-1" || cache.evicted[1] != "orphan-2" {
		t.Fatalf("evicted = %v", cache.evicted)
	}
}

func TestRunPinsDeeplyNestedSourceFileRefs(t *testing.T) {
	// Batch payloads nest child command trees; a sourceFile object several
	// levels down must still pin its blob.
	state := &models.ProjectState{
		ID: "p1",
		History: []models.SerializedCommand{
			{
				Version: 1,
				Type:    "batch",
				Payload: map[string]any{
					"commands": []any{
						map[string]any{
							"type": "addSource",
							"payload": map[string]any{
								"sourceFile": map[string]any{"id": "src-nested", "name": "deep.pdf"},
							},
						},
					},
				},
			},
		},
	}
	blobs := newFakeBlobs("src-nested", "orphan")
	c := New(&fakeProjects{states: []*models.ProjectState{state}}, blobs, nil, quietLogger())

	if _, err := c.Run(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if !blobs.has("src-nested") {
		t.Fatal("nested sourceFile ref not pinned")
	}
	if blobs.has("orphan") {
		t.Fatal("orphan survived")
	}
}

func TestRunHonorsLiveStateAndRefs(t *testing.T) {
	live := &models.ProjectState{
		ID:      "live",
		PageMap: []models.PageEntry{{ID: "a", SourceFileID: "src-live-page"}},
	}
	blobs := newFakeBlobs("src-live-page", "src-live-history", "orphan")
	c := New(&fakeProjects{}, blobs, nil, quietLogger())

	report, err := c.Run(context.Background(), live, []string{"src-live-history"})
	if err != nil {
		t.Fatal(err)
	}
	if !blobs.has("src-live-page") || !blobs.has("src-live-history") {
		t.Fatal("live refs not pinned")
	}
	if blobs.has("orphan") {
		t.Fatal("orphan survived")
	}
	if report.ReachableBlobs != 2 {
		t.Fatalf("reachableBlobs = %d, want 2", report.ReachableBlobs)
	}
}

func TestRunDropsOverlappingPass(t *testing.T) {
	blobs := newFakeBlobs("orphan")
	c := New(&fakeProjects{}, blobs, nil, quietLogger())

	c.running.Store(true)
	report, err := c.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != "skipped" {
		t.Fatalf("status = %q, want skipped", report.Status)
	}
	if !blobs.has("orphan") {
		t.Fatal("skipped pass removed a blob")
	}
	c.running.Store(false)

	// The guard releases after a completed pass.
	if _, err := c.Run(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if blobs.has("orphan") {
		t.Fatal("orphan survived the follow-up pass")
	}
}

func TestRunFailsWhenProjectListingFails(t *testing.T) {
	c := New(&fakeProjects{listErr: errors.New("backend down")}, newFakeBlobs("keep"), nil, quietLogger())
	if _, err := c.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error")
	}
}
