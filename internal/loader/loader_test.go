package loader

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func stagedFile(t *testing.T, l *Loader, id string) string {
	t.Helper()
	path := filepath.Join(l.dir, id+".pdf")
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		t.Fatal(err)
	}
	l.cache[id] = &Handle{SourceFileID: id, Path: path, PageCount: 1}
	return path
}

func TestEvictRemovesHandleAndFile(t *testing.T) {
	l, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	path := stagedFile(t, l, "s1")
	stagedFile(t, l, "s2")

	l.Evict("s1")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("staged file survived eviction")
	}
	if got := l.CachedIDs(); len(got) != 1 || got[0] != "s2" {
		t.Fatalf("cached ids = %v", got)
	}

	// Evicting an absent id is a no-op.
	l.Evict("ghost")
}

func TestEvictAllClearsCache(t *testing.T) {
	l, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	stagedFile(t, l, "s1")
	stagedFile(t, l, "s2")
	l.EvictAll()
	if got := l.CachedIDs(); len(got) != 0 {
		t.Fatalf("cached ids after EvictAll = %v", got)
	}
}

func TestCachedIDs(t *testing.T) {
	l, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	stagedFile(t, l, "b")
	stagedFile(t, l, "a")
	got := l.CachedIDs()
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("cached ids = %v", got)
	}
}

func TestCloseRemovesStagingDir(t *testing.T) {
	l, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	dir := l.dir
	stagedFile(t, l, "s1")

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("staging dir survived Close")
	}
}

func TestFileHashIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1, err := fileHash(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := fileHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 || len(h1) != 64 {
		t.Fatalf("hashes = %q / %q", h1, h2)
	}
	if _, err := fileHash(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
