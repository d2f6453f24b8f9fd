package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectCollection != "projects" {
		t.Fatalf("collection = %q", cfg.ProjectCollection)
	}
	if cfg.AutosaveInterval != 2*time.Second {
		t.Fatalf("autosave interval = %v", cfg.AutosaveInterval)
	}
	if cfg.HistoryLimit != 100 {
		t.Fatalf("history limit = %d", cfg.HistoryLimit)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
gcpProject: my-project
contentBucket: my-bucket
historyLimit: 25
autosaveInterval: 5s
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GCPProject != "my-project" || cfg.ContentBucket != "my-bucket" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HistoryLimit != 25 || cfg.AutosaveInterval != 5*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	// Untouched fields keep their defaults.
	if cfg.ProjectCollection != "projects" {
		t.Fatalf("collection = %q", cfg.ProjectCollection)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("contentBucket: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONTENT_BUCKET", "from-env")
	t.Setenv("HISTORY_LIMIT", "7")
	t.Setenv("AUTOSAVE_INTERVAL", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ContentBucket != "from-env" {
		t.Fatalf("bucket = %q", cfg.ContentBucket)
	}
	if cfg.HistoryLimit != 7 || cfg.AutosaveInterval != 250*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "-1")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for negative history limit")
	}

	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("PRESENT_KEY", "value")
	if got := GetEnv("PRESENT_KEY", "fallback"); got != "value" {
		t.Fatalf("got %q", got)
	}
	if got := GetEnv("ABSENT_KEY_FOR_TEST", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}
