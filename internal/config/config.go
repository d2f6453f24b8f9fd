// Package config loads runtime settings from a YAML file with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the editor backend and the reclaimer.
type Config struct {
	// GCPProject selects the cloud backend. Empty means local-only mode
	// backed by SQLitePath.
	GCPProject string `yaml:"gcpProject"`

	// ContentBucket is the GCS bucket holding content blobs.
	ContentBucket string `yaml:"contentBucket"`

	// ContentPrefix is an optional object name prefix inside the bucket.
	ContentPrefix string `yaml:"contentPrefix"`

	// ProjectCollection is the Firestore collection for project states.
	ProjectCollection string `yaml:"projectCollection"`

	// SQLitePath is the local database file for local-only mode.
	SQLitePath string `yaml:"sqlitePath"`

	// AutosaveInterval is the debounce window between the last edit and
	// the save it triggers.
	AutosaveInterval time.Duration `yaml:"autosaveInterval"`

	// HistoryLimit caps the undo log length.
	HistoryLimit int `yaml:"historyLimit"`

	// ReclaimWorkflow names the Workflows deployment that runs remote
	// reclaim passes. Empty disables remote triggering.
	ReclaimWorkflow string `yaml:"reclaimWorkflow"`

	// ReclaimLocation is the workflow's GCP region.
	ReclaimLocation string `yaml:"reclaimLocation"`
}

func defaults() Config {
	return Config{
		ProjectCollection: "projects",
		SQLitePath:        "fluxpdf.db",
		AutosaveInterval:  2 * time.Second,
		HistoryLimit:      100,
		ReclaimLocation:   "europe-west1",
	}
}

// Load reads the config file at path, if given, and applies environment
// overrides on top of it.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("historyLimit must be positive, got %d", cfg.HistoryLimit)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.GCPProject = GetEnv("GCP_PROJECT", c.GCPProject)
	c.ContentBucket = GetEnv("CONTENT_BUCKET", c.ContentBucket)
	c.ContentPrefix = GetEnv("CONTENT_PREFIX", c.ContentPrefix)
	c.ProjectCollection = GetEnv("PROJECT_COLLECTION", c.ProjectCollection)
	c.SQLitePath = GetEnv("SQLITE_PATH", c.SQLitePath)
	c.ReclaimWorkflow = GetEnv("RECLAIM_WORKFLOW", c.ReclaimWorkflow)
	c.ReclaimLocation = GetEnv("RECLAIM_LOCATION", c.ReclaimLocation)
	if v := os.Getenv("AUTOSAVE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AutosaveInterval = d
		}
	}
	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HistoryLimit = n
		}
	}
}

// GetEnv retrieves an environment variable or returns a fallback.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
