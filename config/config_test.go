package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.MaxChunkSize != 300 {
		t.Errorf("expected MaxChunkSize=300, got %d", cfg.Chunking.MaxChunkSize)
	}
	if cfg.Chunking.Overlap != 50 {
		t.Errorf("expected Overlap=50, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Store.Metric != "cosine" {
		t.Errorf("expected metric=cosine, got %s", cfg.Store.Metric)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("expected MaxIterations=5, got %d", cfg.Agent.MaxIterations)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragpipe.yaml")

	content := `
chunking:
  max_chunk_size: 512
  overlap: 64
retrieve:
  top_k: 3
store:
  backend: sqlite
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunking.MaxChunkSize != 512 {
		t.Errorf("expected MaxChunkSize=512, got %d", cfg.Chunking.MaxChunkSize)
	}
	if cfg.Chunking.Overlap != 64 {
		t.Errorf("expected Overlap=64, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("expected backend=sqlite, got %s", cfg.Store.Backend)
	}
	// Unset sections keep their defaults.
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %s", cfg.Embedding.Model)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragpipe.yaml")

	content := `
generation:
  temperature: 0.3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Generation.Temperature != 0.3 {
		t.Errorf("expected Temperature=0.3, got %f", cfg.Generation.Temperature)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragpipe.yaml")

	cfg := DefaultConfig()
	cfg.Retrieve.TopK = 7
	cfg.Store.Backend = "memory"

	if err := cfg.Save(configPath); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieve.TopK != 7 {
		t.Errorf("expected TopK=7 after round trip, got %d", loaded.Retrieve.TopK)
	}
	if loaded.Store.Backend != "memory" {
		t.Errorf("expected backend=memory after round trip, got %s", loaded.Store.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero chunk size", func(c *Config) { c.Chunking.MaxChunkSize = 0 }, true},
		{"overlap equals size", func(c *Config) { c.Chunking.Overlap = c.Chunking.MaxChunkSize }, true},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, true},
		{"unknown strategy", func(c *Config) { c.Chunking.Strategy = "sentences" }, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, true},
		{"zero top_k", func(c *Config) { c.Retrieve.TopK = 0 }, true},
		{"lambda above one", func(c *Config) { c.Retrieve.MMRLambda = 1.2 }, true},
		{"negative dedup", func(c *Config) { c.Retrieve.DedupJaccard = -0.1 }, true},
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestIndexPath(t *testing.T) {
	cfg := DefaultConfig()

	path := cfg.IndexPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".ragpipe", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Store.Backend = "sqlite"
	path = cfg.IndexPath("/home/user/project")
	expected = filepath.Join("/home/user/project", ".ragpipe", "index.sqlite")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Store.Path = "/tmp/custom.db"
	if got := cfg.IndexPath("/home/user/project"); got != "/tmp/custom.db" {
		t.Errorf("explicit path should win, got %s", got)
	}
}
