package store

import (
	"path/filepath"
	"testing"

	"ragpipe/config"
	"ragpipe/internal/domain"
)

func TestBoltStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewBoltStore(path, 3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Add([]domain.IndexEntry{
		entry("first", 1, 0, 0),
		entry("second", 0, 1, 0),
		entry("third", 1, 0, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBoltStore(path, 3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	count, err := reopened.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 entries after reopen, got %d", count)
	}

	// Insertion order must survive the reopen for tie-breaking.
	results, err := reopened.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"first", "third", "second"}
	for i, want := range wantOrder {
		if results[i].Chunk.ID != want {
			t.Errorf("result %d = %s, want %s", i, results[i].Chunk.ID, want)
		}
	}
}

func TestBoltStoreReplacePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := NewBoltStore(path, 3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add([]domain.IndexEntry{entry("x", 1, 0, 0)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add([]domain.IndexEntry{entry("x", 0, 1, 0)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBoltStore(path, 3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	count, err := reopened.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry, got %d", count)
	}

	results, err := reopened.Search([]float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Score < 0.99 {
		t.Errorf("replacement vector not persisted: score %f", results[0].Score)
	}
}

func TestBoltSchemaInfoRoundTrip(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"), 3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	info, err := s.SchemaInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != 0 || info.ConfigHash != "" {
		t.Errorf("fresh store should have zero schema info, got %+v", info)
	}

	want := &SchemaInfo{Version: currentSchemaVersion, ConfigHash: "abc123"}
	if err := s.SetSchemaInfo(want); err != nil {
		t.Fatal(err)
	}

	got, err := s.SchemaInfo()
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != want.Version || got.ConfigHash != want.ConfigHash {
		t.Errorf("schema info = %+v, want %+v", got, want)
	}
}

func TestComputeConfigHash(t *testing.T) {
	base := config.DefaultConfig()

	h1 := ComputeConfigHash(base)
	h2 := ComputeConfigHash(base)
	if h1 != h2 {
		t.Error("config hash is not stable")
	}

	changed := config.DefaultConfig()
	changed.Chunking.MaxChunkSize = base.Chunking.MaxChunkSize + 100
	if ComputeConfigHash(changed) == h1 {
		t.Error("chunk size change should change the hash")
	}

	changed = config.DefaultConfig()
	changed.Embedding.Model = "text-embedding-3-large"
	if ComputeConfigHash(changed) == h1 {
		t.Error("embedding model change should change the hash")
	}

	changed = config.DefaultConfig()
	changed.Retrieve.TopK = base.Retrieve.TopK + 5
	if ComputeConfigHash(changed) != h1 {
		t.Error("retrieval settings must not affect the index hash")
	}
}
