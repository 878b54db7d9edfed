package store

import (
	"errors"
	"path/filepath"
	"testing"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

func entry(id string, vector ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		Chunk:  domain.Chunk{ID: id, DocID: "doc", Text: "text of " + id},
		Vector: vector,
	}
}

type backend struct {
	name string
	make func(t *testing.T) port.IndexStore
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) port.IndexStore {
			return NewMemoryStore(3, MetricCosine)
		}},
		{"bolt", func(t *testing.T) port.IndexStore {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"), 3, MetricCosine)
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}},
		{"sqlite", func(t *testing.T) port.IndexStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.sqlite"), 3, MetricCosine)
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

func TestStoreTopKOrdering(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			err := s.Add([]domain.IndexEntry{
				entry("far", 0, 1, 0),
				entry("close", 0.9, 0.1, 0),
				entry("exact", 1, 0, 0),
				entry("mid", 0.5, 0.5, 0),
			})
			if err != nil {
				t.Fatal(err)
			}

			results, err := s.Search([]float32{1, 0, 0}, 3)
			if err != nil {
				t.Fatal(err)
			}

			if len(results) != 3 {
				t.Fatalf("expected 3 results, got %d", len(results))
			}
			wantOrder := []string{"exact", "close", "mid"}
			for i, want := range wantOrder {
				if results[i].Chunk.ID != want {
					t.Errorf("result %d = %s, want %s", i, results[i].Chunk.ID, want)
				}
			}
			for i := 1; i < len(results); i++ {
				if results[i].Score > results[i-1].Score {
					t.Errorf("scores increase at %d: %f > %f", i, results[i].Score, results[i-1].Score)
				}
			}
		})
	}
}

func TestStoreKLargerThanCount(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			if err := s.Add([]domain.IndexEntry{entry("only", 1, 0, 0)}); err != nil {
				t.Fatal(err)
			}

			results, err := s.Search([]float32{1, 0, 0}, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 1 {
				t.Errorf("expected 1 result, got %d", len(results))
			}
		})
	}
}

func TestStoreEmptySearch(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			results, err := s.Search([]float32{1, 0, 0}, 5)
			if err != nil {
				t.Fatalf("search on empty store should not error, got %v", err)
			}
			if len(results) != 0 {
				t.Errorf("expected empty result, got %d", len(results))
			}
		})
	}
}

func TestStoreInvalidK(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			for _, k := range []int{0, -1} {
				if _, err := s.Search([]float32{1, 0, 0}, k); !errors.Is(err, domain.ErrInvalidArgument) {
					t.Errorf("k=%d: expected ErrInvalidArgument, got %v", k, err)
				}
			}
		})
	}
}

func TestStoreQueryDimensionMismatch(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			if err := s.Add([]domain.IndexEntry{entry("a", 1, 0, 0)}); err != nil {
				t.Fatal(err)
			}

			if _, err := s.Search([]float32{1, 0}, 1); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for short query, got %v", err)
			}
		})
	}
}

func TestStoreReplaceNotDuplicate(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			if err := s.Add([]domain.IndexEntry{entry("x", 1, 0, 0)}); err != nil {
				t.Fatal(err)
			}
			if err := s.Add([]domain.IndexEntry{entry("x", 0, 1, 0)}); err != nil {
				t.Fatal(err)
			}

			count, err := s.Count()
			if err != nil {
				t.Fatal(err)
			}
			if count != 1 {
				t.Fatalf("expected 1 entry after re-add, got %d", count)
			}

			results, err := s.Search([]float32{0, 1, 0}, 1)
			if err != nil {
				t.Fatal(err)
			}
			if results[0].Score < 0.99 {
				t.Errorf("stored vector was not replaced: score %f", results[0].Score)
			}
		})
	}
}

func TestStoreTieInsertionOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			// first and third share a vector: equal similarity to the
			// query, so the earlier insertion must rank first.
			err := s.Add([]domain.IndexEntry{
				entry("first", 1, 0, 0),
				entry("other", 0, 1, 0),
				entry("third", 1, 0, 0),
			})
			if err != nil {
				t.Fatal(err)
			}

			results, err := s.Search([]float32{1, 0, 0}, 3)
			if err != nil {
				t.Fatal(err)
			}

			wantOrder := []string{"first", "third", "other"}
			for i, want := range wantOrder {
				if results[i].Chunk.ID != want {
					t.Errorf("result %d = %s, want %s", i, results[i].Chunk.ID, want)
				}
			}
		})
	}
}

func TestStoreReplaceKeepsRank(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			err := s.Add([]domain.IndexEntry{
				entry("a", 1, 0, 0),
				entry("b", 1, 0, 0),
			})
			if err != nil {
				t.Fatal(err)
			}

			// Replacing "a" must not push it behind "b" on ties.
			if err := s.Add([]domain.IndexEntry{entry("a", 1, 0, 0)}); err != nil {
				t.Fatal(err)
			}

			results, err := s.Search([]float32{1, 0, 0}, 2)
			if err != nil {
				t.Fatal(err)
			}
			if results[0].Chunk.ID != "a" || results[1].Chunk.ID != "b" {
				t.Errorf("order after replace = %s, %s; want a, b", results[0].Chunk.ID, results[1].Chunk.ID)
			}
		})
	}
}

func TestStoreAtomicBatchRejected(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			err := s.Add([]domain.IndexEntry{
				entry("good", 1, 0, 0),
				entry("bad", 1, 0), // wrong dimension
			})
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}

			count, err := s.Count()
			if err != nil {
				t.Fatal(err)
			}
			if count != 0 {
				t.Errorf("failed batch must store nothing, got %d entries", count)
			}
		})
	}
}

func TestStoreRejectsEmptyChunkID(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			err := s.Add([]domain.IndexEntry{entry("", 1, 0, 0)})
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for empty ID, got %v", err)
			}
		})
	}
}

func TestStoreClear(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.make(t)

			if err := s.Add([]domain.IndexEntry{entry("a", 1, 0, 0)}); err != nil {
				t.Fatal(err)
			}
			if err := s.Clear(); err != nil {
				t.Fatal(err)
			}

			count, err := s.Count()
			if err != nil {
				t.Fatal(err)
			}
			if count != 0 {
				t.Errorf("expected empty store after clear, got %d", count)
			}
		})
	}
}

func TestMemoryStoreDotMetric(t *testing.T) {
	s := NewMemoryStore(2, MetricDot)

	err := s.Add([]domain.IndexEntry{
		{Chunk: domain.Chunk{ID: "short"}, Vector: []float32{1, 0}},
		{Chunk: domain.Chunk{ID: "long"}, Vector: []float32{3, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := s.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Inner product favors magnitude; cosine would tie these.
	if results[0].Chunk.ID != "long" {
		t.Errorf("dot metric should rank \"long\" first, got %s", results[0].Chunk.ID)
	}
	if results[0].Score != 3 || results[1].Score != 1 {
		t.Errorf("scores = %f, %f; want 3, 1", results[0].Score, results[1].Score)
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric(""); err != nil || m != MetricCosine {
		t.Errorf("empty metric: got %v, %v", m, err)
	}
	if m, err := ParseMetric("dot"); err != nil || m != MetricDot {
		t.Errorf("dot metric: got %v, %v", m, err)
	}
	if _, err := ParseMetric("euclidean"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown metric, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}
