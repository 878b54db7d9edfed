package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ragpipe/internal/domain"
)

func TestSQLiteStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")

	s, err := NewSQLiteStore(path, 3, MetricCosine)
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

	reopened, err := NewSQLiteStore(path, 3, MetricCosine)
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

func TestSQLiteStoreMetadataRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.sqlite"), 2, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	chunk := domain.Chunk{
		ID:       "c1",
		DocID:    "d1",
		Seq:      4,
		Text:     "chunk body",
		Metadata: map[string]string{"source": "notes.pdf", "page": "7"},
	}
	if err := s.Add([]domain.IndexEntry{{Chunk: chunk, Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(chunk, results[0].Chunk); diff != "" {
		t.Errorf("chunk round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	original := []float32{0.25, -1.5, 3.75, 0}

	decoded, err := decodeVector(encodeVector(original))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("vector round trip mismatch:\n%s", diff)
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for malformed blob")
	}
}
