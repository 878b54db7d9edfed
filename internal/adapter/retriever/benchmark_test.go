package retriever

import (
	"context"
	"fmt"
	"testing"

	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/store"
	"ragpipe/internal/domain"
)

func benchStore(b *testing.B, n, dim int) (*store.MemoryStore, *embedding.MockEmbedder) {
	b.Helper()
	embedder := embedding.NewMockEmbedder(dim)
	st := store.NewMemoryStore(dim, store.MetricCosine)

	ctx := context.Background()
	entries := make([]domain.IndexEntry, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("document %d about topic %d with filler content", i, i%17)
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			b.Fatal(err)
		}
		entries = append(entries, domain.IndexEntry{
			Chunk:  domain.Chunk{ID: fmt.Sprintf("c%d", i), DocID: "bench", Text: text},
			Vector: vec,
		})
	}
	if err := st.Add(entries); err != nil {
		b.Fatal(err)
	}
	return st, embedder
}

func BenchmarkSemanticRetrieve(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("entries_%d", n), func(b *testing.B) {
			st, embedder := benchStore(b, n, 64)
			r := NewSemanticRetriever(embedder, st)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := r.Retrieve(ctx, "topic 7 filler content", 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkStoreSearch(b *testing.B) {
	st, embedder := benchStore(b, 1000, 64)
	vec, err := embedder.Embed(context.Background(), "topic 7 filler content")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Search(vec, 10); err != nil {
			b.Fatal(err)
		}
	}
}
