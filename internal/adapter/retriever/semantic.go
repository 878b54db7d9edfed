package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ragpipe/internal/domain"
	"ragpipe/internal/logging"
	"ragpipe/internal/port"
)

// SemanticRetriever embeds the query and searches the index store for
// the most similar chunks.
type SemanticRetriever struct {
	embedder port.Embedder
	store    port.IndexStore
}

var _ port.Retriever = (*SemanticRetriever)(nil)

func NewSemanticRetriever(embedder port.Embedder, store port.IndexStore) *SemanticRetriever {
	return &SemanticRetriever{
		embedder: embedder,
		store:    store,
	}
}

// Retrieve returns the top-k chunks by descending similarity.
// Dependency errors pass through unmasked.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return domain.RetrievalResult{}, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	if k < 1 {
		return domain.RetrievalResult{}, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidArgument, k)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	chunks, err := r.store.Search(vector, k)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	logging.FromContext(ctx).DebugContext(ctx, "retrieved chunks",
		slog.String("query", query),
		slog.Int("k", k),
		slog.Int("results", len(chunks)))

	return domain.RetrievalResult{Query: query, Chunks: chunks}, nil
}
