package port

import (
	"context"

	"ragpipe/internal/domain"
)

// Reranker scores query-chunk pairs for relevance.
type Reranker interface {
	// Rerank reorders chunks by relevance to the query, highest first.
	Rerank(ctx context.Context, query string, chunks []domain.ScoredChunk) ([]domain.ScoredChunk, error)
}

type DiversityReranker interface {
	Rerank(chunks []domain.ScoredChunk, k int) []domain.ScoredChunk
}
