package usecase

import (
	"context"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// RetrieveUseCase handles search and retrieval operations.
type RetrieveUseCase struct {
	retriever port.Retriever
	diversity port.DiversityReranker
	minScore  float64 // drop results below this score (0 = disabled)
}

// NewRetrieveUseCase creates a new retrieve use case. diversity may be
// nil to return results in plain similarity order.
func NewRetrieveUseCase(
	retriever port.Retriever,
	diversity port.DiversityReranker,
	minScore float64,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		retriever: retriever,
		diversity: diversity,
		minScore:  minScore,
	}
}

// Retrieve searches for chunks matching the query. With a diversity
// reranker configured it over-fetches twice the requested k so the
// reranker has candidates to trade off against each other.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int) (domain.RetrievalResult, error) {
	fetchK := topK
	if u.diversity != nil {
		fetchK = topK * 2
	}

	result, err := u.retriever.Retrieve(ctx, query, fetchK)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	chunks := result.Chunks
	if u.diversity != nil && len(chunks) > 0 {
		chunks = u.diversity.Rerank(chunks, topK)
	}
	if u.minScore > 0 {
		chunks = filterByScore(chunks, u.minScore)
	}
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	return domain.RetrievalResult{Query: query, Chunks: chunks}, nil
}

func filterByScore(chunks []domain.ScoredChunk, minScore float64) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Score >= minScore {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
