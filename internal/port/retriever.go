package port

import (
	"context"

	"ragpipe/internal/domain"
)

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Retrieve embeds the query and returns the top-k most similar chunks.
	Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
}
