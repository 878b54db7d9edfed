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

const hydeSystemPrompt = `You are a document-drafting assistant. Given a question,
write a short passage that could plausibly appear in a document answering it.
Write the passage directly, as if quoting the source document.
Keep it concise (100-200 words max). Do not explain - just write the passage.`

// HyDERetriever searches with an embedding of a hypothetical answer
// passage instead of the raw query. On generation failure it falls back
// to plain query retrieval.
type HyDERetriever struct {
	chat     port.ChatModel
	embedder port.Embedder
	store    port.IndexStore
}

var _ port.Retriever = (*HyDERetriever)(nil)

func NewHyDERetriever(chat port.ChatModel, embedder port.Embedder, store port.IndexStore) *HyDERetriever {
	return &HyDERetriever{
		chat:     chat,
		embedder: embedder,
		store:    store,
	}
}

func (r *HyDERetriever) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return domain.RetrievalResult{}, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	if k < 1 {
		return domain.RetrievalResult{}, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidArgument, k)
	}

	text := query
	hypothetical, err := r.generateHypothetical(ctx, query)
	if err != nil {
		// A failed drafting call degrades to plain retrieval rather
		// than aborting the query.
		logging.FromContext(ctx).WarnContext(ctx, "hypothetical generation failed, falling back to plain retrieval",
			slog.String("error", err.Error()))
	} else if strings.TrimSpace(hypothetical) != "" {
		text = hypothetical
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	chunks, err := r.store.Search(vector, k)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	return domain.RetrievalResult{Query: query, Chunks: chunks}, nil
}

func (r *HyDERetriever) generateHypothetical(ctx context.Context, query string) (string, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nWrite a hypothetical passage that answers this:", query)
	return r.chat.Complete(ctx, hydeSystemPrompt, userPrompt)
}
