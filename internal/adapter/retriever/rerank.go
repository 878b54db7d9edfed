package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ragpipe/internal/domain"
	"ragpipe/internal/logging"
	"ragpipe/internal/port"
)

const rerankSystemPrompt = `You are a relevance grader. Given a question and numbered passages,
score how relevant each passage is to the question from 0.0 (unrelated) to 1.0 (directly answers it).
Respond with a JSON array only, one object per passage: [{"index":0,"score":0.8}, ...]
Include every passage exactly once. No prose, no markdown fences.`

// LLMReranker scores query/chunk relevance through the chat model.
type LLMReranker struct {
	chat port.ChatModel
}

var _ port.Reranker = (*LLMReranker)(nil)

func NewLLMReranker(chat port.ChatModel) *LLMReranker {
	return &LLMReranker{chat: chat}
}

type rerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank reorders chunks by model-judged relevance, highest first.
// Chunks the model omits keep their original score and sort last.
func (r *LLMReranker) Rerank(ctx context.Context, query string, chunks []domain.ScoredChunk) ([]domain.ScoredChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\n", query)
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d]\n%s\n\n", i, c.Chunk.Text)
	}

	reply, err := r.chat.Complete(ctx, rerankSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	scores, err := parseRerankScores(reply, len(chunks))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	reranked := make([]domain.ScoredChunk, len(chunks))
	copy(reranked, chunks)
	for _, s := range scores {
		reranked[s.Index] = domain.ScoredChunk{Chunk: chunks[s.Index].Chunk, Score: s.Score}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return reranked, nil
}

// parseRerankScores extracts the score array, tolerating fenced or
// prefixed replies by slicing from the first '[' to the last ']'.
func parseRerankScores(reply string, n int) ([]rerankScore, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in reranker reply")
	}

	var scores []rerankScore
	if err := json.Unmarshal([]byte(reply[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("malformed reranker reply: %v", err)
	}

	for _, s := range scores {
		if s.Index < 0 || s.Index >= n {
			return nil, fmt.Errorf("reranker index %d out of range [0, %d)", s.Index, n)
		}
	}
	return scores, nil
}

// RerankedRetriever fetches extra candidates and reorders them with a
// reranker before cutting to k. Rerank failure falls back to the base
// ordering instead of failing the query.
type RerankedRetriever struct {
	base     port.Retriever
	reranker port.Reranker
	fetchK   int // candidate pool multiplier
}

var _ port.Retriever = (*RerankedRetriever)(nil)

func NewRerankedRetriever(base port.Retriever, reranker port.Reranker) *RerankedRetriever {
	return &RerankedRetriever{
		base:     base,
		reranker: reranker,
		fetchK:   2,
	}
}

func (r *RerankedRetriever) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if k < 1 {
		return domain.RetrievalResult{}, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidArgument, k)
	}

	result, err := r.base.Retrieve(ctx, query, k*r.fetchK)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	if len(result.Chunks) == 0 {
		return result, nil
	}

	reranked, err := r.reranker.Rerank(ctx, query, result.Chunks)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "rerank failed, keeping base order",
			slog.String("error", err.Error()))
		reranked = result.Chunks
	}

	if len(reranked) > k {
		reranked = reranked[:k]
	}

	return domain.RetrievalResult{Query: query, Chunks: reranked}, nil
}
