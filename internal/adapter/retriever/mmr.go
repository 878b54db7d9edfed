package retriever

import (
	"sort"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// MMRReranker implements Maximal Marginal Relevance for result
// diversification. Chunk similarity is Jaccard overlap of word tokens.
type MMRReranker struct {
	lambda       float64
	dedupJaccard float64
	tokenizer    port.Tokenizer
}

var _ port.DiversityReranker = (*MMRReranker)(nil)

// NewMMRReranker creates a new MMR reranker. dedupJaccard is the overlap
// above which a candidate is skipped as a near-duplicate.
func NewMMRReranker(lambda, dedupJaccard float64, tokenizer port.Tokenizer) *MMRReranker {
	return &MMRReranker{
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
		tokenizer:    tokenizer,
	}
}

// Rerank applies MMR to diversify the results.
// MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
func (r *MMRReranker) Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(candidates) == 0 {
		return nil
	}

	if k > len(candidates) {
		k = len(candidates)
	}

	tokens := make([][]string, len(candidates))
	for i, c := range candidates {
		tokens[i] = r.tokenizer.Tokenize(c.Chunk.Text)
	}

	// Normalize scores to [0, 1] for fair comparison
	maxScore := candidates[0].Score
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	type indexed struct {
		chunk  domain.ScoredChunk
		tokens []string
	}

	remaining := make([]indexed, len(candidates))
	for i, c := range candidates {
		remaining[i] = indexed{chunk: c, tokens: tokens[i]}
	}

	var selected []indexed

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestMMR := -1e9

		for i, candidate := range remaining {
			// Normalized relevance score
			relevance := candidate.chunk.Score / maxScore

			// Maximum similarity to already selected items
			maxSim := 0.0
			for _, sel := range selected {
				sim := jaccardSimilarity(candidate.tokens, sel.tokens)
				if sim > maxSim {
					maxSim = sim
				}
			}

			// Skip near-duplicates of an already selected item
			if maxSim > r.dedupJaccard {
				continue
			}

			mmr := r.lambda*relevance - (1-r.lambda)*maxSim
			if mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			// All remaining candidates are too similar, stop
			break
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	// MMR decides which chunks survive; the result is still presented
	// in descending score order.
	results := make([]domain.ScoredChunk, len(selected))
	for i, s := range selected {
		results[i] = s.chunk
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// jaccardSimilarity computes the Jaccard similarity between two token sets.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, exists := setB[t]; exists {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// JaccardSimilarity is exported for testing.
func JaccardSimilarity(a, b []string) float64 {
	return jaccardSimilarity(a, b)
}
