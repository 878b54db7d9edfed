package store

import (
	"fmt"
	"sort"

	"ragpipe/internal/domain"
)

// rankedEntry pairs an index entry with its insertion sequence. The
// sequence breaks similarity ties: earlier-inserted entries win.
type rankedEntry struct {
	entry domain.IndexEntry
	seq   uint64
}

// validateEntries checks a batch before any of it is applied, so a
// failed add never leaves partial state behind.
func validateEntries(entries []domain.IndexEntry, dimension int) error {
	for i, entry := range entries {
		if entry.Chunk.ID == "" {
			return fmt.Errorf("%w: entry %d has no chunk ID", domain.ErrInvalidArgument, i)
		}
		if len(entry.Vector) != dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, store expects %d",
				domain.ErrInvalidArgument, entry.Chunk.ID, len(entry.Vector), dimension)
		}
	}
	return nil
}

// searchRanked scores every entry against the query and returns the
// top k by descending similarity.
func searchRanked(entries []rankedEntry, metric Metric, dimension int, query []float32, k int) ([]domain.ScoredChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidArgument, k)
	}
	if len(query) != dimension {
		return nil, fmt.Errorf("%w: query dimension %d, store expects %d", domain.ErrInvalidArgument, len(query), dimension)
	}
	if len(entries) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	type scored struct {
		chunk domain.Chunk
		score float64
		seq   uint64
	}

	scores := make([]scored, 0, len(entries))
	for _, e := range entries {
		scores = append(scores, scored{
			chunk: e.entry.Chunk,
			score: metric.Score(query, e.entry.Vector),
			seq:   e.seq,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].seq < scores[j].seq
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]domain.ScoredChunk, k)
	for i := 0; i < k; i++ {
		results[i] = domain.ScoredChunk{
			Chunk: scores[i].chunk,
			Score: scores[i].score,
		}
	}

	return results, nil
}
