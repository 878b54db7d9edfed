package chunker

import (
	"fmt"
	"strings"

	"ragpipe/internal/adapter/analyzer"
	"ragpipe/internal/domain"
)

// TokenChunker splits text into windows of at most maxTokens words,
// with overlap words shared between consecutive chunks. Chunk text is
// rejoined with single spaces, so original whitespace is not preserved.
type TokenChunker struct {
	maxTokens int
	overlap   int
}

func NewTokenChunker(maxTokens, overlap int) (*TokenChunker, error) {
	if maxTokens < 1 {
		return nil, fmt.Errorf("%w: max tokens must be >= 1, got %d", domain.ErrInvalidArgument, maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidArgument, maxTokens, overlap)
	}
	return &TokenChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
	}, nil
}

func (c *TokenChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	words := analyzer.Words(doc.Text)
	if len(words) == 0 {
		return nil, nil
	}

	step := c.maxTokens - c.overlap

	var chunks []domain.Chunk
	seq := 0

	for start := 0; start < len(words); start += step {
		end := start + c.maxTokens
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, domain.Chunk{
			ID:       generateChunkID(doc.ID, seq, start),
			DocID:    doc.ID,
			Seq:      seq,
			Text:     strings.Join(words[start:end], " "),
			Metadata: chunkMetadata(doc, start),
		})
		seq++

		if end == len(words) {
			break
		}
	}

	return chunks, nil
}
