package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"ragpipe/internal/domain"
)

// FixedChunker splits text into rune windows of at most maxChunkSize,
// with overlap runes shared between consecutive chunks.
type FixedChunker struct {
	maxChunkSize int
	overlap      int
}

func NewFixedChunker(maxChunkSize, overlap int) (*FixedChunker, error) {
	if maxChunkSize < 1 {
		return nil, fmt.Errorf("%w: max chunk size must be >= 1, got %d", domain.ErrInvalidArgument, maxChunkSize)
	}
	if overlap < 0 || overlap >= maxChunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidArgument, maxChunkSize, overlap)
	}
	return &FixedChunker{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
	}, nil
}

func (c *FixedChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := c.maxChunkSize - c.overlap

	var chunks []domain.Chunk
	seq := 0

	for start := 0; start < len(runes); start += step {
		end := start + c.maxChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			ID:       generateChunkID(doc.ID, seq, start),
			DocID:    doc.ID,
			Seq:      seq,
			Text:     string(runes[start:end]),
			Metadata: chunkMetadata(doc, start),
		})
		seq++

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// chunkMetadata copies the document metadata and records the chunk's
// rune offset within the source text.
func chunkMetadata(doc domain.Document, offset int) map[string]string {
	md := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		md[k] = v
	}
	md["offset"] = strconv.Itoa(offset)
	return md
}

func generateChunkID(docID string, seq, offset int) string {
	data := fmt.Sprintf("%s:%d:%d", docID, seq, offset)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
