package chunker

import (
	"errors"
	"strings"
	"testing"

	"ragpipe/internal/adapter/analyzer"
	"ragpipe/internal/domain"
)

func TestTokenChunkerConfigValidation(t *testing.T) {
	if _, err := NewTokenChunker(0, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero max, got %v", err)
	}
	if _, err := NewTokenChunker(10, 10); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for overlap == max, got %v", err)
	}
}

func TestTokenChunkerWindow(t *testing.T) {
	c, err := NewTokenChunker(5, 2)
	if err != nil {
		t.Fatal(err)
	}

	words := make([]string, 20)
	for i := range words {
		words[i] = strings.Repeat("w", i%3+1)
	}
	doc := testDoc(strings.Join(words, " "))

	chunks, err := c.Chunk(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if got := len(analyzer.Words(chunk.Text)); got > 5 {
			t.Errorf("chunk %d has %d words, want <= 5", i, got)
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev := analyzer.Words(chunks[i-1].Text)
		cur := analyzer.Words(chunks[i].Text)
		tail := strings.Join(prev[len(prev)-2:], " ")
		head := strings.Join(cur[:2], " ")
		if tail != head {
			t.Errorf("chunk %d/%d boundary: tail %q != head %q", i-1, i, tail, head)
		}
	}
}

func TestTokenChunkerRoundTripWords(t *testing.T) {
	c, err := NewTokenChunker(4, 0)
	if err != nil {
		t.Fatal(err)
	}

	original := "one two three four five six seven eight nine"
	chunks, err := c.Chunk(testDoc(original))
	if err != nil {
		t.Fatal(err)
	}

	var parts []string
	for _, chunk := range chunks {
		parts = append(parts, chunk.Text)
	}
	if joined := strings.Join(parts, " "); joined != original {
		t.Errorf("rejoined words differ:\n got %q\nwant %q", joined, original)
	}
}

func TestTokenChunkerEmptyDoc(t *testing.T) {
	c, err := NewTokenChunker(10, 0)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := c.Chunk(testDoc("   \n\t  "))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace-only doc, got %d", len(chunks))
	}
}
