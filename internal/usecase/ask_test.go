package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ragpipe/internal/adapter/chunker"
	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/llm"
	"ragpipe/internal/adapter/loader"
	"ragpipe/internal/adapter/retriever"
	"ragpipe/internal/adapter/store"
	"ragpipe/internal/domain"
)

// TestAskEndToEnd drives the whole pipeline on deterministic
// components: index a 1000-rune document, retrieve two chunks and
// generate an answer grounded in exactly those chunks.
func TestAskEndToEnd(t *testing.T) {
	ctx := context.Background()

	mem := store.NewMemoryStore(8, store.MetricCosine)
	emb := embedding.NewMockEmbedder(8)
	fixed, err := chunker.NewFixedChunker(300, 50)
	if err != nil {
		t.Fatalf("NewFixedChunker: %v", err)
	}
	indexUC := NewIndexUseCase(loader.NewAutoLoader(nil, nil), fixed, emb, mem, 64)

	dir := t.TempDir()
	runes := make([]rune, 1000)
	for i := range runes {
		runes[i] = rune('a' + i%26)
	}
	path := writeTestFile(t, dir, "doc.txt", string(runes))

	stats, err := indexUC.Index(ctx, []string{path}, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if stats.Chunks != 4 {
		t.Fatalf("Chunks = %d, want 4", stats.Chunks)
	}

	retrieveUC := NewRetrieveUseCase(retriever.NewSemanticRetriever(emb, mem), nil, 0)
	chat := &llm.MockChat{Responses: []string{"The document repeats the alphabet."}}
	askUC := NewAskUseCase(retrieveUC, NewGenerateUseCase(chat))

	const query = "what does the document contain?"
	answer, err := askUC.Ask(ctx, query, 2)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if answer.Text != "The document repeats the alphabet." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.Grounding) != 2 {
		t.Fatalf("Grounding has %d chunks, want 2", len(answer.Grounding))
	}
	if answer.Grounding[0].Score < answer.Grounding[1].Score {
		t.Error("grounding not in descending score order")
	}

	// The grounding must be exactly what retrieval returns for the
	// same query and k.
	wantRetrieval, err := retrieveUC.Retrieve(ctx, query, 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if diff := cmp.Diff(wantRetrieval.Chunks, answer.Grounding); diff != "" {
		t.Errorf("grounding mismatch (-want +got):\n%s", diff)
	}
}

func TestAskRetrievalError(t *testing.T) {
	base := &stubRetriever{err: domain.ErrEmbedding}
	askUC := NewAskUseCase(
		NewRetrieveUseCase(base, nil, 0),
		NewGenerateUseCase(&llm.MockChat{Responses: []string{"unused"}}),
	)

	_, err := askUC.Ask(context.Background(), "q", 3)
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("err = %v, want ErrEmbedding", err)
	}
}

func TestAskEmptyIndex(t *testing.T) {
	mem := store.NewMemoryStore(8, store.MetricCosine)
	emb := embedding.NewMockEmbedder(8)
	retrieveUC := NewRetrieveUseCase(retriever.NewSemanticRetriever(emb, mem), nil, 0)
	chat := &llm.MockChat{Responses: []string{"I cannot answer from the provided information."}}
	askUC := NewAskUseCase(retrieveUC, NewGenerateUseCase(chat))

	answer, err := askUC.Ask(context.Background(), "anything?", 3)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(answer.Grounding) != 0 {
		t.Errorf("Grounding has %d chunks, want 0", len(answer.Grounding))
	}
}
