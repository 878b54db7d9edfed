package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ragpipe/internal/domain"
	"ragpipe/internal/logging"
	"ragpipe/internal/port"
)

// ProgressFunc reports indexing progress after each stored batch.
type ProgressFunc func(processed, total int)

// IndexUseCase runs the load, chunk, embed, store pipeline.
type IndexUseCase struct {
	loader    port.Loader
	chunker   port.Chunker
	embedder  port.Embedder
	store     port.IndexStore
	batchSize int
}

// NewIndexUseCase creates a new index use case. batchSize controls how
// many chunks are embedded and stored per round trip.
func NewIndexUseCase(
	loader port.Loader,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.IndexStore,
	batchSize int,
) *IndexUseCase {
	if batchSize < 1 {
		batchSize = 64
	}
	return &IndexUseCase{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
	}
}

// Index loads every source and indexes the resulting documents.
func (u *IndexUseCase) Index(ctx context.Context, sources []string, progress ProgressFunc) (domain.IndexStats, error) {
	start := time.Now()

	var docs []domain.Document
	for _, src := range sources {
		loaded, err := u.loader.Load(src)
		if err != nil {
			return domain.IndexStats{}, err
		}
		docs = append(docs, loaded...)
	}

	stats, err := u.IndexDocuments(ctx, docs, progress)
	if err != nil {
		return domain.IndexStats{}, err
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// IndexDocuments chunks, embeds and stores already loaded documents.
// Each batch is written atomically, so a failure mid-run leaves every
// previously stored batch intact.
func (u *IndexUseCase) IndexDocuments(ctx context.Context, docs []domain.Document, progress ProgressFunc) (domain.IndexStats, error) {
	start := time.Now()

	if len(docs) == 0 {
		return domain.IndexStats{}, fmt.Errorf("%w: no documents to index", domain.ErrLoad)
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := u.chunker.Chunk(doc)
		if err != nil {
			return domain.IndexStats{}, err
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return domain.IndexStats{}, fmt.Errorf("%w: documents produced no chunks", domain.ErrLoad)
	}

	log := logging.FromContext(ctx)
	log.InfoContext(ctx, "indexing",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.String("model", u.embedder.ModelName()))

	total := len(chunks)
	processed := 0

	for begin := 0; begin < total; begin += u.batchSize {
		end := begin + u.batchSize
		if end > total {
			end = total
		}
		batch := chunks[begin:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := u.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return domain.IndexStats{}, err
		}

		entries := make([]domain.IndexEntry, len(batch))
		for i, c := range batch {
			entries[i] = domain.IndexEntry{Chunk: c, Vector: vectors[i]}
		}
		if err := u.store.Add(entries); err != nil {
			return domain.IndexStats{}, fmt.Errorf("store batch: %w", err)
		}

		processed += len(batch)
		if progress != nil {
			progress(processed, total)
		}
	}

	return domain.IndexStats{
		Documents: len(docs),
		Chunks:    total,
		Dimension: u.embedder.Dimension(),
		Elapsed:   time.Since(start),
	}, nil
}
