package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"ragpipe/internal/adapter/openaiclient"
	"ragpipe/internal/domain"
	"ragpipe/internal/logging"
	"ragpipe/internal/port"
)

const (
	defaultBatchSize   = 64
	defaultConcurrency = 4
	defaultRetries     = 3
)

// OpenAIEmbedder generates embeddings through an OpenAI-compatible
// embeddings API, including Azure OpenAI deployments.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dimension   int
	batchSize   int
	concurrency int
	retries     int
}

var _ port.Embedder = (*OpenAIEmbedder)(nil)

type Options struct {
	Model       string
	Dimension   int // 0 derives the dimension from the model name
	BatchSize   int // texts per API call
	Concurrency int // parallel in-flight batches
	Retries     int // attempts per batch
}

func NewOpenAIEmbedder(client *openai.Client, opts Options) *OpenAIEmbedder {
	dimension := opts.Dimension
	if dimension == 0 {
		dimension = modelDimension(opts.Model)
	}
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	retries := opts.Retries
	if retries < 1 {
		retries = defaultRetries
	}

	return &OpenAIEmbedder{
		client:      client,
		model:       opts.Model,
		dimension:   dimension,
		batchSize:   batchSize,
		concurrency: concurrency,
		retries:     retries,
	}
}

func modelDimension(model string) int {
	switch model {
	case "text-embedding-3-small":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-ada-002":
		return 1536
	}
	return 1536
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch splits texts into API-sized batches and runs them on a
// bounded worker group. Results are written into index-addressed slots
// so the output order always matches the input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", domain.ErrInvalidArgument, i)
		}
	}

	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		start := start
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			return e.embedSlice(gctx, texts[start:end], out[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).DebugContext(ctx, "embedded batch",
		slog.Int("texts", len(texts)),
		slog.Int("dimension", e.dimension),
		slog.String("model", e.model))

	return out, nil
}

// embedSlice issues one embeddings call for texts and writes vectors
// into out, keyed by the per-item index the API returns.
func (e *OpenAIEmbedder) embedSlice(ctx context.Context, texts []string, out [][]float32) error {
	var resp openai.EmbeddingResponse
	err := openaiclient.Retry(ctx, e.retries, 0, func() error {
		r, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrEmbedding, len(resp.Data), len(texts))
	}

	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(out) {
			return fmt.Errorf("%w: embedding index %d out of range", domain.ErrEmbedding, data.Index)
		}
		if len(data.Embedding) != e.dimension {
			return fmt.Errorf("%w: model returned dimension %d, declared %d", domain.ErrEmbedding, len(data.Embedding), e.dimension)
		}
		out[data.Index] = data.Embedding
	}

	for i := range out {
		if out[i] == nil {
			return fmt.Errorf("%w: no embedding returned for input %d", domain.ErrEmbedding, i)
		}
	}

	return nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
