package cli

import (
	"fmt"
	"os"
	"time"

	"ragpipe/config"
	"ragpipe/internal/adapter/analyzer"
	"ragpipe/internal/adapter/cache"
	"ragpipe/internal/adapter/chunker"
	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/llm"
	"ragpipe/internal/adapter/loader"
	"ragpipe/internal/adapter/openaiclient"
	"ragpipe/internal/adapter/retriever"
	"ragpipe/internal/adapter/store"
	"ragpipe/internal/port"
	"ragpipe/internal/usecase"
)

// buildEmbedder constructs the configured embedder.
func buildEmbedder(cfg *config.Config) (port.Embedder, error) {
	if cfg.Embedding.Provider == "mock" {
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	}

	client, err := openaiclient.New(openaiclient.Config{
		Provider:   cfg.Embedding.Provider,
		APIKeyEnv:  cfg.Embedding.APIKeyEnv,
		Endpoint:   cfg.Embedding.Endpoint,
		APIVersion: cfg.Embedding.APIVersion,
		Deployment: cfg.Embedding.Deployment,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}

	return embedding.NewOpenAIEmbedder(client, embedding.Options{
		Model:       cfg.Embedding.Model,
		Dimension:   cfg.Embedding.Dimension,
		BatchSize:   cfg.Embedding.BatchSize,
		Concurrency: cfg.Embedding.MaxConcurrency,
		Retries:     cfg.Embedding.Retries,
	}), nil
}

// buildChat constructs the configured chat model.
func buildChat(cfg *config.Config) (port.ChatModel, error) {
	client, err := openaiclient.New(openaiclient.Config{
		Provider:   cfg.Generation.Provider,
		APIKeyEnv:  cfg.Generation.APIKeyEnv,
		Endpoint:   cfg.Generation.Endpoint,
		APIVersion: cfg.Generation.APIVersion,
		Deployment: cfg.Generation.Deployment,
	})
	if err != nil {
		return nil, fmt.Errorf("generation client: %w", err)
	}

	return llm.NewOpenAIChat(client, llm.Options{
		Model:       cfg.Generation.Model,
		Temperature: float32(cfg.Generation.Temperature),
		MaxTokens:   cfg.Generation.MaxTokens,
		Retries:     cfg.Generation.Retries,
	}), nil
}

// buildLoader constructs the document loader with the configured
// include and exclude patterns.
func buildLoader(cfg *config.Config) port.Loader {
	return loader.NewAutoLoader(cfg.Loader.Includes, cfg.Loader.Excludes)
}

// buildChunker constructs the configured chunking strategy.
func buildChunker(cfg *config.Config) (port.Chunker, error) {
	switch cfg.Chunking.Strategy {
	case "token":
		return chunker.NewTokenChunker(cfg.Chunking.MaxChunkSize, cfg.Chunking.Overlap)
	case "fixed", "":
		return chunker.NewFixedChunker(cfg.Chunking.MaxChunkSize, cfg.Chunking.Overlap)
	default:
		return nil, fmt.Errorf("unsupported chunking strategy: %s", cfg.Chunking.Strategy)
	}
}

// openStore opens the configured index store backend.
func openStore(cfg *config.Config, dir string) (port.IndexStore, error) {
	metric, err := store.ParseMetric(cfg.Store.Metric)
	if err != nil {
		return nil, err
	}
	dim := cfg.Embedding.Dimension

	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(dim, metric), nil
	case "bolt", "":
		if err := config.EnsureStateDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		return store.NewBoltStore(cfg.IndexPath(dir), dim, metric)
	case "sqlite":
		if err := config.EnsureStateDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		return store.NewSQLiteStore(cfg.IndexPath(dir), dim, metric)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// requireIndex fails when no index has been built yet.
func requireIndex(cfg *config.Config, dir string) error {
	if cfg.Store.Backend == "memory" {
		return fmt.Errorf("store backend %q keeps no index between runs; configure bolt or sqlite", cfg.Store.Backend)
	}
	path := cfg.IndexPath(dir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s. Run 'ragpipe index' first", path)
	}
	return nil
}

// needsChat reports whether the retrieval chain itself requires a chat
// model, independent of generation.
func needsChat(cfg *config.Config) bool {
	return cfg.Retrieve.HyDE || cfg.Retrieve.Rerank
}

// buildRetriever assembles the retrieval chain: a semantic or HyDE
// base, optional LLM reranking, optional caching. chat may be nil when
// neither HyDE nor reranking is enabled.
func buildRetriever(cfg *config.Config, embedder port.Embedder, st port.IndexStore, chat port.ChatModel) port.Retriever {
	var r port.Retriever
	if cfg.Retrieve.HyDE && chat != nil {
		r = retriever.NewHyDERetriever(chat, embedder, st)
	} else {
		r = retriever.NewSemanticRetriever(embedder, st)
	}
	if cfg.Retrieve.Rerank && chat != nil {
		r = retriever.NewRerankedRetriever(r, retriever.NewLLMReranker(chat))
	}
	if cfg.Retrieve.Cache {
		ttl := time.Duration(cfg.Retrieve.CacheTTL) * time.Second
		r = cache.NewCachedRetriever(r, cache.NewQueryCache(cfg.Retrieve.CacheSize, ttl))
	}
	return r
}

// buildRetrieveUseCase wires the retriever chain and optional MMR
// diversity reranking into the retrieve use case.
func buildRetrieveUseCase(cfg *config.Config, embedder port.Embedder, st port.IndexStore, chat port.ChatModel) *usecase.RetrieveUseCase {
	var diversity port.DiversityReranker
	if cfg.Retrieve.MMR {
		diversity = retriever.NewMMRReranker(cfg.Retrieve.MMRLambda, cfg.Retrieve.DedupJaccard, analyzer.NewTokenizer())
	}
	return usecase.NewRetrieveUseCase(
		buildRetriever(cfg, embedder, st, chat),
		diversity,
		cfg.Retrieve.MinScore,
	)
}
