package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the RAG pipeline.
type Config struct {
	Loader     LoaderConfig     `yaml:"loader"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Store      StoreConfig      `yaml:"store"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Agent      AgentConfig      `yaml:"agent"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoaderConfig holds document loading configuration.
type LoaderConfig struct {
	Includes []string `yaml:"includes"` // directory walk glob patterns
	Excludes []string `yaml:"excludes"`
}

// ChunkingConfig holds document splitting configuration.
type ChunkingConfig struct {
	Strategy     string `yaml:"strategy"`       // "fixed" (runes) or "token" (words)
	MaxChunkSize int    `yaml:"max_chunk_size"` // runes or tokens per chunk
	Overlap      int    `yaml:"overlap"`        // shared between consecutive chunks
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`    // "azure", "openai", "mock"
	Model          string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv      string `yaml:"api_key_env"` // Environment variable for API key
	Endpoint       string `yaml:"endpoint"`    // Azure resource endpoint
	APIVersion     string `yaml:"api_version"` // Azure api-version
	Deployment     string `yaml:"deployment"`  // Azure deployment name
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	Retries        int    `yaml:"retries"`
}

// GenerationConfig holds chat completion configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`    // "azure" or "openai"
	Model       string  `yaml:"model"`       // e.g., "gpt-4o-mini"
	APIKeyEnv   string  `yaml:"api_key_env"` // Environment variable for API key
	Endpoint    string  `yaml:"endpoint"`    // Azure resource endpoint
	APIVersion  string  `yaml:"api_version"` // Azure api-version
	Deployment  string  `yaml:"deployment"`  // Azure deployment name
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Retries     int     `yaml:"retries"`
}

// StoreConfig holds index store configuration.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memory", "bolt", "sqlite"
	Path    string `yaml:"path"`    // database file; empty uses the state dir
	Metric  string `yaml:"metric"`  // "cosine" or "dot"
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK         int     `yaml:"top_k"`
	MinScore     float64 `yaml:"min_score"` // Filter results below this score (0 = disabled)
	MMR          bool    `yaml:"mmr"`
	MMRLambda    float64 `yaml:"mmr_lambda"`
	DedupJaccard float64 `yaml:"dedup_jaccard"` // near-duplicate cutoff for MMR
	HyDE         bool    `yaml:"hyde"`
	Rerank       bool    `yaml:"rerank"`
	Cache        bool    `yaml:"cache"`
	CacheSize    int     `yaml:"cache_size"`
	CacheTTL     int     `yaml:"cache_ttl"` // seconds
}

// AgentConfig holds agentic-retrieval configuration.
type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Loader: LoaderConfig{
			Includes: []string{"**/*.txt", "**/*.md", "**/*.pdf"},
			Excludes: []string{"**/.git/**", "**/node_modules/**", "**/.ragpipe/**"},
		},
		Chunking: ChunkingConfig{
			Strategy:     "fixed",
			MaxChunkSize: 300,
			Overlap:      50,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      64,
			MaxConcurrency: 4,
			Retries:        3,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0,
			MaxTokens:   1024,
			Retries:     3,
		},
		Store: StoreConfig{
			Backend: "bolt",
			Metric:  "cosine",
		},
		Retrieve: RetrieveConfig{
			TopK:         5,
			MinScore:     0,
			MMR:          false,
			MMRLambda:    0.7,
			DedupJaccard: 0.8,
			HyDE:         false,
			Rerank:       false,
			Cache:        false,
			CacheSize:    100,
			CacheTTL:     300,
		},
		Agent: AgentConfig{
			MaxIterations: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragpipe.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try ragpipe.yaml in the directory
	path := filepath.Join(dir, "ragpipe.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .ragpipe/config.yaml
	path = filepath.Join(dir, ".ragpipe", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks cross-field constraints the YAML schema cannot express.
func (c *Config) Validate() error {
	if c.Chunking.MaxChunkSize < 1 {
		return fmt.Errorf("chunking.max_chunk_size must be >= 1, got %d", c.Chunking.MaxChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxChunkSize {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.MaxChunkSize, c.Chunking.Overlap)
	}
	switch c.Chunking.Strategy {
	case "fixed", "token", "":
	default:
		return fmt.Errorf("unknown chunking.strategy %q", c.Chunking.Strategy)
	}
	switch c.Store.Backend {
	case "memory", "bolt", "sqlite", "":
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be >= 1, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.MMRLambda < 0 || c.Retrieve.MMRLambda > 1 {
		return fmt.Errorf("retrieve.mmr_lambda must be in [0, 1], got %v", c.Retrieve.MMRLambda)
	}
	if c.Retrieve.DedupJaccard < 0 || c.Retrieve.DedupJaccard > 1 {
		return fmt.Errorf("retrieve.dedup_jaccard must be in [0, 1], got %v", c.Retrieve.DedupJaccard)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be >= 1, got %d", c.Agent.MaxIterations)
	}
	return nil
}

// IndexPath returns the path to the index database for the configured
// backend. An explicit store.path wins over the state-dir default.
func (c *Config) IndexPath(dir string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	name := "index.db"
	if c.Store.Backend == "sqlite" {
		name = "index.sqlite"
	}
	return filepath.Join(dir, ".ragpipe", name)
}

// EnsureStateDir ensures the .ragpipe directory exists.
func EnsureStateDir(dir string) error {
	stateDir := filepath.Join(dir, ".ragpipe")
	return os.MkdirAll(stateDir, 0755)
}
