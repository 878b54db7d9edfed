package openaiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config captures the provider connection settings shared by the
// embedding and chat adapters.
type Config struct {
	Provider   string // "azure" or "openai"
	APIKeyEnv  string // name of the environment variable holding the key
	Endpoint   string // Azure resource endpoint
	APIVersion string // Azure api-version, empty for the SDK default
	Deployment string // Azure deployment name; all models map to it
}

// New builds an OpenAI-compatible client from cfg. The API key is read
// from the environment variable cfg.APIKeyEnv names, never from config
// values directly.
func New(cfg Config) (*openai.Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("API key not found in environment variable %s", cfg.APIKeyEnv)
	}

	switch cfg.Provider {
	case "azure":
		if cfg.Endpoint == "" {
			return nil, errors.New("azure provider requires an endpoint")
		}
		clientCfg := openai.DefaultAzureConfig(key, cfg.Endpoint)
		if cfg.APIVersion != "" {
			clientCfg.APIVersion = cfg.APIVersion
		}
		if cfg.Deployment != "" {
			deployment := cfg.Deployment
			clientCfg.AzureModelMapperFunc = func(model string) string {
				return deployment
			}
		}
		return openai.NewClientWithConfig(clientCfg), nil
	case "openai", "":
		return openai.NewClient(key), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// IsTransient reports whether err warrants a retry: rate limits,
// server errors, and transport failures. Auth and malformed-request
// errors are permanent.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 ||
			reqErr.HTTPStatusCode == http.StatusTooManyRequests ||
			reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	// Anything else is a transport-level failure.
	return true
}

// Retry runs fn up to attempts times, doubling the delay between
// transient failures. Permanent failures surface immediately.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
	}
	return err
}
