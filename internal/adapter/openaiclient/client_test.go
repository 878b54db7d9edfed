package openaiclient

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("RAGPIPE_TEST_KEY", "")

	if _, err := New(Config{Provider: "openai", APIKeyEnv: "RAGPIPE_TEST_KEY"}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewAzureRequiresEndpoint(t *testing.T) {
	t.Setenv("RAGPIPE_TEST_KEY", "secret")

	if _, err := New(Config{Provider: "azure", APIKeyEnv: "RAGPIPE_TEST_KEY"}); err == nil {
		t.Error("expected error for azure without endpoint")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	t.Setenv("RAGPIPE_TEST_KEY", "secret")

	if _, err := New(Config{Provider: "bedrock", APIKeyEnv: "RAGPIPE_TEST_KEY"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 503}, true},
		{"auth failure", &openai.APIError{HTTPStatusCode: 401}, false},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"transport failure", &openai.RequestError{HTTPStatusCode: 0, Err: errors.New("conn reset")}, true},
		{"request 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, true},
		{"request 404", &openai.RequestError{HTTPStatusCode: 404, Err: errors.New("not found")}, false},
		{"plain network error", errors.New("dial tcp: timeout"), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &openai.APIError{HTTPStatusCode: 500}
	})

	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return &openai.APIError{HTTPStatusCode: 401}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("permanent error should not be retried, got %d attempts", calls)
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return &openai.APIError{HTTPStatusCode: 429}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return &openai.APIError{HTTPStatusCode: 500}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
