package llm

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"ragpipe/internal/adapter/openaiclient"
	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

const defaultRetries = 3

// OpenAIChat generates text through an OpenAI-compatible chat
// completions API, including Azure OpenAI deployments.
type OpenAIChat struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	retries     int
}

var _ port.ChatModel = (*OpenAIChat)(nil)

type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int // 0 leaves the API default
	Retries     int
}

func NewOpenAIChat(client *openai.Client, opts Options) *OpenAIChat {
	temperature := opts.Temperature
	if temperature <= 0 {
		// The API treats a zero temperature as unset, so the closest
		// representable positive value stands in for exact zero.
		temperature = math.SmallestNonzeroFloat32
	}
	retries := opts.Retries
	if retries < 1 {
		retries = defaultRetries
	}

	return &OpenAIChat{
		client:      client,
		model:       opts.Model,
		temperature: temperature,
		maxTokens:   opts.MaxTokens,
		retries:     retries,
	}
}

func (c *OpenAIChat) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	var resp openai.ChatCompletionResponse
	err := openaiclient.Retry(ctx, c.retries, 0, func() error {
		r, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrGeneration)
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIChat) ModelName() string {
	return c.model
}
