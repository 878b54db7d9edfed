package port

import "context"

// ChatModel represents a language model for text generation.
type ChatModel interface {
	// Complete generates text from a system prompt and a user prompt.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
