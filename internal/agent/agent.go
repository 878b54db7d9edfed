// Package agent implements an agentic ask mode where the chat model
// decides when and what to retrieve through tool calls.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"ragpipe/internal/adapter/openaiclient"
	"ragpipe/internal/domain"
	"ragpipe/internal/logging"
	"ragpipe/internal/port"
)

const searchToolName = "search_documents"

const systemPrompt = `You answer questions about an indexed document collection.

Call search_documents to look up relevant passages before answering. You may
search multiple times with different queries. Once you have enough
information, answer using only what the searches returned. If the searches
do not contain the information needed, reply exactly: "I cannot answer from
the provided information."`

// ChatCompleter is the slice of the OpenAI client the agent needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configure an agent.
type Options struct {
	Model         string
	Temperature   float32
	MaxTokens     int // 0 leaves the API default
	Retries       int
	MaxIterations int // chat rounds before giving up
	SearchK       int // passages per search when the model omits k
}

// Agent runs the tool-calling loop against a retriever.
type Agent struct {
	completer ChatCompleter
	retriever port.Retriever
	opts      Options
}

// New creates an agent. Zero option values fall back to defaults.
func New(completer ChatCompleter, retriever port.Retriever, opts Options) *Agent {
	if opts.Temperature <= 0 {
		// The API treats a zero temperature as unset, so the closest
		// representable positive value stands in for exact zero.
		opts.Temperature = math.SmallestNonzeroFloat32
	}
	if opts.Retries < 1 {
		opts.Retries = 3
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 5
	}
	if opts.SearchK < 1 {
		opts.SearchK = 5
	}
	return &Agent{
		completer: completer,
		retriever: retriever,
		opts:      opts,
	}
}

type searchArgs struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type searchHit struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

func searchTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        searchToolName,
			Description: "Search the indexed documents and return the most relevant passages.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"query": {
						Type:        jsonschema.String,
						Description: "Search query.",
					},
					"k": {
						Type:        jsonschema.Integer,
						Description: "Number of passages to return.",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}

// Ask answers question by letting the model search the index as often
// as it needs. The loop ends when the model replies without tool calls
// or after MaxIterations rounds, whichever comes first. The answer's
// grounding accumulates every chunk the model saw, ordered by first
// appearance.
func (a *Agent) Ask(ctx context.Context, question string) (domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, fmt.Errorf("%w: empty question", domain.ErrInvalidArgument)
	}

	log := logging.FromContext(ctx)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: question},
	}

	var grounding []domain.ScoredChunk
	seen := make(map[string]bool)

	for iter := 0; iter < a.opts.MaxIterations; iter++ {
		var resp openai.ChatCompletionResponse
		err := openaiclient.Retry(ctx, a.opts.Retries, 0, func() error {
			r, err := a.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       a.opts.Model,
				Messages:    messages,
				Temperature: a.opts.Temperature,
				MaxTokens:   a.opts.MaxTokens,
				Tools:       []openai.Tool{searchTool()},
			})
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			return domain.Answer{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
		}
		if len(resp.Choices) == 0 {
			return domain.Answer{}, fmt.Errorf("%w: no choices returned", domain.ErrGeneration)
		}

		msg := resp.Choices[0].Message
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			return domain.Answer{
				ID:        uuid.NewString(),
				Query:     question,
				Text:      strings.TrimSpace(msg.Content),
				Grounding: grounding,
				Model:     a.opts.Model,
			}, nil
		}

		log.DebugContext(ctx, "agent tool round",
			slog.Int("iteration", iter+1),
			slog.Int("tool_calls", len(msg.ToolCalls)))

		for _, call := range msg.ToolCalls {
			result, chunks, err := a.runTool(ctx, call)
			if err != nil {
				return domain.Answer{}, err
			}
			for _, sc := range chunks {
				if !seen[sc.Chunk.ID] {
					seen[sc.Chunk.ID] = true
					grounding = append(grounding, sc)
				}
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return domain.Answer{}, fmt.Errorf("%w: no answer after %d iterations", domain.ErrGeneration, a.opts.MaxIterations)
}

// runTool executes one tool call. Model mistakes (unknown tool, bad
// arguments) come back as the tool result so the model can correct
// itself; retrieval infrastructure failures abort the run.
func (a *Agent) runTool(ctx context.Context, call openai.ToolCall) (string, []domain.ScoredChunk, error) {
	if call.Function.Name != searchToolName {
		return toolError(fmt.Sprintf("unknown tool %q", call.Function.Name)), nil, nil
	}

	var args searchArgs
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return toolError(fmt.Sprintf("invalid arguments: %v", err)), nil, nil
	}
	if args.K < 1 {
		args.K = a.opts.SearchK
	}

	result, err := a.retriever.Retrieve(ctx, args.Query, args.K)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return toolError(err.Error()), nil, nil
		}
		return "", nil, err
	}

	hits := make([]searchHit, len(result.Chunks))
	for i, sc := range result.Chunks {
		hits[i] = searchHit{
			Source: chunkSource(sc.Chunk),
			Text:   sc.Chunk.Text,
			Score:  sc.Score,
		}
	}

	payload, err := json.Marshal(struct {
		Results []searchHit `json:"results"`
	}{Results: hits})
	if err != nil {
		return "", nil, fmt.Errorf("%w: encode tool result: %v", domain.ErrGeneration, err)
	}
	return string(payload), result.Chunks, nil
}

func toolError(msg string) string {
	payload, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: msg})
	return string(payload)
}

func chunkSource(c domain.Chunk) string {
	if src := c.Metadata["source"]; src != "" {
		return src
	}
	return c.DocID
}
