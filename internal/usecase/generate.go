package usecase

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// noContextMarker stands in for the context block when retrieval came
// back empty. The system prompt instructs the model to decline rather
// than answer from its own knowledge.
const noContextMarker = "(no search results)"

var (
	answerSystemPrompt = mustReadTemplate("templates/answer_system.txt")
	answerUserTmpl     = template.Must(template.ParseFS(promptTemplates, "templates/answer_user.txt"))
)

func mustReadTemplate(name string) string {
	b, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return strings.TrimRight(string(b), "\n")
}

// GenerateUseCase produces an answer grounded in retrieved chunks.
type GenerateUseCase struct {
	chat port.ChatModel
}

// NewGenerateUseCase creates a new generate use case.
func NewGenerateUseCase(chat port.ChatModel) *GenerateUseCase {
	return &GenerateUseCase{chat: chat}
}

// Generate asks the model to answer query from the retrieval result.
// The chunks are presented in retrieval order and become the answer's
// grounding. An empty retrieval still produces an answer; the context
// block is replaced by an explicit no-results marker.
func (u *GenerateUseCase) Generate(ctx context.Context, query string, retrieval domain.RetrievalResult) (domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}

	userPrompt, err := renderAnswerPrompt(query, retrieval.Chunks)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: render prompt: %v", domain.ErrGeneration, err)
	}

	text, err := u.chat.Complete(ctx, answerSystemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, domain.ErrGeneration) {
			return domain.Answer{}, err
		}
		return domain.Answer{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	return domain.Answer{
		ID:        uuid.NewString(),
		Query:     query,
		Text:      strings.TrimSpace(text),
		Grounding: retrieval.Chunks,
		Model:     u.chat.ModelName(),
	}, nil
}

func renderAnswerPrompt(query string, chunks []domain.ScoredChunk) (string, error) {
	data := struct {
		Context string
		Query   string
	}{
		Context: renderContext(chunks),
		Query:   query,
	}

	var buf bytes.Buffer
	if err := answerUserTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderContext formats chunks as a numbered list, each labeled with
// its source, in the order the retriever returned them.
func renderContext(chunks []domain.ScoredChunk) string {
	if len(chunks) == 0 {
		return noContextMarker
	}

	var sb strings.Builder
	for i, sc := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s", i+1, chunkSource(sc.Chunk), strings.TrimSpace(sc.Chunk.Text))
	}
	return sb.String()
}

func chunkSource(c domain.Chunk) string {
	if src := c.Metadata["source"]; src != "" {
		return src
	}
	return c.DocID
}
