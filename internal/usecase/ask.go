package usecase

import (
	"context"

	"ragpipe/internal/domain"
)

// AskUseCase chains retrieval and generation into a single question
// answering operation.
type AskUseCase struct {
	retrieve *RetrieveUseCase
	generate *GenerateUseCase
}

// NewAskUseCase creates a new ask use case.
func NewAskUseCase(retrieve *RetrieveUseCase, generate *GenerateUseCase) *AskUseCase {
	return &AskUseCase{
		retrieve: retrieve,
		generate: generate,
	}
}

// Ask retrieves the top-k chunks for query and generates a grounded
// answer from them.
func (u *AskUseCase) Ask(ctx context.Context, query string, topK int) (domain.Answer, error) {
	result, err := u.retrieve.Retrieve(ctx, query, topK)
	if err != nil {
		return domain.Answer{}, err
	}
	return u.generate.Generate(ctx, query, result)
}
