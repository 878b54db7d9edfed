package loader

import (
	"fmt"
	"os"
	"strings"

	"ragpipe/internal/domain"
)

// TextLoader reads a single file as one document.
type TextLoader struct{}

func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

func (l *TextLoader) Load(source string) ([]domain.Document, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrLoad, source, err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty source %s", domain.ErrLoad, source)
	}

	return []domain.Document{{
		ID:       generateDocID(source),
		Source:   source,
		Text:     text,
		Metadata: map[string]string{"source": source},
	}}, nil
}
