package port

import "ragpipe/internal/domain"

// Loader reads a source (file, directory, raw text) into documents.
type Loader interface {
	Load(source string) ([]domain.Document, error)
}
