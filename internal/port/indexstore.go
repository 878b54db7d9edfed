package port

import "ragpipe/internal/domain"

type IndexStore interface {
	Add(entries []domain.IndexEntry) error

	Search(query []float32, k int) ([]domain.ScoredChunk, error)

	Count() (int, error)

	Clear() error

	Close() error
}
