package store

import (
	"sync"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// MemoryStore keeps index entries in memory, in insertion order.
type MemoryStore struct {
	mu        sync.RWMutex
	metric    Metric
	dimension int
	entries   []rankedEntry
	byID      map[string]int
	nextSeq   uint64
}

var _ port.IndexStore = (*MemoryStore)(nil)

func NewMemoryStore(dimension int, metric Metric) *MemoryStore {
	return &MemoryStore{
		metric:    metric,
		dimension: dimension,
		byID:      make(map[string]int),
	}
}

// Add stores the batch. Re-adding an existing chunk ID replaces the
// prior entry in place, keeping its original insertion rank. The batch
// is validated up front: on any invalid entry nothing is stored.
func (s *MemoryStore) Add(entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateEntries(entries, s.dimension); err != nil {
		return err
	}

	for _, entry := range entries {
		if slot, ok := s.byID[entry.Chunk.ID]; ok {
			s.entries[slot].entry = entry
			continue
		}
		s.byID[entry.Chunk.ID] = len(s.entries)
		s.entries = append(s.entries, rankedEntry{entry: entry, seq: s.nextSeq})
		s.nextSeq++
	}

	return nil
}

func (s *MemoryStore) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return searchRanked(s.entries, s.metric, s.dimension, query, k)
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.byID = make(map[string]int)
	s.nextSeq = 0
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
