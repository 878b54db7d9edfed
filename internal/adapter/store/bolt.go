package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
)

// BoltStore persists index entries in a bbolt file. All entries are
// mirrored in memory for search; the file is the durable copy.
// Brute-force search keeps parity with the in-memory store.
type BoltStore struct {
	db        *bbolt.DB
	mu        sync.RWMutex
	metric    Metric
	dimension int
	entries   []rankedEntry
	byID      map[string]int
	nextSeq   uint64
}

var _ port.IndexStore = (*BoltStore)(nil)

type storedEntry struct {
	Chunk  domain.Chunk `json:"c"`
	Vector []float32    `json:"v"`
	Seq    uint64       `json:"s"`
}

func NewBoltStore(path string, dimension int, metric Metric) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketEntries, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	store := &BoltStore{
		db:        db,
		metric:    metric,
		dimension: dimension,
		byID:      make(map[string]int),
	}

	if err := store.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	return store, nil
}

// loadEntries rebuilds the in-memory mirror from the file, restoring
// insertion order from the persisted sequence numbers.
func (s *BoltStore) loadEntries() error {
	var loaded []rankedEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			loaded = append(loaded, rankedEntry{
				entry: domain.IndexEntry{Chunk: stored.Chunk, Vector: stored.Vector},
				seq:   stored.Seq,
			})
			return nil
		})
	})
	if err != nil {
		return err
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].seq < loaded[j].seq
	})

	s.entries = loaded
	for i, e := range loaded {
		s.byID[e.entry.Chunk.ID] = i
		if e.seq >= s.nextSeq {
			s.nextSeq = e.seq + 1
		}
	}

	return nil
}

// Add persists the batch in one transaction and then updates the
// in-memory mirror. Re-added chunk IDs keep their original sequence.
// On any invalid entry or write failure nothing is stored.
func (s *BoltStore) Add(entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateEntries(entries, s.dimension); err != nil {
		return err
	}

	type assignment struct {
		entry domain.IndexEntry
		seq   uint64
		slot  int // -1 for new entries
	}

	assignments := make([]assignment, 0, len(entries))
	nextSeq := s.nextSeq
	newSlots := make(map[string]int, len(entries))

	for _, entry := range entries {
		if slot, ok := s.byID[entry.Chunk.ID]; ok {
			assignments = append(assignments, assignment{entry: entry, seq: s.entries[slot].seq, slot: slot})
			continue
		}
		if slot, ok := newSlots[entry.Chunk.ID]; ok {
			// Duplicate ID within the batch: last write wins.
			assignments[slot] = assignment{entry: entry, seq: assignments[slot].seq, slot: -1}
			continue
		}
		newSlots[entry.Chunk.ID] = len(assignments)
		assignments = append(assignments, assignment{entry: entry, seq: nextSeq, slot: -1})
		nextSeq++
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return fmt.Errorf("entries bucket not found")
		}
		for _, a := range assignments {
			data, err := json.Marshal(storedEntry{
				Chunk:  a.entry.Chunk,
				Vector: a.entry.Vector,
				Seq:    a.seq,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(a.entry.Chunk.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store entries: %w", err)
	}

	for _, a := range assignments {
		if a.slot >= 0 {
			s.entries[a.slot].entry = a.entry
			continue
		}
		s.byID[a.entry.Chunk.ID] = len(s.entries)
		s.entries = append(s.entries, rankedEntry{entry: a.entry, seq: a.seq})
	}
	s.nextSeq = nextSeq

	return nil
}

func (s *BoltStore) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return searchRanked(s.entries, s.metric, s.dimension, query, k)
}

func (s *BoltStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *BoltStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketEntries)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	s.entries = nil
	s.byID = make(map[string]int)
	s.nextSeq = 0
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
