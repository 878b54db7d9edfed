package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id        TEXT PRIMARY KEY,
	seq       INTEGER NOT NULL,
	doc_id    TEXT NOT NULL,
	chunk_seq INTEGER NOT NULL,
	text      TEXT NOT NULL,
	metadata  TEXT,
	vector    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_seq ON entries(seq);
`

// SQLiteStore persists index entries in a SQLite database. Vectors are
// stored as little-endian float32 blobs and scanned brute-force in Go.
type SQLiteStore struct {
	db        *sqlx.DB
	mu        sync.Mutex // serializes writers so sequence numbers stay unique
	metric    Metric
	dimension int
}

var _ port.IndexStore = (*SQLiteStore)(nil)

type entryRow struct {
	ID       string         `db:"id"`
	Seq      uint64         `db:"seq"`
	DocID    string         `db:"doc_id"`
	ChunkSeq int            `db:"chunk_seq"`
	Text     string         `db:"text"`
	Metadata sql.NullString `db:"metadata"`
	Vector   []byte         `db:"vector"`
}

func NewSQLiteStore(path string, dimension int, metric Metric) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		metric:    metric,
		dimension: dimension,
	}, nil
}

// Add stores the batch in one transaction. Re-added chunk IDs are
// updated in place and keep their original sequence. On any invalid
// entry or write failure nothing is stored.
func (s *SQLiteStore) Add(entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateEntries(entries, s.dimension); err != nil {
		return err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next uint64
	if err := tx.Get(&next, `SELECT COALESCE(MAX(seq)+1, 0) FROM entries`); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}

	for _, entry := range entries {
		metadata, err := encodeMetadata(entry.Chunk.Metadata)
		if err != nil {
			return err
		}
		vector := encodeVector(entry.Vector)

		var existingSeq uint64
		err = tx.Get(&existingSeq, `SELECT seq FROM entries WHERE id = ?`, entry.Chunk.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.Exec(
				`INSERT INTO entries (id, seq, doc_id, chunk_seq, text, metadata, vector) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				entry.Chunk.ID, next, entry.Chunk.DocID, entry.Chunk.Seq, entry.Chunk.Text, metadata, vector,
			)
			if err != nil {
				return fmt.Errorf("failed to insert entry %s: %w", entry.Chunk.ID, err)
			}
			next++
		case err != nil:
			return fmt.Errorf("failed to look up entry %s: %w", entry.Chunk.ID, err)
		default:
			_, err = tx.Exec(
				`UPDATE entries SET doc_id = ?, chunk_seq = ?, text = ?, metadata = ?, vector = ? WHERE id = ?`,
				entry.Chunk.DocID, entry.Chunk.Seq, entry.Chunk.Text, metadata, vector, entry.Chunk.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to update entry %s: %w", entry.Chunk.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	var rows []entryRow
	if err := s.db.Select(&rows, `SELECT id, seq, doc_id, chunk_seq, text, metadata, vector FROM entries ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	entries := make([]rankedEntry, 0, len(rows))
	for _, row := range rows {
		vector, err := decodeVector(row.Vector)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", row.ID, err)
		}
		metadata, err := decodeMetadata(row.Metadata)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", row.ID, err)
		}

		entries = append(entries, rankedEntry{
			entry: domain.IndexEntry{
				Chunk: domain.Chunk{
					ID:       row.ID,
					DocID:    row.DocID,
					Seq:      row.ChunkSeq,
					Text:     row.Text,
					Metadata: metadata,
				},
				Vector: vector,
			},
			seq: row.Seq,
		})
	}

	return searchRanked(entries, s.metric, s.dimension, query, k)
}

func (s *SQLiteStore) Count() (int, error) {
	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM entries`); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob of %d bytes", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

func encodeMetadata(md map[string]string) (any, error) {
	if len(md) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(raw sql.NullString) (map[string]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var md map[string]string
	if err := json.Unmarshal([]byte(raw.String), &md); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return md, nil
}
