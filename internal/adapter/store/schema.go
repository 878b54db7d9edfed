package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"go.etcd.io/bbolt"

	"ragpipe/config"
)

// currentSchemaVersion is the on-disk format version.
// Increment when making breaking changes to the storage layout.
const currentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and the index-relevant config hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// SchemaInfo retrieves the stored schema info. A zero Version means
// the index was never written by this process.
func (s *BoltStore) SchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				info.Version = currentSchemaVersion
			}
		}
		if data := b.Get(keyConfigHash); data != nil {
			info.ConfigHash = string(data)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		data, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, data); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ConfigChanged reports whether an existing index was built with a
// different index-relevant config than cfg. A store never written to
// reports false.
func (s *BoltStore) ConfigChanged(cfg *config.Config) (bool, error) {
	info, err := s.SchemaInfo()
	if err != nil {
		return false, err
	}
	if info.ConfigHash == "" {
		return false, nil
	}
	return info.ConfigHash != ComputeConfigHash(cfg), nil
}

// RecordConfig stores the current schema version and config hash.
func (s *BoltStore) RecordConfig(cfg *config.Config) error {
	return s.SetSchemaInfo(&SchemaInfo{
		Version:    currentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}

// ComputeConfigHash hashes the configuration that shapes index
// content. A changed hash means stored chunks and vectors no longer
// match the config and the index should be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		Strategy     string `json:"strategy"`
		MaxChunkSize int    `json:"max_chunk_size"`
		Overlap      int    `json:"overlap"`
		Provider     string `json:"provider"`
		Model        string `json:"model"`
		Dimension    int    `json:"dimension"`
		Metric       string `json:"metric"`
	}{
		Strategy:     cfg.Chunking.Strategy,
		MaxChunkSize: cfg.Chunking.MaxChunkSize,
		Overlap:      cfg.Chunking.Overlap,
		Provider:     cfg.Embedding.Provider,
		Model:        cfg.Embedding.Model,
		Dimension:    cfg.Embedding.Dimension,
		Metric:       cfg.Store.Metric,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
