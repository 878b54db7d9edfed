package domain

import "time"

type Document struct {
	ID       string
	Source   string
	Text     string
	Metadata map[string]string
}

type Chunk struct {
	ID       string            `json:"id"`
	DocID    string            `json:"doc_id"`
	Seq      int               `json:"seq"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

type Query struct {
	Text string
}

type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

type RetrievalResult struct {
	Query  string        `json:"query"`
	Chunks []ScoredChunk `json:"chunks"`
}

type Answer struct {
	ID        string        `json:"id"`
	Query     string        `json:"query"`
	Text      string        `json:"text"`
	Grounding []ScoredChunk `json:"grounding,omitempty"`
	Model     string        `json:"model,omitempty"`
}

type IndexStats struct {
	Documents int
	Chunks    int
	Dimension int
	Elapsed   time.Duration
}
