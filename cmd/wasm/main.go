//go:build js && wasm

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"syscall/js"

	"ragpipe/internal/adapter/chunker"
	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/store"
	"ragpipe/internal/domain"
)

// Browser demo: a semantic index living entirely in the page. The
// deterministic embedder stands in for a real provider, so indexing and
// search need no network access or API key.

const dimension = 64

var (
	st       *store.MemoryStore
	embedder *embedding.MockEmbedder
	fixed    *chunker.FixedChunker
	indexed  map[string]int
)

func init() {
	st = store.NewMemoryStore(dimension, store.MetricCosine)
	embedder = embedding.NewMockEmbedder(dimension)
	indexed = make(map[string]int)

	var err error
	fixed, err = chunker.NewFixedChunker(512, 64)
	if err != nil {
		panic(err)
	}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("ragIndex", js.FuncOf(indexContent))
	js.Global().Set("ragSearch", js.FuncOf(searchContent))
	js.Global().Set("ragClear", js.FuncOf(clearIndex))
	js.Global().Set("ragStats", js.FuncOf(getStats))

	<-c
}

func indexContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: ragIndex(filename, content)")
	}

	filename := args[0].String()
	content := args[1].String()

	doc := domain.Document{
		ID:       generateDocID(filename),
		Source:   filename,
		Text:     content,
		Metadata: map[string]string{"source": filename},
	}

	chunks, err := fixed.Chunk(doc)
	if err != nil {
		return makeError("chunking failed: " + err.Error())
	}
	if len(chunks) == 0 {
		return makeError("nothing to index: content is empty")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	if err != nil {
		return makeError("embedding failed: " + err.Error())
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.IndexEntry{Chunk: chunks[i], Vector: vectors[i]}
	}
	if err := st.Add(entries); err != nil {
		return makeError("indexing failed: " + err.Error())
	}

	indexed[filename] = len(chunks)

	return makeResult(map[string]interface{}{
		"success":  true,
		"chunks":   len(chunks),
		"filename": filename,
	})
}

func searchContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: ragSearch(query, [topK])")
	}

	query := args[0].String()
	topK := 5
	if len(args) > 1 {
		topK = args[1].Int()
	}

	vector, err := embedder.Embed(context.Background(), query)
	if err != nil {
		return makeError("embedding failed: " + err.Error())
	}

	results, err := st.Search(vector, topK)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}

	output := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		output = append(output, map[string]interface{}{
			"source": r.Chunk.Metadata["source"],
			"seq":    r.Chunk.Seq,
			"score":  r.Score,
			"text":   r.Chunk.Text,
		})
	}

	return makeResult(map[string]interface{}{
		"results": output,
		"query":   query,
	})
}

func clearIndex(this js.Value, args []js.Value) interface{} {
	if err := st.Clear(); err != nil {
		return makeError("clear failed: " + err.Error())
	}
	indexed = make(map[string]int)
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	count, _ := st.Count()

	filenames := make([]string, 0, len(indexed))
	for name := range indexed {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	return makeResult(map[string]interface{}{
		"totalDocs":   len(indexed),
		"totalChunks": count,
		"dimension":   dimension,
		"files":       filenames,
	})
}

func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
