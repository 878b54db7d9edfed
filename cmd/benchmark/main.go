package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"ragpipe/internal/adapter/chunker"
	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/store"
	"ragpipe/internal/domain"
)

// Offline pipeline benchmark: synthesizes a corpus, then times each
// stage (chunk, embed, add, search) against the in-memory backend with
// the deterministic embedder. No API keys or existing index required.

var vocabulary = []string{
	"account", "invoice", "refund", "billing", "payment", "subscription",
	"policy", "customer", "support", "ticket", "order", "shipment",
	"warranty", "return", "credit", "balance", "statement", "charge",
	"contract", "renewal", "cancellation", "upgrade", "discount", "plan",
	"tier", "quota", "usage", "limit", "report", "summary", "approval",
	"request", "deadline", "review", "escalation", "resolution",
}

func main() {
	docCount := flag.Int("docs", 200, "Number of synthetic documents")
	docWords := flag.Int("words", 600, "Words per document")
	chunkSize := flag.Int("chunk", 300, "Max chunk size in runes")
	overlap := flag.Int("overlap", 50, "Chunk overlap in runes")
	dim := flag.Int("dim", 256, "Embedding dimension")
	batchSize := flag.Int("batch", 64, "Embedding batch size")
	topK := flag.Int("k", 5, "Results per search")
	queryCount := flag.Int("queries", 100, "Number of searches to run")
	seed := flag.Int64("seed", 1, "Corpus random seed")
	flag.Parse()

	fmt.Println("PIPELINE BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Corpus:    %d docs x %d words (seed %d)\n", *docCount, *docWords, *seed)
	fmt.Printf("Chunking:  fixed, size %d, overlap %d\n", *chunkSize, *overlap)
	fmt.Printf("Embedding: mock, %d dimensions, batch %d\n", *dim, *batchSize)
	fmt.Printf("Store:     memory, cosine\n\n")

	rng := rand.New(rand.NewSource(*seed))
	docs := makeCorpus(rng, *docCount, *docWords)

	fixed, err := chunker.NewFixedChunker(*chunkSize, *overlap)
	if err != nil {
		fatal(err)
	}

	begin := time.Now()
	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := fixed.Chunk(doc)
		if err != nil {
			fatal(err)
		}
		chunks = append(chunks, cs...)
	}
	chunkElapsed := time.Since(begin)
	report("Chunk", len(chunks), "chunks", chunkElapsed)

	ctx := context.Background()
	embedder := embedding.NewMockEmbedder(*dim)

	begin = time.Now()
	vectors := make([][]float32, 0, len(chunks))
	for lo := 0; lo < len(chunks); lo += *batchSize {
		hi := lo + *batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		texts := make([]string, 0, hi-lo)
		for _, c := range chunks[lo:hi] {
			texts = append(texts, c.Text)
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			fatal(err)
		}
		vectors = append(vectors, vecs...)
	}
	embedElapsed := time.Since(begin)
	report("Embed", len(vectors), "vectors", embedElapsed)

	st := store.NewMemoryStore(*dim, store.MetricCosine)

	begin = time.Now()
	for lo := 0; lo < len(chunks); lo += *batchSize {
		hi := lo + *batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		entries := make([]domain.IndexEntry, 0, hi-lo)
		for i := lo; i < hi; i++ {
			entries = append(entries, domain.IndexEntry{Chunk: chunks[i], Vector: vectors[i]})
		}
		if err := st.Add(entries); err != nil {
			fatal(err)
		}
	}
	addElapsed := time.Since(begin)
	report("Add", len(chunks), "entries", addElapsed)

	begin = time.Now()
	var top1Total float64
	top1Hits := 0
	for i := 0; i < *queryCount; i++ {
		query := querySnippet(rng, chunks)
		vec, err := embedder.Embed(ctx, query)
		if err != nil {
			fatal(err)
		}
		results, err := st.Search(vec, *topK)
		if err != nil {
			fatal(err)
		}
		if len(results) > 0 {
			top1Total += results[0].Score
			top1Hits++
		}
	}
	searchElapsed := time.Since(begin)
	report("Search", *queryCount, "queries", searchElapsed)

	fmt.Println(strings.Repeat("=", 70))
	count, _ := st.Count()
	fmt.Printf("Entries indexed:   %d\n", count)
	fmt.Printf("Index build total: %s\n", (chunkElapsed + embedElapsed + addElapsed).Round(time.Millisecond))
	if *queryCount > 0 {
		perQuery := searchElapsed / time.Duration(*queryCount)
		fmt.Printf("Search latency:    %s/query\n", perQuery.Round(time.Microsecond))

		if perQuery < 5*time.Millisecond {
			fmt.Println("Status: GOOD - brute-force scan is fast enough at this corpus size")
		} else if perQuery < 50*time.Millisecond {
			fmt.Println("Status: OK - scan cost is noticeable, consider a smaller index")
		} else {
			fmt.Println("Status: SLOW - corpus is too large for a linear scan")
		}
	}
	if top1Hits > 0 {
		fmt.Printf("Avg top-1 score:   %.3f\n", top1Total/float64(top1Hits))
	}
}

// makeCorpus builds deterministic documents from the shared vocabulary
// so query snippets overlap the indexed text.
func makeCorpus(rng *rand.Rand, docs, words int) []domain.Document {
	out := make([]domain.Document, docs)
	for i := range out {
		var b strings.Builder
		for w := 0; w < words; w++ {
			if w > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(vocabulary[rng.Intn(len(vocabulary))])
		}
		out[i] = domain.Document{
			ID:     fmt.Sprintf("doc-%03d", i),
			Source: fmt.Sprintf("synthetic/%03d.txt", i),
			Text:   b.String(),
		}
	}
	return out
}

// querySnippet cuts a short window out of a random indexed chunk.
func querySnippet(rng *rand.Rand, chunks []domain.Chunk) string {
	const span = 80
	text := []rune(chunks[rng.Intn(len(chunks))].Text)
	if len(text) <= span {
		return string(text)
	}
	start := rng.Intn(len(text) - span)
	return string(text[start : start+span])
}

func report(stage string, n int, unit string, elapsed time.Duration) {
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	rate := float64(n) / elapsed.Seconds()
	fmt.Printf("%-8s %8d %-8s in %-12s (%.0f/s)\n", stage, n, unit, elapsed.Round(time.Millisecond), rate)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
