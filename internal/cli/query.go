package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the index",
	Long: `Retrieve the chunks most similar to the query, without generating
an answer.

Examples:
  ragpipe query -q "refund policy"
  ragpipe query -q "shipping times" -k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	ctx := commandContext(cmd)

	if err := requireIndex(cfg, dir); err != nil {
		return err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg, dir)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	var chat port.ChatModel
	if needsChat(cfg) {
		chat, err = buildChat(cfg)
		if err != nil {
			return err
		}
	}

	retrieveUC := buildRetrieveUseCase(cfg, embedder, st, chat)

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	result, err := retrieveUC.Retrieve(ctx, queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(result.Chunks) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(result.Chunks), queryText)
	for i, sc := range result.Chunks {
		fmt.Printf("--- [%d] %s (score: %.3f) ---\n", i+1, chunkLabel(sc.Chunk), sc.Score)
		text := sc.Chunk.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}

// chunkLabel names a chunk by its source and sequence for display.
func chunkLabel(c domain.Chunk) string {
	src := c.Metadata["source"]
	if src == "" {
		src = c.DocID
	}
	return fmt.Sprintf("%s#%d", src, c.Seq)
}
