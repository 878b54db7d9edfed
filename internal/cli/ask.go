package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragpipe/internal/domain"
	"ragpipe/internal/usecase"
)

var (
	askText string
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the index",
	Long: `Retrieve the most relevant chunks and generate an answer grounded
in them. The chunks the answer cites are listed after the answer.

Examples:
  ragpipe ask -q "how do refunds work?"
  ragpipe ask -q "what is the warranty period?" -k 3 --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	chat, err := buildChat(cfg)
	if err != nil {
		return err
	}

	askUC := usecase.NewAskUseCase(
		buildRetrieveUseCase(cfg, embedder, st, chat),
		usecase.NewGenerateUseCase(chat),
	)

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	answer, err := askUC.Ask(ctx, askText, topK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	printAnswer(answer, askJSON)
	return nil
}

func printAnswer(answer domain.Answer, asJSON bool) {
	if asJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println(answer.Text)

	if len(answer.Grounding) > 0 {
		fmt.Println("\nSources:")
		for i, sc := range answer.Grounding {
			fmt.Printf("  [%d] %s (score: %.3f)\n", i+1, chunkLabel(sc.Chunk), sc.Score)
		}
	}
}
