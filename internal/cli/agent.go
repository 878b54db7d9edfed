package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragpipe/internal/adapter/openaiclient"
	"ragpipe/internal/agent"
	"ragpipe/internal/port"
)

var (
	agentText string
	agentJSON bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Answer a question with agentic retrieval",
	Long: `Let the chat model drive retrieval: it decides when to search the
index, with which queries and how often, before answering. Useful for
questions that need several lookups.

Examples:
  ragpipe agent -q "compare the refund and exchange policies"`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.Flags().StringVarP(&agentText, "query", "q", "", "question (required)")
	agentCmd.Flags().BoolVar(&agentJSON, "json", false, "output as JSON")
	agentCmd.MarkFlagRequired("query")
}

func runAgent(cmd *cobra.Command, args []string) error {
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

	client, err := openaiclient.New(openaiclient.Config{
		Provider:   cfg.Generation.Provider,
		APIKeyEnv:  cfg.Generation.APIKeyEnv,
		Endpoint:   cfg.Generation.Endpoint,
		APIVersion: cfg.Generation.APIVersion,
		Deployment: cfg.Generation.Deployment,
	})
	if err != nil {
		return fmt.Errorf("generation client: %w", err)
	}

	var chat port.ChatModel
	if needsChat(cfg) {
		chat, err = buildChat(cfg)
		if err != nil {
			return err
		}
	}

	a := agent.New(client, buildRetriever(cfg, embedder, st, chat), agent.Options{
		Model:         cfg.Generation.Model,
		Temperature:   float32(cfg.Generation.Temperature),
		MaxTokens:     cfg.Generation.MaxTokens,
		Retries:       cfg.Generation.Retries,
		MaxIterations: cfg.Agent.MaxIterations,
		SearchK:       cfg.Retrieve.TopK,
	})

	answer, err := a.Ask(ctx, agentText)
	if err != nil {
		return fmt.Errorf("agent failed: %w", err)
	}

	printAnswer(answer, agentJSON)
	return nil
}
