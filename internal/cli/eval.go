package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ragpipe/internal/adapter/analyzer"
	"ragpipe/internal/eval"
	"ragpipe/internal/usecase"
)

var (
	evalDataset string
	evalJudge   bool
	evalOutput  string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate answer quality over a dataset",
	Long: `Run every dataset question through the pipeline and score the
answers against the references with token-overlap metrics. With
--judge, a chat model additionally grades relevance and groundedness.

The dataset is a JSON array: [{"question": "...", "reference": "..."}].

Examples:
  ragpipe eval -f dataset.json
  ragpipe eval -f dataset.json --judge -o report.json`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVarP(&evalDataset, "file", "f", "", "dataset file (required)")
	evalCmd.Flags().BoolVar(&evalJudge, "judge", false, "grade answers with the chat model")
	evalCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "write the full report as JSON")
	evalCmd.MarkFlagRequired("file")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	ctx := commandContext(cmd)

	samples, err := eval.LoadDataset(evalDataset)
	if err != nil {
		return err
	}

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

	var judge *eval.Judge
	if evalJudge {
		judge = eval.NewJudge(chat)
	}

	runner := eval.NewRunner(askUC, judge, analyzer.NewTokenizer(), cfg.Retrieve.TopK)

	fmt.Printf("Evaluating %d samples...\n\n", len(samples))

	report, err := runner.Run(ctx, samples)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	printReport(report, evalJudge)

	if evalOutput != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := os.WriteFile(evalOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", evalOutput)
	}
	return nil
}

func printReport(report *eval.Report, judged bool) {
	header := fmt.Sprintf("%-4s %-7s %-7s %-7s", "#", "F1", "BLEU", "RECALL")
	if judged {
		header += fmt.Sprintf(" %-7s %-7s", "REL", "GND")
	}
	header += " QUESTION"

	fmt.Println(strings.Repeat("-", 72))
	fmt.Println(header)
	fmt.Println(strings.Repeat("-", 72))

	for i, s := range report.Samples {
		if s.Error != "" {
			fmt.Printf("%-4d %-38s %s\n", i+1, "FAILED: "+truncate(s.Error, 30), truncate(s.Question, 28))
			continue
		}
		row := fmt.Sprintf("%-4d %-7.3f %-7.3f %-7.3f", i+1, s.Lexical.F1, s.Lexical.BLEU, s.Lexical.Recall)
		if judged && s.Judge != nil {
			row += fmt.Sprintf(" %-7.2f %-7.2f", s.Judge.Relevance, s.Judge.Groundedness)
		}
		row += " " + truncate(s.Question, 28)
		fmt.Println(row)
	}

	fmt.Println(strings.Repeat("-", 72))
	mean := fmt.Sprintf("%-4s %-7.3f %-7.3f %-7.3f", "avg", report.Mean.F1, report.Mean.BLEU, report.Mean.Recall)
	if judged && report.Mean.Relevance != nil && report.Mean.Groundedness != nil {
		mean += fmt.Sprintf(" %-7.2f %-7.2f", *report.Mean.Relevance, *report.Mean.Groundedness)
	}
	fmt.Println(mean)

	if report.Failures > 0 {
		fmt.Printf("\n%d sample(s) failed and were excluded from the averages.\n", report.Failures)
	}
	fmt.Printf("\nRun %s finished in %.1fs\n", report.ID, report.ElapsedSeconds)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
