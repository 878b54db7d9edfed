package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragpipe/internal/adapter/store"
	"ragpipe/internal/usecase"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index documents for retrieval",
	Long: `Chunk, embed and store documents in the index. Paths may be files,
directories or PDFs; without arguments the root directory is indexed.
The index is stored in .ragpipe/ within the root directory.

Examples:
  ragpipe index ./docs              # Index a directory
  ragpipe index manual.pdf notes.md # Index specific files
  ragpipe index --rebuild ./docs    # Drop the old index first`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "clear the existing index before indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	ctx := commandContext(cmd)

	sources := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", arg, err)
		}
		sources = append(sources, abs)
	}
	if len(sources) == 0 {
		sources = []string{dir}
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg, dir)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer st.Close()

	// A persistent index built under a different chunking or
	// embedding config no longer matches its stored vectors.
	if bs, ok := st.(*store.BoltStore); ok {
		changed, err := bs.ConfigChanged(cfg)
		if err != nil {
			return fmt.Errorf("failed to read index metadata: %w", err)
		}
		if changed && !indexRebuild {
			return fmt.Errorf("existing index was built with a different chunking or embedding config; rerun with --rebuild")
		}
	}

	if indexRebuild {
		fmt.Println("Clearing existing index...")
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}

	loader := buildLoader(cfg)
	chk, err := buildChunker(cfg)
	if err != nil {
		return err
	}

	indexUC := usecase.NewIndexUseCase(loader, chk, embedder, st, cfg.Embedding.BatchSize)

	fmt.Printf("Indexing %d source(s)...\n", len(sources))

	var bar *progressbar.ProgressBar
	startTime := time.Now()

	progress := func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 && processed < total {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	stats, err := indexUC.Index(ctx, sources, progress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if bs, ok := st.(*store.BoltStore); ok {
		if err := bs.RecordConfig(cfg); err != nil {
			return fmt.Errorf("failed to record index metadata: %w", err)
		}
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Documents: %d\n", stats.Documents)
	fmt.Printf("  Chunks:    %d\n", stats.Chunks)
	fmt.Printf("  Dimension: %d\n", stats.Dimension)
	fmt.Printf("  Elapsed:   %s\n", formatDuration(stats.Elapsed))

	if cfg.Store.Backend == "memory" {
		fmt.Println("\nNote: the memory backend discards the index when the process exits.")
	} else {
		fmt.Printf("\nIndex stored at: %s\n", cfg.IndexPath(dir))
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
