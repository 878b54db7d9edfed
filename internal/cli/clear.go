package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the index",
	Long: `Remove every indexed chunk and vector. The next 'ragpipe index'
starts from scratch.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()

	if err := requireIndex(cfg, dir); err != nil {
		return err
	}

	st, err := openStore(cfg, dir)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	count, err := st.Count()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	if err := st.Clear(); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	fmt.Printf("Cleared %d chunks from %s\n", count, cfg.IndexPath(dir))
	return nil
}
