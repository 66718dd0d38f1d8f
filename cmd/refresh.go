package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trawldev/trawl/internal/discover"
	"github.com/trawldev/trawl/internal/fsys"
	"github.com/trawldev/trawl/internal/indexer"
)

var flagForce bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Scan provider directories and update the index",
	Long: "Discovers transcript files under the configured provider roots and\n" +
		"indexes new or changed ones. Unchanged files are skipped by fingerprint.",
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Reparse every file, ignoring fingerprints")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	log := newLogger()
	defer func() { _ = log.Sync() }()

	fs := fsys.OS()
	scanner := discover.New(fs, cfg.Roots, cfg.General.IncludeSubagents)
	ix := indexer.New(fs, st, scanner, log)

	stats, err := ix.Refresh(cmd.Context(), flagForce)
	if err != nil {
		return err
	}

	fmt.Printf("  Job %s\n", stats.JobID)
	fmt.Printf("  Files:      %d\n", stats.Files)
	fmt.Printf("  Unchanged:  %d\n", stats.CacheHits)
	fmt.Printf("  Reindexed:  %d\n", stats.Reparsed)
	fmt.Printf("  Removed:    %d\n", stats.Removed)
	if stats.Failed > 0 {
		fmt.Printf("  Failed:     %d\n", stats.Failed)
	}
	if stats.ParseErrors > 0 {
		fmt.Printf("  Skipped records: %d\n", stats.ParseErrors)
	}
	return nil
}
