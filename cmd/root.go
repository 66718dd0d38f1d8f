// Package cmd implements the trawl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trawldev/trawl/internal/config"
	"github.com/trawldev/trawl/internal/model"
	"github.com/trawldev/trawl/internal/store"
)

var (
	flagDBPath  string
	flagVerbose bool
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "trawl",
	Short: "Index and search AI coding-assistant transcripts",
	Long: "trawl indexes Claude Code, Codex and Gemini CLI transcripts from their\n" +
		"local session directories into a searchable SQLite database.",
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDBPath, "db", "d", "", "Index database path (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print the raw response as JSON")
}

// printJSON writes the raw response struct for machine consumers.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// loadConfig reads the config file with the --db override applied.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagDBPath != "" {
		cfg.General.DBPath = flagDBPath
	}
	return cfg, nil
}

// openStore opens the index database named by the config.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.General.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", cfg.General.DBPath, err)
	}
	return st, nil
}

// newLogger builds the CLI logger: warnings and errors only unless
// --verbose is set.
func newLogger() *zap.Logger {
	level := zapcore.WarnLevel
	if flagVerbose {
		level = zapcore.DebugLevel
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	log, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// parseCategories converts --category flag values, failing on unknown
// names before any query runs.
func parseCategories(names []string) ([]model.Category, error) {
	var out []model.Category
	for _, n := range names {
		c := model.Category(n)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q (valid: %v)", n, model.Categories())
		}
		out = append(out, c)
	}
	return out, nil
}

// parseProviders converts --provider flag values.
func parseProviders(names []string) ([]model.Provider, error) {
	var out []model.Provider
	for _, n := range names {
		p := model.Provider(n)
		if !p.Valid() {
			return nil, fmt.Errorf("unknown provider %q (valid: %v)", n, model.Providers())
		}
		out = append(out, p)
	}
	return out, nil
}
