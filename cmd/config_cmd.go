package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trawldev/trawl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(config.ConfigPath())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Database:          %s\n", cfg.General.DBPath)
	fmt.Printf("    Include subagents: %v\n", cfg.General.IncludeSubagents)
	fmt.Println()

	fmt.Println("  [Roots]")
	fmt.Printf("    Claude:          %s\n", cfg.Roots.ClaudeDir)
	fmt.Printf("    Codex:           %s\n", cfg.Roots.CodexDir)
	fmt.Printf("    Gemini:          %s\n", cfg.Roots.GeminiDir)
	fmt.Printf("    Gemini history:  %s\n", cfg.Roots.GeminiHistoryDir)
	fmt.Printf("    Gemini projects: %s\n", cfg.Roots.GeminiProjectsFile)
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	if config.Exists() {
		return fmt.Errorf("config already exists at %s", config.ConfigPath())
	}
	if err := config.Save(config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("  Wrote %s\n", config.ConfigPath())
	return nil
}
