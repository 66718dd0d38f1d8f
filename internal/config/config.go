// Package config loads and persists trawl configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all trawl configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Roots   RootsConfig   `toml:"roots"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	IncludeSubagents bool   `toml:"include_subagents"`
	DBPath           string `toml:"db_path,omitempty"`
}

// RootsConfig holds the discovery root directory for each provider. Gemini
// additionally needs a history root and a projects-mapping file to resolve
// its hash-identified project directories.
type RootsConfig struct {
	ClaudeDir          string `toml:"claude_dir,omitempty"`
	CodexDir           string `toml:"codex_dir,omitempty"`
	GeminiDir          string `toml:"gemini_dir,omitempty"`
	GeminiHistoryDir   string `toml:"gemini_history_dir,omitempty"`
	GeminiProjectsFile string `toml:"gemini_projects_file,omitempty"`
}

// DefaultConfig returns the configuration with home-derived defaults. It is
// computed once at startup; nothing reads the home directory afterwards.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		General: GeneralConfig{
			IncludeSubagents: true,
			DBPath:           filepath.Join(dataDir(), "index.db"),
		},
		Roots: RootsConfig{
			ClaudeDir:          filepath.Join(home, ".claude", "projects"),
			CodexDir:           filepath.Join(home, ".codex", "sessions"),
			GeminiDir:          filepath.Join(home, ".gemini", "tmp"),
			GeminiHistoryDir:   filepath.Join(home, ".gemini", "history"),
			GeminiProjectsFile: filepath.Join(home, ".gemini", "projects.json"),
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "trawl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "trawl")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "trawl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "trawl")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
