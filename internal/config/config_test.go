package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.General.IncludeSubagents)
	assert.NotEmpty(t, cfg.General.DBPath)
	assert.NotEmpty(t, cfg.Roots.ClaudeDir)
	assert.NotEmpty(t, cfg.Roots.CodexDir)
	assert.NotEmpty(t, cfg.Roots.GeminiDir)
	assert.False(t, Exists())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.General.IncludeSubagents = false
	cfg.General.DBPath = "/tmp/custom/index.db"
	cfg.Roots.CodexDir = "/srv/codex/sessions"

	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	loaded, err := Load()
	require.NoError(t, err)
	assert.False(t, loaded.General.IncludeSubagents)
	assert.Equal(t, "/tmp/custom/index.db", loaded.General.DBPath)
	assert.Equal(t, "/srv/codex/sessions", loaded.Roots.CodexDir)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, Save(Config{
		General: DefaultConfig().General,
		Roots:   RootsConfig{ClaudeDir: "/custom/claude"},
	}))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/custom/claude", loaded.Roots.ClaudeDir)
	// Fields absent from the file keep their computed defaults.
	assert.Equal(t, DefaultConfig().Roots.CodexDir, loaded.Roots.CodexDir)
}
