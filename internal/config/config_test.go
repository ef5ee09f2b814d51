package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the XDG dirs at a temp directory so tests never read the
// developer's real config.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("AIBRIDGE_CONFIG", "")
	t.Setenv("AIBRIDGE_MODEL", "")
	t.Setenv("AIBRIDGE_PROMPT_TIMEOUT_MS", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ARK_API_KEY", "")
}

func TestLoad_ProjectJSONC(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	content := `{
		// comments are allowed
		"model": "anthropic/claude-sonnet-4-20250514",
		"promptTimeoutMs": 60000
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aibridge.jsonc"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, int64(60000), cfg.PromptTimeoutMS)
}

func TestLoad_ProjectYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	content := "model: openai/gpt-4o\nsystemInstruction: be terse\nprovider:\n  openai:\n    apiKey: sk-yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aibridge.yaml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", cfg.Model)
	assert.Equal(t, "be terse", cfg.SystemInstruction)
	assert.Equal(t, "sk-yaml", cfg.Provider["openai"].APIKey)
}

func TestLoad_EnvInterpolation(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv("TEST_BRIDGE_KEY", "sk-from-env")

	content := `{"provider": {"anthropic": {"apiKey": "{env:TEST_BRIDGE_KEY}"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aibridge.json"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Provider["anthropic"].APIKey)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	content := `{"model": "anthropic/claude-sonnet-4-20250514"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aibridge.json"), []byte(content), 0644))

	t.Setenv("AIBRIDGE_MODEL", "ark/ep-test")
	t.Setenv("AIBRIDGE_PROMPT_TIMEOUT_MS", "120000")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ark/ep-test", cfg.Model)
	assert.Equal(t, int64(120000), cfg.PromptTimeoutMS)
	assert.Equal(t, "sk-env", cfg.Provider["anthropic"].APIKey)
}

func TestLoad_ConfigFileOverride(t *testing.T) {
	isolate(t)
	override := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(override, []byte(`{"maxTurnsPerRequest": 25}`), 0644))
	t.Setenv("AIBRIDGE_CONFIG", override)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxTurnsPerRequest)
}

func TestLoad_MissingFilesIsFine(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Model)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "aibridge.json")

	cfg, _ := Load("")
	cfg.Model = "anthropic/claude-sonnet-4-20250514"
	require.NoError(t, Save(cfg, path))

	dir := filepath.Dir(path)
	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Model, loaded.Model)
}
