package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/llmstream"
	"github.com/Davincible/llmstream/providers"
)

func TestConfig_LoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	temp := 0.5
	cfg := &Config{
		Provider:     "openrouter",
		Model:        "deepseek/deepseek-r1",
		SystemPrompt: "Be brief.",
		MaxTokens:    2048,
		Temperature:  &temp,
		Reasoning:    "medium",
		Providers: map[string]ProviderConfig{
			"openrouter": {APIKey: "test-provider-key"},
		},
	}

	if err := manager.Save(cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if !manager.Exists() {
		t.Errorf("Config file should exist after saving")
	}

	loadedCfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	assert.Equal(t, "openrouter", loadedCfg.Provider)
	assert.Equal(t, "deepseek/deepseek-r1", loadedCfg.Model)
	assert.Equal(t, "Be brief.", loadedCfg.SystemPrompt)
	assert.Equal(t, 2048, loadedCfg.MaxTokens)
	require.NotNil(t, loadedCfg.Temperature)
	assert.Equal(t, 0.5, *loadedCfg.Temperature)
	assert.Equal(t, "test-provider-key", loadedCfg.Providers["openrouter"].APIKey)
}

func TestConfig_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	yamlConfig := `
provider: "openai"
model: "gpt-4o-mini"
reasoning: "high"
providers:
  openai:
    api_key: "test-openai-key"
  anthropic:
    api_key: "test-anthropic-key"
    endpoint: "http://localhost:9999"
`

	yamlPath := filepath.Join(tmpDir, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlConfig), 0644))

	cfg, err := manager.Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "high", cfg.Reasoning)
	assert.Equal(t, "test-openai-key", cfg.Providers["openai"].APIKey)
	assert.Equal(t, "http://localhost:9999", cfg.Providers["anthropic"].Endpoint)
}

func TestConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	require.NoError(t, manager.Save(&Config{}))
	cfg, err := manager.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Provider)
	assert.Equal(t, DefaultModels[DefaultProvider], cfg.Model)
	assert.Equal(t, llmstream.DefaultMaxTokens, cfg.MaxTokens)
	assert.Nil(t, cfg.Temperature)
}

func TestConfig_ProviderModelOverride(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	require.NoError(t, manager.Save(&Config{
		Provider: "openai",
		Providers: map[string]ProviderConfig{
			"openai": {Model: "o3-mini"},
		},
	}))

	cfg, err := manager.Load()
	require.NoError(t, err)
	assert.Equal(t, "o3-mini", cfg.Model)
}

func TestConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	configPath := filepath.Join(tmpDir, DefaultConfigFilename)
	os.WriteFile(configPath, []byte("provider: [unclosed"), 0644)

	_, err := manager.Load()
	if err == nil {
		t.Errorf("Expected error when loading invalid YAML")
	}
}

func TestConfig_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	_, err := manager.Load()
	if err == nil {
		t.Errorf("Expected error when loading non-existent file")
	}

	if manager.Exists() {
		t.Errorf("Non-existent config should not exist")
	}
}

func TestConfig_GetWithoutLoad(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := manager.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultProvider, cfg.Provider)
}

func TestConfig_CreateExample(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	require.NoError(t, manager.CreateExample())
	assert.FileExists(t, filepath.Join(tmpDir, DefaultConfigFilename))

	cfg, err := manager.Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Providers, 3)
	for name := range EnvKeys {
		assert.Contains(t, cfg.Providers, name)
	}
}

func TestConfig_APIKeyEnvFallback(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	cfg := &Config{Providers: map[string]ProviderConfig{}}
	assert.Equal(t, "env-key", cfg.APIKey("openrouter"))

	cfg.Providers["openrouter"] = ProviderConfig{APIKey: "file-key"}
	assert.Equal(t, "file-key", cfg.APIKey("openrouter"))
}

func TestConfig_PromptOptions(t *testing.T) {
	temp := 0.3
	cfg := &Config{
		MaxTokens:    1024,
		SystemPrompt: "hi",
		Temperature:  &temp,
		Reasoning:    "low",
	}

	opts, err := cfg.PromptOptions()
	require.NoError(t, err)
	assert.Equal(t, 1024, opts.MaxTokens)
	assert.Equal(t, "hi", opts.SystemPrompt)
	assert.Equal(t, 0.3, opts.Temperature)
	require.NotNil(t, opts.Reasoning)
	assert.Equal(t, llmstream.ReasoningLow, *opts.Reasoning)
}

func TestConfig_PromptOptions_BadReasoning(t *testing.T) {
	cfg := &Config{Reasoning: "extreme"}
	_, err := cfg.PromptOptions()
	assert.Error(t, err)
}

func TestConfig_NewLLM(t *testing.T) {
	cfg := &Config{
		Provider: "anthropic",
		Model:    string(providers.Claude35Haiku),
		Providers: map[string]ProviderConfig{
			"anthropic": {APIKey: "k"},
		},
	}

	llm, err := cfg.NewLLM()
	require.NoError(t, err)
	assert.IsType(t, &providers.Claude{}, llm)

	cfg.Provider = "nonexistent"
	_, err = cfg.NewLLM()
	assert.Error(t, err)
}

func TestConfig_NewLLM_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &Config{Provider: "openai", Model: "gpt-4o"}
	_, err := cfg.NewLLM()
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestParseReasoning(t *testing.T) {
	for s, want := range map[string]llmstream.ReasoningEffort{
		"low":    llmstream.ReasoningLow,
		"medium": llmstream.ReasoningMedium,
		"high":   llmstream.ReasoningHigh,
	} {
		got, err := ParseReasoning(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseReasoning("maximum")
	assert.Error(t, err)
}
