package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/Davincible/llmstream"
	"github.com/Davincible/llmstream/providers"
)

const (
	DefaultConfigFilename = "config.yaml"
	DefaultProvider       = "anthropic"
)

// DefaultModels maps each provider to the model used when the config names
// none.
var DefaultModels = map[string]string{
	"anthropic":  string(providers.Claude37Sonnet),
	"openai":     string(providers.Gpt4o),
	"openrouter": "anthropic/claude-3.5-sonnet",
}

// EnvKeys maps each provider to the environment variable consulted when the
// config carries no API key.
var EnvKeys = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

type ProviderConfig struct {
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

type Config struct {
	Provider     string                    `yaml:"provider,omitempty"`
	Model        string                    `yaml:"model,omitempty"`
	SystemPrompt string                    `yaml:"system_prompt,omitempty"`
	MaxTokens    int                       `yaml:"max_tokens,omitempty"`
	Temperature  *float64                  `yaml:"temperature,omitempty"`
	Reasoning    string                    `yaml:"reasoning,omitempty"`
	Providers    map[string]ProviderConfig `yaml:"providers,omitempty"`
}

type Manager struct {
	configPath  string
	configValue atomic.Value
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		configPath: filepath.Join(baseDir, DefaultConfigFilename),
	}
}

func (m *Manager) Load() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	m.configValue.Store(&cfg)
	return &cfg, nil
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		cfg = &Config{}
		applyDefaults(cfg)
	}
	return cfg
}

func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.configValue.Store(cfg)
	return nil
}

func (m *Manager) GetPath() string {
	return m.configPath
}

func (m *Manager) Exists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

// CreateExample writes a starter config with every provider stubbed out.
func (m *Manager) CreateExample() error {
	return m.Save(&Config{
		Provider: DefaultProvider,
		Providers: map[string]ProviderConfig{
			"anthropic":  {APIKey: "your-anthropic-key-here"},
			"openai":     {APIKey: "your-openai-key-here"},
			"openrouter": {APIKey: "your-openrouter-key-here"},
		},
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Model == "" {
		if pc, ok := cfg.Providers[cfg.Provider]; ok && pc.Model != "" {
			cfg.Model = pc.Model
		} else {
			cfg.Model = DefaultModels[cfg.Provider]
		}
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = llmstream.DefaultMaxTokens
	}
}

// APIKey resolves the key for a provider, falling back to its environment
// variable.
func (c *Config) APIKey(provider string) string {
	if pc, ok := c.Providers[provider]; ok && pc.APIKey != "" {
		return pc.APIKey
	}
	return os.Getenv(EnvKeys[provider])
}

// PromptOptions converts the config into stream options.
func (c *Config) PromptOptions() (*llmstream.PromptOptions, error) {
	opts := llmstream.DefaultOptions()
	opts.MaxTokens = c.MaxTokens
	opts.SystemPrompt = c.SystemPrompt
	if c.Temperature != nil {
		opts.Temperature = *c.Temperature
	}
	if c.Reasoning != "" {
		effort, err := ParseReasoning(c.Reasoning)
		if err != nil {
			return nil, err
		}
		opts.Reasoning = &effort
	}
	return opts, nil
}

// NewLLM constructs the configured provider client.
func (c *Config) NewLLM() (llmstream.LLM, error) {
	key := c.APIKey(c.Provider)
	if key == "" {
		return nil, fmt.Errorf("no API key for provider %q: set it in the config or %s", c.Provider, EnvKeys[c.Provider])
	}

	var llm llmstream.LLM
	switch c.Provider {
	case "anthropic":
		client := providers.NewClaude(providers.ClaudeModel(c.Model), key)
		if ep := c.endpoint(); ep != "" {
			client.SetEndpoint(ep)
		}
		llm = client
	case "openai":
		client := providers.NewGPT(providers.GptModel(c.Model), key)
		if ep := c.endpoint(); ep != "" {
			client.SetEndpoint(ep)
		}
		llm = client
	case "openrouter":
		client := providers.NewOpenRouter(c.Model, key)
		if ep := c.endpoint(); ep != "" {
			client.SetEndpoint(ep)
		}
		llm = client
	default:
		return nil, fmt.Errorf("unknown provider %q", c.Provider)
	}

	return llm, nil
}

func (c *Config) endpoint() string {
	if pc, ok := c.Providers[c.Provider]; ok {
		return pc.Endpoint
	}
	return ""
}

// ParseReasoning maps a config or flag value to a reasoning effort.
func ParseReasoning(s string) (llmstream.ReasoningEffort, error) {
	switch s {
	case "low":
		return llmstream.ReasoningLow, nil
	case "medium":
		return llmstream.ReasoningMedium, nil
	case "high":
		return llmstream.ReasoningHigh, nil
	default:
		return 0, fmt.Errorf("unknown reasoning effort %q: want low, medium, or high", s)
	}
}
