// Package config handles taskloop configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "TASKLOOP"

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Default models per provider, used when llm.model is empty.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// Config holds all taskloop configuration.
type Config struct {
	LLM   LLMConfig   `mapstructure:"llm" yaml:"llm"`
	Agent AgentConfig `mapstructure:"agent" yaml:"agent"`
	Tools ToolsConfig `mapstructure:"tools" yaml:"tools"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `mapstructure:"-" yaml:"-"`
}

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	// Provider is "gemini" or "openai" (any OpenAI-compatible endpoint).
	Provider        string  `mapstructure:"provider" yaml:"provider"`
	Model           string  `mapstructure:"model" yaml:"model"`
	Endpoint        string  `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	APIKey          string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Temperature     float32 `mapstructure:"temperature" yaml:"temperature"`
	TopP            float32 `mapstructure:"top_p" yaml:"top_p"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	RequireAPIKey   bool    `mapstructure:"require_api_key" yaml:"require_api_key"`
}

type AgentConfig struct {
	MaxIterations     int    `mapstructure:"max_iterations" yaml:"max_iterations"`
	PauseMillis       int    `mapstructure:"pause_millis" yaml:"pause_millis"`
	RunTimeoutSeconds int    `mapstructure:"run_timeout_seconds" yaml:"run_timeout_seconds"`
	SystemPromptPath  string `mapstructure:"system_prompt_path" yaml:"system_prompt_path,omitempty"`

	// RunTimeoutOverride, when positive, replaces RunTimeoutSeconds. It is set
	// from the command line and keeps sub-second precision.
	RunTimeoutOverride time.Duration `mapstructure:"-" yaml:"-"`
}

type ToolsConfig struct {
	// Enabled limits the tools offered to the model. Empty enables all.
	Enabled        []string `mapstructure:"enabled" yaml:"enabled"`
	ManifestPath   string   `mapstructure:"manifest_path" yaml:"manifest_path,omitempty"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	ReadRoot       string   `mapstructure:"read_root" yaml:"read_root"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           DefaultGeminiModel,
			Temperature:     0.2,
			TopP:            0.95,
			MaxOutputTokens: 1024,
			TimeoutSeconds:  60,
			RequireAPIKey:   true,
		},
		Agent: AgentConfig{
			MaxIterations:     10,
			PauseMillis:       1000,
			RunTimeoutSeconds: 300,
		},
		Tools: ToolsConfig{
			Enabled:        []string{},
			TimeoutSeconds: 30,
			ReadRoot:       ".",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// DefaultPaths returns the config file locations in order of precedence.
func DefaultPaths() []string {
	paths := []string{"config.local.yaml", "config.yaml"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	return paths
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".taskloop"), nil
}

// Load reads the configuration file at path, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// LoadFromPaths loads the first existing file among paths. When none exists
// it returns the defaults with environment overrides applied.
func LoadFromPaths(paths ...string) (*Config, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("llm.provider", d.LLM.Provider)
	// The model default depends on the provider; see ResolveModel.
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.top_p", d.LLM.TopP)
	v.SetDefault("llm.max_output_tokens", d.LLM.MaxOutputTokens)
	v.SetDefault("llm.timeout_seconds", d.LLM.TimeoutSeconds)
	v.SetDefault("llm.require_api_key", d.LLM.RequireAPIKey)
	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)
	v.SetDefault("agent.pause_millis", d.Agent.PauseMillis)
	v.SetDefault("agent.run_timeout_seconds", d.Agent.RunTimeoutSeconds)
	v.SetDefault("agent.system_prompt_path", d.Agent.SystemPromptPath)
	v.SetDefault("tools.enabled", d.Tools.Enabled)
	v.SetDefault("tools.manifest_path", d.Tools.ManifestPath)
	v.SetDefault("tools.timeout_seconds", d.Tools.TimeoutSeconds)
	v.SetDefault("tools.read_root", d.Tools.ReadRoot)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ResolveAPIKey()
	cfg.ResolveModel()
	return cfg, nil
}

// ResolveAPIKey falls back to the provider's conventional variable when no
// key was configured.
func (c *Config) ResolveAPIKey() {
	if c.LLM.APIKey != "" {
		return
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "":
		c.LLM.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	case "openai":
		c.LLM.APIKey = firstEnv("OPENAI_API_KEY")
	}
}

// ResolveModel picks the provider's default model when none was configured.
func (c *Config) ResolveModel() {
	if c.LLM.Model != "" {
		return
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "":
		c.LLM.Model = DefaultGeminiModel
	case "openai":
		c.LLM.Model = DefaultOpenAIModel
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// Validate checks the settings needed to start a run.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY or llm.api_key", ErrMissingAPIKey)
		}
	case "openai":
		if c.LLM.APIKey == "" && c.LLM.RequireAPIKey {
			return fmt.Errorf("%w: set OPENAI_API_KEY or llm.api_key, or llm.require_api_key: false for a local endpoint", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrInvalidConfig, c.LLM.Provider)
	}

	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("%w: agent.max_iterations must be at least 1", ErrInvalidConfig)
	}
	if c.Agent.RunTimeoutSeconds < 0 || c.Agent.RunTimeoutOverride < 0 {
		return fmt.Errorf("%w: run timeout must not be negative", ErrInvalidConfig)
	}
	if c.Agent.PauseMillis < 0 {
		return fmt.Errorf("%w: agent.pause_millis must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	out.Tools.Enabled = append([]string(nil), c.Tools.Enabled...)
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "********"
	}
	return &out
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c AgentConfig) Pause() time.Duration {
	return time.Duration(c.PauseMillis) * time.Millisecond
}

func (c AgentConfig) RunTimeout() time.Duration {
	if c.RunTimeoutOverride > 0 {
		return c.RunTimeoutOverride
	}
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

func (c ToolsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
