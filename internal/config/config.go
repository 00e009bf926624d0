package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the client identity presented by the headless browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Fixed run limits. Load always applies these; neither the environment nor
// config.yaml can change them.
const (
	DefaultMaxChars          = 4000
	DefaultNavigationTimeout = 60 * time.Second
	DefaultSettleTimeout     = 60 * time.Second
)

const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
)

var defaultModels = map[string]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderAnthropic:  "claude-haiku-4-5-20251001",
	ProviderOpenRouter: "openai/gpt-4o-mini",
}

// ErrMissingCredential is matched by every MissingCredentialError.
var ErrMissingCredential = errors.New("missing API credential")

type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Summary SummaryConfig `mapstructure:"-"`
	Browser BrowserConfig `mapstructure:"browser"`
}

type LLMConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type SummaryConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// BrowserConfig only takes ExecPath from settings; the rest is set by Load.
type BrowserConfig struct {
	ExecPath          string        `mapstructure:"exec_path"`
	Headless          bool          `mapstructure:"-"`
	UserAgent         string        `mapstructure:"-"`
	NavigationTimeout time.Duration `mapstructure:"-"`
	SettleTimeout     time.Duration `mapstructure:"-"`
}

// MissingCredentialError reports that no API key was found for the configured provider.
type MissingCredentialError struct {
	Env string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s not found in environment or .env file", e.Env)
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// Hint tells the user how to supply the missing key.
func (e *MissingCredentialError) Hint() string {
	prefix := "sk-"
	switch e.Env {
	case "ANTHROPIC_API_KEY":
		prefix = "sk-ant-"
	case "OPENROUTER_API_KEY":
		prefix = "sk-or-"
	}
	return fmt.Sprintf("Please create a .env file with: %s=%s...", e.Env, prefix)
}

// Load reads .env from the working directory (without overriding the real
// environment), then the llm.* settings and browser.exec_path from defaults,
// PAGESUM_* variables and an optional config.yaml under the user config directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "pagesum"))
	}
	return load(viper.New(), paths...)
}

func load(v *viper.Viper, configPaths ...string) (*Config, error) {
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("browser.exec_path", "")

	// Environment variable overrides, limited to the keys bound here
	v.BindEnv("llm.provider", "PAGESUM_LLM_PROVIDER")
	v.BindEnv("llm.model", "PAGESUM_LLM_MODEL")
	v.BindEnv("llm.api_key", "PAGESUM_LLM_API_KEY")
	v.BindEnv("llm.base_url", "PAGESUM_LLM_BASE_URL")
	v.BindEnv("browser.exec_path", "PAGESUM_BROWSER_EXEC_PATH")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	if len(configPaths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Summary.MaxChars = DefaultMaxChars
	cfg.Browser.Headless = true
	cfg.Browser.UserAgent = DefaultUserAgent
	cfg.Browser.NavigationTimeout = DefaultNavigationTimeout
	cfg.Browser.SettleTimeout = DefaultSettleTimeout

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(cfg.CredentialEnv())
	}

	return &cfg, nil
}

// CredentialEnv names the environment variable holding the key for the configured provider.
func (c *Config) CredentialEnv() string {
	switch c.LLM.Provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// ProviderName is the display name used in progress output.
func (c *Config) ProviderName() string {
	switch c.LLM.Provider {
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderOpenRouter:
		return "OpenRouter"
	default:
		return "OpenAI"
	}
}

// Validate checks the startup preconditions. It must pass before any network call.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return &MissingCredentialError{Env: c.CredentialEnv()}
	}
	return nil
}
