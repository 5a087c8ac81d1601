package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfiguration is returned when required configuration is missing or invalid.
// It is always detected before a browser session is created.
var ErrConfiguration = errors.New("configuration error")

// Supported LLM providers
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Supported browser drivers
const (
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
)

// Unknown step kind policies
const (
	UnknownKindFail = "fail"
	UnknownKindSkip = "skip"
)

// EnvFiles are loaded (when present) before configuration is resolved.
var EnvFiles = []string{".env", ".cursor-tools.env"}

// credentialEnv lists the environment variables consulted for each provider's API key,
// in order of preference. GCURSOR_LLM_API_KEY is bound for every provider through viper.
var credentialEnv = map[string][]string{
	ProviderGemini: {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	ProviderClaude: {"ANTHROPIC_API_KEY"},
	ProviderOpenAI: {"OPENAI_API_KEY"},
}

// Config holds the resolved application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
}

// LLMConfig selects and authenticates the text completion service.
type LLMConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"`
	Model    string        `mapstructure:"model" yaml:"model"`
	APIKey   string        `mapstructure:"api_key" yaml:"-"`
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"` // optional gateway or proxy endpoint
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// BrowserConfig describes the browser session to open.
type BrowserConfig struct {
	Driver       string        `mapstructure:"driver" yaml:"driver"`
	Address      string        `mapstructure:"address" yaml:"address"`
	Headless     bool          `mapstructure:"headless" yaml:"headless"`
	SetupTimeout time.Duration `mapstructure:"setup_timeout" yaml:"setup_timeout"`
	ProfileDir   string        `mapstructure:"profile_dir" yaml:"profile_dir"` // rod only
	Install      bool          `mapstructure:"install" yaml:"install"`         // playwright only
}

// ExecutorConfig tunes step execution.
type ExecutorConfig struct {
	ClickTimeout time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	FillTimeout  time.Duration `mapstructure:"fill_timeout" yaml:"fill_timeout"`
	UnknownKind  string        `mapstructure:"unknown_kind" yaml:"unknown_kind"`
}

// LoggerConfig configures the zap logger and its optional rotating file sink.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- LLM --
	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "60s")

	// -- Browser --
	v.SetDefault("browser.driver", DriverRod)
	v.SetDefault("browser.address", "http://localhost:3001")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.setup_timeout", "30s")
	v.SetDefault("browser.profile_dir", "")
	v.SetDefault("browser.install", false)

	// -- Executor --
	v.SetDefault("executor.click_timeout", "5s")
	v.SetDefault("executor.fill_timeout", "30s")
	v.SetDefault("executor.unknown_kind", UnknownKindFail)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "gcursor")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
}

// NewViper returns a viper instance with defaults and environment bindings applied.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("GCURSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewDefaultConfig creates a configuration populated with default values only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper resolves the configuration, fills the credential from the
// provider's environment variables when none was given and validates the result.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	_ = v.BindEnv("llm.api_key", "GCURSOR_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrConfiguration, err)
	}

	cfg.LLM.Provider = NormalizeProvider(cfg.LLM.Provider)
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = lookupCredential(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and sane values.
func (c *Config) Validate() error {
	envs, ok := credentialEnv[c.LLM.Provider]
	if !ok {
		return fmt.Errorf("%w: unknown llm.provider %q (supported: gemini, claude, openai)", ErrConfiguration, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: %s environment variable is required; add it to your %s file: %s=your_api_key_here",
			ErrConfiguration, envs[0], strings.Join(EnvFiles, " or "), envs[0])
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: llm.timeout must be positive", ErrConfiguration)
	}
	switch c.Browser.Driver {
	case DriverRod, DriverPlaywright:
	default:
		return fmt.Errorf("%w: unknown browser.driver %q (supported: rod, playwright)", ErrConfiguration, c.Browser.Driver)
	}
	if c.Browser.Address == "" {
		return fmt.Errorf("%w: browser.address must not be empty", ErrConfiguration)
	}
	if c.Browser.SetupTimeout <= 0 {
		return fmt.Errorf("%w: browser.setup_timeout must be positive", ErrConfiguration)
	}
	if c.Executor.ClickTimeout <= 0 || c.Executor.FillTimeout <= 0 {
		return fmt.Errorf("%w: executor timeouts must be positive", ErrConfiguration)
	}
	switch c.Executor.UnknownKind {
	case UnknownKindFail, UnknownKindSkip:
	default:
		return fmt.Errorf("%w: executor.unknown_kind must be %q or %q", ErrConfiguration, UnknownKindFail, UnknownKindSkip)
	}
	return nil
}

// NormalizeProvider maps provider aliases onto their canonical names.
func NormalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gemini", "google":
		return ProviderGemini
	case "claude", "anthropic":
		return ProviderClaude
	case "openai", "gpt":
		return ProviderOpenAI
	default:
		return strings.ToLower(name)
	}
}

func lookupCredential(provider string) string {
	for _, name := range credentialEnv[provider] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}
