package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/v0xg/gcursor/internal/ai"
	"github.com/v0xg/gcursor/internal/browser"
	"github.com/v0xg/gcursor/internal/config"
	"github.com/v0xg/gcursor/internal/observability"
)

const version = "1.0.0"

var (
	configFile  string
	logLevel    string
	url         string
	headless    bool
	timeoutMs   int
	provider    string
	model       string
	driverName  string
	profileDir  string
	unknownKind string
)

// Swapped in tests.
var (
	newDriver   = browser.NewDriver
	newProvider = ai.NewProvider
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gcursor",
		Short: "Drive a browser with natural-language actions",
		Long: `gcursor translates a natural-language action into browser steps using a
language model and performs them against a live page.

Example:
  gcursor browser "click the Login button, then wait 3 seconds" --url http://localhost:3001`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "gcursor.yaml", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "LLM provider: gemini, claude, openai (default: gemini)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Specific model override")

	rootCmd.AddCommand(newBrowserCmd(), newTranslateCmd())
	return rootCmd
}

// loadConfig resolves defaults, the config file, environment and changed flags,
// in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			explicit := cmd.Flags().Changed("config")
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: read %s: %v", config.ErrConfiguration, configFile, err)
			}
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		v.Set("logger.level", logLevel)
	}
	if flags.Changed("provider") {
		v.Set("llm.provider", provider)
	}
	if flags.Changed("model") {
		v.Set("llm.model", model)
	}
	if flags.Changed("url") {
		v.Set("browser.address", url)
	}
	if flags.Changed("headless") {
		v.Set("browser.headless", headless)
	}
	if flags.Changed("timeout") {
		v.Set("browser.setup_timeout", time.Duration(timeoutMs)*time.Millisecond)
	}
	if flags.Changed("profile") {
		v.Set("browser.profile_dir", profileDir)
	}
	if flags.Changed("driver") {
		v.Set("browser.driver", driverName)
	}
	if flags.Changed("unknown-kind") {
		v.Set("executor.unknown_kind", unknownKind)
	}

	return config.NewConfigFromViper(v)
}

// newLogger writes log output to the command's stderr.
func newLogger(cmd *cobra.Command, cfg config.LoggerConfig) *zap.Logger {
	return observability.NewLogger(cfg, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
}
