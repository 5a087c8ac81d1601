package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/gcursor/internal/ai"
	"github.com/v0xg/gcursor/internal/browser"
	"github.com/v0xg/gcursor/internal/executor"
)

func newBrowserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browser <action>",
		Short: "Open the page and perform a natural-language action",
		Long: `Open a browser at --url, translate the action into steps and perform them.
An action starting with "http" only opens the browser.

Example:
  gcursor browser "Click 'Login', type 'user@example.com' into email"`,
		Args: cobra.ExactArgs(1),
		RunE: runBrowser,
	}

	cmd.Flags().StringVarP(&url, "url", "u", "http://localhost:3001", "Page address to open")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser without a window")
	cmd.Flags().IntVar(&timeoutMs, "timeout", 30000, "Browser setup timeout (ms)")
	cmd.Flags().StringVar(&driverName, "driver", "rod", "Browser driver: rod, playwright")
	cmd.Flags().StringVar(&profileDir, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (rod only, close browser first)")
	cmd.Flags().StringVar(&unknownKind, "unknown-kind", "fail", "Unknown step kinds: fail or skip")
	return cmd
}

func runBrowser(cmd *cobra.Command, args []string) (err error) {
	action := args[0]
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// Configuration problems surface before any browser is launched.
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Logger)
	defer func() { _ = logger.Sync() }()

	policy, err := executor.ParseUnknownKindPolicy(cfg.Executor.UnknownKind)
	if err != nil {
		return err
	}
	driver, err := newDriver(cfg.Browser, logger)
	if err != nil {
		return err
	}

	openOnly := strings.HasPrefix(action, "http")
	var translator *ai.Translator
	if !openOnly {
		llm, err := newProvider(cfg.LLM, logger)
		if err != nil {
			return fmt.Errorf("AI provider init failed: %w", err)
		}
		translator = ai.NewTranslator(llm, cfg.LLM.Timeout, logger)
	}

	logger.Debug("Starting gcursor",
		zap.String("address", cfg.Browser.Address),
		zap.String("driver", cfg.Browser.Driver),
		zap.String("provider", cfg.LLM.Provider),
	)

	session := browser.NewSession(driver, logger)
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close browser: %w", cerr)
		}
	}()

	fmt.Fprintf(out, "→ Opening %s... ", cfg.Browser.Address)
	if err := session.Init(ctx, browser.Options{
		Address:      cfg.Browser.Address,
		Headless:     cfg.Browser.Headless,
		SetupTimeout: cfg.Browser.SetupTimeout,
	}); err != nil {
		fmt.Fprintln(out, "failed")
		return err
	}
	fmt.Fprintln(out, "done")

	if openOnly {
		fmt.Fprintf(out, "Browser opened at: %s\n", action)
		return nil
	}

	fmt.Fprintf(out, "→ Translating action via %s... ", cfg.LLM.Provider)
	steps, err := translator.Translate(ctx, action)
	if err != nil {
		fmt.Fprintln(out, "failed")
		return fmt.Errorf("translation failed: %w", err)
	}
	fmt.Fprintf(out, "done (%d steps)\n", len(steps))
	logSteps(out, steps)

	fmt.Fprintln(out, "→ Executing...")
	exec := executor.New(executor.Options{
		ClickTimeout: cfg.Executor.ClickTimeout,
		FillTimeout:  cfg.Executor.FillTimeout,
		UnknownKind:  policy,
	}, logger)
	result, err := exec.Run(ctx, session.Page(), steps)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	logger.Debug("Run finished", zap.Int("executed", result.Executed), zap.Int("skipped", result.Skipped))

	fmt.Fprintln(out, "Action executed successfully")
	return nil
}

// logSteps prints the step list
func logSteps(w io.Writer, steps []executor.Step) {
	for i, step := range steps {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, step)
	}
}
