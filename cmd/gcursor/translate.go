package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/v0xg/gcursor/internal/ai"
)

func newTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <action>",
		Short: "Print the steps an action translates to, without opening a browser",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranslate,
	}
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Logger)
	defer func() { _ = logger.Sync() }()

	llm, err := newProvider(cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("AI provider init failed: %w", err)
	}

	steps, err := ai.NewTranslator(llm, cfg.LLM.Timeout, logger).Translate(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	data, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
