package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/v0xg/gcursor/internal/config"
)

func main() {
	loadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadEnvFiles loads each env file that exists. Variables already set in the
// environment win.
func loadEnvFiles() {
	for _, name := range config.EnvFiles {
		_ = godotenv.Load(name)
	}
}
