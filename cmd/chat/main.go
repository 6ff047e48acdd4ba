// Command chat drives chat sessions against a configured generation engine
// from the terminal, persists their transcripts, and can serve its engine
// to other processes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/chat/chat"
	"github.com/tailored-agentic-units/chat/observability"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command that builds a runtime.
type globalFlags struct {
	configFile   string
	provider     string
	systemPrompt string
	historyPath  string
	verbose      bool
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "chat",
		Short:         "Multi-turn chat sessions over a text-generation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to config file (.json, .yaml)")
	pf.StringVar(&flags.provider, "provider", "", "Engine provider: openai, remote, echo (overrides config)")
	pf.StringVar(&flags.systemPrompt, "system-prompt", "", "System prompt (overrides config)")
	pf.StringVar(&flags.historyPath, "history", "", "SQLite transcript database (overrides config)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging to stderr")

	root.AddCommand(
		promptCmd(&flags),
		replCmd(&flags),
		resumeCmd(&flags),
		historyCmd(&flags),
		serveCmd(&flags),
		configCmd(),
	)
	return root
}

// loadConfig reads the config file when one is given and applies flag
// overrides on top.
func loadConfig(flags *globalFlags) (*chat.Config, error) {
	cfg := chat.DefaultConfig()
	if flags.configFile != "" {
		loaded, err := chat.LoadConfig(flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if flags.provider != "" {
		cfg.Engine.Provider = flags.provider
	}
	if flags.systemPrompt != "" {
		cfg.Model.SystemPrompt = flags.systemPrompt
	}
	if flags.historyPath != "" {
		cfg.History.Backend = "sqlite"
		cfg.History.Path = flags.historyPath
	}
	if flags.verbose {
		cfg.Observability.Level = "debug"
	}
	return &cfg, nil
}

// setup installs the process logger and tracer, then builds the runtime.
// The returned cleanup closes both.
func setup(ctx context.Context, flags *globalFlags) (*chat.Runtime, *chat.Config, func(), error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: observability.ParseLevel(cfg.Observability.Level),
	})))

	shutdown, err := observability.SetupTracing(ctx, &cfg.Observability)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	rt, err := chat.New(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := rt.Close(); err != nil {
			slog.Warn("failed to close history store", "error", err)
		}
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
	return rt, cfg, cleanup, nil
}
