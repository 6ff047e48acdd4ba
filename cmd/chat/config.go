package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/chat/chat"
	"github.com/tailored-agentic-units/chat/observability"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration by building every subsystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := chat.LoadConfig(args[0])
			if err != nil {
				return err
			}
			if _, err := observability.GetObserver(cfg.Observability.Observer); err != nil {
				return err
			}

			rt, err := chat.New(context.Background(), cfg,
				chat.WithObserver(observability.NoOpObserver{}),
				chat.WithRegisterer(prometheus.NewRegistry()),
			)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration OK")
			fmt.Fprintf(out, "  engine:  %s\n", cfg.Engine.Provider)
			fmt.Fprintf(out, "  model:   %s\n", cfg.Model.Name)
			fmt.Fprintf(out, "  history: %s %s\n", cfg.History.Backend, cfg.History.Path)
			fmt.Fprintf(out, "  observer: %s (level %s, metrics %t)\n",
				cfg.Observability.Observer, cfg.Observability.Level, cfg.Observability.Metrics)
			return nil
		},
	})
	return cmd
}
