package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/chat/chat"
	"github.com/tailored-agentic-units/chat/core/protocol"
)

func historyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage saved transcripts",
	}
	cmd.AddCommand(historyListCmd(flags), historyShowCmd(flags), historyDeleteCmd(flags))
	return cmd
}

// withStore builds a runtime for commands that only touch the store.
func withStore(ctx context.Context, flags *globalFlags, fn func(rt *chat.Runtime) error) error {
	rt, _, cleanup, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	if rt.Store() == nil {
		return chat.ErrNoStore
	}
	return fn(rt)
}

func historyListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withStore(ctx, flags, func(rt *chat.Runtime) error {
				ids, err := rt.Store().List(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tMODEL\tMESSAGES\tUPDATED")
				for _, id := range ids {
					t, err := rt.Store().Load(ctx, id)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Model, len(t.Messages), t.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}
}

func historyShowCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStore(ctx, flags, func(rt *chat.Runtime) error {
				t, err := rt.Store().Load(ctx, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(t)
				}

				fmt.Fprintf(out, "id:      %s\nmodel:   %s\ncreated: %s\n", t.ID, t.Model, t.CreatedAt.Format("2006-01-02 15:04:05"))
				if t.SystemPrompt != "" {
					fmt.Fprintf(out, "system:  %s\n", t.SystemPrompt)
				}
				fmt.Fprintln(out)
				printMessages(out, t.Messages)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the transcript as JSON")
	return cmd
}

func historyDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStore(ctx, flags, func(rt *chat.Runtime) error {
				return rt.Store().Delete(ctx, args...)
			})
		},
	}
}

func printMessages(w io.Writer, msgs []protocol.Message) {
	for _, msg := range msgs {
		fmt.Fprintf(w, "[%s] %s\n", msg.Role, msg.Content)
	}
}
