package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/chat/chat"
	"github.com/tailored-agentic-units/chat/engine"
	"github.com/tailored-agentic-units/chat/session"
)

// callFlags are per-call tunables layered over the session's options.
type callFlags struct {
	nPredict    int
	temperature float64
}

func (f *callFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.nPredict, "n-predict", 0, "Maximum tokens to generate for this call")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "Sampling temperature for this call")
}

// options returns only the tunables that were set on the command line.
func (f *callFlags) options(cmd *cobra.Command) *engine.Options {
	var opts engine.Options
	if cmd.Flags().Changed("n-predict") {
		opts.NPredict = engine.Ptr(f.nPredict)
	}
	if cmd.Flags().Changed("temperature") {
		opts.Temperature = engine.Ptr(f.temperature)
	}
	return &opts
}

func promptCmd(flags *globalFlags) *cobra.Command {
	var (
		call callFlags
		save bool
	)

	cmd := &cobra.Command{
		Use:   "prompt [text]",
		Short: "Send one prompt in a new session and stream the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read prompt: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}
			if text == "" {
				return fmt.Errorf("prompt is empty")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, cfg, cleanup, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if save && !cfg.History.Persistent() {
				return errEphemeralHistory
			}

			s, err := rt.NewSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			out := cmd.OutOrStdout()
			if _, err := s.Generate(ctx, text, call.options(cmd), streamTo(out)); err != nil {
				return err
			}
			fmt.Fprintln(out)

			if save {
				if err := rt.Save(ctx, s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", s.ID())
			}
			return nil
		},
	}
	call.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Save the transcript after the reply")
	return cmd
}

func replCmd(flags *globalFlags) *cobra.Command {
	var call callFlags

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, cfg, cleanup, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			s, err := rt.NewSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			return repl(ctx, cmd, rt, s, call.options(cmd), cfg.History.Persistent())
		},
	}
	call.register(cmd)
	return cmd
}

func resumeCmd(flags *globalFlags) *cobra.Command {
	var call callFlags

	cmd := &cobra.Command{
		Use:   "resume <id>",
		Short: "Replay a saved transcript and continue it interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, cfg, cleanup, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			s, err := rt.Resume(ctx, args[0])
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			fmt.Fprintf(cmd.ErrOrStderr(), "resumed %s (%d messages, position %d)\n",
				s.ID(), len(s.Messages()), s.NPast())
			return repl(ctx, cmd, rt, s, call.options(cmd), cfg.History.Persistent())
		},
	}
	call.register(cmd)
	return cmd
}

// errEphemeralHistory rejects saving into a store that dies with the process.
var errEphemeralHistory = errors.New("saving needs a persistent history backend (use --history or configure a file or sqlite store)")

const replHelp = `commands:
  /save     save the transcript
  /history  print the conversation so far
  /quit     leave, saving the transcript when history is persistent`

// repl reads prompts line by line until EOF or /quit. When persist is set
// the transcript is saved on the way out.
func repl(ctx context.Context, cmd *cobra.Command, rt *chat.Runtime, s *session.Session, call *engine.Options, persist bool) error {
	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "session %s (type /help for commands)\n", s.ID())

	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}

		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return finish(ctx, cmd, rt, s, persist)
		case "/help":
			fmt.Fprintln(out, replHelp)
			continue
		case "/save":
			if !persist {
				fmt.Fprintln(cmd.ErrOrStderr(), "save failed:", errEphemeralHistory)
				continue
			}
			if err := rt.Save(ctx, s); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "save failed:", err)
			} else {
				fmt.Fprintln(out, "saved", s.ID())
			}
			continue
		case "/history":
			printMessages(out, s.Messages())
			continue
		}

		if _, err := s.Generate(ctx, line, call, streamTo(out)); err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "generate failed:", err)
			continue
		}
		fmt.Fprintln(out)
	}

	if err := in.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return finish(ctx, cmd, rt, s, persist)
}

func finish(ctx context.Context, cmd *cobra.Command, rt *chat.Runtime, s *session.Session, persist bool) error {
	if !persist || rt.Store() == nil || len(s.Messages()) == 0 {
		return nil
	}
	if err := rt.Save(context.WithoutCancel(ctx), s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", s.ID())
	return nil
}

// streamTo returns a token callback that writes each token as it arrives.
func streamTo(w io.Writer) engine.TokenCallback {
	return func(token string) bool {
		_, err := io.WriteString(w, token)
		return err == nil
	}
}
