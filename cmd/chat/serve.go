package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/chat/chat"
	"github.com/tailored-agentic-units/chat/engine/remote"
	"github.com/tailored-agentic-units/chat/history"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured engine over Connect with health, metrics and transcript endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, cfg, cleanup, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr:              addr,
				Handler:           newRouter(rt, cfg.Observability.Metrics),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("serving", "addr", addr, "engine", cfg.Engine.Provider, "model", rt.Model().Name())
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

// newRouter mounts the engine's Connect handler, health and metrics, and a
// read/delete API over saved transcripts.
func newRouter(rt *chat.Runtime, metrics bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	path, handler := remote.NewHandler(rt.Engine())
	r.Handle(path, handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": rt.Model().Name()})
	})

	if metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	if store := rt.Store(); store != nil {
		r.Route("/api/transcripts", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				ids, err := store.List(req.Context())
				if err != nil {
					writeError(w, err)
					return
				}
				if ids == nil {
					ids = []string{}
				}
				writeJSON(w, http.StatusOK, ids)
			})
			r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
				t, err := store.Load(req.Context(), chi.URLParam(req, "id"))
				if err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, t)
			})
			r.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
				if err := store.Delete(req.Context(), chi.URLParam(req, "id")); err != nil {
					writeError(w, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, history.ErrInvalidID):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": fmt.Sprint(err)})
}
