package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bov-engine/internal/document"
	"github.com/sells-group/bov-engine/internal/render"
)

var previewPort int

var previewCmd = &cobra.Command{
	Use:   "preview <data.json>",
	Short: "Serve the rendered page locally, re-rendering on every request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Server.Port = resolvePort(previewPort, cfg.Server.Port)
		if err := cfg.Validate("preview"); err != nil {
			return err
		}

		r := render.New(cfg.Render.TemplateDir)
		handler := buildRouter(args[0], r, cfg.Render.TemplateName, cfg.Server.CORSOrigins)

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Previewing %s at http://localhost:%d/\n", args[0], cfg.Server.Port)
		return startServer(ctx, handler, cfg.Server.Port)
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewPort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(previewCmd)
}

// resolvePort prefers the flag value over the configured one.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// buildRouter serves the page at / and a health check at /health. The data
// file and templates are read again on every page request.
func buildRouter(dataPath string, r *render.Renderer, templateName string, origins []string) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.Get("/", func(w http.ResponseWriter, req *http.Request) {
		doc, err := document.Load(dataPath)
		if err != nil {
			zap.L().Error("preview: load data file", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		html, err := r.Document(templateName, doc)
		if err != nil {
			zap.L().Error("preview: render", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
	})

	return router
}

// startServer serves handler until ctx is cancelled, then shuts down.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting preview server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "preview: listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down preview server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "preview: shutdown")
	})
	return g.Wait()
}
