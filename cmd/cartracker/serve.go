package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/maruel/cartracker/internal/server"
	"github.com/maruel/cartracker/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collection over HTTP",
		Long: `Serve the JSON API and the web page.

Changes made to the store by other processes, like another cartracker
command, are picked up and pushed to connected browsers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("http") {
				a.cfg.HTTP = addr
			}
			return serve(cmd.Context(), a.cfg, a.tracker)
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "Address to listen on (e.g., localhost:8080, :8080)")
	return cmd
}

func serve(ctx context.Context, cfg *storage.Config, tracker *storage.Tracker) error {
	version, _, _, _ := getBuildInfo()
	cache := storage.NewReadCache(tracker, cfg.SearchCacheEntries)
	hub := server.NewHub()
	defer hub.Close()

	if err := storage.WatchFile(ctx, tracker.Path(), func() {
		cache.Invalidate()
		hub.Invalidate()
	}); err != nil {
		slog.WarnContext(ctx, "Not watching the store for outside changes", "path", tracker.Path(), "err", err)
	}
	cache.Preload()

	httpServer := &http.Server{
		Addr:              cfg.HTTP,
		Handler:           server.NewRouter(tracker, cache, hub, server.Options{Version: version, WriteRatePerMin: cfg.WriteRatePerMin}),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", cfg.HTTP, "store", tracker.Path())
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}
