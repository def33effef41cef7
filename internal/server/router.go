// Package server exposes the car tracker as a JSON HTTP API.
package server

import (
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maruel/cartracker/frontend"
	"github.com/maruel/cartracker/internal/errors"
	"github.com/maruel/cartracker/internal/server/handlers"
	"github.com/maruel/cartracker/internal/storage"
)

// Options configures NewRouter.
type Options struct {
	// Version is reported by /api/health.
	Version string
	// WriteRatePerMin limits mutating requests. 0 means unlimited.
	WriteRatePerMin int
}

// NewRouter creates and configures the HTTP router.
//
// Successful writes invalidate cache and broadcast an invalidate event on hub.
func NewRouter(tracker *storage.Tracker, cache *storage.ReadCache, hub *Hub, opts Options) http.Handler {
	mux := http.NewServeMux()

	ch := handlers.NewCarHandler(tracker, cache, hub.Invalidate)
	hh := handlers.NewHealthHandler(opts.Version)

	mux.Handle("GET /api/health", Wrap(hh.Health))
	mux.Handle("GET /api/schema", Wrap(handlers.Schema))

	mux.Handle("GET /api/cars", Wrap(ch.ListCars))
	mux.Handle("POST /api/cars", Wrap(ch.AddCar))
	mux.Handle("POST /api/cars/import", Wrap(ch.ImportCars))
	mux.Handle("PUT /api/cars/{model}", Wrap(ch.EditCar))
	mux.Handle("DELETE /api/cars/{model}", Wrap(ch.DeleteCar))

	mux.Handle("GET /api/events", hub)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Unknown API routes must not fall through to the frontend.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponseWithCode(w, http.StatusNotFound, errors.ErrNotFound, "unknown endpoint "+r.URL.Path, nil)
	})
	mux.Handle("/", NewEmbeddedSPAHandler(frontend.Files))

	return withRequestLog(withWriteLimit(opts.WriteRatePerMin, mux))
}

// EmbeddedSPAHandler serves the embedded page with fallback to index.html.
type EmbeddedSPAHandler struct {
	fs fs.FS
}

// NewEmbeddedSPAHandler creates a handler for the embedded frontend rooted at
// dist/ in f.
func NewEmbeddedSPAHandler(f fs.FS) *EmbeddedSPAHandler {
	sub, err := fs.Sub(f, "dist")
	if err != nil {
		sub = f
	}
	return &EmbeddedSPAHandler{fs: sub}
}

// ServeHTTP implements http.Handler.
func (h *EmbeddedSPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name != "" {
		if st, err := fs.Stat(h.fs, name); err == nil && !st.IsDir() {
			if path.Ext(name) != "" {
				w.Header().Set("Cache-Control", "public, max-age=3600")
			}
			http.FileServerFS(h.fs).ServeHTTP(w, r)
			return
		}
	}
	index, err := h.fs.Open("index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = index.Close() }()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_, _ = io.Copy(w, index)
}
