package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/ksid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/maruel/cartracker/internal/errors"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartracker_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cartracker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	httpRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cartracker_http_rate_limited_total",
			Help: "Mutating HTTP requests rejected by the write rate limit",
		},
	)
)

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// statusWriter records the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack is needed by the websocket upgrader.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not support hijacking", w.ResponseWriter)
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// withRequestLog assigns a request id, exposes it as X-Request-ID and logs
// each request once it completes, recording its metrics.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ksid.NewID().String()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		d := time.Since(start)
		path := metricPath(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(d.Seconds())
		slog.InfoContext(ctx, "http", "id", id, "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur", d.Round(time.Microsecond))
	})
}

// metricPath collapses car names so metric cardinality stays bounded.
func metricPath(path string) string {
	const prefix = "/api/cars/"
	if strings.HasPrefix(path, prefix) && path != prefix+"import" {
		return prefix + "{model}"
	}
	if !strings.HasPrefix(path, "/api/") && path != "/metrics" {
		return "/"
	}
	return path
}

// withWriteLimit rejects mutating requests over perMin per minute with 429.
// perMin of 0 disables the limit.
func withWriteLimit(perMin int, next http.Handler) http.Handler {
	if perMin <= 0 {
		return next
	}
	l := rate.NewLimiter(rate.Limit(float64(perMin)/60), max(1, perMin/6))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutating(r.Method) {
			res := l.Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				httpRateLimitedTotal.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
				err := errors.RateLimited()
				writeErrorResponseWithCode(w, err.StatusCode(), err.Code(), err.Error(), nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
