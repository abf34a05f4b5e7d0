// v2
// internal/http/router.go
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/josecookai/clawdmetrics/internal/metrics"
)

// Routes lists the paths NewRouter serves, used as metric labels.
var Routes = []string{"/", "/api/leaderboard", "/health", "/health/live", "/health/ready", "/metrics"}

// NewRouter wires the dashboard routes. windows and defaultDays decide
// which lookback a request without ?window= gets.
func NewRouter(logger *slog.Logger, health *HealthState, loader leaderboardLoader, m *metrics.Metrics, windows []Window, defaultDays int) *http.ServeMux {
	resolver := newWindowResolver(windows, defaultDays)

	mux := http.NewServeMux()
	mux.Handle("/health", methodGuard(http.MethodGet, LiveHandler()))
	mux.Handle("/health/live", methodGuard(http.MethodGet, LiveHandler()))
	mux.Handle("/health/ready", methodGuard(http.MethodGet, ReadyHandler(health)))
	mux.Handle("/metrics", methodGuard(http.MethodGet, m.Handler()))
	mux.Handle("/api/leaderboard", methodGuard(http.MethodGet, leaderboardHandler(logger, loader, resolver)))

	page := methodGuard(http.MethodGet, pageHandler(logger, loader, resolver))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			page.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("not found"))
		if err != nil {
			logger.Error("write_response_failed", slog.Any("err", err))
		}
	})
	return mux
}

func methodGuard(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusMethodNotAllowed)
			_, _ = w.Write([]byte("method not allowed"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
