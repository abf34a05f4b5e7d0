// v2
// internal/http/leaderboard.go
package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/josecookai/clawdmetrics/internal/dashboard"
	"github.com/josecookai/clawdmetrics/internal/leaderboard"
)

// leaderboardLoader is the part of dashboard.Loader the handlers need.
type leaderboardLoader interface {
	Load(ctx context.Context, daysAgo int) dashboard.View
}

// windowResolver maps ?window= onto the configured windows.
type windowResolver struct {
	allowed map[string]Window
	order   []Window
	def     Window
}

// newWindowResolver picks the default window: the first one spanning
// defaultDays, otherwise the first configured one.
func newWindowResolver(windows []Window, defaultDays int) windowResolver {
	res := windowResolver{allowed: make(map[string]Window, len(windows))}
	for _, w := range windows {
		if _, exists := res.allowed[w.Name]; exists {
			continue
		}
		res.allowed[w.Name] = w
		res.order = append(res.order, w)
	}
	if len(res.order) == 0 {
		res.def = Window{Name: strconv.Itoa(defaultDays) + "d", Days: defaultDays}
		res.allowed[res.def.Name] = res.def
		res.order = []Window{res.def}
		return res
	}
	res.def = res.order[0]
	for _, w := range res.order {
		if w.Days == defaultDays {
			res.def = w
			break
		}
	}
	return res
}

func (res windowResolver) resolve(requested string) (Window, bool) {
	normalized := strings.ToLower(strings.TrimSpace(requested))
	if w, ok := res.allowed[normalized]; ok {
		return w, false
	}
	return res.def, true
}

// leaderboardResponse mirrors the JSON document returned by the API so it
// remains stable even as the backing logic evolves.
type leaderboardResponse struct {
	GeneratedAt string              `json:"generatedAt"`
	Window      string              `json:"window"`
	DaysAgo     int                 `json:"daysAgo"`
	Transport   string              `json:"transport"`
	Entries     []leaderboard.Entry `json:"entries"`
	Error       string              `json:"error,omitempty"`
	Kind        string              `json:"kind,omitempty"`
}

// leaderboardHandler serves one load as JSON. A failed load answers 502
// with the diagnostic in "error".
func leaderboardHandler(logger *slog.Logger, loader leaderboardLoader, windows windowResolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested := r.URL.Query().Get("window")
		window, defaulted := windows.resolve(requested)

		view := loader.Load(r.Context(), window.Days)

		entries := view.Entries
		if entries == nil {
			entries = []leaderboard.Entry{}
		}
		generated := view.LoadedAt
		if generated.IsZero() {
			generated = time.Now().UTC()
		}
		payload := leaderboardResponse{
			GeneratedAt: generated.Format(time.RFC3339),
			Window:      window.Name,
			DaysAgo:     window.Days,
			Transport:   string(view.Transport),
			Entries:     entries,
			Error:       view.Error,
		}
		status := http.StatusOK
		if view.State() == dashboard.StateError {
			payload.Kind = view.Kind.String()
			status = http.StatusBadGateway
		}

		logger.Info("leaderboard_response_ready",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("requested_window", requested),
			slog.String("resolved_window", window.Name),
			slog.Bool("defaulted", defaulted),
			slog.String("state", string(view.State())),
			slog.Int("entry_count", len(entries)),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("leaderboard_encode_failed", slog.Any("err", err))
		}
	})
}
