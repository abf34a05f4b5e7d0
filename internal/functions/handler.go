// v0
// internal/functions/handler.go
package functions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	httpserver "github.com/josecookai/clawdmetrics/internal/http"
	"github.com/josecookai/clawdmetrics/internal/metrics"
)

// EndpointPath is where the deployed function lives on the backend.
const EndpointPath = "/functions/v1/get_leaderboard"

const (
	allowOrigin  = "*"
	allowHeaders = "authorization, x-client-info, apikey, content-type"
)

// errorResponse is the body of every failed call.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// NewRouter serves the leaderboard endpoint with CORS on every response,
// preflight answered with "ok", panic recovery and access logs.
func NewRouter(logger *slog.Logger, source Source, m *metrics.Metrics, health *httpserver.HealthState) http.Handler {
	r := mux.NewRouter()
	r.Handle("/health", httpserver.LiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/live", httpserver.LiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/ready", httpserver.ReadyHandler(health)).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	lb := leaderboardHandler(logger, source, m)
	r.Handle(EndpointPath, lb).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/", lb).Methods(http.MethodGet, http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, http.StatusNotFound, errorResponse{Error: "Function not found", Details: r.URL.Path})
	})

	var h http.Handler = r
	h = withCORS(h)
	h = httpserver.WrapWithLogging(logger, m, Routes, h)
	h = handlers.ProxyHeaders(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
	return h
}

// withCORS sets the CORS headers on every response and short-circuits
// preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		if r.Method == http.MethodOptions {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestBody is the optional JSON payload of a POST.
type requestBody struct {
	DaysAgo *int `json:"days_ago"`
}

// defaultDaysAgo applies when the caller sends no lookback.
const defaultDaysAgo = 7

func leaderboardHandler(logger *slog.Logger, source Source, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		daysAgo, err := requestedDays(r)
		if err != nil {
			fail(logger, w, err)
			return
		}

		payload, err := source.Leaderboard(r.Context(), daysAgo)
		if err != nil {
			fail(logger, w, err)
			return
		}

		count := payloadLen(payload)
		m.ObserveEntries(count)
		logger.Info("leaderboard_served",
			slog.String("source", source.Name()),
			slog.Int("days_ago", daysAgo),
			slog.Int("entry_count", count),
		)
		writeJSON(logger, w, http.StatusOK, payload)
	})
}

// requestedDays reads days_ago from the query string or the JSON body.
// Neither is required.
func requestedDays(r *http.Request) (int, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("days_ago")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid days_ago %q", raw)
		}
		return n, nil
	}
	if r.Method != http.MethodPost || r.Body == nil || r.ContentLength == 0 {
		return defaultDaysAgo, nil
	}
	var body requestBody
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return defaultDaysAgo, nil
		}
		return 0, fmt.Errorf("invalid request body: %w", err)
	}
	if body.DaysAgo == nil {
		return defaultDaysAgo, nil
	}
	return *body.DaysAgo, nil
}

func payloadLen(payload any) int {
	switch p := payload.(type) {
	case []Row:
		return len(p)
	case Envelope:
		return len(p.Leaderboard)
	default:
		return 0
	}
}

func fail(logger *slog.Logger, w http.ResponseWriter, err error) {
	logger.Error("function_error", slog.Any("err", err))
	msg := err.Error()
	if msg == "" {
		msg = "Internal server error"
	}
	writeJSON(logger, w, http.StatusBadRequest, errorResponse{Error: msg, Details: "Error: " + msg})
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("function_encode_failed", slog.Any("err", err))
	}
}

// Routes lists the paths NewRouter serves, used as metric labels.
var Routes = []string{EndpointPath, "/", "/health", "/health/live", "/health/ready", "/metrics"}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("handler_panic", slog.String("panic", fmt.Sprint(v...)))
}
