// v2
// internal/http/health.go
package httpserver

import (
	"net/http"
	"sync/atomic"
)

// HealthState tracks readiness. Liveness is implied by the process
// answering at all; readiness flips on once the listener is up and off
// again when shutdown starts.
type HealthState struct {
	ready atomic.Bool
}

// NewHealthState starts not ready.
func NewHealthState() *HealthState {
	return &HealthState{}
}

// SetReady flips the readiness flag.
func (h *HealthState) SetReady(value bool) { h.ready.Store(value) }

// Ready reports the readiness flag.
func (h *HealthState) Ready() bool { return h.ready.Load() }

// LiveHandler always answers OK.
func LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// ReadyHandler answers 503 until health is ready.
func ReadyHandler(health *HealthState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !health.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
