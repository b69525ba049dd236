// Package health exposes liveness, readiness and version endpoints. The
// service has no external dependencies, so readiness only reflects whether
// the process is accepting work (it is flipped off during graceful shutdown).
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

var draining atomic.Bool

// SetReady marks the process as accepting (true) or draining (false) work.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Handler exposes HTTP handlers for health and version endpoints.
type Handler struct {
	ServiceName string
	Version     string
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. The calculator itself is pure and always
// available; readiness goes false only while shutting down.
func (h Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "shutting_down"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// VersionInfo is the public version payload.
type VersionInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServiceVersion reports the service name and version.
func (h Handler) ServiceVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(VersionInfo{Name: h.ServiceName, Version: h.Version})
}
