package handlers

import "net/http"

// Healthz handles GET /healthz - liveness probe.
//
// Always returns 200 "ok" while the HTTP server is responsive. The endpoint
// is unauthenticated so external probes need no credentials.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
