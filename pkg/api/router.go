// Package api wires the HTTP surface of bucketd: routing, middleware, and
// server lifecycle.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/bucketd/internal/logger"
	"github.com/marmos91/bucketd/pkg/api/auth"
	"github.com/marmos91/bucketd/pkg/api/handlers"
	apiMiddleware "github.com/marmos91/bucketd/pkg/api/middleware"
	"github.com/marmos91/bucketd/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//
// There is deliberately no global request timeout: uploads and downloads
// stream bodies of unbounded size.
//
// Routes:
//   - GET /healthz - Liveness probe
//   - GET /metrics - Prometheus scrape endpoint (when enabled)
//   - POST /auth/signup - Register a dev user
//   - POST /auth/login - Mint an access token (hs256 mode only)
//   - POST /auth/logout - Stateless logout
//   - GET /objects - List objects (list class)
//   - PUT /objects/{key} - Create or overwrite an object (write class)
//   - HEAD /objects/{key} - Object metadata (read class)
//   - GET /objects/{key} - Download an object (read class)
//   - DELETE /objects/{key} - Delete an object (write class)
func NewRouter(objects *handlers.ObjectHandler, sessions *handlers.SessionHandler, gate *auth.Gate, metricsEnabled bool) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if metricsEnabled {
		r.Use(metrics.Middleware)
	}

	// Liveness probe - unauthenticated
	r.Get("/healthz", handlers.Healthz)

	if metricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	// Session routes - unauthenticated by design; login is the way to
	// obtain a token in the first place
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", sessions.Signup)
		r.Post("/login", sessions.Login)
		r.Post("/logout", sessions.Logout)
	})

	// Object routes, gated per route class
	r.Route("/objects", func(r chi.Router) {
		r.With(apiMiddleware.RequireClass(gate, auth.ClassList)).
			Get("/", objects.List)

		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.RequireClass(gate, auth.ClassWrite))
			r.Put("/*", objects.Put)
			r.Delete("/*", objects.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.RequireClass(gate, auth.ClassRead))
			r.Get("/*", objects.Get)
			r.Head("/*", objects.Head)
		})
	})

	return r
}

// isQuietPath returns true for endpoints whose completions are logged at
// DEBUG to keep probe and scrape traffic out of the logs.
func isQuietPath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}

// requestLogger is a custom middleware that logs requests using the internal
// logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, bytes, duration
//   - Probe and scrape requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("Request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		if isQuietPath(r.URL.Path) {
			logger.Debug("Request completed", logArgs...)
		} else {
			logger.Info("Request completed", logArgs...)
		}
	})
}
