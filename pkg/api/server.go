package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/bucketd/internal/logger"
	"github.com/marmos91/bucketd/pkg/api/auth"
	"github.com/marmos91/bucketd/pkg/api/handlers"
	"github.com/marmos91/bucketd/pkg/config"
	"github.com/marmos91/bucketd/pkg/store"
	"github.com/marmos91/bucketd/pkg/store/credentials"
)

// Server is the bucketd HTTP server: object store gateway, session
// endpoints, health probe, and optional metrics.
//
// The server supports graceful shutdown with a configurable timeout.
type Server struct {
	server       *http.Server
	store        *store.Store
	gate         *auth.Gate
	cfg          *config.Config
	shutdownOnce sync.Once
}

// NewServer creates the bucketd HTTP server from the loaded configuration.
//
// The server is created in a stopped state; call Start to begin serving.
// The store root directory is created if missing. Authorization material is
// loaded once here and is read-only afterwards.
func NewServer(cfg *config.Config) (*Server, error) {
	st, err := store.New(cfg.Store.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	gate := auth.NewGate(auth.GateConfig{
		Mode:     auth.Mode(cfg.Auth.Mode),
		Secret:   cfg.Auth.Secret,
		Issuers:  cfg.Auth.Issuers,
		Audience: cfg.Auth.Audience,
		Write:    auth.RoutePolicy{Protected: cfg.Auth.Write.Protected, Scopes: cfg.Auth.Write.Scopes},
		Read:     auth.RoutePolicy{Protected: cfg.Auth.Read.Protected, Scopes: cfg.Auth.Read.Scopes},
		List:     auth.RoutePolicy{Protected: cfg.Auth.List.Protected, Scopes: cfg.Auth.List.Scopes},
	})

	users := credentials.New(cfg.Auth.CredentialsPath)
	sessions := handlers.NewSessionHandler(users, handlers.SessionConfig{
		Mode:          auth.Mode(cfg.Auth.Mode),
		Secret:        cfg.Auth.Secret,
		Issuer:        fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
		Audience:      cfg.Auth.Audience,
		DefaultScopes: defaultGrant(cfg),
		MaxTokenTTL:   cfg.Auth.MaxTokenTTL,
	})

	objects := handlers.NewObjectHandler(st, cfg.Store.MaxUploadSize.Bytes())

	router := NewRouter(objects, sessions, gate, cfg.Metrics.Enabled)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		server: server,
		store:  st,
		gate:   gate,
		cfg:    cfg,
	}, nil
}

// Start starts the HTTP server and blocks until the context is cancelled or
// an error occurs. Cancellation triggers graceful shutdown bounded by the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			"addr", s.server.Addr,
			"store_root", s.store.Root(),
			"max_upload_size", s.cfg.Store.MaxUploadSize.String(),
		)
		logAuthBanner(s.cfg)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Server shutdown signal received")
		// A fresh context; the cancelled one would abort shutdown instantly
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("Server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			logger.Error("Server shutdown error", "error", err)
		} else {
			logger.Info("Server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the address the server is configured to listen on.
func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.Server.ShutdownTimeout > 0 {
		return s.cfg.Server.ShutdownTimeout
	}
	return 30 * time.Second
}

// defaultGrant collects every configured route scope; the login endpoint
// grants this set when a request names no scopes.
func defaultGrant(cfg *config.Config) []string {
	var scopes []string
	scopes = append(scopes, cfg.Auth.Write.Scopes...)
	scopes = append(scopes, cfg.Auth.Read.Scopes...)
	scopes = append(scopes, cfg.Auth.List.Scopes...)
	return scopes
}

// logAuthBanner summarizes the effective authorization policy at startup so
// a misconfigured gate is visible in the first lines of output.
func logAuthBanner(cfg *config.Config) {
	logger.Info("Authorization policy",
		"mode", cfg.Auth.Mode,
		"write_protected", cfg.Auth.Write.Protected,
		"read_protected", cfg.Auth.Read.Protected,
		"list_protected", cfg.Auth.List.Protected,
		"write_scopes", cfg.Auth.Write.Scopes,
		"read_scopes", cfg.Auth.Read.Scopes,
		"list_scopes", cfg.Auth.List.Scopes,
	)
	if cfg.Auth.Audience != "" {
		logger.Info("Token audience", "audience", cfg.Auth.Audience)
	}
	if len(cfg.Auth.Issuers) > 0 {
		logger.Info("Token issuers", "issuers", cfg.Auth.Issuers)
	}
	if cfg.Auth.Mode == "hs256" && cfg.Auth.Secret == "" {
		logger.Warn("hs256 mode selected but no secret configured; protected routes will reject all traffic")
	}
	if cfg.Auth.Mode == "rs256" {
		logger.Warn("rs256 verification is not implemented; protected routes fail closed",
			"jwks_urls", cfg.Auth.JWKSURLs,
			"jwks_ttl", cfg.Auth.JWKSTTL.String(),
		)
	}
}
