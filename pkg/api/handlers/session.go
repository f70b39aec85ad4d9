package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/bucketd/internal/logger"
	"github.com/marmos91/bucketd/pkg/api/auth"
	"github.com/marmos91/bucketd/pkg/store/credentials"
)

// SessionConfig carries the immutable settings the session endpoints need.
type SessionConfig struct {
	// Mode is the global token verification mode. Login only works in
	// HS256 mode; the server cannot mint tokens it cannot verify.
	Mode auth.Mode

	// Secret is the HS256 signing secret.
	Secret string

	// Issuer is stamped into minted tokens as the iss claim.
	Issuer string

	// Audience is stamped into minted tokens as the aud claim when set.
	Audience string

	// DefaultScopes is granted when a login request names no scopes.
	DefaultScopes []string

	// MaxTokenTTL caps the lifetime of minted tokens.
	MaxTokenTTL time.Duration
}

// SessionHandler serves the dev-only signup/login/logout endpoints.
type SessionHandler struct {
	users *credentials.Store
	cfg   SessionConfig
}

// NewSessionHandler creates a session handler over the given credential
// store.
func NewSessionHandler(users *credentials.Store, cfg SessionConfig) *SessionHandler {
	return &SessionHandler{users: users, cfg: cfg}
}

// SignupRequest is the payload for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Scope optionally narrows the minted token to a space-delimited
	// scope list. Defaults to every configured route scope.
	Scope string `json:"scope,omitempty"`
	// TTLSecs optionally shortens the token lifetime. Clamped to the
	// server-side maximum.
	TTLSecs int64 `json:"ttl_secs,omitempty"`
}

// TokenResponse is the successful login payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Signup handles POST /auth/signup - register a dev user.
func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	if err := h.users.Create(req.Username, req.Password); err != nil {
		if errors.Is(err, credentials.ErrExists) {
			Conflict(w, "Username already exists")
			return
		}
		logger.Error("Failed to create user", "username", req.Username, "error", err)
		InternalServerError(w, "Failed to create user")
		return
	}

	logger.Info("User registered", "username", req.Username)
	w.WriteHeader(http.StatusCreated)
}

// Login handles POST /auth/login - verify credentials and mint an HS256
// token. Only available when the server verifies HS256 tokens; other modes
// reject the request outright.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Mode != auth.ModeHS256 {
		BadRequest(w, "Login is only available in hs256 mode")
		return
	}

	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.users.Verify(req.Username, req.Password); err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			Unauthorized(w, "Invalid credentials")
			return
		}
		logger.Error("Failed to verify credentials", "username", req.Username, "error", err)
		InternalServerError(w, "Failed to verify credentials")
		return
	}

	scope := req.Scope
	if scope == "" {
		scope = h.defaultScope()
	}
	ttl := h.clampTTL(req.TTLSecs)

	token, err := auth.MintHS256([]byte(h.cfg.Secret), auth.MintOptions{
		Subject:  req.Username,
		Scope:    scope,
		TTL:      ttl,
		Issuer:   h.cfg.Issuer,
		Audience: h.cfg.Audience,
	})
	if err != nil {
		logger.Error("Failed to mint token", "username", req.Username, "error", err)
		InternalServerError(w, "Failed to mint token")
		return
	}

	logger.Info("User logged in", "username", req.Username, "ttl", ttl)
	WriteJSONOK(w, &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// Logout handles POST /auth/logout. Tokens are stateless; the server tracks
// no sessions, so the client simply discards its token.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	WriteNoContent(w)
}

// defaultScope joins the configured route scopes into a sorted, deduplicated
// space-delimited grant. Falls back to the full object grant when no route
// carries a scope.
func (h *SessionHandler) defaultScope() string {
	if len(h.cfg.DefaultScopes) == 0 {
		return "obj:write obj:read obj:list"
	}

	seen := make(map[string]struct{}, len(h.cfg.DefaultScopes))
	scopes := make([]string, 0, len(h.cfg.DefaultScopes))
	for _, s := range h.cfg.DefaultScopes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return strings.Join(scopes, " ")
}

// clampTTL applies the server-side lifetime cap. A zero or negative request
// takes the cap itself.
func (h *SessionHandler) clampTTL(secs int64) time.Duration {
	max := h.cfg.MaxTokenTTL
	if max <= 0 {
		max = 15 * time.Minute
	}
	if secs <= 0 {
		return max
	}
	ttl := time.Duration(secs) * time.Second
	if ttl > max {
		return max
	}
	return ttl
}
