// Package auth implements the bearer-token authorization gate for object
// routes: token verification, scope extraction, and per-route-class policy.
package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Mode selects how bearer tokens are verified.
type Mode string

const (
	// ModeOff disables authorization globally; every request is allowed.
	ModeOff Mode = "off"
	// ModeHS256 verifies tokens with a shared symmetric secret.
	ModeHS256 Mode = "hs256"
	// ModeRS256 verifies tokens against rotating asymmetric keys (JWKS).
	// Configured but not implemented; requests fail closed.
	ModeRS256 Mode = "rs256"
)

// RouteClass partitions the object endpoints by required capability.
type RouteClass int

const (
	ClassWrite RouteClass = iota
	ClassRead
	ClassList
)

func (c RouteClass) String() string {
	switch c {
	case ClassWrite:
		return "write"
	case ClassRead:
		return "read"
	case ClassList:
		return "list"
	default:
		return "unknown"
	}
}

// Errors produced by the gate. The middleware maps these onto HTTP statuses.
var (
	ErrNoToken           = errors.New("missing or malformed Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInsufficientScope = errors.New("insufficient scope")
	ErrMisconfigured     = errors.New("authorization misconfigured")
)

// AuthUser is the authenticated principal for one request. It is built fresh
// from a validated token, or anonymous when the route class is unprotected,
// and never persisted.
type AuthUser struct {
	Subject   string
	Scopes    []string
	Issuer    string
	Audiences []string
}

// HasScope reports whether the principal carries the given scope.
func (u *AuthUser) HasScope(scope string) bool {
	for _, s := range u.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// RoutePolicy is the per-class protection flag and required scope set.
// Immutable after startup and shared read-only across requests.
type RoutePolicy struct {
	Protected bool
	Scopes    []string
}

// GateConfig captures the policy and secret material the gate needs.
type GateConfig struct {
	Mode     Mode
	Secret   string
	Issuers  []string
	Audience string
	Write    RoutePolicy
	Read     RoutePolicy
	List     RoutePolicy
}

// Gate evaluates the authorization policy for a route class. Stateless; one
// instance serves all requests.
type Gate struct {
	mode     Mode
	policies [3]RoutePolicy
	verifier Verifier
}

// NewGate builds the gate for the configured mode. A missing HS256 secret is
// not an error here: the verifier fails closed per request so a misconfigured
// server rejects traffic instead of refusing to start.
func NewGate(cfg GateConfig) *Gate {
	g := &Gate{mode: cfg.Mode}
	g.policies[ClassWrite] = cfg.Write
	g.policies[ClassRead] = cfg.Read
	g.policies[ClassList] = cfg.List

	switch cfg.Mode {
	case ModeHS256:
		g.verifier = &HS256Verifier{
			Secret:   []byte(cfg.Secret),
			Issuers:  cfg.Issuers,
			Audience: cfg.Audience,
		}
	case ModeRS256:
		g.verifier = &RS256Verifier{}
	}
	return g
}

// Policy returns the immutable policy for a route class.
func (g *Gate) Policy(class RouteClass) RoutePolicy {
	return g.policies[class]
}

// Authorize runs the gate for one request and route class.
//
// Allow paths: authorization globally off, or the class unprotected, both
// yield an anonymous principal. Otherwise the bearer token is verified per
// the configured mode and the class's required scopes are compared against
// the token's scopes; any overlap suffices, and an empty required set allows.
func (g *Gate) Authorize(r *http.Request, class RouteClass) (*AuthUser, error) {
	if g.mode == ModeOff {
		return &AuthUser{}, nil
	}

	policy := g.policies[class]
	if !policy.Protected {
		return &AuthUser{}, nil
	}

	token, ok := bearerToken(r)
	if !ok {
		return nil, ErrNoToken
	}

	if g.verifier == nil {
		return nil, ErrMisconfigured
	}
	claims, err := g.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	user := userFromClaims(claims)
	if !anyScopeOverlap(policy.Scopes, user.Scopes) {
		return nil, ErrInsufficientScope
	}
	return user, nil
}

// bearerToken extracts the token from a Bearer Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// anyScopeOverlap reports whether any required scope appears in the token's
// scopes. An empty required set means the class needs no scope.
func anyScopeOverlap(required, got []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range got {
			if want == have {
				return true
			}
		}
	}
	return false
}
