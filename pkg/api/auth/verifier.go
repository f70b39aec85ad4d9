package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks a raw bearer token and returns its validated claims.
// The symmetric and asymmetric verification paths are separate
// implementations so the JWKS-backed verifier can be added without touching
// call sites.
type Verifier interface {
	Verify(token string) (jwt.MapClaims, error)
}

// HS256Verifier validates tokens signed with a shared symmetric secret.
// The algorithm is pinned to HS256; tokens declaring any other algorithm are
// rejected outright.
type HS256Verifier struct {
	Secret   []byte
	Issuers  []string
	Audience string
}

// Verify decodes and validates the token. Beyond the signature it enforces:
//   - a present exp claim with now strictly before it
//   - the issuer allow-list, when configured
//   - the expected audience, when configured (string or array claim form)
func (v *HS256Verifier) Verify(token string) (jwt.MapClaims, error) {
	if len(v.Secret) == 0 {
		return nil, fmt.Errorf("%w: hs256 mode selected but no secret configured", ErrMisconfigured)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	// The parser already validated exp; re-check explicitly so the reject
	// boundary (now >= exp) does not depend on library leeway defaults.
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}
	if !time.Now().Before(exp.Time) {
		return nil, ErrInvalidToken
	}

	if len(v.Issuers) > 0 {
		iss, _ := claims["iss"].(string)
		if iss == "" || !contains(v.Issuers, iss) {
			return nil, ErrInvalidToken
		}
	}

	if v.Audience != "" && !audienceMatches(v.Audience, claims) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RS256Verifier will validate tokens against a JWKS endpoint with a
// TTL-bounded key cache. Not implemented in this version; it fails closed so
// a server configured for rs256 rejects requests instead of allowing them.
type RS256Verifier struct{}

func (*RS256Verifier) Verify(string) (jwt.MapClaims, error) {
	return nil, fmt.Errorf("%w: rs256 verifier not implemented", ErrMisconfigured)
}

// userFromClaims builds the per-request principal from validated claims.
func userFromClaims(claims jwt.MapClaims) *AuthUser {
	sub, _ := claims["sub"].(string)
	iss, _ := claims["iss"].(string)
	return &AuthUser{
		Subject:   sub,
		Scopes:    ScopesFromClaims(claims),
		Issuer:    iss,
		Audiences: audienceValues(claims),
	}
}

// audienceMatches reports whether the aud claim (string or array form)
// contains the expected audience.
func audienceMatches(expected string, claims jwt.MapClaims) bool {
	return contains(audienceValues(claims), expected)
}

// audienceValues collects the aud claim into a slice, accepting both the
// string and array claim forms.
func audienceValues(claims jwt.MapClaims) []string {
	switch aud := claims["aud"].(type) {
	case string:
		return []string{aud}
	case []any:
		var out []string
		for _, v := range aud {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
