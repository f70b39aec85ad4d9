package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MintOptions describes a token to be issued by the login endpoint.
type MintOptions struct {
	Subject  string
	Scope    string // space-delimited scopes
	TTL      time.Duration
	Issuer   string
	Audience string
}

// MintHS256 issues a signed HS256 token for the dev login flow.
func MintHS256(secret []byte, opts MintOptions) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: hs256 mode selected but no secret configured", ErrMisconfigured)
	}

	claims := jwt.MapClaims{
		"sub":   opts.Subject,
		"scope": opts.Scope,
		"exp":   time.Now().Add(opts.TTL).Unix(),
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	if opts.Audience != "" {
		claims["aud"] = opts.Audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
