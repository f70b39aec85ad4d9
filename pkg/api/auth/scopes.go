package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ScopesFromClaims extracts the scope set from whichever claim is present,
// in order: a space-delimited "scope" string, an array-valued "scopes"
// claim, a space-delimited "scp" string. The first present claim wins;
// absence yields an empty set.
func ScopesFromClaims(claims jwt.MapClaims) []string {
	if s, ok := claims["scope"].(string); ok {
		return strings.Fields(s)
	}
	if arr, ok := claims["scopes"].([]any); ok {
		out := []string{}
		for _, v := range arr {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := claims["scp"].(string); ok {
		return strings.Fields(s)
	}
	return []string{}
}
