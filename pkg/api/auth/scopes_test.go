package auth

import (
	"reflect"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestScopesFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   []string
	}{
		{
			name:   "space delimited scope string",
			claims: jwt.MapClaims{"scope": "obj:read obj:write"},
			want:   []string{"obj:read", "obj:write"},
		},
		{
			name:   "array valued scopes claim",
			claims: jwt.MapClaims{"scopes": []any{"obj:list", "obj:read"}},
			want:   []string{"obj:list", "obj:read"},
		},
		{
			name:   "scp fallback",
			claims: jwt.MapClaims{"scp": "obj:write"},
			want:   []string{"obj:write"},
		},
		{
			name:   "scope wins over scopes and scp",
			claims: jwt.MapClaims{"scope": "a", "scopes": []any{"b"}, "scp": "c"},
			want:   []string{"a"},
		},
		{
			name:   "scopes wins over scp",
			claims: jwt.MapClaims{"scopes": []any{"b"}, "scp": "c"},
			want:   []string{"b"},
		},
		{
			name:   "empty scope string present",
			claims: jwt.MapClaims{"scope": ""},
			want:   []string{},
		},
		{
			name:   "non string entries skipped",
			claims: jwt.MapClaims{"scopes": []any{"a", 42, "b"}},
			want:   []string{"a", "b"},
		},
		{
			name:   "no scope claim",
			claims: jwt.MapClaims{"sub": "alice"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScopesFromClaims(tt.claims)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ScopesFromClaims() = %v, want %v", got, tt.want)
			}
		})
	}
}
