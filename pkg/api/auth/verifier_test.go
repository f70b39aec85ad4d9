package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestHS256Verifier_ValidToken(t *testing.T) {
	v := &HS256Verifier{Secret: []byte(testSecret)}

	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub":   "alice",
		"scope": "obj:read",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != "alice" {
		t.Errorf("sub = %q, want alice", sub)
	}
}

func TestHS256Verifier_ExpiredToken(t *testing.T) {
	v := &HS256Verifier{Secret: []byte(testSecret)}

	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify of expired token = %v, want ErrInvalidToken", err)
	}
}

func TestHS256Verifier_MissingExp(t *testing.T) {
	v := &HS256Verifier{Secret: []byte(testSecret)}

	token := mintToken(t, testSecret, jwt.MapClaims{"sub": "alice"})

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify of token without exp = %v, want ErrInvalidToken", err)
	}
}

func TestHS256Verifier_WrongSecret(t *testing.T) {
	v := &HS256Verifier{Secret: []byte(testSecret)}

	token := mintToken(t, "another-secret-entirely", jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestHS256Verifier_AlgorithmPinned(t *testing.T) {
	v := &HS256Verifier{Secret: []byte(testSecret)}

	// Token declaring "none"; a verifier without algorithm pinning would
	// accept it.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign none token: %v", err)
	}

	if _, err := v.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify of alg=none token = %v, want ErrInvalidToken", err)
	}
}

func TestHS256Verifier_IssuerAllowList(t *testing.T) {
	v := &HS256Verifier{
		Secret:  []byte(testSecret),
		Issuers: []string{"http://issuer-a", "http://issuer-b"},
	}

	valid := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"iss": "http://issuer-b",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(valid); err != nil {
		t.Errorf("Verify with listed issuer failed: %v", err)
	}

	unlisted := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"iss": "http://issuer-c",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(unlisted); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify with unlisted issuer = %v, want ErrInvalidToken", err)
	}

	missing := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(missing); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify without issuer = %v, want ErrInvalidToken", err)
	}
}

func TestHS256Verifier_Audience(t *testing.T) {
	v := &HS256Verifier{Secret: []byte(testSecret), Audience: "bucketd"}

	stringForm := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"aud": "bucketd",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(stringForm); err != nil {
		t.Errorf("Verify with string aud failed: %v", err)
	}

	arrayForm := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"aud": []string{"other", "bucketd"},
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(arrayForm); err != nil {
		t.Errorf("Verify with array aud failed: %v", err)
	}

	wrong := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"aud": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(wrong); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify with wrong aud = %v, want ErrInvalidToken", err)
	}
}

func TestHS256Verifier_NoSecret(t *testing.T) {
	v := &HS256Verifier{}

	token := mintToken(t, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := v.Verify(token); !errors.Is(err, ErrMisconfigured) {
		t.Errorf("Verify without secret = %v, want ErrMisconfigured", err)
	}
}

func TestRS256Verifier_FailsClosed(t *testing.T) {
	v := &RS256Verifier{}

	if _, err := v.Verify("any-token"); !errors.Is(err, ErrMisconfigured) {
		t.Errorf("RS256 Verify = %v, want ErrMisconfigured", err)
	}
}

func TestMintHS256_RoundTrip(t *testing.T) {
	signed, err := MintHS256([]byte(testSecret), MintOptions{
		Subject:  "alice",
		Scope:    "obj:read obj:write",
		TTL:      time.Hour,
		Issuer:   "http://localhost:8080",
		Audience: "bucketd",
	})
	if err != nil {
		t.Fatalf("MintHS256 failed: %v", err)
	}

	v := &HS256Verifier{
		Secret:   []byte(testSecret),
		Issuers:  []string{"http://localhost:8080"},
		Audience: "bucketd",
	}
	claims, err := v.Verify(signed)
	if err != nil {
		t.Fatalf("Verify of minted token failed: %v", err)
	}

	user := userFromClaims(claims)
	if user.Subject != "alice" {
		t.Errorf("Subject = %q, want alice", user.Subject)
	}
	if !user.HasScope("obj:write") || !user.HasScope("obj:read") {
		t.Errorf("Scopes = %v, want obj:read and obj:write", user.Scopes)
	}
}

func TestMintHS256_NoSecret(t *testing.T) {
	if _, err := MintHS256(nil, MintOptions{Subject: "a", TTL: time.Minute}); !errors.Is(err, ErrMisconfigured) {
		t.Errorf("MintHS256 without secret = %v, want ErrMisconfigured", err)
	}
}
