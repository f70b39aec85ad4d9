package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marmos91/bucketd/pkg/api/auth"
)

const testSecret = "middleware-test-secret-16plus"

func newGate() *auth.Gate {
	return auth.NewGate(auth.GateConfig{
		Mode:   auth.ModeHS256,
		Secret: testSecret,
		Write:  auth.RoutePolicy{Protected: true, Scopes: []string{"obj:write"}},
		Read:   auth.RoutePolicy{Protected: false},
		List:   auth.RoutePolicy{Protected: true, Scopes: []string{"obj:list"}},
	})
}

func mintToken(t *testing.T, scope string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "alice",
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestRequireClass_RejectsBeforeHandlerRuns(t *testing.T) {
	handlerRan := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})

	guard := RequireClass(newGate(), auth.ClassWrite)(next)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/objects/x", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if handlerRan {
		t.Error("handler ran despite missing token")
	}
}

func TestRequireClass_InsufficientScopeIsForbidden(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	guard := RequireClass(newGate(), auth.ClassWrite)(next)

	req := httptest.NewRequest(http.MethodPut, "/objects/x", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "obj:read"))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRequireClass_StoresPrincipal(t *testing.T) {
	var got *auth.AuthUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
	})
	guard := RequireClass(newGate(), auth.ClassWrite)(next)

	req := httptest.NewRequest(http.MethodPut, "/objects/x", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "obj:write"))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.Subject != "alice" {
		t.Errorf("principal = %+v, want subject alice", got)
	}
}

func TestRequireClass_UnprotectedClassYieldsAnonymous(t *testing.T) {
	var got *auth.AuthUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
	})
	guard := RequireClass(newGate(), auth.ClassRead)(next)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/objects/x", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.Subject != "" || len(got.Scopes) != 0 {
		t.Errorf("principal = %+v, want anonymous", got)
	}
}

func TestRequireClass_MisconfiguredIsInternal(t *testing.T) {
	gate := auth.NewGate(auth.GateConfig{
		Mode:  auth.ModeRS256,
		Write: auth.RoutePolicy{Protected: true, Scopes: []string{"obj:write"}},
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	guard := RequireClass(gate, auth.ClassWrite)(next)

	req := httptest.NewRequest(http.MethodPut, "/objects/x", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "obj:write"))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestPrincipalFromContext_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if PrincipalFromContext(req.Context()) != nil {
		t.Error("expected nil principal on ungated request")
	}
}
