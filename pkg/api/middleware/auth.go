// Package middleware provides HTTP middleware for the bucketd API.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/marmos91/bucketd/pkg/api/auth"
	"github.com/marmos91/bucketd/pkg/api/handlers"
)

// Context key type for storing the authenticated principal.
type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalFromContext retrieves the authenticated principal from the request
// context. Returns nil on routes that did not pass through RequireClass.
func PrincipalFromContext(ctx context.Context) *auth.AuthUser {
	user, ok := ctx.Value(principalContextKey).(*auth.AuthUser)
	if !ok {
		return nil
	}
	return user
}

// RequireClass gates a route on the authorization policy for the given route
// class. One parameterized guard serves all three classes; the policy lookup
// and scope arithmetic live in the gate. The resulting principal, anonymous
// or authenticated, is stored in the request context before any storage I/O
// runs.
func RequireClass(gate *auth.Gate, class auth.RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := gate.Authorize(r, class)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrNoToken), errors.Is(err, auth.ErrInvalidToken):
					w.Header().Set("WWW-Authenticate", `Bearer realm="bucketd"`)
					handlers.Unauthorized(w, err.Error())
				case errors.Is(err, auth.ErrInsufficientScope):
					handlers.WriteProblem(w, http.StatusForbidden, "Forbidden", err.Error())
				default:
					handlers.InternalServerError(w, err.Error())
				}
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
