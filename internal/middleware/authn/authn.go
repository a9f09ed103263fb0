package authn

import (
	"context"
	"net/http"

	resp "backpack/internal/lib/api/response"
	"backpack/internal/session"

	"github.com/go-chi/render"
)

type ctxKey struct{}

// Require rejects requests without a valid session cookie and puts the
// caller's identity on the request context.
func Require(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := sessions.FromRequest(r)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must be mounted after Require.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := Identity(r.Context())
			if !ok || !identity.IsAdmin {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Forbidden"))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func Identity(ctx context.Context) (session.Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(session.Identity)
	return identity, ok
}
