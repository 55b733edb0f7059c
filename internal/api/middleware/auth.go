package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/framerhq/framer/internal/auth"
)

type contextKey string

const ownerKey contextKey = "owner"

// AnonymousOwner is the identity used when auth is disabled and no
// owner header is present (local development).
const AnonymousOwner = "local"

// Owner returns the authenticated owner id from the request context.
func Owner(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey).(string); ok {
		return owner
	}
	return AnonymousOwner
}

// SetOwner stores an owner id in the context. Exposed for tests.
func SetOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// Auth resolves the bearer token to an owner identity and stores it in
// the request context. When resolver is nil (auth disabled), the owner
// comes from the X-Framer-Owner header, falling back to AnonymousOwner.
func Auth(resolver auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				owner := r.Header.Get("X-Framer-Owner")
				if owner == "" {
					owner = AnonymousOwner
				}
				next.ServeHTTP(w, r.WithContext(SetOwner(r.Context(), owner)))
				return
			}

			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			owner, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
				unauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(SetOwner(r.Context(), owner)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="framer"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "authentication_failed",
		"message": message,
	})
}
