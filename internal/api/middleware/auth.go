package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "session_token"
)

// Authenticator resolves a session token into the caller's identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (entities.Identity, *entities.User, error)
}

// IdentityFromContext returns the identity stored by AuthMiddleware. Requests
// that were not authenticated carry the anonymous identity.
func IdentityFromContext(ctx context.Context) entities.Identity {
	identity, _ := ctx.Value(identityKey).(entities.Identity)
	return identity
}

// TokenFromContext returns the session token the request was authenticated with
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithIdentity stores an identity in the context
func WithIdentity(ctx context.Context, identity entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// SessionToken extracts the bearer token or, failing that, the session cookie
func SessionToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware attaches the caller's identity to every request and rejects
// unauthenticated calls to /api routes other than the public ones
func AuthMiddleware(auth Authenticator, cookieName string, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, path := range public {
		open[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := SessionToken(r, cookieName)

			if token != "" {
				identity, _, err := auth.Authenticate(ctx, token)
				switch {
				case err == nil:
					ctx = context.WithValue(WithIdentity(ctx, identity), tokenKey, token)
					ctx = observability.WithLogger(ctx, observability.LoggerFromContext(ctx).With().
						Str("user", identity.Username).
						Logger())
				case !apperrors.IsType(err, apperrors.ErrorTypeUnauthorized):
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
					return
				}
			}

			recordRole(ctx, IdentityFromContext(ctx).EffectiveRole())

			protected := strings.HasPrefix(r.URL.Path, "/api/") && !open[r.URL.Path]
			if protected && r.Method != http.MethodOptions && !IdentityFromContext(ctx).Authenticated() {
				writeJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

const requestInfoKey contextKey = "request_info"

// requestInfo is filled in by inner middleware and read by the observability
// middleware once the request completes
type requestInfo struct {
	role  entities.Role
	route string
}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

func recordRole(ctx context.Context, role entities.Role) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.role = role
	}
}

func recordRoute(ctx context.Context, route string) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok && route != "" {
		info.route = route
	}
}
