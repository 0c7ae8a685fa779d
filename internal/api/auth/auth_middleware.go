package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-tour-bookings/internal/api"
	"github.com/FACorreiaa/go-tour-bookings/internal/types"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// GetUserFromContext returns the principal attached by Authenticate or
// SoftAuthenticate, or nil when the request is anonymous.
func GetUserFromContext(ctx context.Context) *types.User {
	user, _ := ctx.Value(userContextKey).(*types.User)
	return user
}

// ContextWithUser attaches a principal to ctx the way the middleware does.
func ContextWithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Middleware wires the auth service into the chi router.
type Middleware struct {
	logger     *slog.Logger
	service    Service
	cookieName string
	production bool
}

func NewMiddleware(service Service, cookieName string, production bool, logger *slog.Logger) *Middleware {
	return &Middleware{
		logger:     logger,
		service:    service,
		cookieName: cookieName,
		production: production,
	}
}

// extractToken prefers the Authorization header and falls back to the
// session cookie set by the login handler.
func (m *Middleware) extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate rejects requests without a verifiable token and attaches the
// resolved principal to the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			api.HandleError(w, r, m.logger, m.production,
				api.NewError(http.StatusUnauthorized, "you are not logged in, please log in to get access"))
			return
		}

		user, err := m.service.VerifyToken(r.Context(), token)
		if err != nil {
			api.HandleError(w, r, m.logger, m.production, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SoftAuthenticate attaches the principal when a valid token is present and
// lets the request through anonymously otherwise. It never writes an error.
func (m *Middleware) SoftAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.service.VerifyToken(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request only when the authenticated principal holds
// one of the given roles. It must run after Authenticate.
func (m *Middleware) RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	allowed := make(map[types.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil {
				api.HandleError(w, r, m.logger, m.production,
					api.NewError(http.StatusUnauthorized, "you are not logged in, please log in to get access"))
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				api.HandleError(w, r, m.logger, m.production,
					api.NewError(http.StatusForbidden, "you do not have permission to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
