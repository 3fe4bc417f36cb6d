package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/security"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// Authenticate requires a valid Authorization bearer token and stores the
// authenticated user id in the request context. Every failure mode answers
// with the same 401.
func Authenticate(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordBearerValidation(r.Context(), "missing")
				response.Error(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			userID, ok := validateBearer(r, jwtMgr, raw)
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuthenticate resolves the user when a bearer token is present but
// lets anonymous requests through. A token that is present and invalid is
// still rejected.
func OptionalAuthenticate(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := validateBearer(r, jwtMgr, raw)
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func validateBearer(r *http.Request, jwtMgr *security.JWTManager, raw string) (uuid.UUID, bool) {
	claims, err := jwtMgr.Validate(raw)
	if err != nil {
		observability.RecordBearerValidation(r.Context(), "rejected")
		return uuid.Nil, false
	}
	userID, err := claims.UserID()
	if err != nil {
		observability.RecordBearerValidation(r.Context(), "rejected")
		return uuid.Nil, false
	}
	observability.RecordBearerValidation(r.Context(), "accepted")
	return userID, true
}

func withUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, id)
}

// UserIDFromContext returns the authenticated user id set by Authenticate
// or OptionalAuthenticate.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	return id, ok
}
