package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	jwttoken "diagflow/internal/jwt_token"
)

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type contextKeyUserID struct{}
type contextKeyMobile struct{}

var (
	ContextKeyUserID = contextKeyUserID{}
	ContextKeyMobile = contextKeyMobile{}
)

// GetUserID retrieves the authenticated user guid from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetMobile retrieves the authenticated user's mobile from the context.
func GetMobile(ctx context.Context) string {
	mobile, ok := ctx.Value(ContextKeyMobile).(string)
	if !ok {
		return ""
	}
	return mobile
}

// TokenFromHeader accepts both "Bearer <token>" and a bare token, since
// clients of this API send either depending on the endpoint.
func TokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return header
}

// RequireAuth rejects requests without a valid access token.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := TokenFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", chimw.GetReqID(ctx),
					"path", r.URL.Path,
				)
				unauthorized(ctx, w, logger, "Missing Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", chimw.GetReqID(ctx),
					"path", r.URL.Path,
				)
				unauthorized(ctx, w, logger, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyMobile, claims.Mobile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"success":false,"msg":"` + msg + `"}`)); err != nil {
		logger.ErrorContext(ctx, "failed to write unauthorized response",
			"error", err,
			"request_id", chimw.GetReqID(ctx),
		)
	}
}
