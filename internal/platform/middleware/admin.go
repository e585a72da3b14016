package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "sahaya/pkg/domain-errors"
	"sahaya/pkg/platform/httputil"
	"sahaya/pkg/requestcontext"
)

// RequireAdmin guards the administrative catalogue path. It validates a
// bearer token signed with the shared admin key and requires role=admin.
func RequireAdmin(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(signingKey), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "admin token rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin token"))
				return
			}
			if role, _ := claims["role"].(string); role != "admin" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin role required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
