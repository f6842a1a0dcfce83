package middleware

import (
	"net/http"
	"rentio/pkg/auth"
	"rentio/pkg/logger"
	"strings"
)

// TokenVerifier is satisfied by *auth.Verifier.
type TokenVerifier interface {
	ParseValidate(token string) (*auth.User, error)
}

// Authenticate requires a bearer token and stores the caller on the context.
func Authenticate(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeJSONError(w, http.StatusUnauthorized, `{"error":"Missing bearer token"}`)
				return
			}

			user, err := verifier.ParseValidate(strings.TrimSpace(token))
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestIDFromContext(r.Context()),
					"error", err,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusUnauthorized, `{"error":"Invalid or expired token"}`)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
