// internal/auth/middleware.go
package auth

import (
	"net/http"
	"strings"

	"bible-quiz/pkg/response"
)

func JWTMiddleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				response.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, err := service.ParseToken(token)
			if err != nil {
				response.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// AuthenticateQuery reads the token from ?token=, for websocket upgrades where
// browsers cannot set headers.
func (s *Service) AuthenticateQuery(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r.Header.Get("Authorization"))
	}
	return s.ParseToken(token)
}

// bearerToken accepts both "Bearer <token>" and a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return ""
}
