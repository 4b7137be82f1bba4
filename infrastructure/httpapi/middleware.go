package httpapi

import (
	"context"
	"net/http"
	"strings"

	"quickchat/errors"
)

type contextKey string

const userIDKey contextKey = "userID"

// authenticate extracts and verifies the bearer token, then stores the
// verified user id in the request context. Everything downstream trusts
// that id verbatim.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == "" || tokenString == header {
			s.respondError(w, errors.ErrInvalidCredentials, "missing bearer token")
			return
		}

		claims, err := s.tokens.Validate(tokenString)
		if err != nil {
			s.respondError(w, errors.ErrInvalidCredentials, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
