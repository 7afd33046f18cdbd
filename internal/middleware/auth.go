package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/session"
)

const userKey contextKey = "user"

// SessionResolver maps a request to its authenticated user.
type SessionResolver interface {
	Resolve(r *http.Request) (model.User, error)
}

// SessionAuth returns middleware that rejects requests without a valid
// session and stores the resolved user in the request context.
func SessionAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r)
			if err != nil {
				if errors.Is(err, session.ErrUnauthenticated) {
					writeJSONError(w, http.StatusUnauthorized, "not authenticated")
					return
				}
				LoggerFromContext(r.Context()).Error("session resolution failed", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := UserFromContext(ctx)
	if !ok || user.ID == "" {
		return "", false
	}
	return user.ID, true
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
