// Package session resolves the authenticated user of a request from its
// session token and owns the session cookie contract.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/peachytask/peachytask-go/internal/crypto"
	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/repository"
)

// CookieName is the cookie carrying the session token.
const CookieName = "access_token"

// ErrUnauthenticated means the request carries no valid session.
var ErrUnauthenticated = errors.New("authentication required")

// UserFinder loads the user a token names.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver maps a request to the user its session token names.
type Resolver struct {
	tokens *crypto.TokenService
	users  UserFinder
	now    func() time.Time
}

// NewResolver creates a Resolver. A nil now uses time.Now.
func NewResolver(tokens *crypto.TokenService, users UserFinder, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{tokens: tokens, users: users, now: now}
}

// Resolve returns the live user behind the request's session token.
// Missing, invalid or expired tokens and deleted users yield
// ErrUnauthenticated; other store faults are returned as is.
func (r *Resolver) Resolve(req *http.Request) (model.User, error) {
	token := TokenFromRequest(req)
	if token == "" {
		return model.User{}, ErrUnauthenticated
	}

	userID, ok := r.tokens.Verify(token, r.now())
	if !ok {
		return model.User{}, ErrUnauthenticated
	}

	user, err := r.users.FindByID(req.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUnauthenticated
		}
		return model.User{}, fmt.Errorf("load session user: %w", err)
	}
	return *user, nil
}

// TokenFromRequest reads the session cookie, falling back to an
// Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// SetCookie attaches token as an HTTP-only session cookie.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie instructs the client to drop the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
