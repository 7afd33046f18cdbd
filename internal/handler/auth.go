package handler

import (
	"net/http"

	"github.com/peachytask/peachytask-go/internal/middleware"
	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/service"
	"github.com/peachytask/peachytask-go/internal/session"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service      *service.AuthService
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie sets the Secure
// attribute on the session cookie.
func NewAuthHandler(svc *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: svc, secureCookie: secureCookie}
}

// HandleSignup handles POST /auth/signup requests.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin handles POST /auth/login requests. The token travels only in
// the HTTP-only cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	session.SetCookie(w, token, h.secureCookie)
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout handles POST /auth/logout requests.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session.ClearCookie(w, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe handles GET /auth/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("not authenticated"))
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
