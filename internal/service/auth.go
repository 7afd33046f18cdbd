package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/peachytask/peachytask-go/internal/crypto"
	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/normalize"
	"github.com/peachytask/peachytask-go/internal/repository"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 1024
)

// AuthService handles signup and login.
type AuthService struct {
	users  UserStore
	hasher *crypto.Hasher
	tokens *crypto.TokenService
	now    func() time.Time

	// dummyHash is verified when login finds no user so both failure paths
	// cost one hash verification.
	dummyHash string
}

// NewAuthService creates a new AuthService. A nil now uses time.Now.
func NewAuthService(users UserStore, hasher *crypto.Hasher, tokens *crypto.TokenService, now func() time.Time) (*AuthService, error) {
	if now == nil {
		now = time.Now
	}

	dummy, err := hasher.Hash("peachytask-login-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		now:       now,
		dummyHash: dummy,
	}, nil
}

// Signup creates a new account and returns its public view.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.UserResponse, error) {
	email := normalize.Email(req.Email)
	if err := validateEmail(email); err != nil {
		return model.UserResponse{}, err
	}
	if n := utf8.RuneCountInString(req.Password); n < minPasswordLength {
		return model.UserResponse{}, invalid("password", "must be at least 8 characters")
	} else if n > maxPasswordLength {
		return model.UserResponse{}, invalid("password", "is too long")
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return model.UserResponse{}, ErrEmailTaken
	case !errors.Is(err, repository.ErrNotFound):
		return model.UserResponse{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		// The unique index is the authority when two signups race.
		if errors.Is(err, repository.ErrDuplicate) {
			return model.UserResponse{}, ErrEmailTaken
		}
		return model.UserResponse{}, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user signed up", "user_id", user.ID)
	return user.Public(), nil
}

// Login checks credentials and issues a session token.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.UserResponse, string, error) {
	email := normalize.Email(req.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(req.Password, s.dummyHash)
			return model.UserResponse{}, "", ErrInvalidCredentials
		}
		return model.UserResponse{}, "", fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return model.UserResponse{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return model.UserResponse{}, "", fmt.Errorf("issue token: %w", err)
	}

	return user.Public(), token, nil
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "is not a valid address")
	}
	return nil
}
