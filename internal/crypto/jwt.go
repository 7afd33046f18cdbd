package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenTTL  = 60 * time.Minute
	DefaultIssuer    = "peachytask"
	DefaultAudience  = "peachytask-api"
	DefaultAlgorithm = "HS256"
)

var (
	ErrMissingSecret        = errors.New("token secret is required")
	ErrUnsupportedAlgorithm = errors.New("token algorithm must be one of HS256, HS384, HS512")
)

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
	Issuer    string
	Audience  string
}

// TokenService issues and verifies signed session tokens.
type TokenService struct {
	secret   []byte
	method   jwt.SigningMethod
	ttl      time.Duration
	issuer   string
	audience string
}

// NewTokenService validates cfg and builds a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}

	return &TokenService{
		secret:   []byte(cfg.Secret),
		method:   method,
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for userID valid from now until now+TTL.
func (s *TokenService) Issue(userID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(s.method, claims)
	return token.SignedString(s.secret)
}

// Verify checks the token signature and claims at the given instant and
// returns its subject. Every failure yields ok == false.
func (s *TokenService) Verify(tokenString string, now time.Time) (string, bool) {
	if tokenString == "" {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid {
		return "", false
	}

	if claims.Subject == "" {
		return "", false
	}

	return claims.Subject, true
}
