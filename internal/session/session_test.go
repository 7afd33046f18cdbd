package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peachytask/peachytask-go/internal/crypto"
	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/repository"
)

var issuedAt = time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)

type fakeUsers struct {
	users map[string]model.User
	err   error
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func newTestResolver(t *testing.T, users *fakeUsers, now time.Time) (*Resolver, *crypto.TokenService) {
	t.Helper()
	tokens, err := crypto.NewTokenService(crypto.TokenConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
	return NewResolver(tokens, users, func() time.Time { return now }), tokens
}

func issue(t *testing.T, tokens *crypto.TokenService, userID string) string {
	t.Helper()
	token, err := tokens.Issue(userID, issuedAt)
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}
	return token
}

func aliceUsers() *fakeUsers {
	return &fakeUsers{users: map[string]model.User{
		"alice": {ID: "alice", Email: "a@x.com", PasswordHash: "h"},
		"bob":   {ID: "bob", Email: "b@x.com", PasswordHash: "h"},
	}}
}

func TestResolve_Cookie(t *testing.T) {
	resolver, tokens := newTestResolver(t, aliceUsers(), issuedAt.Add(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: issue(t, tokens, "alice")})

	user, err := resolver.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if user.ID != "alice" {
		t.Errorf("expected alice, got %q", user.ID)
	}
}

func TestResolve_BearerFallback(t *testing.T) {
	resolver, tokens := newTestResolver(t, aliceUsers(), issuedAt.Add(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, tokens, "alice"))

	user, err := resolver.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if user.ID != "alice" {
		t.Errorf("expected alice, got %q", user.ID)
	}
}

func TestResolve_CookieWinsOverHeader(t *testing.T) {
	resolver, tokens := newTestResolver(t, aliceUsers(), issuedAt.Add(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: issue(t, tokens, "alice")})
	req.Header.Set("Authorization", "Bearer "+issue(t, tokens, "bob"))

	user, err := resolver.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if user.ID != "alice" {
		t.Errorf("expected cookie user alice, got %q", user.ID)
	}
}

func TestResolve_Unauthenticated(t *testing.T) {
	_, tokens := newTestResolver(t, aliceUsers(), issuedAt)
	valid := issue(t, tokens, "alice")
	ghost := issue(t, tokens, "ghost")

	cases := []struct {
		name   string
		now    time.Time
		header string
		cookie string
	}{
		{name: "no token", now: issuedAt},
		{name: "garbage cookie", now: issuedAt, cookie: "not.a.jwt"},
		{name: "basic auth", now: issuedAt, header: "Basic YWxpY2U6cGFzcw=="},
		{name: "expired", now: issuedAt.Add(61 * time.Minute), cookie: valid},
		{name: "deleted user", now: issuedAt.Add(time.Minute), cookie: ghost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver, _ := newTestResolver(t, aliceUsers(), tc.now)
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tc.cookie})
			}

			_, err := resolver.Resolve(req)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestResolve_StoreFaultPropagates(t *testing.T) {
	fault := errors.New("connection refused")
	resolver, tokens := newTestResolver(t, &fakeUsers{err: fault}, issuedAt.Add(time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: issue(t, tokens, "alice")})

	_, err := resolver.Resolve(req)
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatal("store fault must not be reported as unauthenticated")
	}
	if !errors.Is(err, fault) {
		t.Errorf("expected wrapped store fault, got %v", err)
	}
}

func TestSetCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "tok", true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || c.Value != "tok" {
		t.Errorf("unexpected cookie %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly")
	}
	if !c.Secure {
		t.Error("expected Secure")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite=Lax, got %v", c.SameSite)
	}
	if c.Path != "/" {
		t.Errorf("expected Path=/, got %q", c.Path)
	}
	if c.MaxAge != 0 || !c.Expires.IsZero() {
		t.Errorf("expected session cookie without expiry, got MaxAge=%d Expires=%v", c.MaxAge, c.Expires)
	}
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookie(rec, false)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("expected negative MaxAge, got %d", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Errorf("expected empty value, got %q", cookies[0].Value)
	}
}
