package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peachytask/peachytask-go/internal/crypto"
	"github.com/peachytask/peachytask-go/internal/handler"
	"github.com/peachytask/peachytask-go/internal/middleware"
	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/repository"
	"github.com/peachytask/peachytask-go/internal/service"
	"github.com/peachytask/peachytask-go/internal/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := repository.Open(context.Background(), repository.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hasher := crypto.NewHasher(crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1})
	tokens, err := crypto.NewTokenService(crypto.TokenConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
	auth, err := service.NewAuthService(store.Users, hasher, tokens, nil)
	if err != nil {
		t.Fatalf("NewAuthService() unexpected error: %v", err)
	}

	h := Handlers{
		Auth:   handler.NewAuthHandler(auth, false),
		Tasks:  handler.NewTaskHandler(service.NewTaskService(store.Tasks, store.Labels, nil)),
		Labels: handler.NewLabelHandler(service.NewLabelService(store.Labels, store.Tasks, nil)),
		Health: handler.NewHealthHandler(store, repository.DriverSQLite),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(h, session.NewResolver(tokens, store.Users, nil), middleware.DefaultCORSConfig(nil), logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// client sends requests carrying a session cookie captured from login.
type client struct {
	t      *testing.T
	base   string
	cookie *http.Cookie
}

func (c *client) do(method, path, body string) *http.Response {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		c.t.Fatalf("NewRequest() unexpected error: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) login(email, password string) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/auth/signup", `{"email":"`+email+`","password":"`+password+`"}`)
	expectStatus(c.t, resp, http.StatusCreated)

	resp = c.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
	expectStatus(c.t, resp, http.StatusOK)
	c.cookie = sessionCookie(c.t, resp)
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", session.CookieName)
	return nil
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s",
			resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAuthFlow_SignupLoginMeLogout(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	resp := c.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com","password":"password123"}`)
	expectStatus(t, resp, http.StatusCreated)
	created := decode[map[string]any](t, resp)
	if _, leaked := created["password_hash"]; leaked {
		t.Error("signup response exposes the password hash")
	}
	if len(resp.Cookies()) != 0 {
		t.Error("signup must not set a cookie")
	}

	resp = c.do(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"password123"}`)
	expectStatus(t, resp, http.StatusOK)
	cookie := sessionCookie(t, resp)
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	c.cookie = cookie

	resp = c.do(http.MethodGet, "/auth/me", "")
	expectStatus(t, resp, http.StatusOK)
	me := decode[model.UserResponse](t, resp)
	if me.Email != "a@x.com" || me.ID != created["id"] {
		t.Errorf("unexpected /auth/me user: %+v", me)
	}

	resp = c.do(http.MethodPost, "/auth/logout", "")
	expectStatus(t, resp, http.StatusOK)
	cleared := sessionCookie(t, resp)
	if cleared.MaxAge >= 0 {
		t.Errorf("expected logout to expire the cookie, got MaxAge=%d", cleared.MaxAge)
	}

	c.cookie = nil
	resp = c.do(http.MethodGet, "/auth/me", "")
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestAuth_FailureStatuses(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}
	c.login("a@x.com", "password123")
	c.cookie = nil

	resp := c.do(http.MethodPost, "/auth/signup", `{"email":" A@X.com ","password":"password123"}`)
	expectStatus(t, resp, http.StatusConflict)

	resp = c.do(http.MethodPost, "/auth/signup", `{"email":"b@x.com","password":"short"}`)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = c.do(http.MethodPost, "/auth/signup", `{"email":"b@x.com","password":"password123","admin":true}`)
	expectStatus(t, resp, http.StatusBadRequest)

	wrongPassword := c.do(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrongpass1"}`)
	expectStatus(t, wrongPassword, http.StatusUnauthorized)
	wrongEmail := c.do(http.MethodPost, "/auth/login", `{"email":"nobody@x.com","password":"password123"}`)
	expectStatus(t, wrongEmail, http.StatusUnauthorized)

	a, _ := io.ReadAll(wrongPassword.Body)
	b, _ := io.ReadAll(wrongEmail.Body)
	if !bytes.Equal(a, b) {
		t.Errorf("login failures differ: %s vs %s", a, b)
	}

	resp = c.do(http.MethodPost, "/auth/login", `not json`)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestAuth_TamperedCookieRejected(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}
	c.login("a@x.com", "password123")

	c.cookie = &http.Cookie{Name: session.CookieName, Value: c.cookie.Value + "x"}
	resp := c.do(http.MethodGet, "/auth/me", "")
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestScoping_OtherUserCannotSeeTask(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, base: srv.URL}
	alice.login("alice@x.com", "password123")
	bob := &client{t: t, base: srv.URL}
	bob.login("bob@x.com", "password123")

	resp := alice.do(http.MethodPost, "/tasks", `{"title":"Alice's task","priority":"high","deadline":"2025-12-01"}`)
	expectStatus(t, resp, http.StatusCreated)
	task := decode[model.TaskResponse](t, resp)

	resp = bob.do(http.MethodGet, "/tasks", "")
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]model.TaskResponse](t, resp); len(list) != 0 {
		t.Errorf("expected bob's list to be empty, got %d tasks", len(list))
	}

	resp = bob.do(http.MethodGet, "/tasks/"+task.ID, "")
	expectStatus(t, resp, http.StatusNotFound)

	resp = bob.do(http.MethodPatch, "/tasks/"+task.ID, `{"completed":true}`)
	expectStatus(t, resp, http.StatusNotFound)

	resp = bob.do(http.MethodDelete, "/tasks/"+task.ID, "")
	expectStatus(t, resp, http.StatusNotFound)

	resp = alice.do(http.MethodGet, "/tasks", "")
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]model.TaskResponse](t, resp); len(list) != 1 {
		t.Errorf("expected alice to see 1 task, got %d", len(list))
	}
}

func TestTasks_RequireSession(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	resp := c.do(http.MethodGet, "/tasks", "")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp = c.do(http.MethodPost, "/labels", `{"name":"Work"}`)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestTasks_PayloadCannotSetOwner(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}
	c.login("a@x.com", "password123")

	resp := c.do(http.MethodPost, "/tasks", `{"title":"t","priority":"low","deadline":"2025-12-01","user_id":"someone-else"}`)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestTasks_CRUDAndQuery(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}
	c.login("a@x.com", "password123")

	resp := c.do(http.MethodPost, "/labels", `{"name":"Work","color":"#FF5733"}`)
	expectStatus(t, resp, http.StatusCreated)
	label := decode[model.LabelResponse](t, resp)

	resp = c.do(http.MethodPost, "/labels", `{"name":" work "}`)
	expectStatus(t, resp, http.StatusConflict)

	resp = c.do(http.MethodPost, "/tasks", `{"title":"tagged","priority":"medium","deadline":"2025-12-01","label_ids":["`+label.ID+`"]}`)
	expectStatus(t, resp, http.StatusCreated)
	task := decode[model.TaskResponse](t, resp)

	resp = c.do(http.MethodGet, "/tasks?label_id="+label.ID+"&sort=deadline&limit=10", "")
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]model.TaskResponse](t, resp); len(list) != 1 || list[0].ID != task.ID {
		t.Errorf("unexpected filtered list: %+v", list)
	}

	resp = c.do(http.MethodGet, "/tasks?limit=abc", "")
	expectStatus(t, resp, http.StatusBadRequest)
	resp = c.do(http.MethodGet, "/tasks?sort=title", "")
	expectStatus(t, resp, http.StatusBadRequest)
	resp = c.do(http.MethodGet, "/tasks/not-an-id", "")
	expectStatus(t, resp, http.StatusBadRequest)

	resp = c.do(http.MethodPatch, "/tasks/"+task.ID, `{"completed":true}`)
	expectStatus(t, resp, http.StatusOK)
	if updated := decode[model.TaskResponse](t, resp); !updated.Completed {
		t.Error("expected task to be completed")
	}

	resp = c.do(http.MethodDelete, "/labels/"+label.ID, "")
	expectStatus(t, resp, http.StatusNoContent)

	resp = c.do(http.MethodGet, "/tasks/"+task.ID, "")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.TaskResponse](t, resp); len(got.LabelIDs) != 0 {
		t.Errorf("expected deleted label to be detached, got %v", got.LabelIDs)
	}

	resp = c.do(http.MethodDelete, "/tasks/"+task.ID, "")
	expectStatus(t, resp, http.StatusNoContent)
	resp = c.do(http.MethodGet, "/tasks/"+task.ID, "")
	expectStatus(t, resp, http.StatusNotFound)
}

func TestBodyTooLarge(t *testing.T) {
	srv := newTestServer(t)

	big := `{"email":"a@x.com","password":"` + strings.Repeat("x", 2<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(big))
	rec := httptest.NewRecorder()
	srv.Config.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	resp := c.do(http.MethodGet, "/health", "")
	expectStatus(t, resp, http.StatusOK)
	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" || body["store"] != "sqlite" {
		t.Errorf("unexpected health body: %v", body)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request ID header")
	}
}
