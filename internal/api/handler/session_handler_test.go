package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/api/middleware"
	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
	"github.com/servicehub/session-gateway/internal/core/service"
)

type memStore struct {
	mu    sync.Mutex
	token string
	user  *domain.User
}

func (s *memStore) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *memStore) User(context.Context) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone(), nil
}

func (s *memStore) SetUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	s.user = u.Clone()
	s.mu.Unlock()
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	return nil
}

func (s *memStore) IsAuthenticated(ctx context.Context) bool {
	token, _ := s.Token(ctx)
	return token != ""
}

type memFactory struct {
	mu     sync.Mutex
	stores map[string]*memStore
}

func (f *memFactory) For(clientID string) ports.SessionStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stores == nil {
		f.stores = map[string]*memStore{}
	}
	if _, ok := f.stores[clientID]; !ok {
		f.stores[clientID] = &memStore{}
	}
	return f.stores[clientID]
}

type stubBackend struct {
	registerFn func(domain.Registration) (*domain.AuthPayload, error)
	loginFn    func(domain.Credentials) (*domain.AuthPayload, error)
}

func (b *stubBackend) Register(_ context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
	return b.registerFn(reg)
}

func (b *stubBackend) Login(_ context.Context, creds domain.Credentials) (*domain.AuthPayload, error) {
	return b.loginFn(creds)
}

func (b *stubBackend) Logout(context.Context, string) error { return nil }

func newManager(backend *stubBackend) *service.SessionManager {
	return service.NewSessionManager(&memFactory{}, backend, service.ManagerConfig{}, zerolog.Nop())
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ClientIDKey, "client-1")
	return c, rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func workerPayload() *domain.AuthPayload {
	return &domain.AuthPayload{
		Token: "tok",
		User:  &domain.User{ID: "7", FirstName: "Wes", Email: "wes@example.com", Role: domain.RoleWorker},
	}
}

func TestSessionHandler_Login_Success(t *testing.T) {
	backend := &stubBackend{loginFn: func(creds domain.Credentials) (*domain.AuthPayload, error) {
		if creds.Email != "wes@example.com" || creds.Password != "secret" {
			t.Fatalf("unexpected credentials %+v", creds)
		}
		return workerPayload(), nil
	}}
	h := NewSessionHandler(newManager(backend))

	c, rec := newContext(http.MethodPost, "/api/session/login", `{"email":"wes@example.com","password":"secret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeView(t, rec)
	if resp["authenticated"] != true || resp["error"] != nil {
		t.Fatalf("unexpected view: %+v", resp)
	}
	caps, _ := resp["capabilities"].(map[string]any)
	if caps["worker"] != true || caps["admin"] != false {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}
	if _, leaked := resp["token"]; leaked {
		t.Fatalf("token must never be sent to the browser")
	}
}

func TestSessionHandler_Login_BackendRejects(t *testing.T) {
	backend := &stubBackend{loginFn: func(domain.Credentials) (*domain.AuthPayload, error) {
		return nil, &domain.BackendError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}}
	h := NewSessionHandler(newManager(backend))

	c, _ := newContext(http.MethodPost, "/api/session/login", `{"email":"wes@example.com","password":"bad"}`)
	err := h.Login(c)

	var opErr *domain.OperationError
	if !errors.As(err, &opErr) || opErr.Message != "Invalid credentials" {
		t.Fatalf("expected OperationError with backend message, got %v", err)
	}
}

func TestSessionHandler_Login_Validation(t *testing.T) {
	backend := &stubBackend{loginFn: func(domain.Credentials) (*domain.AuthPayload, error) {
		t.Fatalf("backend must not be called")
		return nil, nil
	}}
	h := NewSessionHandler(newManager(backend))

	c, _ := newContext(http.MethodPost, "/api/session/login", `{"email":"not-an-email"}`)
	err := h.Login(c)
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "email must be a valid email") || !strings.Contains(err.Error(), "password is required") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestSessionHandler_Register_Created(t *testing.T) {
	backend := &stubBackend{registerFn: func(reg domain.Registration) (*domain.AuthPayload, error) {
		if reg.Role != domain.RoleCustomer || reg.FirstName != "Ana" {
			t.Fatalf("unexpected registration %+v", reg)
		}
		return &domain.AuthPayload{Token: "t", User: &domain.User{ID: "1", Role: reg.Role}}, nil
	}}
	h := NewSessionHandler(newManager(backend))

	body := `{"firstName":" Ana ","lastName":"Diaz","email":"ana@example.com","password":"secret1","role":"customer"}`
	c, rec := newContext(http.MethodPost, "/api/session/register", body)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestSessionHandler_Register_InvalidRole(t *testing.T) {
	h := NewSessionHandler(newManager(&stubBackend{}))

	body := `{"firstName":"Ana","lastName":"Diaz","email":"ana@example.com","password":"secret1","role":"GUEST"}`
	c, _ := newContext(http.MethodPost, "/api/session/register", body)
	if err := h.Register(c); !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSessionHandler_Register_InvalidPayload(t *testing.T) {
	h := NewSessionHandler(newManager(&stubBackend{}))

	c, _ := newContext(http.MethodPost, "/api/session/register", "not-json")
	err := h.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestSessionHandler_CheckAnonymous(t *testing.T) {
	h := NewSessionHandler(newManager(&stubBackend{}))

	c, rec := newContext(http.MethodPost, "/api/session/check", "")
	if err := h.Check(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp := decodeView(t, rec); resp["authenticated"] != false || resp["user"] != nil {
		t.Fatalf("unexpected view: %+v", resp)
	}
}

func TestSessionHandler_LogoutThenGet(t *testing.T) {
	backend := &stubBackend{loginFn: func(domain.Credentials) (*domain.AuthPayload, error) {
		return workerPayload(), nil
	}}
	m := newManager(backend)
	h := NewSessionHandler(m)

	c, _ := newContext(http.MethodPost, "/api/session/login", `{"email":"wes@example.com","password":"secret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}

	c, rec := newContext(http.MethodPost, "/api/session/logout", "")
	if err := h.Logout(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("logout: %v %d", err, rec.Code)
	}

	c, rec = newContext(http.MethodGet, "/api/session", "")
	if err := h.Get(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp := decodeView(t, rec); resp["authenticated"] != false {
		t.Fatalf("expected signed-out view, got %+v", resp)
	}
}

func TestSessionHandler_UpdateUser(t *testing.T) {
	backend := &stubBackend{loginFn: func(domain.Credentials) (*domain.AuthPayload, error) {
		return workerPayload(), nil
	}}
	h := NewSessionHandler(newManager(backend))

	c, _ := newContext(http.MethodPatch, "/api/session/user", `{"phone":"555"}`)
	if err := h.UpdateUser(c); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated before login, got %v", err)
	}

	c, _ = newContext(http.MethodPost, "/api/session/login", `{"email":"wes@example.com","password":"secret"}`)
	_ = h.Login(c)

	c, rec := newContext(http.MethodPatch, "/api/session/user", `{"phone":"555"}`)
	if err := h.UpdateUser(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	user, _ := decodeView(t, rec)["user"].(map[string]any)
	if user["phone"] != "555" || user["firstName"] != "Wes" {
		t.Fatalf("unexpected user: %+v", user)
	}

	c, _ = newContext(http.MethodPatch, "/api/session/user", `{}`)
	if err := h.UpdateUser(c); !IsValidationError(err) {
		t.Fatalf("expected validation error for empty patch, got %v", err)
	}
}

func TestSessionHandler_ClearError(t *testing.T) {
	backend := &stubBackend{loginFn: func(domain.Credentials) (*domain.AuthPayload, error) {
		return nil, errors.New("connection refused")
	}}
	m := newManager(backend)
	h := NewSessionHandler(m)

	c, _ := newContext(http.MethodPost, "/api/session/login", `{"email":"wes@example.com","password":"secret"}`)
	_ = h.Login(c)
	if got := m.Session(context.Background(), "client-1").State().Error; got != domain.MsgLoginFailed {
		t.Fatalf("expected fallback message, got %q", got)
	}

	c, rec := newContext(http.MethodDelete, "/api/session/error", "")
	if err := h.ClearError(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("clear error: %v %d", err, rec.Code)
	}
	if got := m.Session(context.Background(), "client-1").State().Error; got != "" {
		t.Fatalf("error not cleared: %q", got)
	}
}

func TestSessionHandler_MissingClientID(t *testing.T) {
	h := NewSessionHandler(newManager(&stubBackend{}))

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/session", nil), httptest.NewRecorder())
	var he *echo.HTTPError
	if err := h.Get(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
