package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/session-gateway/internal/api/middleware"
	"github.com/servicehub/session-gateway/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error)
	loginFn    func(ctx context.Context, email, password string) (*domain.AuthPayload, error)
}

func (s *stubAuthService) Register(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
	return s.registerFn(ctx, reg)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.AuthPayload, error) {
	return s.loginFn(ctx, email, password)
}

func post(target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
			if reg.Email != "ana@example.com" || reg.Role != domain.RoleWorker {
				t.Fatalf("unexpected registration: %+v", reg)
			}
			return &domain.AuthPayload{Token: "tok", User: &domain.User{ID: "u-1", Email: reg.Email, Role: reg.Role}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := post("/auth/register", `{"firstName":"Ana","email":"ana@example.com","password":"secret","role":"worker"}`)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Token string         `json:"token"`
			User  map[string]any `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Data.Token != "tok" || resp.Data.User["id"] != "u-1" || resp.Data.User["role"] != "WORKER" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := post("/auth/register", `{"email":"bob@example.com","role":"CUSTOMER"}`)
	_ = handler.Register(c)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"Email already registered"`) {
		t.Fatalf("expected message body, got %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_BadRole(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := post("/auth/register", `{"email":"bob@example.com","role":"guest"}`)
	_ = handler.Register(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, rec := post("/auth/register", "not-json")
	_ = handler.Register(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*domain.AuthPayload, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.AuthPayload{Token: "token123", User: &domain.User{ID: "u-2", Role: domain.RoleAdmin}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := post("/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"token":"token123"`) {
		t.Fatalf("expected token in data, got %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_Rejected(t *testing.T) {
	for _, cause := range []error{domain.ErrInvalidCredentials, domain.ErrUserNotFound} {
		stub := &stubAuthService{
			loginFn: func(ctx context.Context, email, password string) (*domain.AuthPayload, error) {
				return nil, cause
			},
		}
		handler := NewAuthHandler(stub)

		c, rec := post("/auth/login", `{"email":"ghost@example.com","password":"pwd"}`)
		_ = handler.Login(c)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%v: expected 401, got %d", cause, rec.Code)
		}
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, rec := post("/auth/logout", "")
	c.Set(middleware.AccountKey, &middleware.AccountClaims{Email: "ana@example.com"})
	if err := handler.Logout(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", rec.Code, err)
	}

	c, rec = post("/auth/logout", "")
	if err := handler.Logout(c); err != nil || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without verified claims, got %d (%v)", rec.Code, err)
	}
}
