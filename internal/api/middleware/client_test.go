package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestClientID_IssuesCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	handler := ClientID("sh_client", false)(func(c echo.Context) error {
		seen = ClientIDFrom(c)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected a uuid client id, got %q", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sh_client" || cookies[0].Value != seen {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("client cookie must be HttpOnly")
	}
}

func TestClientID_ReusesValidCookie(t *testing.T) {
	e := echo.New()
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sh_client", Value: id})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ClientID("sh_client", false)(func(c echo.Context) error {
		if ClientIDFrom(c) != id {
			t.Fatalf("expected %s, got %s", id, ClientIDFrom(c))
		}
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookie should be set when the client is known")
	}
}

func TestClientID_ReplacesMalformedCookie(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sh_client", Value: "../../etc"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ClientID("sh_client", false)(func(c echo.Context) error {
		if ClientIDFrom(c) == "../../etc" {
			t.Fatalf("malformed id must not be trusted")
		}
		return nil
	})
	_ = handler(c)
	if len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected a replacement cookie")
	}
}
