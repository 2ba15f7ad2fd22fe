package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ClientIDKey is the echo context key holding the browser client id.
const ClientIDKey = "client_id"

const clientCookieMaxAge = 365 * 24 * 60 * 60

// ClientID identifies the browser by a long-lived cookie, issuing a fresh
// uuid when the cookie is missing or malformed.
func ClientID(cookieName string, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if ck, err := c.Cookie(cookieName); err == nil {
				if parsed, err := uuid.Parse(ck.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   clientCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(ClientIDKey, id)
			return next(c)
		}
	}
}

// ClientIDFrom returns the id stored by ClientID, or "".
func ClientIDFrom(c echo.Context) string {
	id, _ := c.Get(ClientIDKey).(string)
	return id
}
