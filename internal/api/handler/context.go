package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/session-gateway/internal/api/middleware"
	"github.com/servicehub/session-gateway/internal/core/service"
)

// Sessions hands out the live session of a browser client.
type Sessions interface {
	Session(ctx context.Context, clientID string) *service.SessionService
}

// sessionFor resolves the caller's session. The ClientID middleware must have
// run; without a client id the request cannot be tied to any session.
func sessionFor(c echo.Context, sessions Sessions) (*service.SessionService, error) {
	clientID := middleware.ClientIDFrom(c)
	if clientID == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "missing client identity")
	}
	return sessions.Session(c.Request().Context(), clientID), nil
}
