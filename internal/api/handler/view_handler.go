package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/session-gateway/internal/pkg/access"
)

// ViewHandler serves the navigable pages: the two gate targets and every
// guarded view from the access policy.
type ViewHandler struct {
	sessions Sessions
}

func NewViewHandler(sessions Sessions) *ViewHandler {
	return &ViewHandler{sessions: sessions}
}

type loginView struct {
	View string `json:"view"`
	From string `json:"from"`
}

// Login is the login page. It echoes the location to return to afterwards.
func (h *ViewHandler) Login(c echo.Context) error {
	return c.JSON(http.StatusOK, loginView{View: "login", From: safeReturnPath(c.QueryParam("from"))})
}

// Unauthorized is shown to signed-in users whose role may not see a view.
func (h *ViewHandler) Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"view": "unauthorized"})
}

type guardedView struct {
	View    string      `json:"view"`
	Session sessionView `json:"session"`
}

// Guarded renders a policy view. It only runs once the gate let it through.
func (h *ViewHandler) Guarded(v access.View) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, err := sessionFor(c, h.sessions)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, guardedView{View: v.Name, Session: newSessionView(svc.State())})
	}
}

// safeReturnPath keeps only same-origin absolute paths.
func safeReturnPath(from string) string {
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return "/"
	}
	return from
}
