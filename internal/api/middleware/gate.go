package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/session-gateway/internal/api/metrics"
	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/gate"
)

// Navigation targets of the gate.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// StateSource yields the current session state of a client.
type StateSource interface {
	State(ctx context.Context, clientID string) domain.SessionState
}

// Gate guards a view. It must run after ClientID.
//
//	loading      → 202 {"view":"loading"}, Retry-After: 1
//	login        → 302 /login?from=<requested uri>
//	unauthorized → 302 /unauthorized
//	render       → next
func Gate(states StateSource, allowed []domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			state := states.State(req.Context(), ClientIDFrom(c))
			d := gate.Decide(state, allowed, req.URL.RequestURI())
			metrics.GateDecisionsTotal.WithLabelValues(string(d.Outcome)).Inc()

			switch d.Outcome {
			case gate.OutcomeLoading:
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusAccepted, map[string]string{"view": "loading"})
			case gate.OutcomeLogin:
				return c.Redirect(http.StatusFound, LoginPath+"?from="+url.QueryEscape(d.From))
			case gate.OutcomeUnauthorized:
				return c.Redirect(http.StatusFound, UnauthorizedPath)
			default:
				return next(c)
			}
		}
	}
}
