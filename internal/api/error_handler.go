package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/api/handler"
	"github.com/servicehub/session-gateway/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	if handler.IsValidationError(err) {
		return http.StatusUnprocessableEntity, err.Error()
	}

	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, domain.ErrNotAuthenticated.Error()
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, domain.ErrSessionExpired.Error()
	case errors.Is(err, domain.ErrAuthCheckFailed):
		return http.StatusUnauthorized, domain.ErrAuthCheckFailed.Error()
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict, "superseded by a newer request"
	}

	// Register and login failures carry the message already stored on the session.
	var opErr *domain.OperationError
	if errors.As(err, &opErr) {
		var be *domain.BackendError
		if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
			return be.Status, opErr.Message
		}
		log.Warn().
			Err(err).
			Str("op", string(opErr.Op)).
			Str("path", c.Path()).
			Msg("session operation failed upstream")
		return http.StatusBadGateway, opErr.Message
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
