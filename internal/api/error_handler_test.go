package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicehub/session-gateway/internal/api/handler"
	"github.com/servicehub/session-gateway/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"not authenticated", domain.ErrNotAuthenticated, 401, "Not authenticated"},
		{"check failed", fmt.Errorf("%w: read token: disk", domain.ErrAuthCheckFailed), 401, "Authentication check failed"},
		{"expired", domain.ErrSessionExpired, 401, "Session expired"},
		{"superseded", domain.ErrSuperseded, 409, "superseded by a newer request"},
		{"validation", &handler.ValidationError{Fields: []string{"email is required"}}, 422, "email is required"},
		{
			"backend 4xx keeps status",
			&domain.OperationError{Op: domain.OpLogin, Message: "Invalid credentials", Err: &domain.BackendError{Status: 401, Message: "Invalid credentials"}},
			401, "Invalid credentials",
		},
		{
			"backend 5xx",
			&domain.OperationError{Op: domain.OpRegister, Message: domain.MsgRegistrationFailed, Err: &domain.BackendError{Status: 503}},
			502, domain.MsgRegistrationFailed,
		},
		{
			"transport failure",
			&domain.OperationError{Op: domain.OpLogin, Message: domain.MsgLoginFailed, Err: errors.New("dial tcp: refused")},
			502, domain.MsgLoginFailed,
		},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), 400, "invalid payload"},
		{"unknown", errors.New("boom"), 500, "internal server error"},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/session/login", nil), rec)

			h(tc.err, c)

			require.Equal(t, tc.wantCode, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantMsg, body.Error)
		})
	}
}
