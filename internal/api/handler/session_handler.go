package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

type SessionHandler struct {
	sessions Sessions
}

func NewSessionHandler(sessions Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName"  validate:"required,max=100"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6"`
	Phone     string `json:"phone"     validate:"omitempty,max=32"`
	Role      string `json:"role"      validate:"required,role"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName"  validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Phone     *string `json:"phone"     validate:"omitempty,max=32"`
}

// sessionView is the JSON shape of a session as seen by the browser.
type sessionView struct {
	User          *domain.User        `json:"user"`
	Authenticated bool                `json:"authenticated"`
	Loading       bool                `json:"loading"`
	Error         *string             `json:"error"`
	Capabilities  domain.Capabilities `json:"capabilities"`
}

func newSessionView(st domain.SessionState) sessionView {
	v := sessionView{
		User:          st.User,
		Authenticated: st.IsAuthenticated(),
		Loading:       st.Loading,
		Capabilities:  st.Capabilities(),
	}
	if st.Error != "" {
		msg := st.Error
		v.Error = &msg
	}
	return v
}

// Register signs the browser up and opens its session.
//
// @Summary      Register
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Sign-up details"
// @Success      201   {object}  sessionView
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/session/register [post]
func (h *SessionHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	svc, err := sessionFor(c, h.sessions)
	if err != nil {
		return err
	}
	role, _ := domain.ParseRole(req.Role)
	err = svc.Register(c.Request().Context(), domain.Registration{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		Phone:     strings.TrimSpace(req.Phone),
		Role:      role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newSessionView(svc.State()))
}

// Login opens a session with email and password.
//
// @Summary      Login
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  sessionView
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/session/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	svc, err := sessionFor(c, h.sessions)
	if err != nil {
		return err
	}
	creds := domain.Credentials{Email: strings.TrimSpace(req.Email), Password: req.Password}
	if err := svc.Login(c.Request().Context(), creds); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(svc.State()))
}

// Logout always succeeds; the backend is notified on a best-effort basis.
//
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionView
// @Router       /api/session/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	svc, err := sessionFor(c, h.sessions)
	if err != nil {
		return err
	}
	svc.Logout(c.Request().Context())
	return c.JSON(http.StatusOK, newSessionView(svc.State()))
}

// Check re-hydrates the session from the persisted store.
//
// @Summary      Check session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionView
// @Failure      401  {object}  sessionView
// @Router       /api/session/check [post]
func (h *SessionHandler) Check(c echo.Context) error {
	svc, err := sessionFor(c, h.sessions)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if err := svc.CheckSession(c.Request().Context()); err != nil {
		status = http.StatusUnauthorized
	}
	return c.JSON(status, newSessionView(svc.State()))
}

// Get returns the current session.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionView
// @Router       /api/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	svc, err := sessionFor(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(svc.State()))
}

// UpdateUser patches the signed-in user's profile fields.
//
// @Summary      Update user
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  sessionView
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /api/session/user [patch]
func (h *SessionHandler) UpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	patch := domain.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if patch.Empty() {
		return &ValidationError{Fields: []string{"at least one field is required"}}
	}

	svc, err := sessionFor(c, h.sessions)
	if err != nil {
		return err
	}
	if err := svc.UpdateUser(c.Request().Context(), patch); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionView(svc.State()))
}

// ClearError acknowledges the last failure message.
//
// @Summary      Clear error
// @Tags         session
// @Success      204
// @Router       /api/session/error [delete]
func (h *SessionHandler) ClearError(c echo.Context) error {
	svc, err := sessionFor(c, h.sessions)
	if err != nil {
		return err
	}
	svc.ClearError()
	return c.NoContent(http.StatusNoContent)
}

// IsValidationError reports whether err came from request validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
