package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/session-gateway/internal/api/middleware"
	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

// AuthHandler serves the backend auth contract: successes as
// {"data": {...}} and failures as {"message": "..."}.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type dataResponse struct {
	Data *domain.AuthPayload `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  dataResponse
// @Failure      400   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid payload"})
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Role must be CUSTOMER, WORKER or ADMIN"})
	}

	out, err := h.authService.Register(c.Request().Context(), domain.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Role:      role,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserExists):
			return c.JSON(http.StatusConflict, messageResponse{Message: "Email already registered"})
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "First name, email and password are required"})
		}
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Registration failed"})
	}

	return c.JSON(http.StatusCreated, dataResponse{Data: out})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  dataResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid payload"})
	}

	out, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password look the same to the caller.
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid email or password"})
		}
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Login failed"})
	}

	return c.JSON(http.StatusOK, dataResponse{Data: out})
}

// Logout acknowledges a sign-out. Tokens are stateless, so nothing is revoked.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if middleware.AccountFrom(c) == nil {
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Not authenticated"})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out"})
}
