// Package http serves the contract stub: a minimal marketplace backend that
// speaks the auth contract the gateway depends on. It is meant for local
// development and integration tests.
package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	apimiddleware "github.com/servicehub/session-gateway/internal/api/middleware"
	"github.com/servicehub/session-gateway/internal/core/ports"
	"github.com/servicehub/session-gateway/internal/infrastructure/http/handlers"
)

// NewRouter builds the stub's Echo instance with all routes registered.
func NewRouter(authService ports.AuthService, jwtSecret string, log zerolog.Logger, deps ...handlers.Pinger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// --- Global middleware ---
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("stub request")
			return nil
		},
	}))

	authHandler := handlers.NewAuthHandler(authService)

	// --- Auth contract ---
	g := e.Group("/api/auth")
	g.POST("/register", authHandler.Register)
	g.POST("/login", authHandler.Login)
	g.POST("/logout", authHandler.Logout, apimiddleware.Auth(jwtSecret))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	return e
}

// DefaultTokenTTL is the lifetime of tokens the stub issues.
const DefaultTokenTTL = 24 * time.Hour
