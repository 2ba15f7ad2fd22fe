package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/servicehub/session-gateway/docs"
	"github.com/servicehub/session-gateway/internal/api/handler"
	"github.com/servicehub/session-gateway/internal/api/middleware"
	"github.com/servicehub/session-gateway/internal/core/service"
	"github.com/servicehub/session-gateway/internal/infrastructure/http/handlers"
	"github.com/servicehub/session-gateway/internal/pkg/access"
)

// RouterConfig carries everything the gateway routes depend on.
type RouterConfig struct {
	Sessions     *service.SessionManager
	Policy       *access.Policy
	CookieName   string
	SecureCookie bool
	Dependencies []handlers.Pinger
	Log          zerolog.Logger
	// Registry receives the HTTP metrics; nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(cfg.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promConfig(cfg.Registry)))

	// --- Probes, metrics and docs (no client identity) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(cfg.Dependencies...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", metricsHandler(cfg.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Browser-facing routes ---
	browser := e.Group("", middleware.ClientID(cfg.CookieName, cfg.SecureCookie))

	sessionHandler := handler.NewSessionHandler(cfg.Sessions)
	s := browser.Group("/api/session")
	s.GET("", sessionHandler.Get)
	s.POST("/register", sessionHandler.Register)
	s.POST("/login", sessionHandler.Login)
	s.POST("/logout", sessionHandler.Logout)
	s.POST("/check", sessionHandler.Check)
	s.PATCH("/user", sessionHandler.UpdateUser)
	s.DELETE("/error", sessionHandler.ClearError)

	viewHandler := handler.NewViewHandler(cfg.Sessions)
	browser.GET(middleware.LoginPath, viewHandler.Login)
	browser.GET(middleware.UnauthorizedPath, viewHandler.Unauthorized)
	for _, v := range cfg.Policy.Views {
		browser.GET(v.Path, viewHandler.Guarded(v), middleware.Gate(cfg.Sessions, v.Roles))
	}

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("client_id", middleware.ClientIDFrom(c)).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

func promConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	mc := echoprometheus.MiddlewareConfig{Subsystem: "servicehub"}
	if reg != nil {
		mc.Registerer = reg
	}
	return mc
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
