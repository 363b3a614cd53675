package routes

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/common/logger"
)

// NewEcho builds the echo instance with middleware, health check and all routes
func NewEcho(c *container.Container) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = c.Views

	setupMiddleware(e, c.Components.Logger)
	setupHealthCheck(e, c)

	RegisterAuthRoutes(e, c)
	RegisterPublicRoutes(e, c)
	RegisterAdminRoutes(e, c)

	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, log *logger.Logger) {
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", redactToken(v.URI)),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			log.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, c *container.Container) {
	e.GET("/health", func(ctx echo.Context) error {
		if err := c.Components.Health(ctx.Request().Context()); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": c.Components.Config.Service.Name,
				"error":   err.Error(),
			})
		}
		return ctx.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": c.Components.Config.Service.Name,
		})
	})
}

// tokenRoutes are path prefixes followed by a form token
var tokenRoutes = []string{"/form/", "/api/submit-form/", "/api/requests/"}

// redactToken shortens the form token in a request URI before it is logged
func redactToken(uri string) string {
	for _, prefix := range tokenRoutes {
		rest, ok := strings.CutPrefix(uri, prefix)
		if !ok {
			continue
		}
		token, tail, found := strings.Cut(rest, "/")
		if found {
			tail = "/" + tail
		}
		return prefix + logger.ShortToken(token) + tail
	}
	return uri
}
