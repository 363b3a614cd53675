package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/handlers"
	commonmw "github.com/vaayushanti/bagspec/common/middleware"
)

// RegisterPublicRoutes registers the client-facing form routes. They are
// rate limited per client IP when a limiter is configured.
func RegisterPublicRoutes(e *echo.Echo, c *container.Container) {
	pages := handlers.NewPageHandler(c)
	submissions := handlers.NewSubmissionHandler(c)
	sizes := handlers.NewSizeHandler(c)

	limit := commonmw.ClientRateLimitMiddleware(c.RateLimiter, c.PublicLimit)

	e.GET("/form/:token", pages.Form, limit)                         // GET /form/{token}
	e.POST("/api/submit-form/:token", submissions.SubmitForm, limit) // POST /api/submit-form/{token}
	e.GET("/api/sizes/:bagType", sizes.ListSizes, limit)             // GET /api/sizes/{bag_type}
}
