package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/handlers"
)

// RegisterAuthRoutes registers admin login and logout
func RegisterAuthRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewAuthHandler(c)

	admin := e.Group("/admin")
	{
		admin.GET("/login", h.LoginPage) // GET /admin/login
		admin.POST("/login", h.Login)    // POST /admin/login
		admin.GET("/logout", h.Logout)   // GET /admin/logout
	}
}

// RegisterAdminRoutes registers the dashboard pages and admin API. Pages
// redirect to the login form without a session; API routes answer 401.
func RegisterAdminRoutes(e *echo.Echo, c *container.Container) {
	pages := handlers.NewPageHandler(c)
	requests := handlers.NewRequestHandler(c)
	sizes := handlers.NewSizeHandler(c)

	html := e.Group("", c.Auth.RequireAdmin(true))
	{
		html.GET("/", pages.Dashboard)              // GET /
		html.GET("/sender", pages.Dashboard)        // GET /sender
		html.GET("/submissions", pages.Submissions) // GET /submissions
	}

	api := e.Group("/api", c.Auth.RequireAdmin(false))
	{
		api.POST("/send-form", requests.SendForm)                    // POST /api/send-form
		api.POST("/generate-link", requests.GenerateLink)            // POST /api/generate-link
		api.GET("/submissions", requests.ListSubmissions)            // GET /api/submissions
		api.PATCH("/requests/:token", requests.AmendRequest)         // PATCH /api/requests/{token}
		api.GET("/requests/:token/history", requests.RequestHistory) // GET /api/requests/{token}/history
		api.POST("/sizes", sizes.AddSize)                            // POST /api/sizes
		api.DELETE("/sizes/:id", sizes.DeleteSize)                   // DELETE /api/sizes/{id}
	}
}
