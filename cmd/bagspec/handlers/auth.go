package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/middleware"
	"github.com/vaayushanti/bagspec/cmd/bagspec/views"
	"github.com/vaayushanti/bagspec/common/logger"
)

// AuthHandler handles admin login and logout
type AuthHandler struct {
	auth *middleware.Authenticator
	log  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(c *container.Container) *AuthHandler {
	return &AuthHandler{
		auth: c.Auth,
		log:  c.Components.Logger,
	}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginPage renders the login form
// GET /admin/login
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, views.PageLogin, views.LoginPage{Title: "Admin Login"})
}

// Login checks credentials and sets the session cookie. Accepts an HTML
// form post or a JSON body; JSON callers get JSON back.
// POST /admin/login
func (h *AuthHandler) Login(c echo.Context) error {
	wantsJSON := strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		if wantsJSON {
			return badRequest(c, "Invalid request data")
		}
		return c.Render(http.StatusBadRequest, views.PageLogin, views.LoginPage{
			Title: "Admin Login",
			Error: "Invalid request data.",
		})
	}

	if !h.auth.CheckCredentials(req.Username, req.Password) {
		h.log.Warn("admin login failed", "ip", c.RealIP())
		if wantsJSON {
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"message": "Invalid username or password.",
			})
		}
		return c.Render(http.StatusUnauthorized, views.PageLogin, views.LoginPage{
			Title:    "Admin Login",
			Username: strings.TrimSpace(req.Username),
			Error:    "Invalid username or password.",
		})
	}

	cookie, err := h.auth.IssueSession()
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.SetCookie(cookie)

	h.log.Info("admin logged in", "ip", c.RealIP())

	if wantsJSON {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Logged in",
		})
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout clears the session
// GET /admin/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.auth.ClearSession())
	return c.Redirect(http.StatusFound, middleware.LoginPath)
}
