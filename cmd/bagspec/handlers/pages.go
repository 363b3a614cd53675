package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/middleware"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/cmd/bagspec/service"
	"github.com/vaayushanti/bagspec/cmd/bagspec/views"
	"github.com/vaayushanti/bagspec/common/logger"
)

// PageHandler renders the HTML pages
type PageHandler struct {
	lifecycle *service.LifecycleService
	log       *logger.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(c *container.Container) *PageHandler {
	return &PageHandler{
		lifecycle: c.Lifecycle,
		log:       c.Components.Logger,
	}
}

// Dashboard renders the admin sender page
// GET / and GET /sender
func (h *PageHandler) Dashboard(c echo.Context) error {
	return c.Render(http.StatusOK, views.PageDashboard, views.DashboardPage{
		Title:    "Filter Bag Specification - Send Form",
		Username: middleware.GetUsername(c),
		BagTypes: models.BagTypes,
	})
}

// Form renders the client form for a token, prefilled with the current
// response when there is one
// GET /form/:token
func (h *PageHandler) Form(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	req, err := h.lifecycle.ResolveRequest(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.Render(http.StatusNotFound, views.PageInvalidLink, views.InvalidLinkPage{
				Title: "Invalid Link",
			})
		}
		return h.serverError(c, err)
	}

	current, err := h.lifecycle.CurrentResponse(ctx, token)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return h.serverError(c, err)
	}

	return c.Render(http.StatusOK, views.PageForm, views.FormPage{
		Title:    "Filter Bag Specification Form",
		Token:    req.Token,
		Request:  req,
		Current:  current,
		BagTypes: models.BagTypes,
	})
}

// Submissions renders every response, newest first
// GET /submissions
func (h *PageHandler) Submissions(c echo.Context) error {
	responses, err := h.lifecycle.ListResponses(c.Request().Context())
	if err != nil {
		return h.serverError(c, err)
	}

	current := 0
	for _, resp := range responses {
		if resp.Current() {
			current++
		}
	}

	return c.Render(http.StatusOK, views.PageSubmissions, views.SubmissionsPage{
		Title:     "Filter Bag Submissions",
		Responses: responses,
		Current:   current,
	})
}

func (h *PageHandler) serverError(c echo.Context, err error) error {
	h.log.WithRequestID(requestID(c)).Error("page render failed", "path", c.Path(), "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong. Please try again.")
}
