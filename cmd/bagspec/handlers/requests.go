package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/cmd/bagspec/service"
	"github.com/vaayushanti/bagspec/common/logger"
)

// maxPatchBytes bounds a merge patch body
const maxPatchBytes = 64 << 10

// RequestHandler handles the admin endpoints that create and inspect form requests
type RequestHandler struct {
	lifecycle     *service.LifecycleService
	notifications *service.NotificationService
	log           *logger.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(c *container.Container) *RequestHandler {
	return &RequestHandler{
		lifecycle:     c.Lifecycle,
		notifications: c.Notifications,
		log:           c.Components.Logger,
	}
}

// SendForm creates a request and emails its link to the recipient. The
// request is kept when the email fails; the link is returned either way.
// POST /api/send-form
func (h *RequestHandler) SendForm(c echo.Context) error {
	ctx := c.Request().Context()

	var in models.RequestInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request data")
	}

	req, err := h.lifecycle.CreateRequest(ctx, in, in.RecipientEmail)
	if err != nil {
		return respondError(c, h.log, err)
	}

	formURL := h.notifications.FormURL(req.Token)
	result := h.notifications.SendFormLink(ctx, req, formURL)
	if err := result.Err(); err != nil {
		status, message := statusFor(err)
		return c.JSON(status, map[string]interface{}{
			"success":  false,
			"message":  message,
			"reason":   result.Reason,
			"form_url": formURL,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  fmt.Sprintf("Form link sent successfully to %s!%s", req.RecipientEmail, poSuffix(req)),
		"form_url": formURL,
	})
}

// GenerateLink creates a request without emailing it
// POST /api/generate-link
func (h *RequestHandler) GenerateLink(c echo.Context) error {
	var in models.RequestInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "Invalid request data")
	}

	req, err := h.lifecycle.CreateRequest(c.Request().Context(), in, models.DirectLinkRecipient)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Form link generated successfully!" + poSuffix(req),
		"form_url": h.notifications.FormURL(req.Token),
	})
}

// ListSubmissions returns every response, superseded ones included
// GET /api/submissions
func (h *RequestHandler) ListSubmissions(c echo.Context) error {
	responses, err := h.lifecycle.ListResponses(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"count":     len(responses),
		"responses": responses,
	})
}

// AmendRequest applies a JSON merge patch to a request's PO, quantity and size
// PATCH /api/requests/:token
func (h *RequestHandler) AmendRequest(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPatchBytes))
	if err != nil {
		return badRequest(c, "Invalid request data")
	}
	if len(body) == 0 {
		return badRequest(c, "Merge patch body is required")
	}

	req, err := h.lifecycle.AmendRequest(c.Request().Context(), c.Param("token"), body)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Request updated",
		"request": req,
	})
}

// RequestHistory returns a request with all its responses, newest first
// GET /api/requests/:token/history
func (h *RequestHandler) RequestHistory(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	req, err := h.lifecycle.ResolveRequest(ctx, token)
	if err != nil {
		return respondError(c, h.log, err)
	}

	responses, err := h.lifecycle.ResponseHistory(ctx, token)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"request":   req,
		"responses": responses,
	})
}

func poSuffix(req *models.Request) string {
	if req.PONumber == "" {
		return ""
	}
	return fmt.Sprintf(" (PO: %s)", req.PONumber)
}
