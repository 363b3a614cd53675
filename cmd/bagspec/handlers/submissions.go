package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/cmd/bagspec/service"
	"github.com/vaayushanti/bagspec/common/logger"
)

// SubmissionHandler accepts client form submissions
type SubmissionHandler struct {
	lifecycle *service.LifecycleService
	log       *logger.Logger
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(c *container.Container) *SubmissionHandler {
	return &SubmissionHandler{
		lifecycle: c.Lifecycle,
		log:       c.Components.Logger,
	}
}

// SubmitForm stores a client's bag specification for a token. Notices are
// queued and never delay the reply.
// POST /api/submit-form/:token
func (h *SubmissionHandler) SubmitForm(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	// Unknown links are reported before the body is looked at
	if _, err := h.lifecycle.ResolveRequest(ctx, token); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			err = models.ErrInvalidLink
		}
		return respondError(c, h.log, err)
	}

	var payload models.SubmitPayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "Invalid request data")
	}

	if _, err := h.lifecycle.SubmitResponse(ctx, token, &payload); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Successfully submitted bag specification! Thank you for your response.",
		"bags_count": 1,
	})
}
