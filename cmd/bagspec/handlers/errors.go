package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
	"github.com/vaayushanti/bagspec/common/logger"
)

// statusFor maps a service error to an HTTP status and a message safe to show
func statusFor(err error) (int, string) {
	var missing *models.MissingFieldError
	var invalid *models.ValidationError

	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest, missing.Error()
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Message
	case errors.Is(err, models.ErrEmptySubmission):
		return http.StatusBadRequest, "Please add bag specification"
	case errors.Is(err, models.ErrInvalidLink):
		return http.StatusNotFound, "Invalid form link. Please request a new link from the sender."
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Form link not found"
	case errors.Is(err, models.ErrSizeNotFound):
		return http.StatusNotFound, "Size not found"
	case errors.Is(err, models.ErrDuplicateSize):
		return http.StatusConflict, "This size already exists"
	case errors.Is(err, models.ErrTokenCollision):
		return http.StatusConflict, "Could not create a unique link, please try again"
	case errors.Is(err, models.ErrNotification):
		return http.StatusBadGateway, "Failed to send email. Please check email settings."
	default:
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

// respondError writes the standard failure body. Server errors are logged
// with their cause; the cause is never sent to the client.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithRequestID(requestID(c)).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	return c.JSON(status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
