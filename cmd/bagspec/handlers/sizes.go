package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/container"
	"github.com/vaayushanti/bagspec/cmd/bagspec/service"
	"github.com/vaayushanti/bagspec/common/logger"
)

// SizeHandler handles the size catalog endpoints
type SizeHandler struct {
	sizes *service.SizeService
	log   *logger.Logger
}

// NewSizeHandler creates a new size handler
func NewSizeHandler(c *container.Container) *SizeHandler {
	return &SizeHandler{
		sizes: c.Sizes,
		log:   c.Components.Logger,
	}
}

// ListSizes returns the sizes for one bag type, newest first
// GET /api/sizes/:bagType
func (h *SizeHandler) ListSizes(c echo.Context) error {
	sizes, err := h.sizes.ListSizes(c.Request().Context(), c.Param("bagType"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	out := make([]map[string]interface{}, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, map[string]interface{}{
			"id":        s.ID,
			"size_name": s.SizeName,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"sizes":   out,
	})
}

// AddSize adds a size to the catalog
// POST /api/sizes
func (h *SizeHandler) AddSize(c echo.Context) error {
	var req struct {
		SizeName string `json:"size_name"`
		BagType  string `json:"bag_type"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request data")
	}

	entry, err := h.sizes.AddSize(c.Request().Context(), req.SizeName, req.BagType)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Size %q added successfully", entry.SizeName),
		"size": map[string]interface{}{
			"id":        entry.ID,
			"size_name": entry.SizeName,
			"bag_type":  entry.BagType,
		},
	})
}

// DeleteSize removes a size from the catalog
// DELETE /api/sizes/:id
func (h *SizeHandler) DeleteSize(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return badRequest(c, "Invalid size id")
	}

	if err := h.sizes.DeleteSize(c.Request().Context(), id); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Size deleted successfully",
	})
}
