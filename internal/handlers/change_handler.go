package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/addressmap/internal/export"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/services"
)

// ChangeHandler handles change history HTTP requests.
type ChangeHandler struct {
	service services.AddressService
}

// NewChangeHandler creates a new ChangeHandler instance.
func NewChangeHandler(service services.AddressService) *ChangeHandler {
	return &ChangeHandler{service: service}
}

// Register mounts the change routes on rg.
func (h *ChangeHandler) Register(rg *gin.RouterGroup) {
	changes := rg.Group("/changes")
	{
		changes.GET("", h.List)
		changes.GET("/rows", h.Rows)
		changes.GET("/autocomplete", h.Autocomplete)
		changes.POST("/:id/revert", h.Revert)
	}
}

// List handles GET /api/v1/changes.
func (h *ChangeHandler) List(c *gin.Context) {
	page, err := h.service.ListChanges(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		serviceError(c, err, "Failed to list changes")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Rows handles GET /api/v1/changes/rows.
func (h *ChangeHandler) Rows(c *gin.Context) {
	page, err := h.service.ListChanges(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		serviceError(c, err, "Failed to list changes")
		return
	}
	c.JSON(http.StatusOK, rowsResponse(export.Changes(), page))
}

// Autocomplete handles GET /api/v1/changes/autocomplete?q=.
func (h *ChangeHandler) Autocomplete(c *gin.Context) {
	var req AutocompleteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.service.ChangeAutocomplete(c.Request.Context(), req.Query)
	if err != nil {
		serviceError(c, err, "Failed to autocomplete changes")
		return
	}
	c.JSON(http.StatusOK, out)
}

// Revert handles POST /api/v1/changes/:id/revert. Fields edited since the
// change are left alone and listed under "conflict".
func (h *ChangeHandler) Revert(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.Revert(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		serviceError(c, err, "Failed to revert change")
		return
	}
	c.JSON(http.StatusOK, res)
}
