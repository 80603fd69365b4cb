package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/export"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/services"
)

// AddressHandler handles address HTTP requests.
type AddressHandler struct {
	service services.AddressService
}

// NewAddressHandler creates a new AddressHandler instance.
func NewAddressHandler(service services.AddressService) *AddressHandler {
	return &AddressHandler{service: service}
}

// Register mounts the address routes on rg.
func (h *AddressHandler) Register(rg *gin.RouterGroup) {
	addresses := rg.Group("/addresses")
	{
		addresses.GET("", h.List)
		addresses.GET("/rows", h.Rows)
		addresses.GET("/autocomplete", h.Autocomplete)
		addresses.POST("", h.Create)
		addresses.GET("/:id", h.Get)
		addresses.PATCH("/:id", h.Update)
		addresses.DELETE("/:id", h.Delete)
		addresses.PUT("/:id/map", h.Map)
		addresses.POST("/:id/approve", h.Approve)
		addresses.POST("/:id/flag", h.Flag)
		addresses.PUT("/:id/multi-unit", h.SetMultiUnit)
		addresses.POST("/:id/geocode", h.Geocode)
		addresses.GET("/:id/changes", h.Changes)
	}
}

// CreateResponse reports whether an address was saved or already existed.
type CreateResponse struct {
	Outcome dedup.Outcome `json:"outcome"`
	Address interface{}   `json:"address,omitempty"`
}

// MapRequest points an address at a parcel. A blank pl unmaps it.
type MapRequest struct {
	PL          string `json:"pl"`
	NeedsReview bool   `json:"needs_review"`
}

// MultiUnitRequest sets the multi-unit flag.
type MultiUnitRequest struct {
	MultiUnit *bool `json:"multi_unit" binding:"required"`
}

// AutocompleteRequest represents the query parameters for autocomplete.
type AutocompleteRequest struct {
	Query string `form:"q"`
}

// List handles GET /api/v1/addresses. Filter keys, sort and page come from
// the query string.
func (h *AddressHandler) List(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		serviceError(c, err, "Failed to list addresses")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Rows handles GET /api/v1/addresses/rows, the list rendered for display.
func (h *AddressHandler) Rows(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		serviceError(c, err, "Failed to list addresses")
		return
	}
	c.JSON(http.StatusOK, rowsResponse(export.Addresses(), page))
}

// Autocomplete handles GET /api/v1/addresses/autocomplete?q=.
func (h *AddressHandler) Autocomplete(c *gin.Context) {
	var req AutocompleteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.service.Autocomplete(c.Request.Context(), req.Query)
	if err != nil {
		serviceError(c, err, "Failed to autocomplete addresses")
		return
	}
	c.JSON(http.StatusOK, out)
}

// Create handles POST /api/v1/addresses. The body is a flat object of
// address columns. A duplicate answers 200 with no address.
func (h *AddressHandler) Create(c *gin.Context) {
	var fields map[string]string
	if err := c.ShouldBindJSON(&fields); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.service.Create(c.Request.Context(), middleware.GetActor(c), fields)
	if err != nil {
		serviceError(c, err, "Failed to create address")
		return
	}
	if res.Outcome == dedup.Duplicate {
		c.JSON(http.StatusOK, CreateResponse{Outcome: res.Outcome})
		return
	}
	c.JSON(http.StatusCreated, CreateResponse{Outcome: res.Outcome, Address: res.Address})
}

// Get handles GET /api/v1/addresses/:id.
func (h *AddressHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Failed to get address")
		return
	}
	c.JSON(http.StatusOK, a)
}

// Update handles PATCH /api/v1/addresses/:id.
func (h *AddressHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.AddressUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, change, err := h.service.Update(c.Request.Context(), id, middleware.GetActor(c), req)
	if err != nil {
		serviceError(c, err, "Failed to update address")
		return
	}
	c.JSON(http.StatusOK, MutationResponse{Address: a, Change: change})
}

// Map handles PUT /api/v1/addresses/:id/map.
func (h *AddressHandler) Map(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req MapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, change, err := h.service.Map(c.Request.Context(), id, middleware.GetActor(c), req.PL, req.NeedsReview)
	if err != nil {
		serviceError(c, err, "Failed to map address")
		return
	}
	c.JSON(http.StatusOK, MutationResponse{Address: a, Change: change})
}

// Approve handles POST /api/v1/addresses/:id/approve.
func (h *AddressHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, change, err := h.service.Approve(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		serviceError(c, err, "Failed to approve address")
		return
	}
	c.JSON(http.StatusOK, MutationResponse{Address: a, Change: change})
}

// Flag handles POST /api/v1/addresses/:id/flag.
func (h *AddressHandler) Flag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, change, err := h.service.Flag(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		serviceError(c, err, "Failed to flag address")
		return
	}
	c.JSON(http.StatusOK, MutationResponse{Address: a, Change: change})
}

// SetMultiUnit handles PUT /api/v1/addresses/:id/multi-unit.
func (h *AddressHandler) SetMultiUnit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req MultiUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	a, change, err := h.service.SetMultiUnit(c.Request.Context(), id, middleware.GetActor(c), *req.MultiUnit)
	if err != nil {
		serviceError(c, err, "Failed to update address")
		return
	}
	c.JSON(http.StatusOK, MutationResponse{Address: a, Change: change})
}

// Delete handles DELETE /api/v1/addresses/:id. Deleting twice is not an error.
func (h *AddressHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	change, err := h.service.Delete(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		serviceError(c, err, "Failed to delete address")
		return
	}
	c.JSON(http.StatusOK, MutationResponse{Change: change})
}

// Geocode handles POST /api/v1/addresses/:id/geocode.
func (h *AddressHandler) Geocode(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, change, err := h.service.Geocode(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		serviceError(c, err, "Failed to geocode address")
		return
	}
	c.JSON(http.StatusOK, MutationResponse{Address: a, Change: change})
}

// Changes handles GET /api/v1/addresses/:id/changes.
func (h *AddressHandler) Changes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	changes, err := h.service.Changes(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, "Failed to list address history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}
