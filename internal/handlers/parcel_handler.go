package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/addressmap/internal/errors"
	"github.com/stwalsh4118/addressmap/internal/export"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/services"
)

// DefaultRadiusMeters is the nearby search radius when none is given.
const DefaultRadiusMeters = 1000

// MaxParcelFileSize caps the size of an uploaded parcel file.
const MaxParcelFileSize = 256 << 20

// ParcelHandler handles parcel-related HTTP requests.
type ParcelHandler struct {
	service services.ParcelService
	now     func() time.Time
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
		now:     time.Now,
	}
}

// Register mounts the parcel routes on rg.
func (h *ParcelHandler) Register(rg *gin.RouterGroup) {
	parcels := rg.Group("/parcels")
	{
		parcels.GET("/at-point", h.AtPoint)
		parcels.GET("/nearby", h.Nearby)
		parcels.GET("/mapped", h.Mapped)
		parcels.GET("/:pl", h.ByPL)
		parcels.PUT("", h.Load)
	}
}

// AtPointRequest represents the query parameters for the at-point endpoint.
type AtPointRequest struct {
	Lat float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lng float64 `form:"lng" binding:"required,min=-180,max=180"`
}

// NearbyRequest represents the query parameters for the nearby endpoint.
type NearbyRequest struct {
	Lat    float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lng    float64 `form:"lng" binding:"required,min=-180,max=180"`
	Radius int     `form:"radius" binding:"omitempty,min=1,max=5000"`
}

// ParcelResponse represents the response for single parcel endpoints.
type ParcelResponse struct {
	Parcel *models.Parcel `json:"parcel"`
}

// ParcelWithDistance is a nearby parcel and its distance from the query point.
type ParcelWithDistance struct {
	models.Parcel
	Distance float64 `json:"distance_meters"`
}

// NearbyResponse represents the response for the nearby endpoint.
type NearbyResponse struct {
	Parcels []ParcelWithDistance `json:"parcels"`
	Count   int                  `json:"count"`
}

// MappedResponse lists the parcels with at least one address, plus their
// display rows.
type MappedResponse struct {
	Parcels []models.Parcel     `json:"parcels"`
	Header  []string            `json:"header"`
	Rows    []map[string]string `json:"rows"`
}

// LoadResponse reports a parcel reload.
type LoadResponse struct {
	Loaded   int64     `json:"loaded"`
	LoadedAt time.Time `json:"loaded_at"`
}

// AtPoint handles GET /api/v1/parcels/at-point.
// It retrieves the parcel that contains the given lat/lng point.
func (h *ParcelHandler) AtPoint(c *gin.Context) {
	var req AtPointRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Processing at-point request", map[string]interface{}{
			"lat": req.Lat,
			"lng": req.Lng,
		})
	}

	parcel, err := h.service.GetParcelAtPoint(c.Request.Context(), req.Lat, req.Lng)
	if err != nil {
		serviceError(c, err, "Failed to query parcel data")
		return
	}
	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcel})
}

// Nearby handles GET /api/v1/parcels/nearby.
// It retrieves parcels within the radius of the given lat/lng point, nearest first.
func (h *ParcelHandler) Nearby(c *gin.Context) {
	var req NearbyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Radius == 0 {
		req.Radius = DefaultRadiusMeters
	}

	found, err := h.service.GetNearbyParcels(c.Request.Context(), req.Lat, req.Lng, req.Radius)
	if err != nil {
		serviceError(c, err, "Failed to query nearby parcels")
		return
	}

	parcels := make([]ParcelWithDistance, 0, len(found))
	for _, p := range found {
		parcels = append(parcels, ParcelWithDistance{Parcel: p.Parcel, Distance: p.Distance})
	}
	c.JSON(http.StatusOK, NearbyResponse{Parcels: parcels, Count: len(parcels)})
}

// Mapped handles GET /api/v1/parcels/mapped.
func (h *ParcelHandler) Mapped(c *gin.Context) {
	parcels, err := h.service.ListMappedParcels(c.Request.Context())
	if err != nil {
		serviceError(c, err, "Failed to list mapped parcels")
		return
	}
	s := export.Parcels()
	c.JSON(http.StatusOK, MappedResponse{Parcels: parcels, Header: s.Header(), Rows: s.Rows(parcels)})
}

// ByPL handles GET /api/v1/parcels/:pl.
func (h *ParcelHandler) ByPL(c *gin.Context) {
	pl := strings.TrimSpace(c.Param("pl"))
	if pl == "" {
		apierrors.BadRequest(c, "Invalid pl", nil)
		return
	}
	parcel, err := h.service.GetParcelByPL(c.Request.Context(), pl)
	if err != nil {
		serviceError(c, err, "Failed to query parcel data")
		return
	}
	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcel})
}

// Load handles PUT /api/v1/parcels. The body is a GeoJSON FeatureCollection
// that replaces every loaded parcel.
func (h *ParcelHandler) Load(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxParcelFileSize)
	loadedAt := h.now().UTC()

	n, err := h.service.LoadGeoJSON(c.Request.Context(), body, loadedAt, nil)
	if err != nil {
		serviceError(c, err, "Failed to load parcels")
		return
	}
	c.JSON(http.StatusOK, LoadResponse{Loaded: n, LoadedAt: loadedAt})
}
