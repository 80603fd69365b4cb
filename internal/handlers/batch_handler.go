package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/addressmap/internal/errors"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/services"
)

// MaxImportSize caps the size of an uploaded import file.
const MaxImportSize = 32 << 20

// BatchHandler handles import batch HTTP requests.
type BatchHandler struct {
	service services.ImportService
}

// NewBatchHandler creates a new BatchHandler instance.
func NewBatchHandler(service services.ImportService) *BatchHandler {
	return &BatchHandler{service: service}
}

// Register mounts the batch routes on rg.
func (h *BatchHandler) Register(rg *gin.RouterGroup) {
	batches := rg.Group("/batches")
	{
		batches.GET("", h.List)
		batches.POST("", h.Import)
	}
}

// ImportParams represents the query parameters of an import.
type ImportParams struct {
	Tag        string `form:"tag" binding:"required"`
	Format     string `form:"format"`
	Columns    string `form:"columns"`
	SkipHeader bool   `form:"skip_header"`
}

// List handles GET /api/v1/batches.
func (h *BatchHandler) List(c *gin.Context) {
	page, err := h.service.ListBatches(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		serviceError(c, err, "Failed to list batches")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Import handles POST /api/v1/batches. The file comes either as the "file"
// part of a multipart form or as the raw request body. The format defaults
// to the uploaded file's extension.
func (h *BatchHandler) Import(c *gin.Context) {
	var params ImportParams
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}

	var (
		src    io.Reader
		source string
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			apierrors.BadRequest(c, "Missing file upload", nil)
			return
		}
		if fh.Size > MaxImportSize {
			apierrors.BadRequest(c, "Import file is too large", map[string]interface{}{
				"max_bytes": MaxImportSize,
			})
			return
		}
		f, err := fh.Open()
		if err != nil {
			apierrors.InternalServerError(c, "Failed to read upload", err)
			return
		}
		defer f.Close()
		src, source = f, fh.Filename
	} else {
		src = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportSize)
	}

	format := params.Format
	if format == "" && source != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")
	}

	var columns []string
	if params.Columns != "" {
		columns = strings.Split(params.Columns, ",")
	}

	out, err := h.service.Import(c.Request.Context(), services.ImportRequest{
		Tag:        params.Tag,
		Actor:      middleware.GetActor(c),
		Source:     source,
		Format:     format,
		Columns:    columns,
		SkipHeader: params.SkipHeader,
	}, src)
	if err != nil {
		serviceError(c, err, "Failed to import addresses")
		return
	}
	c.JSON(http.StatusCreated, out)
}
