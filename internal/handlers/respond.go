package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/addressmap/internal/errors"
	"github.com/stwalsh4118/addressmap/internal/export"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/services"
)

// MutationResponse is returned by every address change. Change is null
// when the request changed nothing.
type MutationResponse struct {
	Address interface{} `json:"address,omitempty"`
	Change  interface{} `json:"change"`
}

// RowsResponse carries list results flattened to display strings.
type RowsResponse struct {
	Header []string            `json:"header"`
	Rows   []map[string]string `json:"rows"`
	Total  int64               `json:"total"`
	Page   int                 `json:"page"`
}

func rowsResponse[T any](s *export.Serializer[T], page *services.Page[T]) RowsResponse {
	return RowsResponse{
		Header: s.Header(),
		Rows:   s.Rows(page.Items),
		Total:  page.Total,
		Page:   page.Page,
	}
}

// pathID parses the named path parameter as a positive id, writing a 400
// response when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		apierrors.BadRequest(c, "Invalid "+name, map[string]interface{}{
			name: c.Param(name),
		})
		return 0, false
	}
	return id, true
}

// bindError renders a failed request binding.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		apierrors.ValidationError(c, verrs)
		return
	}
	apierrors.BadRequest(c, "Invalid request body", nil)
}

// serviceError renders an error returned by a service. msg is the client
// message used for unexpected failures.
func serviceError(c *gin.Context, err error, msg string) {
	if apierrors.Domain(c, err) {
		return
	}
	switch {
	case errors.Is(err, services.ErrAddressNotFound),
		errors.Is(err, services.ErrChangeNotFound),
		errors.Is(err, services.ErrParcelNotFound),
		errors.Is(err, services.ErrNoGeocodeMatch):
		apierrors.NotFound(c, capitalize(err.Error()))
	case errors.Is(err, services.ErrAddressDeleted),
		errors.Is(err, services.ErrNotMapped),
		errors.Is(err, repository.ErrDuplicatePL):
		apierrors.Conflict(c, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCoordinates),
		errors.Is(err, services.ErrInvalidRadius),
		errors.Is(err, services.ErrInvalidParcelFile),
		errors.Is(err, services.ErrUnsupportedFormat):
		apierrors.BadRequest(c, err.Error(), nil)
	case errors.Is(err, services.ErrGeocoderUnavailable):
		// The cause is logged by the service; only the sentinel reaches the client.
		apierrors.ServiceUnavailable(c, capitalize(services.ErrGeocoderUnavailable.Error()))
	default:
		apierrors.InternalServerError(c, msg, err)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
