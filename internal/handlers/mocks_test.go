package handlers

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/filter"
	"github.com/stwalsh4118/addressmap/internal/history"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/middleware"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter creates a router with the request middleware the server uses.
func newTestRouter() *gin.Engine {
	log := logger.New("test")
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Actor())
	router.Use(middleware.Logger(log))
	return router
}

// MockAddressService is a mock implementation of services.AddressService.
type MockAddressService struct {
	mock.Mock
}

func (m *MockAddressService) Create(ctx context.Context, actor string, fields map[string]string) (dedup.Result, error) {
	args := m.Called(ctx, actor, fields)
	return args.Get(0).(dedup.Result), args.Error(1)
}

func (m *MockAddressService) Get(ctx context.Context, id int64) (*models.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Address), args.Error(1)
}

func (m *MockAddressService) List(ctx context.Context, params url.Values) (*services.Page[models.Address], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Page[models.Address]), args.Error(1)
}

func (m *MockAddressService) Autocomplete(ctx context.Context, query string) (filter.Suggestions, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(filter.Suggestions), args.Error(1)
}

func (m *MockAddressService) mutation(args mock.Arguments) (*models.Address, *models.AddressChange, error) {
	var (
		a      *models.Address
		change *models.AddressChange
	)
	if v := args.Get(0); v != nil {
		a = v.(*models.Address)
	}
	if v := args.Get(1); v != nil {
		change = v.(*models.AddressChange)
	}
	return a, change, args.Error(2)
}

func (m *MockAddressService) Update(ctx context.Context, id int64, actor string, update services.AddressUpdate) (*models.Address, *models.AddressChange, error) {
	return m.mutation(m.Called(ctx, id, actor, update))
}

func (m *MockAddressService) Map(ctx context.Context, id int64, actor, pl string, needsReview bool) (*models.Address, *models.AddressChange, error) {
	return m.mutation(m.Called(ctx, id, actor, pl, needsReview))
}

func (m *MockAddressService) Approve(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error) {
	return m.mutation(m.Called(ctx, id, actor))
}

func (m *MockAddressService) Flag(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error) {
	return m.mutation(m.Called(ctx, id, actor))
}

func (m *MockAddressService) SetMultiUnit(ctx context.Context, id int64, actor string, multiUnit bool) (*models.Address, *models.AddressChange, error) {
	return m.mutation(m.Called(ctx, id, actor, multiUnit))
}

func (m *MockAddressService) Delete(ctx context.Context, id int64, actor string) (*models.AddressChange, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AddressChange), args.Error(1)
}

func (m *MockAddressService) Geocode(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error) {
	return m.mutation(m.Called(ctx, id, actor))
}

func (m *MockAddressService) Changes(ctx context.Context, id int64) ([]models.AddressChange, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AddressChange), args.Error(1)
}

func (m *MockAddressService) ListChanges(ctx context.Context, params url.Values) (*services.Page[models.AddressChange], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Page[models.AddressChange]), args.Error(1)
}

func (m *MockAddressService) ChangeAutocomplete(ctx context.Context, query string) (filter.Suggestions, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(filter.Suggestions), args.Error(1)
}

func (m *MockAddressService) Revert(ctx context.Context, changeID int64, actor string) (history.RevertResult, error) {
	args := m.Called(ctx, changeID, actor)
	return args.Get(0).(history.RevertResult), args.Error(1)
}

// MockImportService is a mock implementation of services.ImportService.
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Import(ctx context.Context, req services.ImportRequest, src io.Reader) (*services.ImportOutcome, error) {
	body, _ := io.ReadAll(src)
	args := m.Called(ctx, req, string(body))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ImportOutcome), args.Error(1)
}

func (m *MockImportService) ListBatches(ctx context.Context, params url.Values) (*services.Page[models.BatchSummary], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Page[models.BatchSummary]), args.Error(1)
}

// MockParcelService is a mock implementation of services.ParcelService.
type MockParcelService struct {
	mock.Mock
}

func (m *MockParcelService) GetParcelAtPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Parcel), args.Error(1)
}

func (m *MockParcelService) GetNearbyParcels(ctx context.Context, lat, lng float64, radiusMeters int) ([]repository.ParcelWithDistance, error) {
	args := m.Called(ctx, lat, lng, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ParcelWithDistance), args.Error(1)
}

func (m *MockParcelService) GetParcelByPL(ctx context.Context, pl string) (*models.Parcel, error) {
	args := m.Called(ctx, pl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Parcel), args.Error(1)
}

func (m *MockParcelService) ListMappedParcels(ctx context.Context) ([]models.Parcel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Parcel), args.Error(1)
}

func (m *MockParcelService) ReplaceParcels(ctx context.Context, parcels []models.Parcel, loadedAt time.Time, progress repository.ProgressFunc) (int64, error) {
	args := m.Called(ctx, parcels, loadedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockParcelService) LoadGeoJSON(ctx context.Context, r io.Reader, loadedAt time.Time, progress repository.ProgressFunc) (int64, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, string(body), loadedAt)
	return args.Get(0).(int64), args.Error(1)
}
