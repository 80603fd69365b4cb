package services

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/addressmap/internal/filter"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/repository/repositorytest"
)

// mockStore is an in-memory store whose repositories can be swapped for mocks.
type mockStore struct {
	*repositorytest.Store
	addresses repository.AddressRepository
	changes   repository.ChangeRepository
	batches   repository.BatchRepository
	parcels   repository.ParcelRepository
}

func newMockStore() *mockStore {
	return &mockStore{Store: repositorytest.New()}
}

func (s *mockStore) Addresses() repository.AddressRepository {
	if s.addresses != nil {
		return s.addresses
	}
	return s.Store.Addresses()
}

func (s *mockStore) Changes() repository.ChangeRepository {
	if s.changes != nil {
		return s.changes
	}
	return s.Store.Changes()
}

func (s *mockStore) Batches() repository.BatchRepository {
	if s.batches != nil {
		return s.batches
	}
	return s.Store.Batches()
}

func (s *mockStore) Parcels() repository.ParcelRepository {
	if s.parcels != nil {
		return s.parcels
	}
	return s.Store.Parcels()
}

// MockParcelRepository is a mock implementation of ParcelRepository for testing
type MockParcelRepository struct {
	mock.Mock
}

func (m *MockParcelRepository) FindByPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	parcel, ok := args.Get(0).(*models.Parcel)
	if !ok {
		return nil, args.Error(1)
	}
	return parcel, args.Error(1)
}

func (m *MockParcelRepository) FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]repository.ParcelWithDistance, error) {
	args := m.Called(ctx, lat, lng, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ParcelWithDistance), args.Error(1)
}

func (m *MockParcelRepository) FindByPL(ctx context.Context, pl string) (*models.Parcel, error) {
	args := m.Called(ctx, pl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Parcel), args.Error(1)
}

func (m *MockParcelRepository) ListMapped(ctx context.Context) ([]models.Parcel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Parcel), args.Error(1)
}

func (m *MockParcelRepository) ReplaceAll(ctx context.Context, parcels []models.Parcel, loadedAt time.Time, progress repository.ProgressFunc) (int64, error) {
	args := m.Called(ctx, parcels, loadedAt, progress)
	return args.Get(0).(int64), args.Error(1)
}

// MockAddressRepository mocks the query side of AddressRepository. Writes
// are not expected through it.
type MockAddressRepository struct {
	mock.Mock
	repository.AddressRepository
}

func (m *MockAddressRepository) Get(ctx context.Context, id int64) (*models.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Address), args.Error(1)
}

func (m *MockAddressRepository) List(ctx context.Context, q repository.ListQuery) ([]models.Address, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Address), args.Error(1)
}

func (m *MockAddressRepository) Count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	args := m.Called(ctx, where)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAddressRepository) Values(ctx context.Context, field filter.AutocompleteField, prefix string, limit int) ([]filter.Candidate, error) {
	args := m.Called(ctx, field, prefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]filter.Candidate), args.Error(1)
}

// MockChangeRepository mocks the list side of ChangeRepository.
type MockChangeRepository struct {
	mock.Mock
	repository.ChangeRepository
}

func (m *MockChangeRepository) List(ctx context.Context, q repository.ListQuery) ([]models.AddressChange, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AddressChange), args.Error(1)
}

func (m *MockChangeRepository) Count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	args := m.Called(ctx, where)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChangeRepository) Values(ctx context.Context, field filter.AutocompleteField, prefix string, limit int) ([]filter.Candidate, error) {
	args := m.Called(ctx, field, prefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]filter.Candidate), args.Error(1)
}
