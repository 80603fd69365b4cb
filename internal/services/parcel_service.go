package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Radius validation constants
const (
	MinRadiusMeters = 1
	MaxRadiusMeters = 5000
)

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrParcelNotFound     = errors.New("parcel not found")
	ErrInvalidRadius      = errors.New("radius must be between 1 and 5000 meters")
	ErrInvalidParcelFile  = errors.New("invalid parcel file")
)

// ParcelService defines the interface for parcel business logic operations.
type ParcelService interface {
	// GetParcelAtPoint retrieves the parcel that contains the given lat/lng point.
	// Returns ErrInvalidCoordinates if coordinates are out of valid range.
	// Returns ErrParcelNotFound if no parcel exists at the point.
	// Returns error for database failures.
	GetParcelAtPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error)

	// GetNearbyParcels retrieves all parcels within the specified radius of the given point.
	// Returns ErrInvalidCoordinates if coordinates are out of valid range.
	// Returns ErrInvalidRadius if radius is not between 1 and 5000 meters.
	// Returns empty slice if no parcels found (not an error).
	// Returns error for database failures.
	GetNearbyParcels(ctx context.Context, lat, lng float64, radiusMeters int) ([]repository.ParcelWithDistance, error)

	// GetParcelByPL returns ErrParcelNotFound when no parcel carries pl.
	GetParcelByPL(ctx context.Context, pl string) (*models.Parcel, error)

	// ListMappedParcels returns the parcels at least one live address points at.
	ListMappedParcels(ctx context.Context) ([]models.Parcel, error)

	// ReplaceParcels deletes every parcel and loads parcels in one
	// transaction, stamping each with loadedAt. A repeated pl fails with
	// repository.ErrDuplicatePL and leaves the old parcels in place.
	ReplaceParcels(ctx context.Context, parcels []models.Parcel, loadedAt time.Time, progress repository.ProgressFunc) (int64, error)

	// LoadGeoJSON decodes a parcel FeatureCollection and replaces the
	// parcel table with it. Decoding problems wrap ErrInvalidParcelFile.
	LoadGeoJSON(ctx context.Context, r io.Reader, loadedAt time.Time, progress repository.ProgressFunc) (int64, error)
}

// parcelService is the concrete implementation of ParcelService.
type parcelService struct {
	store repository.Store
	log   *logger.Logger
}

// NewParcelService creates a new instance of ParcelService.
func NewParcelService(store repository.Store, log *logger.Logger) ParcelService {
	return &parcelService{
		store: store,
		log:   log,
	}
}

// checkPoint rejects coordinates outside the WGS84 range.
func checkPoint(lat, lng float64) error {
	if lat < MinLatitude || lat > MaxLatitude {
		return fmt.Errorf("%w: latitude must be between %.0f and %.0f, got %f",
			ErrInvalidCoordinates, MinLatitude, MaxLatitude, lat)
	}
	if lng < MinLongitude || lng > MaxLongitude {
		return fmt.Errorf("%w: longitude must be between %.0f and %.0f, got %f",
			ErrInvalidCoordinates, MinLongitude, MaxLongitude, lng)
	}
	return nil
}

// GetParcelAtPoint returns the parcel whose geometry contains the point.
func (s *parcelService) GetParcelAtPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error) {
	fields := map[string]interface{}{"lat": lat, "lng": lng}
	if err := checkPoint(lat, lng); err != nil {
		s.log.Warn("Invalid point", withReason(fields, err))
		return nil, err
	}

	parcel, err := s.store.Parcels().FindByPoint(ctx, lat, lng)
	if err != nil {
		s.log.Error("Failed to query parcel at point", err, fields)
		return nil, fmt.Errorf("failed to query parcel: %w", err)
	}
	if parcel == nil {
		s.log.Debug("No parcel at point", fields)
		return nil, ErrParcelNotFound
	}

	fields["pl"] = parcel.PL
	s.log.Info("Parcel found at point", fields)
	return parcel, nil
}

// GetNearbyParcels returns the parcels within radiusMeters of the point,
// nearest first.
func (s *parcelService) GetNearbyParcels(ctx context.Context, lat, lng float64, radiusMeters int) ([]repository.ParcelWithDistance, error) {
	fields := map[string]interface{}{"lat": lat, "lng": lng, "radius": radiusMeters}
	err := checkPoint(lat, lng)
	if err == nil && (radiusMeters < MinRadiusMeters || radiusMeters > MaxRadiusMeters) {
		err = fmt.Errorf("%w: got %d", ErrInvalidRadius, radiusMeters)
	}
	if err != nil {
		s.log.Warn("Invalid nearby query", withReason(fields, err))
		return nil, err
	}

	parcels, err := s.store.Parcels().FindNearby(ctx, lat, lng, radiusMeters)
	if err != nil {
		s.log.Error("Failed to query nearby parcels", err, fields)
		return nil, fmt.Errorf("failed to query nearby parcels: %w", err)
	}

	fields["count"] = len(parcels)
	s.log.Info("Nearby parcels found", fields)
	return parcels, nil
}

// GetParcelByPL looks up a parcel by its locator code.
func (s *parcelService) GetParcelByPL(ctx context.Context, pl string) (*models.Parcel, error) {
	parcel, err := s.store.Parcels().FindByPL(ctx, pl)
	if err != nil {
		s.log.Error("Failed to query parcel by pl", err, map[string]interface{}{
			"pl": pl,
		})
		return nil, fmt.Errorf("failed to query parcel: %w", err)
	}
	if parcel == nil {
		return nil, ErrParcelNotFound
	}
	return parcel, nil
}

// ListMappedParcels returns every parcel referenced by a live address.
func (s *parcelService) ListMappedParcels(ctx context.Context) ([]models.Parcel, error) {
	parcels, err := s.store.Parcels().ListMapped(ctx)
	if err != nil {
		s.log.Error("Failed to list mapped parcels", err, nil)
		return nil, fmt.Errorf("failed to list mapped parcels: %w", err)
	}

	s.log.Debug("Mapped parcels listed", map[string]interface{}{
		"count": len(parcels),
	})
	return parcels, nil
}

// ReplaceParcels swaps the whole parcel table inside one transaction.
func (s *parcelService) ReplaceParcels(ctx context.Context, parcels []models.Parcel, loadedAt time.Time, progress repository.ProgressFunc) (int64, error) {
	s.log.Info("Replacing parcels", map[string]interface{}{
		"count":     len(parcels),
		"loaded_at": loadedAt,
	})

	var loaded int64
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		n, err := tx.Parcels().ReplaceAll(ctx, parcels, loadedAt, progress)
		loaded = n
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePL) {
			s.log.Warn("Parcel load rejected", map[string]interface{}{
				"reason": err.Error(),
			})
			return 0, err
		}
		s.log.Error("Failed to replace parcels", err, nil)
		return 0, fmt.Errorf("failed to replace parcels: %w", err)
	}

	s.log.Info("Parcels replaced", map[string]interface{}{
		"loaded": loaded,
	})
	return loaded, nil
}

// LoadGeoJSON reads a FeatureCollection and replaces the parcel table.
func (s *parcelService) LoadGeoJSON(ctx context.Context, r io.Reader, loadedAt time.Time, progress repository.ProgressFunc) (int64, error) {
	parcels, err := models.DecodeParcels(r)
	if err != nil {
		s.log.Warn("Invalid parcel file", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, fmt.Errorf("%w: %v", ErrInvalidParcelFile, err)
	}
	return s.ReplaceParcels(ctx, parcels, loadedAt, progress)
}
