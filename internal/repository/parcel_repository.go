package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/addressmap/internal/database"
	"github.com/stwalsh4118/addressmap/internal/models"
)

// ParcelWithDistance represents a parcel with its distance from a reference point.
type ParcelWithDistance struct {
	Parcel   models.Parcel
	Distance float64 // Distance in meters
}

// ProgressFunc receives the number of rows handled so far and the total.
type ProgressFunc func(done, total int)

// ParcelRepository defines the interface for parcel data access operations.
type ParcelRepository interface {
	// FindByPoint finds the parcel that contains the given lat/lng point.
	// Returns nil, nil if no parcel is found (not an error).
	FindByPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error)

	// FindNearby finds all parcels within the specified radius of the given point.
	// Results are ordered by distance (closest first).
	FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]ParcelWithDistance, error)

	// FindByPL returns nil, nil when no parcel carries pl.
	FindByPL(ctx context.Context, pl string) (*models.Parcel, error)

	// ListMapped returns the parcels referenced by at least one non-deleted
	// address.
	ListMapped(ctx context.Context) ([]models.Parcel, error)

	// ReplaceAll deletes every parcel and loads parcels, all stamped with
	// loadedAt. A repeated pl fails the whole load with ErrDuplicatePL. The
	// caller owns the transaction scope; run it inside Store.InTx.
	ReplaceAll(ctx context.Context, parcels []models.Parcel, loadedAt time.Time, progress ProgressFunc) (int64, error)
}

type parcelRepository struct {
	db database.DBTX
}

// NewParcelRepository creates a new instance of ParcelRepository.
func NewParcelRepository(db database.DBTX) ParcelRepository {
	return &parcelRepository{db: db}
}

var parcelColumns = []string{
	"parcels.id",
	"parcels.pl",
	"parcels.owner_name",
	"parcels.classification",
	"ST_AsGeoJSON(parcels.geom) AS geom",
	"parcels.loaded_at",
}

// Maximum number of parcels to return from nearby query
const maxNearbyResults = 20

// progressEvery is how many COPY rows pass between progress callbacks.
const progressEvery = 500

// FindByPoint uses ST_Contains on the GiST-indexed geometry.
//
// Note: PostGIS functions expect (longitude, latitude) order, not (lat, lng).
func (r *parcelRepository) FindByPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error) {
	parcels, err := r.collect(ctx, psql.Select(parcelColumns...).From("parcels").
		Where(sq.Expr("ST_Contains(parcels.geom, ST_SetSRID(ST_MakePoint(?, ?), 4326))", lng, lat)).
		Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel at point (lat=%f, lng=%f): %w", lat, lng, err)
	}
	if len(parcels) == 0 {
		return nil, nil
	}
	return &parcels[0], nil
}

// FindNearby uses ST_DWithin with geography casting for distances in meters.
//
// Note: PostGIS functions expect (longitude, latitude) order, not (lat, lng).
func (r *parcelRepository) FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]ParcelWithDistance, error) {
	query := `
		SELECT
			id, pl, owner_name, classification,
			ST_AsGeoJSON(geom) AS geom,
			loaded_at,
			ST_Distance(
				geom::geography,
				ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
			) AS distance_meters
		FROM parcels
		WHERE ST_DWithin(
			geom::geography,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
			$3
		)
		ORDER BY distance_meters
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, lng, lat, radiusMeters, maxNearbyResults)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby parcels (lat=%f, lng=%f, radius=%d): %w",
			lat, lng, radiusMeters, err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ParcelWithDistance, error) {
		var p ParcelWithDistance
		err := row.Scan(
			&p.Parcel.ID,
			&p.Parcel.PL,
			&p.Parcel.OwnerName,
			&p.Parcel.Classification,
			&p.Parcel.Geom,
			&p.Parcel.LoadedAt,
			&p.Distance,
		)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan nearby parcels: %w", err)
	}

	// Return empty slice if no parcels found (not an error)
	if results == nil {
		results = []ParcelWithDistance{}
	}
	return results, nil
}

func (r *parcelRepository) FindByPL(ctx context.Context, pl string) (*models.Parcel, error) {
	parcels, err := r.collect(ctx, psql.Select(parcelColumns...).From("parcels").
		Where(sq.Eq{"parcels.pl": pl}))
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel %q: %w", pl, err)
	}
	if len(parcels) == 0 {
		return nil, nil
	}
	return &parcels[0], nil
}

func (r *parcelRepository) ListMapped(ctx context.Context) ([]models.Parcel, error) {
	parcels, err := r.collect(ctx, psql.Select(parcelColumns...).From("parcels").
		Where("EXISTS (SELECT 1 FROM addresses a WHERE a.pl = parcels.pl AND NOT a.deleted)").
		OrderBy("parcels.pl"))
	if err != nil {
		return nil, fmt.Errorf("failed to query mapped parcels: %w", err)
	}
	return parcels, nil
}

// ReplaceAll stages rows through COPY into a temporary table with EWKT
// geometry text, then inserts them with ST_GeomFromEWKT.
func (r *parcelRepository) ReplaceAll(ctx context.Context, parcels []models.Parcel, loadedAt time.Time, progress ProgressFunc) (int64, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM parcels`); err != nil {
		return 0, fmt.Errorf("failed to clear parcels: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
		CREATE TEMP TABLE parcels_load (
			pl             TEXT,
			owner_name     TEXT,
			classification TEXT,
			geom_ewkt      TEXT,
			loaded_at      TIMESTAMPTZ
		) ON COMMIT DROP
	`); err != nil {
		return 0, fmt.Errorf("failed to create parcel staging table: %w", err)
	}

	total := len(parcels)
	_, err := r.db.CopyFrom(
		ctx,
		pgx.Identifier{"parcels_load"},
		[]string{"pl", "owner_name", "classification", "geom_ewkt", "loaded_at"},
		pgx.CopyFromSlice(total, func(i int) ([]interface{}, error) {
			p := parcels[i]
			if progress != nil && ((i+1)%progressEvery == 0 || i+1 == total) {
				progress(i+1, total)
			}
			return []interface{}{p.PL, p.OwnerName, p.Classification, p.Geom.EWKT(), loadedAt}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy parcels: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		INSERT INTO parcels (pl, owner_name, classification, geom, loaded_at)
		SELECT pl, owner_name, classification, ST_Multi(ST_GeomFromEWKT(geom_ewkt)), loaded_at
		FROM parcels_load
	`)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicatePL
		}
		return 0, fmt.Errorf("failed to insert parcels: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *parcelRepository) collect(ctx context.Context, b sq.SelectBuilder) ([]models.Parcel, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	parcels, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Parcel])
	if err != nil {
		return nil, err
	}
	if parcels == nil {
		parcels = []models.Parcel{}
	}
	return parcels, nil
}
