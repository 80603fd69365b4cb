package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/addressmap/internal/database"
	"github.com/stwalsh4118/addressmap/internal/filter"
	"github.com/stwalsh4118/addressmap/internal/models"
)

// fieldColumns lists the AddressFields columns shared by addresses and
// address_snapshots, in the order of fieldValues.
var fieldColumns = []string{
	"input_street", "number", "prefix", "name", "type", "suffix", "street",
	"city", "state", "complex", "notes", "multi_unit", "pl", "mapped_by",
	"mapped_at", "needs_review", "deleted", "imported_by", "imported_at",
	"import_source", "latitude", "longitude",
}

func fieldValues(f models.AddressFields) []interface{} {
	return []interface{}{
		f.InputStreet, f.Number, f.Prefix, f.Name, f.Type, f.Suffix, f.Street,
		f.City, f.State, f.Complex, f.Notes, f.MultiUnit, f.PL, f.MappedBy,
		f.MappedAt, f.NeedsReview, f.Deleted, f.ImportedBy, f.ImportedAt,
		f.ImportSource, f.Latitude, f.Longitude,
	}
}

func qualified(table string, cols ...string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = table + "." + c
	}
	return out
}

var addressColumns = append(append([]string{"addresses.id"}, qualified("addresses", fieldColumns...)...),
	"addresses.created_at", "addresses.updated_at")

// AddressRepository defines the data access operations for addresses.
type AddressRepository interface {
	// Create inserts a, recomputing its street first, and fills in the
	// generated ID and timestamps.
	Create(ctx context.Context, a *models.Address) error

	// Get returns ErrNotFound when no address has the given id.
	Get(ctx context.Context, id int64) (*models.Address, error)

	// GetForUpdate is Get with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Address, error)

	// Update saves every field of a, recomputing its street first.
	Update(ctx context.Context, a *models.Address) error

	// FindDuplicates returns addresses whose input or denormalized street
	// equals any of streets, with the same city and state. All comparisons
	// ignore case.
	FindDuplicates(ctx context.Context, streets []string, city, state string) ([]models.Address, error)

	// List returns one page of addresses. Sort keys are validated against
	// AddressSort.
	List(ctx context.Context, q ListQuery) ([]models.Address, error)

	// Count returns the number of addresses matching where.
	Count(ctx context.Context, where sq.Sqlizer) (int64, error)

	filter.ValueSource
}

type addressRepository struct {
	db database.DBTX
}

// NewAddressRepository creates a new instance of AddressRepository.
func NewAddressRepository(db database.DBTX) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, a *models.Address) error {
	a.ComputeStreet()

	query, args, err := psql.Insert("addresses").
		Columns(fieldColumns...).
		Values(fieldValues(a.AddressFields)...).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build address insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}
	return nil
}

func (r *addressRepository) Get(ctx context.Context, id int64) (*models.Address, error) {
	return r.getOne(ctx, psql.Select(addressColumns...).From("addresses").Where(sq.Eq{"addresses.id": id}))
}

func (r *addressRepository) GetForUpdate(ctx context.Context, id int64) (*models.Address, error) {
	return r.getOne(ctx, psql.Select(addressColumns...).From("addresses").
		Where(sq.Eq{"addresses.id": id}).
		Suffix("FOR UPDATE"))
}

func (r *addressRepository) getOne(ctx context.Context, b sq.SelectBuilder) (*models.Address, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build address query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query address: %w", err)
	}
	address, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Address])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan address: %w", err)
	}
	return address, nil
}

func (r *addressRepository) Update(ctx context.Context, a *models.Address) error {
	a.ComputeStreet()

	b := psql.Update("addresses")
	for i, v := range fieldValues(a.AddressFields) {
		b = b.Set(fieldColumns[i], v)
	}
	query, args, err := b.Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": a.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build address update: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update address %d: %w", a.ID, err)
	}
	return nil
}

func (r *addressRepository) FindDuplicates(ctx context.Context, streets []string, city, state string) ([]models.Address, error) {
	lowered := make([]string, 0, len(streets))
	for _, s := range streets {
		if s != "" {
			lowered = append(lowered, strings.ToLower(s))
		}
	}
	if len(lowered) == 0 {
		return []models.Address{}, nil
	}

	b := psql.Select(addressColumns...).From("addresses").
		Where(sq.Or{
			sq.Eq{"lower(addresses.input_street)": lowered},
			sq.Eq{"lower(addresses.street)": lowered},
		}).
		Where(sq.Expr("lower(addresses.city) = lower(?)", city)).
		Where(sq.Expr("lower(addresses.state) = lower(?)", state)).
		OrderBy("addresses.id")

	return r.collect(ctx, b)
}

func (r *addressRepository) List(ctx context.Context, q ListQuery) ([]models.Address, error) {
	b, err := AddressSort.Apply(where(psql.Select(addressColumns...).From("addresses"), q.Where), q.Sort)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, page(b, q.Limit, q.Offset))
}

func (r *addressRepository) collect(ctx context.Context, b sq.SelectBuilder) ([]models.Address, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build address query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	addresses, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Address])
	if err != nil {
		return nil, fmt.Errorf("failed to scan addresses: %w", err)
	}
	if addresses == nil {
		addresses = []models.Address{}
	}
	return addresses, nil
}

func (r *addressRepository) Count(ctx context.Context, pred sq.Sqlizer) (int64, error) {
	return count(ctx, r.db, where(psql.Select("COUNT(*)").From("addresses"), pred))
}

func (r *addressRepository) Values(ctx context.Context, field filter.AutocompleteField, prefix string, limit int) ([]filter.Candidate, error) {
	b := psql.Select(field.Column).Distinct().From("addresses").
		Where(sq.Expr(field.Column+" ILIKE ?", filter.EscapeLike(prefix)+"%")).
		Where(sq.NotEq{field.Column: ""}).
		Where(sq.Eq{"addresses.deleted": false}).
		OrderBy(field.Column)
	return distinctValues(ctx, r.db, page(b, limit, 0))
}

func count(ctx context.Context, db database.DBTX, b sq.SelectBuilder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int64
	if err := db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

func distinctValues(ctx context.Context, db database.DBTX, b sq.SelectBuilder) ([]filter.Candidate, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build suggestion query: %w", err)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan suggestions: %w", err)
	}

	out := make([]filter.Candidate, len(values))
	for i, v := range values {
		out[i] = filter.Candidate{Value: v, Display: v}
	}
	return out, nil
}
