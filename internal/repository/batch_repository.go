package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/addressmap/internal/database"
	"github.com/stwalsh4118/addressmap/internal/models"
)

const memberCount = "(SELECT COUNT(*) FROM address_batch_members m WHERE m.batch_id = address_batches.id) AS members"

var batchColumns = []string{
	"address_batches.id", "address_batches.tag", "address_batches.created_by", "address_batches.created_at",
}

// BatchRepository defines the data access operations for import batches.
type BatchRepository interface {
	// Create inserts b. A taken tag fails with ErrDuplicateTag.
	Create(ctx context.Context, b *models.AddressBatch) error
	AddAddress(ctx context.Context, batchID, addressID int64) error
	GetByTag(ctx context.Context, tag string) (*models.AddressBatch, error)
	List(ctx context.Context, q ListQuery) ([]models.BatchSummary, error)
	Count(ctx context.Context, where sq.Sqlizer) (int64, error)
	MemberIDs(ctx context.Context, batchID int64) ([]int64, error)
}

type batchRepository struct {
	db database.DBTX
}

// NewBatchRepository creates a new instance of BatchRepository.
func NewBatchRepository(db database.DBTX) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, b *models.AddressBatch) error {
	query, args, err := psql.Insert("address_batches").
		Columns("tag", "created_by", "created_at").
		Values(b.Tag, b.CreatedBy, b.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build batch insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&b.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateTag, b.Tag)
		}
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

func (r *batchRepository) AddAddress(ctx context.Context, batchID, addressID int64) error {
	query, args, err := psql.Insert("address_batch_members").
		Columns("batch_id", "address_id").
		Values(batchID, addressID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build batch member insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to add address %d to batch %d: %w", addressID, batchID, err)
	}
	return nil
}

func (r *batchRepository) GetByTag(ctx context.Context, tag string) (*models.AddressBatch, error) {
	query, args, err := psql.Select(batchColumns...).From("address_batches").
		Where(sq.Eq{"address_batches.tag": tag}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build batch query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	batch, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.AddressBatch])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	return batch, nil
}

func (r *batchRepository) List(ctx context.Context, q ListQuery) ([]models.BatchSummary, error) {
	b := where(psql.Select(append(batchColumns, memberCount)...).From("address_batches"), q.Where)
	b, err := BatchSort.Apply(b, q.Sort)
	if err != nil {
		return nil, err
	}

	query, args, err := page(b, q.Limit, q.Offset).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build batch list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	batches, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.BatchSummary])
	if err != nil {
		return nil, fmt.Errorf("failed to scan batches: %w", err)
	}
	if batches == nil {
		batches = []models.BatchSummary{}
	}
	return batches, nil
}

func (r *batchRepository) Count(ctx context.Context, pred sq.Sqlizer) (int64, error) {
	return count(ctx, r.db, where(psql.Select("COUNT(*)").From("address_batches"), pred))
}

func (r *batchRepository) MemberIDs(ctx context.Context, batchID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT address_id FROM address_batch_members WHERE batch_id = $1 ORDER BY address_id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch members: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch members: %w", err)
	}
	return ids, nil
}
