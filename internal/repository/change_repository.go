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

var changeColumns = []string{
	"address_changes.id", "address_changes.address_id", "address_changes.changed_by",
	"address_changes.changed_at", "address_changes.pre_id", "address_changes.post_id",
}

var snapshotColumns = append(append([]string{"id", "address_id"}, fieldColumns...), "taken_at")

// ChangeRepository defines the data access operations for the audit log.
// Snapshots and changes are insert-only.
type ChangeRepository interface {
	CreateSnapshot(ctx context.Context, s *models.AddressSnapshot) error
	Create(ctx context.Context, c *models.AddressChange) error

	// Get loads a change with its snapshots. ErrNotFound when missing.
	Get(ctx context.Context, id int64) (*models.AddressChange, error)

	// ListForAddress returns the history of one address, oldest first.
	ListForAddress(ctx context.Context, addressID int64) ([]models.AddressChange, error)

	// List returns one page of changes with snapshots. Sort keys are
	// validated against ChangeSort.
	List(ctx context.Context, q ListQuery) ([]models.AddressChange, error)
	Count(ctx context.Context, where sq.Sqlizer) (int64, error)

	filter.ValueSource
}

type changeRepository struct {
	db database.DBTX
}

// NewChangeRepository creates a new instance of ChangeRepository.
func NewChangeRepository(db database.DBTX) ChangeRepository {
	return &changeRepository{db: db}
}

func (r *changeRepository) CreateSnapshot(ctx context.Context, s *models.AddressSnapshot) error {
	values := append(append([]interface{}{s.AddressID}, fieldValues(s.AddressFields)...), s.TakenAt)
	query, args, err := psql.Insert("address_snapshots").
		Columns(snapshotColumns[1:]...).
		Values(values...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build snapshot insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to insert snapshot for address %d: %w", s.AddressID, err)
	}
	return nil
}

func (r *changeRepository) Create(ctx context.Context, c *models.AddressChange) error {
	query, args, err := psql.Insert("address_changes").
		Columns("address_id", "changed_by", "changed_at", "pre_id", "post_id").
		Values(c.AddressID, c.ChangedBy, c.ChangedAt, c.PreID, c.PostID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build change insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to insert change for address %d: %w", c.AddressID, err)
	}
	return nil
}

func (r *changeRepository) Get(ctx context.Context, id int64) (*models.AddressChange, error) {
	changes, err := r.collect(ctx, psql.Select(changeColumns...).From("address_changes").
		Where(sq.Eq{"address_changes.id": id}))
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, ErrNotFound
	}
	return &changes[0], nil
}

func (r *changeRepository) ListForAddress(ctx context.Context, addressID int64) ([]models.AddressChange, error) {
	return r.collect(ctx, psql.Select(changeColumns...).From("address_changes").
		Where(sq.Eq{"address_changes.address_id": addressID}).
		OrderBy("address_changes.changed_at ASC", "address_changes.id ASC"))
}

func (r *changeRepository) List(ctx context.Context, q ListQuery) ([]models.AddressChange, error) {
	b, err := ChangeSort.Apply(where(psql.Select(changeColumns...).From("address_changes"), q.Where), q.Sort)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, page(b, q.Limit, q.Offset))
}

func (r *changeRepository) Count(ctx context.Context, pred sq.Sqlizer) (int64, error) {
	return count(ctx, r.db, where(psql.Select("COUNT(*)").From("address_changes"), pred))
}

func (r *changeRepository) Values(ctx context.Context, field filter.AutocompleteField, prefix string, limit int) ([]filter.Candidate, error) {
	b := psql.Select(field.Column).Distinct().From("address_changes").
		Where(sq.Expr(field.Column+" ILIKE ?", filter.EscapeLike(prefix)+"%")).
		Where(sq.NotEq{field.Column: ""}).
		OrderBy(field.Column)
	return distinctValues(ctx, r.db, page(b, limit, 0))
}

func (r *changeRepository) collect(ctx context.Context, b sq.SelectBuilder) ([]models.AddressChange, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build change query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	changes, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.AddressChange])
	if err != nil {
		return nil, fmt.Errorf("failed to scan changes: %w", err)
	}
	if changes == nil {
		return []models.AddressChange{}, nil
	}

	if err := r.attachSnapshots(ctx, changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// attachSnapshots loads every referenced snapshot in one query.
func (r *changeRepository) attachSnapshots(ctx context.Context, changes []models.AddressChange) error {
	ids := make([]int64, 0, 2*len(changes))
	for _, c := range changes {
		if c.PreID != nil {
			ids = append(ids, *c.PreID)
		}
		if c.PostID != nil {
			ids = append(ids, *c.PostID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.db.Query(ctx,
		"SELECT "+strings.Join(snapshotColumns, ", ")+" FROM address_snapshots WHERE id = ANY($1)", ids)
	if err != nil {
		return fmt.Errorf("failed to query snapshots: %w", err)
	}
	snapshots, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.AddressSnapshot])
	if err != nil {
		return fmt.Errorf("failed to scan snapshots: %w", err)
	}

	byID := make(map[int64]*models.AddressSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.ID] = s
	}
	for i := range changes {
		if id := changes[i].PreID; id != nil {
			if changes[i].Pre = byID[*id]; changes[i].Pre == nil {
				return errors.New("snapshot referenced by change is missing")
			}
		}
		if id := changes[i].PostID; id != nil {
			if changes[i].Post = byID[*id]; changes[i].Post == nil {
				return errors.New("snapshot referenced by change is missing")
			}
		}
	}
	return nil
}
