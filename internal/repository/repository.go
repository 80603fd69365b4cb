package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stwalsh4118/addressmap/internal/database"
)

// Repository-level errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateTag = errors.New("a batch with this tag already exists")
	ErrDuplicatePL  = errors.New("duplicate parcel locator")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ListQuery narrows, orders and pages a list query.
type ListQuery struct {
	Where  sq.Sqlizer
	Sort   []string
	Limit  int
	Offset int
}

// Store groups the repositories that must share a transaction.
type Store interface {
	Addresses() AddressRepository
	Batches() BatchRepository
	Changes() ChangeRepository
	Parcels() ParcelRepository

	// InTx runs fn against a Store bound to a new transaction (a savepoint
	// when already inside one). The transaction commits only when fn returns
	// nil; fn's error is returned as is.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	db database.DBTX
}

// NewStore returns a Store running its queries on db.
func NewStore(db database.DBTX) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Addresses() AddressRepository { return &addressRepository{db: s.db} }
func (s *pgStore) Batches() BatchRepository     { return &batchRepository{db: s.db} }
func (s *pgStore) Changes() ChangeRepository    { return &changeRepository{db: s.db} }
func (s *pgStore) Parcels() ParcelRepository    { return &parcelRepository{db: s.db} }

func (s *pgStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func where(b sq.SelectBuilder, pred sq.Sqlizer) sq.SelectBuilder {
	if pred == nil {
		return b
	}
	return b.Where(pred)
}

func page(b sq.SelectBuilder, limit, offset int) sq.SelectBuilder {
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	return b
}
