// Package importer loads batches of addresses through the deduplicator. A
// batch either commits every new address or none of them.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/validation"
)

// ColumnsField is the pseudo field carrying a structural row error.
const ColumnsField = "__columns__"

const columnsMessage = "extra or unknown columns"

const tagTakenMessage = "A batch with this tag already exists"

// RowError holds the field errors of one input row. Rows count from 1.
type RowError struct {
	Row    int                    `json:"row"`
	Fields validation.FieldErrors `json:"fields"`
}

// Error is returned when a batch is rejected. Nothing from the batch was
// saved.
type Error struct {
	Rows []RowError
}

func (e *Error) Error() string {
	if len(e.Rows) == 1 {
		return fmt.Sprintf("import failed: row %d: %v", e.Rows[0].Row, e.Rows[0].Fields)
	}
	return fmt.Sprintf("import failed: %d rows have errors", len(e.Rows))
}

// Structural reports whether the batch was rejected for its columns rather
// than for row values.
func (e *Error) Structural() bool {
	if len(e.Rows) != 1 {
		return false
	}
	_, ok := e.Rows[0].Fields[ColumnsField]
	return ok
}

// RowReader yields input rows keyed by column name. Next returns io.EOF
// after the last row.
type RowReader interface {
	Next() (map[string]string, error)
}

// Options describes one import.
type Options struct {
	Tag    string
	At     time.Time
	Actor  string
	Source string
	// Extra columns are merged into every row, overriding row values.
	Extra map[string]string
}

// Result counts what Process did.
type Result struct {
	Saved int `json:"saved"`
	Dupes int `json:"dupes"`
}

// Importer processes rows into one batch.
type Importer struct {
	store  repository.Store
	dedup  *dedup.Deduplicator
	batch  *models.AddressBatch
	actor  string
	static map[string]string
}

// New creates the batch record right away, outside the transaction that
// Process runs in, so a rejected batch is still visible by its tag. A blank
// or taken tag fails with validation.FieldErrors on "tag"; the taken case
// also matches repository.ErrDuplicateTag.
func New(ctx context.Context, store repository.Store, d *dedup.Deduplicator, opts Options) (*Importer, error) {
	if strings.TrimSpace(opts.Tag) == "" {
		return nil, validation.FieldErrors{"tag": {"This field is required"}}
	}
	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	batch := &models.AddressBatch{Tag: opts.Tag, CreatedBy: opts.Actor, CreatedAt: at}
	if err := store.Batches().Create(ctx, batch); err != nil {
		if errors.Is(err, repository.ErrDuplicateTag) {
			return nil, fmt.Errorf("%w: %w", validation.FieldErrors{"tag": {tagTakenMessage}}, err)
		}
		return nil, err
	}

	static := map[string]string{
		"imported_by": opts.Actor,
		"imported_at": at.Format(dedup.TimeLayout),
	}
	if opts.Source != "" {
		static["import_source"] = opts.Source
	}
	for k, v := range opts.Extra {
		static[k] = v
	}

	return &Importer{store: store, dedup: d, batch: batch, actor: opts.Actor, static: static}, nil
}

// Batch returns the batch record created by New.
func (im *Importer) Batch() *models.AddressBatch {
	return im.batch
}

// Process reads every row and creates its address in a single transaction.
// Field errors are collected across all rows and reported together in an
// *Error; a row with unknown columns stops the batch at once. Any other
// error is returned as is. In every failure case nothing is committed.
func (im *Importer) Process(ctx context.Context, rows RowReader) (Result, error) {
	var res Result
	err := im.store.InTx(ctx, func(tx repository.Store) error {
		res = Result{}
		var rowErrs []RowError

		for n := 1; ; n++ {
			fields, err := rows.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}

			out, err := im.dedup.Create(ctx, tx, im.actor, im.merge(fields))

			var colErr *dedup.UnknownColumnsError
			var ferrs validation.FieldErrors
			switch {
			case errors.As(err, &colErr):
				return &Error{Rows: []RowError{{
					Row:    n,
					Fields: validation.FieldErrors{ColumnsField: {columnsMessage}},
				}}}
			case errors.As(err, &ferrs):
				rowErrs = append(rowErrs, RowError{Row: n, Fields: ferrs})
				continue
			case err != nil:
				return err
			}

			if out.Outcome == dedup.Duplicate {
				res.Dupes++
				continue
			}
			if err := tx.Batches().AddAddress(ctx, im.batch.ID, out.Address.ID); err != nil {
				return err
			}
			res.Saved++
		}

		if len(rowErrs) > 0 {
			return &Error{Rows: rowErrs}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (im *Importer) merge(row map[string]string) map[string]string {
	out := make(map[string]string, len(row)+len(im.static))
	for k, v := range row {
		out[k] = v
	}
	for k, v := range im.static {
		out[k] = v
	}
	return out
}

// SliceReader serves rows from memory.
type SliceReader struct {
	rows []map[string]string
	pos  int
}

// NewSliceReader returns a RowReader over rows.
func NewSliceReader(rows ...map[string]string) *SliceReader {
	return &SliceReader{rows: rows}
}

func (r *SliceReader) Next() (map[string]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	r.pos++
	return r.rows[r.pos-1], nil
}
