package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultColumns is the column layout assumed when none is given.
var DefaultColumns = []string{"street", "city", "state"}

// CSVOptions describes the layout of a tabular input.
type CSVOptions struct {
	// Columns names the input columns by position. Blank names drop their
	// column; values past the last name are dropped too.
	Columns    []string
	SkipHeader bool
}

func (o CSVOptions) columns() []string {
	if len(o.Columns) == 0 {
		return DefaultColumns
	}
	return o.Columns
}

// ParseColumns splits a comma separated column list.
func ParseColumns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	cols := strings.Split(s, ",")
	for i, c := range cols {
		cols[i] = strings.TrimSpace(c)
	}
	return cols
}

// recordReader maps positional records to named rows.
type recordReader struct {
	next    func() ([]string, error)
	columns []string
	skip    bool
}

func (r *recordReader) Next() (map[string]string, error) {
	if r.skip {
		r.skip = false
		if _, err := r.next(); err != nil {
			return nil, err
		}
	}

	record, err := r.next()
	if err != nil {
		return nil, err
	}
	row := make(map[string]string, len(r.columns))
	for i, value := range record {
		if i >= len(r.columns) {
			break
		}
		if name := r.columns[i]; name != "" {
			row[name] = value
		}
	}
	return row, nil
}

// NewCSVReader returns a RowReader over CSV records.
func NewCSVReader(src io.Reader, opts CSVOptions) RowReader {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1 // Allow variable number of fields
	cr.TrimLeadingSpace = true
	return &recordReader{
		next:    func() ([]string, error) { return cr.Read() },
		columns: opts.columns(),
		skip:    opts.SkipHeader,
	}
}

// NewXLSXReader returns a RowReader over the first sheet of a workbook.
func NewXLSXReader(src io.Reader, opts CSVOptions) (RowReader, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	pos := 0
	return &recordReader{
		next: func() ([]string, error) {
			// GetRows returns blank rows between data rows as empty slices.
			for pos < len(records) && len(records[pos]) == 0 {
				pos++
			}
			if pos >= len(records) {
				return nil, io.EOF
			}
			pos++
			return records[pos-1], nil
		},
		columns: opts.columns(),
		skip:    opts.SkipHeader,
	}, nil
}

// ProcessCSV processes CSV input.
func (im *Importer) ProcessCSV(ctx context.Context, src io.Reader, opts CSVOptions) (Result, error) {
	return im.Process(ctx, NewCSVReader(src, opts))
}

// ProcessXLSX processes the first sheet of an Excel workbook.
func (im *Importer) ProcessXLSX(ctx context.Context, src io.Reader, opts CSVOptions) (Result, error) {
	rows, err := NewXLSXReader(src, opts)
	if err != nil {
		return Result{}, err
	}
	return im.Process(ctx, rows)
}
