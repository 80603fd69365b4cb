package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/importer"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/validation"
)

// Import file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnsupportedFormat is returned for an import format other than csv or xlsx.
var ErrUnsupportedFormat = errors.New("unsupported import format")

// ImportRequest describes one file import.
type ImportRequest struct {
	Tag    string
	Actor  string
	Source string
	// Format is FormatCSV or FormatXLSX; blank means CSV.
	Format     string
	Columns    []string
	SkipHeader bool
	Extra      map[string]string
}

// ImportOutcome reports a committed import.
type ImportOutcome struct {
	Batch *models.AddressBatch `json:"batch"`
	importer.Result
}

// ImportService defines the batch import operations.
type ImportService interface {
	// Import loads src as one all-or-nothing batch. A rejected batch comes
	// back as *importer.Error; its batch record is kept.
	Import(ctx context.Context, req ImportRequest, src io.Reader) (*ImportOutcome, error)

	// ListBatches lists batches with their member counts, sorted and paged
	// by the sort and page parameters.
	ListBatches(ctx context.Context, params url.Values) (*Page[models.BatchSummary], error)
}

type importService struct {
	store          repository.Store
	dedup          *dedup.Deduplicator
	defaultColumns []string
	pageLength     int
	now            func() time.Time
	log            *logger.Logger
}

// NewImportService creates a new instance of ImportService. Requests without
// columns use defaultColumns.
func NewImportService(store repository.Store, d *dedup.Deduplicator, defaultColumns []string, pageLength int, log *logger.Logger) ImportService {
	if pageLength <= 0 {
		pageLength = DefaultPageLength
	}
	return &importService{
		store:          store,
		dedup:          d,
		defaultColumns: defaultColumns,
		pageLength:     pageLength,
		now:            time.Now,
		log:            log,
	}
}

func (s *importService) Import(ctx context.Context, req ImportRequest, src io.Reader) (*ImportOutcome, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	fields := map[string]interface{}{
		"tag":    req.Tag,
		"actor":  req.Actor,
		"format": format,
	}

	im, err := importer.New(ctx, s.store, s.dedup, importer.Options{
		Tag:    strings.TrimSpace(req.Tag),
		At:     s.now(),
		Actor:  req.Actor,
		Source: req.Source,
		Extra:  req.Extra,
	})
	if err != nil {
		var ferrs validation.FieldErrors
		if errors.As(err, &ferrs) {
			s.log.Warn("Import rejected", withReason(fields, err))
			return nil, err
		}
		s.log.Error("Failed to start import", err, fields)
		return nil, fmt.Errorf("failed to start import: %w", err)
	}

	cols := req.Columns
	if len(cols) == 0 {
		cols = s.defaultColumns
	}
	opts := importer.CSVOptions{Columns: cols, SkipHeader: req.SkipHeader}

	s.log.Info("Import started", fields)

	var res importer.Result
	if format == FormatXLSX {
		res, err = im.ProcessXLSX(ctx, src, opts)
	} else {
		res, err = im.ProcessCSV(ctx, src, opts)
	}
	if err != nil {
		var ierr *importer.Error
		if errors.As(err, &ierr) {
			fields["rows"] = len(ierr.Rows)
			s.log.Warn("Import rejected", withReason(fields, err))
			return nil, err
		}
		s.log.Error("Import failed", err, fields)
		return nil, err
	}

	fields["saved"] = res.Saved
	fields["dupes"] = res.Dupes
	s.log.Info("Import committed", fields)
	return &ImportOutcome{Batch: im.Batch(), Result: res}, nil
}

func (s *importService) ListBatches(ctx context.Context, params url.Values) (*Page[models.BatchSummary], error) {
	keys, page, err := listControls(params, repository.BatchSort)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Batches().Count(ctx, nil)
	if err != nil {
		s.log.Error("Failed to count batches", err, nil)
		return nil, fmt.Errorf("failed to count batches: %w", err)
	}
	batches, err := s.store.Batches().List(ctx, repository.ListQuery{
		Sort:   keys,
		Limit:  s.pageLength,
		Offset: (page - 1) * s.pageLength,
	})
	if err != nil {
		s.log.Error("Failed to list batches", err, nil)
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return &Page[models.BatchSummary]{Items: batches, Total: total, Page: page, PageLength: s.pageLength}, nil
}

func withReason(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["reason"] = err.Error()
	return out
}
