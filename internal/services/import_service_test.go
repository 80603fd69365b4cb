package services

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/history"
	"github.com/stwalsh4118/addressmap/internal/importer"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/repository/repositorytest"
	"github.com/stwalsh4118/addressmap/internal/sorting"
	"github.com/stwalsh4118/addressmap/internal/validation"
	"github.com/xuri/excelize/v2"
)

var importTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newImportTestService(store repository.Store) ImportService {
	d := dedup.New(nil, history.NewTracker(), dedup.Options{})
	svc := NewImportService(store, d, []string{"street", "city", "state"}, 0, logger.New("test")).(*importService)
	svc.now = func() time.Time { return importTime }
	return svc
}

func TestImportService_CSV(t *testing.T) {
	store := repositorytest.New()
	svc := newImportTestService(store)

	src := strings.NewReader("1 Elm St,Conroe,TX\n2 Oak Ave,Willis,TX\n1 ELM STREET,conroe,tx\n")
	out, err := svc.Import(context.Background(), ImportRequest{Tag: "spring", Actor: "ann", Source: "county.csv"}, src)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Saved)
	assert.Equal(t, 1, out.Dupes)
	assert.Equal(t, "spring", out.Batch.Tag)

	addresses := store.AddressList()
	require.Len(t, addresses, 2)
	assert.Equal(t, "ann", addresses[0].ImportedBy)
	assert.Equal(t, "county.csv", addresses[0].ImportSource)
	assert.Equal(t, importTime, *addresses[0].ImportedAt)
}

func TestImportService_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"City", "Street", "State"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Conroe", "1 Elm St", "TX"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	store := repositorytest.New()
	out, err := newImportTestService(store).Import(context.Background(), ImportRequest{
		Tag:        "xl",
		Actor:      "ann",
		Format:     "XLSX",
		Columns:    []string{"city", "street", "state"},
		SkipHeader: true,
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Saved)
	assert.Equal(t, "Conroe", store.AddressList()[0].City)
}

func TestImportService_RejectedBatchKeepsRecord(t *testing.T) {
	store := repositorytest.New()
	svc := newImportTestService(store)

	src := strings.NewReader("1 Elm St,Conroe,TX\n2 Oak Ave,Willis,ZZ\n")
	_, err := svc.Import(context.Background(), ImportRequest{Tag: "bad", Actor: "ann"}, src)

	var ierr *importer.Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, 2, ierr.Rows[0].Row)
	assert.Empty(t, store.AddressList())
	require.Len(t, store.BatchList(), 1)
	assert.Equal(t, "bad", store.BatchList()[0].Tag)
}

func TestImportService_RequestErrors(t *testing.T) {
	store := repositorytest.New()
	svc := newImportTestService(store)
	ctx := context.Background()

	_, err := svc.Import(ctx, ImportRequest{Tag: "t", Format: "dbf"}, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = svc.Import(ctx, ImportRequest{Tag: "t"}, strings.NewReader(""))
	require.NoError(t, err)
	_, err = svc.Import(ctx, ImportRequest{Tag: "t"}, strings.NewReader(""))
	assert.ErrorIs(t, err, repository.ErrDuplicateTag)
	var ferrs validation.FieldErrors
	require.True(t, errors.As(err, &ferrs))
	assert.Contains(t, ferrs, "tag")
}

func TestImportService_ListBatches(t *testing.T) {
	store := repositorytest.New()
	svc := newImportTestService(store)
	ctx := context.Background()

	for _, tag := range []string{"a", "b"} {
		_, err := svc.Import(ctx, ImportRequest{Tag: tag}, strings.NewReader("1 Elm St,Conroe,TX\n"))
		require.NoError(t, err)
	}

	page, err := svc.ListBatches(ctx, url.Values{"sort": {"tag"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(1), page.Items[0].Members)
	assert.Equal(t, int64(0), page.Items[1].Members)

	_, err = svc.ListBatches(ctx, url.Values{"sort": {"size"}})
	var invalid *sorting.InvalidFieldsError
	assert.True(t, errors.As(err, &invalid))
}
