//go:build integration

package repository_test

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addressmap/internal/database/databasetest"
	"github.com/stwalsh4118/addressmap/internal/filter"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/sorting"
)

func newAddress(input, number, name, suffix, city string) *models.Address {
	return &models.Address{AddressFields: models.AddressFields{
		InputStreet: input, Number: number, Name: name, Suffix: suffix,
		City: city, State: "TX",
	}}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestAddressRepository_CreateGetUpdate(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	repo := repository.NewAddressRepository(db.Pool)
	ctx := context.Background()

	a := newAddress("123 n main st.", "123", "N Main", "St", "Conroe")
	require.NoError(t, repo.Create(ctx, a))
	assert.NotZero(t, a.ID)
	assert.Equal(t, "123 N Main St", a.Street)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.AddressFields.Street, got.Street)
	assert.Equal(t, "123 n main st.", got.InputStreet)

	got.Number = "125"
	got.PL = "PL-9"
	require.NoError(t, repo.Update(ctx, got))
	assert.Equal(t, "125 N Main St", got.Street)

	reloaded, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "125 N Main St", reloaded.Street)
	assert.Equal(t, models.StatusApproved, reloaded.Status())

	_, err = repo.Get(ctx, 999999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	missing := &models.Address{ID: 999999}
	assert.ErrorIs(t, repo.Update(ctx, missing), repository.ErrNotFound)
}

func TestAddressRepository_FindDuplicates(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	repo := repository.NewAddressRepository(db.Pool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAddress("123 Main Street", "123", "Main", "St", "Conroe")))
	require.NoError(t, repo.Create(ctx, newAddress("9 Oak Ln", "", "", "", "Conroe")))

	tests := []struct {
		name    string
		streets []string
		city    string
		state   string
		want    int
	}{
		{"input street ignoring case", []string{"123 MAIN STREET"}, "conroe", "tx", 1},
		{"normalized street", []string{"nothing", "123 Main St"}, "Conroe", "TX", 1},
		{"unparsed input", []string{"9 oak ln"}, "Conroe", "TX", 1},
		{"other city", []string{"123 Main St"}, "Willis", "TX", 0},
		{"other state", []string{"123 Main St"}, "Conroe", "OK", 0},
		{"no streets", nil, "Conroe", "TX", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindDuplicates(ctx, tt.streets, tt.city, tt.state)
			require.NoError(t, err)
			assert.Len(t, found, tt.want)
		})
	}
}

func TestAddressRepository_ListFilterSort(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	store := repository.NewStore(db.Pool)
	repo := store.Addresses()
	ctx := context.Background()

	a := newAddress("1 Elm St", "1", "Elm", "St", "Conroe")
	b := newAddress("2 Elm St", "2", "Elm", "St", "Willis")
	c := newAddress("3 Elm St", "3", "Elm", "St", "conroe")
	c.PL = "PL-3"
	for _, addr := range []*models.Address{a, b, c} {
		require.NoError(t, repo.Create(ctx, addr))
	}

	f := filter.New(repository.AddressFilter())

	list, err := repo.List(ctx, repository.ListQuery{
		Where: f.Apply(url.Values{"city": {"CONROE"}}),
		Sort:  []string{"-street"},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)

	n, err := repo.Count(ctx, f.Apply(url.Values{"status": {"unmapped"}}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// include overrides the other predicates
	list, err = repo.List(ctx, repository.ListQuery{
		Where: f.Apply(url.Values{"city": {"Willis"}, "include": {formatID(a.ID)}}),
		Sort:  []string{"id"},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	page, err := repo.List(ctx, repository.ListQuery{Sort: []string{"id"}, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].ID)

	_, err = repo.List(ctx, repository.ListQuery{Sort: []string{"bogus", "city", "-nope"}})
	var sortErr *sorting.InvalidFieldsError
	require.True(t, errors.As(err, &sortErr))
	assert.Equal(t, []string{"bogus", "nope"}, sortErr.Fields)
}

func TestAddressRepository_LastChangedSortHasNoDuplicates(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	store := repository.NewStore(db.Pool)
	ctx := context.Background()

	a := newAddress("1 Elm St", "1", "Elm", "St", "Conroe")
	b := newAddress("2 Elm St", "2", "Elm", "St", "Conroe")
	require.NoError(t, store.Addresses().Create(ctx, a))
	require.NoError(t, store.Addresses().Create(ctx, b))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []int64{a.ID, a.ID, a.ID, b.ID} {
		require.NoError(t, store.Changes().Create(ctx, &models.AddressChange{
			AddressID: id, ChangedBy: "tester", ChangedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := store.Addresses().List(ctx, repository.ListQuery{Sort: []string{"-last_changed"}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestAddressRepository_Values(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	repo := repository.NewAddressRepository(db.Pool)
	ctx := context.Background()

	for _, city := range []string{"Conroe", "Conroe", "Cut and Shoot", "Willis"} {
		require.NoError(t, repo.Create(ctx, newAddress("1 Elm St", "1", "Elm", "St", city)))
	}
	deleted := newAddress("1 Elm St", "1", "Elm", "St", "Cleveland")
	deleted.Deleted = true
	require.NoError(t, repo.Create(ctx, deleted))

	field := filter.AutocompleteField{Key: "city", Column: "addresses.city"}
	values, err := repo.Values(ctx, field, "c", 10)
	require.NoError(t, err)
	assert.Equal(t, []filter.Candidate{
		{Value: "Conroe", Display: "Conroe"},
		{Value: "Cut and Shoot", Display: "Cut and Shoot"},
	}, values)

	values, err = repo.Values(ctx, field, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestStore_InTxRollsBack(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	store := repository.NewStore(db.Pool)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Addresses().Create(ctx, newAddress("1 Elm St", "1", "Elm", "St", "Conroe")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := store.Addresses().Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBatchRepository(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	store := repository.NewStore(db.Pool)
	ctx := context.Background()

	batch := &models.AddressBatch{Tag: "fall-2024", CreatedBy: "ann", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Batches().Create(ctx, batch))
	assert.NotZero(t, batch.ID)

	dup := &models.AddressBatch{Tag: "fall-2024", CreatedBy: "bob", CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, store.Batches().Create(ctx, dup), repository.ErrDuplicateTag)

	a := newAddress("1 Elm St", "1", "Elm", "St", "Conroe")
	require.NoError(t, store.Addresses().Create(ctx, a))
	require.NoError(t, store.Batches().AddAddress(ctx, batch.ID, a.ID))
	require.NoError(t, store.Batches().AddAddress(ctx, batch.ID, a.ID))

	ids, err := store.Batches().MemberIDs(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids)

	got, err := store.Batches().GetByTag(ctx, "fall-2024")
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)

	_, err = store.Batches().GetByTag(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := store.Batches().List(ctx, repository.ListQuery{Sort: []string{"-members"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Members)

	filtered, err := store.Addresses().List(ctx, repository.ListQuery{
		Where: filter.New(repository.AddressFilter()).Apply(url.Values{"batch": {"fall-2024"}}),
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, a.ID, filtered[0].ID)
}

func TestChangeRepository(t *testing.T) {
	db := databasetest.StartPostGIS(t)
	store := repository.NewStore(db.Pool)
	ctx := context.Background()

	a := newAddress("1 Elm St", "1", "Elm", "St", "Conroe")
	require.NoError(t, store.Addresses().Create(ctx, a))

	at := time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC)
	post := models.NewSnapshot(a, at)
	require.NoError(t, store.Changes().CreateSnapshot(ctx, post))
	created := &models.AddressChange{AddressID: a.ID, ChangedBy: "ann", ChangedAt: at, PostID: &post.ID}
	require.NoError(t, store.Changes().Create(ctx, created))

	got, err := store.Changes().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeCreated, got.Kind())
	assert.Nil(t, got.Pre)
	require.NotNil(t, got.Post)
	assert.Equal(t, "1 Elm St", got.Post.Street)
	assert.Equal(t, a.ID, got.Post.AddressID)

	_, err = store.Changes().Get(ctx, 424242)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	history, err := store.Changes().ListForAddress(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	cf := filter.New(repository.ChangeFilter())
	n, err := store.Changes().Count(ctx, cf.Apply(url.Values{"kind": {"created"}}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = store.Changes().Count(ctx, cf.Apply(url.Values{"kind": {"deleted"}}))
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := store.Changes().List(ctx, repository.ListQuery{
		Where: cf.Apply(url.Values{"changed": {"2024-09-10"}}),
		Sort:  []string{"-changed_at"},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Post)
}
