// Package repositorytest provides an in-memory repository.Store for unit
// tests. Transactions copy the whole data set and swap it back on commit.
//
// Query predicates cannot be evaluated in memory: List and Count fail unless
// the predicate is nil.
package repositorytest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stwalsh4118/addressmap/internal/filter"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
)

// ErrUnsupportedPredicate is returned by List and Count for a non-nil where.
var ErrUnsupportedPredicate = errors.New("repositorytest: predicates are not supported")

type data struct {
	addresses map[int64]models.Address
	batches   map[int64]models.AddressBatch
	members   map[int64]map[int64]bool
	snapshots map[int64]models.AddressSnapshot
	changes   map[int64]models.AddressChange
	parcels   map[string]models.Parcel
	nextID    int64
}

func newData() *data {
	return &data{
		addresses: map[int64]models.Address{},
		batches:   map[int64]models.AddressBatch{},
		members:   map[int64]map[int64]bool{},
		snapshots: map[int64]models.AddressSnapshot{},
		changes:   map[int64]models.AddressChange{},
		parcels:   map[string]models.Parcel{},
	}
}

func (d *data) clone() *data {
	out := newData()
	out.nextID = d.nextID
	for k, v := range d.addresses {
		out.addresses[k] = v
	}
	for k, v := range d.batches {
		out.batches[k] = v
	}
	for k, v := range d.members {
		m := make(map[int64]bool, len(v))
		for id := range v {
			m[id] = true
		}
		out.members[k] = m
	}
	for k, v := range d.snapshots {
		out.snapshots[k] = v
	}
	for k, v := range d.changes {
		out.changes[k] = v
	}
	for k, v := range d.parcels {
		out.parcels[k] = v
	}
	return out
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

// Store is an in-memory repository.Store.
type Store struct {
	mu   *sync.Mutex
	data *data
	now  func() time.Time

	// Fail, when set, is consulted before every operation with a name such
	// as "addresses.create". A non-nil result is returned from the operation.
	Fail func(op string) error

	// Commits and Rollbacks count finished transactions.
	Commits   int
	Rollbacks int

	parent *Store
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newData(), now: time.Now}
}

func (s *Store) root() *Store {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (s *Store) fail(op string) error {
	if f := s.root().Fail; f != nil {
		return f(op)
	}
	return nil
}

func (s *Store) Addresses() repository.AddressRepository { return &addresses{s} }
func (s *Store) Batches() repository.BatchRepository     { return &batches{s} }
func (s *Store) Changes() repository.ChangeRepository    { return &changes{s} }
func (s *Store) Parcels() repository.ParcelRepository    { return &parcels{s} }

// InTx runs fn against a copy of the data and keeps the copy only when fn
// returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := s.fail("tx.begin"); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	tx := &Store{mu: &sync.Mutex{}, data: snapshot, now: s.now, parent: s}
	if err := fn(tx); err != nil {
		s.root().Rollbacks++
		return err
	}
	if err := s.fail("tx.commit"); err != nil {
		s.root().Rollbacks++
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	s.root().Commits++
	return nil
}

// AddressList returns every stored address ordered by id.
func (s *Store) AddressList() []models.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Address, 0, len(s.data.addresses))
	for _, a := range s.data.addresses {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChangeList returns every stored change with its snapshots, ordered by id.
func (s *Store) ChangeList() []models.AddressChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AddressChange, 0, len(s.data.changes))
	for _, c := range s.data.changes {
		out = append(out, s.withSnapshots(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BatchList returns every stored batch ordered by id.
func (s *Store) BatchList() []models.AddressBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AddressBatch, 0, len(s.data.batches))
	for _, b := range s.data.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) withSnapshots(c models.AddressChange) models.AddressChange {
	if c.PreID != nil {
		snap := s.data.snapshots[*c.PreID]
		c.Pre = &snap
	}
	if c.PostID != nil {
		snap := s.data.snapshots[*c.PostID]
		c.Post = &snap
	}
	return c
}

type addresses struct{ s *Store }

func (r *addresses) Create(ctx context.Context, a *models.Address) error {
	if err := r.s.fail("addresses.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a.ComputeStreet()
	a.ID = r.s.data.id()
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.data.addresses[a.ID] = models.Address{ID: a.ID, AddressFields: a.AddressFields.Clone(), CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
	return nil
}

func (r *addresses) Get(ctx context.Context, id int64) (*models.Address, error) {
	if err := r.s.fail("addresses.get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.data.addresses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a.AddressFields = a.AddressFields.Clone()
	return &a, nil
}

func (r *addresses) GetForUpdate(ctx context.Context, id int64) (*models.Address, error) {
	return r.Get(ctx, id)
}

func (r *addresses) Update(ctx context.Context, a *models.Address) error {
	if err := r.s.fail("addresses.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.addresses[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.ComputeStreet()
	a.CreatedAt = stored.CreatedAt
	a.UpdatedAt = r.s.now()
	r.s.data.addresses[a.ID] = models.Address{ID: a.ID, AddressFields: a.AddressFields.Clone(), CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
	return nil
}

func (r *addresses) FindDuplicates(ctx context.Context, streets []string, city, state string) ([]models.Address, error) {
	if err := r.s.fail("addresses.find_duplicates"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Address{}
	for _, a := range r.s.data.addresses {
		if !strings.EqualFold(a.City, city) || !strings.EqualFold(a.State, state) {
			continue
		}
		for _, street := range streets {
			if street != "" && (strings.EqualFold(a.InputStreet, street) || strings.EqualFold(a.Street, street)) {
				out = append(out, a)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *addresses) List(ctx context.Context, q repository.ListQuery) ([]models.Address, error) {
	if q.Where != nil {
		return nil, ErrUnsupportedPredicate
	}
	if err := repository.AddressSort.Validate(q.Sort); err != nil {
		return nil, err
	}
	return pageOf(r.s.AddressList(), q.Limit, q.Offset), nil
}

func (r *addresses) Count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	if where != nil {
		return 0, ErrUnsupportedPredicate
	}
	return int64(len(r.s.AddressList())), nil
}

func (r *addresses) Values(ctx context.Context, field filter.AutocompleteField, prefix string, limit int) ([]filter.Candidate, error) {
	return nil, fmt.Errorf("%w: autocomplete on %s", ErrUnsupportedPredicate, field.Key)
}

type batches struct{ s *Store }

func (r *batches) Create(ctx context.Context, b *models.AddressBatch) error {
	if err := r.s.fail("batches.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.batches {
		if existing.Tag == b.Tag {
			return fmt.Errorf("%w: %q", repository.ErrDuplicateTag, b.Tag)
		}
	}
	b.ID = r.s.data.id()
	r.s.data.batches[b.ID] = *b
	return nil
}

func (r *batches) AddAddress(ctx context.Context, batchID, addressID int64) error {
	if err := r.s.fail("batches.add_address"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.data.members[batchID] == nil {
		r.s.data.members[batchID] = map[int64]bool{}
	}
	r.s.data.members[batchID][addressID] = true
	return nil
}

func (r *batches) GetByTag(ctx context.Context, tag string) (*models.AddressBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.data.batches {
		if b.Tag == tag {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *batches) List(ctx context.Context, q repository.ListQuery) ([]models.BatchSummary, error) {
	if q.Where != nil {
		return nil, ErrUnsupportedPredicate
	}
	if err := repository.BatchSort.Validate(q.Sort); err != nil {
		return nil, err
	}
	list := r.s.BatchList()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.BatchSummary, len(list))
	for i, b := range list {
		out[i] = models.BatchSummary{AddressBatch: b, Members: int64(len(r.s.data.members[b.ID]))}
	}
	return pageOf(out, q.Limit, q.Offset), nil
}

func (r *batches) Count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	if where != nil {
		return 0, ErrUnsupportedPredicate
	}
	return int64(len(r.s.BatchList())), nil
}

func (r *batches) MemberIDs(ctx context.Context, batchID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]int64, 0, len(r.s.data.members[batchID]))
	for id := range r.s.data.members[batchID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type changes struct{ s *Store }

func (r *changes) CreateSnapshot(ctx context.Context, snap *models.AddressSnapshot) error {
	if err := r.s.fail("changes.create_snapshot"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snap.ID = r.s.data.id()
	stored := *snap
	stored.AddressFields = snap.AddressFields.Clone()
	r.s.data.snapshots[snap.ID] = stored
	return nil
}

func (r *changes) Create(ctx context.Context, c *models.AddressChange) error {
	if err := r.s.fail("changes.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c.ID = r.s.data.id()
	stored := *c
	stored.Pre, stored.Post = nil, nil
	r.s.data.changes[c.ID] = stored
	return nil
}

func (r *changes) Get(ctx context.Context, id int64) (*models.AddressChange, error) {
	if err := r.s.fail("changes.get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.data.changes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = r.s.withSnapshots(c)
	return &c, nil
}

func (r *changes) ListForAddress(ctx context.Context, addressID int64) ([]models.AddressChange, error) {
	out := []models.AddressChange{}
	for _, c := range r.s.ChangeList() {
		if c.AddressID == addressID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (r *changes) List(ctx context.Context, q repository.ListQuery) ([]models.AddressChange, error) {
	if q.Where != nil {
		return nil, ErrUnsupportedPredicate
	}
	if err := repository.ChangeSort.Validate(q.Sort); err != nil {
		return nil, err
	}
	return pageOf(r.s.ChangeList(), q.Limit, q.Offset), nil
}

func (r *changes) Count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	if where != nil {
		return 0, ErrUnsupportedPredicate
	}
	return int64(len(r.s.ChangeList())), nil
}

func (r *changes) Values(ctx context.Context, field filter.AutocompleteField, prefix string, limit int) ([]filter.Candidate, error) {
	return nil, fmt.Errorf("%w: autocomplete on %s", ErrUnsupportedPredicate, field.Key)
}

type parcels struct{ s *Store }

func (r *parcels) FindByPoint(ctx context.Context, lat, lng float64) (*models.Parcel, error) {
	return nil, nil
}

func (r *parcels) FindNearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]repository.ParcelWithDistance, error) {
	return []repository.ParcelWithDistance{}, nil
}

func (r *parcels) FindByPL(ctx context.Context, pl string) (*models.Parcel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p, ok := r.s.data.parcels[pl]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r *parcels) ListMapped(ctx context.Context) ([]models.Parcel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Parcel{}
	for pl, p := range r.s.data.parcels {
		for _, a := range r.s.data.addresses {
			if a.PL == pl && !a.Deleted {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PL < out[j].PL })
	return out, nil
}

func (r *parcels) ReplaceAll(ctx context.Context, list []models.Parcel, loadedAt time.Time, progress repository.ProgressFunc) (int64, error) {
	if err := r.s.fail("parcels.replace_all"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	loaded := make(map[string]models.Parcel, len(list))
	for i, p := range list {
		if _, dup := loaded[p.PL]; dup {
			return 0, repository.ErrDuplicatePL
		}
		p.ID = r.s.data.id()
		p.LoadedAt = loadedAt
		loaded[p.PL] = p
		if progress != nil {
			progress(i+1, len(list))
		}
	}
	r.s.data.parcels = loaded
	return int64(len(loaded)), nil
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
