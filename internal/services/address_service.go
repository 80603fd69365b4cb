package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/addressmap/internal/dedup"
	"github.com/stwalsh4118/addressmap/internal/filter"
	"github.com/stwalsh4118/addressmap/internal/geocoder"
	"github.com/stwalsh4118/addressmap/internal/history"
	"github.com/stwalsh4118/addressmap/internal/logger"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/sorting"
	"github.com/stwalsh4118/addressmap/internal/validation"
)

// DefaultPageLength is the list page size when none is configured.
const DefaultPageLength = 20

// List parameters that are not filter keys.
const (
	SortParam = "sort"
	PageParam = "page"
)

// Service-level errors
var (
	ErrAddressNotFound     = errors.New("address not found")
	ErrAddressDeleted      = errors.New("address is deleted")
	ErrChangeNotFound      = errors.New("change not found")
	ErrNotMapped           = errors.New("address has no parcel")
	ErrNoGeocodeMatch      = errors.New("no geocoding match for address")
	ErrGeocoderUnavailable = errors.New("geocoding is unavailable")
)

// Page is one page of a sorted, filtered list.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageLength int   `json:"page_length"`
}

// AddressUpdate holds the user-editable fields. Nil fields are left alone.
type AddressUpdate struct {
	Street    *string  `json:"street"`
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	Complex   *string  `json:"complex"`
	Notes     *string  `json:"notes"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// editable is the validated shape of an address after an update.
type editable struct {
	Street    string   `json:"street" validate:"required"`
	City      string   `json:"city" validate:"required"`
	State     string   `json:"state" validate:"required,usstate"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// AddressOptions tunes an AddressService.
type AddressOptions struct {
	PageLength     int
	MaxSuggestions int
}

// AddressService defines the address operations. Every mutation is recorded
// in the change history; a mutation that changes nothing returns a nil change.
type AddressService interface {
	// Create saves a new address unless an equivalent one exists.
	Create(ctx context.Context, actor string, fields map[string]string) (dedup.Result, error)
	Get(ctx context.Context, id int64) (*models.Address, error)

	// List filters addresses by params, which may also carry the sort keys
	// (sort) and the 1-based page number (page). Deleted addresses are
	// excluded unless params say otherwise.
	List(ctx context.Context, params url.Values) (*Page[models.Address], error)
	Autocomplete(ctx context.Context, query string) (filter.Suggestions, error)

	Update(ctx context.Context, id int64, actor string, update AddressUpdate) (*models.Address, *models.AddressChange, error)
	// Map points the address at parcel pl. A blank pl unmaps it.
	Map(ctx context.Context, id int64, actor, pl string, needsReview bool) (*models.Address, *models.AddressChange, error)
	Approve(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error)
	Flag(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error)
	SetMultiUnit(ctx context.Context, id int64, actor string, multiUnit bool) (*models.Address, *models.AddressChange, error)
	Delete(ctx context.Context, id int64, actor string) (*models.AddressChange, error)
	// Geocode looks the address up and stores the coordinate found.
	Geocode(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error)

	// Changes returns the history of one address, oldest first.
	Changes(ctx context.Context, id int64) ([]models.AddressChange, error)
	ListChanges(ctx context.Context, params url.Values) (*Page[models.AddressChange], error)
	ChangeAutocomplete(ctx context.Context, query string) (filter.Suggestions, error)
	Revert(ctx context.Context, changeID int64, actor string) (history.RevertResult, error)
}

type addressService struct {
	store         repository.Store
	dedup         *dedup.Deduplicator
	tracker       *history.Tracker
	geocoder      geocoder.Geocoder
	validator     *validation.Validator
	addressFilter *filter.Filter
	changeFilter  *filter.Filter
	pageLength    int
	now           func() time.Time
	log           *logger.Logger
}

// NewAddressService creates a new instance of AddressService. geo may be nil,
// in which case Geocode fails with ErrGeocoderUnavailable, as it does when
// the geocoder cannot be reached.
func NewAddressService(store repository.Store, d *dedup.Deduplicator, tracker *history.Tracker, geo geocoder.Geocoder, opts AddressOptions, log *logger.Logger) AddressService {
	if opts.PageLength <= 0 {
		opts.PageLength = DefaultPageLength
	}
	return &addressService{
		store:         store,
		dedup:         d,
		tracker:       tracker,
		geocoder:      geo,
		validator:     validation.New(),
		addressFilter: filter.New(repository.AddressFilter()).WithMaxSuggestions(opts.MaxSuggestions),
		changeFilter:  filter.New(repository.ChangeFilter()).WithMaxSuggestions(opts.MaxSuggestions),
		pageLength:    opts.PageLength,
		now:           time.Now,
		log:           log,
	}
}

func (s *addressService) Create(ctx context.Context, actor string, fields map[string]string) (dedup.Result, error) {
	res, err := s.dedup.Create(ctx, s.store, actor, fields)
	if err != nil {
		var ferrs validation.FieldErrors
		var cols *dedup.UnknownColumnsError
		if errors.As(err, &ferrs) || errors.As(err, &cols) {
			s.log.Warn("Address rejected", map[string]interface{}{
				"actor":  actor,
				"reason": err.Error(),
			})
			return dedup.Result{}, err
		}
		s.log.Error("Failed to create address", err, map[string]interface{}{
			"actor": actor,
		})
		return dedup.Result{}, err
	}

	if res.Outcome == dedup.Duplicate {
		s.log.Info("Duplicate address skipped", map[string]interface{}{
			"actor":  actor,
			"street": fields["street"],
			"city":   fields["city"],
		})
		return res, nil
	}

	s.log.Info("Address created", map[string]interface{}{
		"actor":      actor,
		"address_id": res.Address.ID,
	})
	return res, nil
}

func (s *addressService) Get(ctx context.Context, id int64) (*models.Address, error) {
	a, err := s.store.Addresses().Get(ctx, id)
	if err != nil {
		return nil, s.notFound(err, ErrAddressNotFound, "Failed to get address", id)
	}
	return a, nil
}

func (s *addressService) List(ctx context.Context, params url.Values) (*Page[models.Address], error) {
	params = withDefault(params, "deleted", "no")
	keys, page, err := listControls(params, repository.AddressSort)
	if err != nil {
		return nil, err
	}

	where := s.addressFilter.Apply(params)
	total, err := s.store.Addresses().Count(ctx, where)
	if err != nil {
		s.log.Error("Failed to count addresses", err, nil)
		return nil, fmt.Errorf("failed to count addresses: %w", err)
	}
	items, err := s.store.Addresses().List(ctx, repository.ListQuery{
		Where:  where,
		Sort:   keys,
		Limit:  s.pageLength,
		Offset: (page - 1) * s.pageLength,
	})
	if err != nil {
		s.log.Error("Failed to list addresses", err, nil)
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}

	s.log.Debug("Addresses listed", map[string]interface{}{
		"total": total,
		"page":  page,
		"sort":  keys,
	})
	return &Page[models.Address]{Items: items, Total: total, Page: page, PageLength: s.pageLength}, nil
}

func (s *addressService) Autocomplete(ctx context.Context, query string) (filter.Suggestions, error) {
	out, err := s.addressFilter.Autocomplete(ctx, s.store.Addresses(), query)
	if err != nil {
		s.log.Error("Failed to autocomplete addresses", err, map[string]interface{}{
			"query": query,
		})
		return filter.Suggestions{}, fmt.Errorf("failed to autocomplete: %w", err)
	}
	return out, nil
}

func (s *addressService) Update(ctx context.Context, id int64, actor string, update AddressUpdate) (*models.Address, *models.AddressChange, error) {
	return s.mutate(ctx, id, actor, "update", func(f *models.AddressFields) error {
		if update.Street != nil {
			if err := s.dedup.SetStreet(f, *update.Street); err != nil {
				return err
			}
		}
		setTrimmed(&f.City, update.City)
		if update.State != nil {
			f.State = strings.ToUpper(strings.TrimSpace(*update.State))
		}
		setTrimmed(&f.Complex, update.Complex)
		setTrimmed(&f.Notes, update.Notes)
		if update.Latitude != nil {
			f.Latitude = update.Latitude
		}
		if update.Longitude != nil {
			f.Longitude = update.Longitude
		}

		return s.validator.Struct(editable{
			Street:    f.InputStreet,
			City:      f.City,
			State:     f.State,
			Latitude:  f.Latitude,
			Longitude: f.Longitude,
		})
	})
}

func (s *addressService) Map(ctx context.Context, id int64, actor, pl string, needsReview bool) (*models.Address, *models.AddressChange, error) {
	pl = strings.TrimSpace(pl)
	return s.mutate(ctx, id, actor, "map", func(f *models.AddressFields) error {
		if pl == "" {
			f.PL, f.MappedBy, f.MappedAt, f.NeedsReview = "", "", nil, false
			return nil
		}
		if f.PL == pl && f.NeedsReview == needsReview {
			return nil
		}
		at := s.now().UTC()
		f.PL, f.MappedBy, f.MappedAt, f.NeedsReview = pl, actor, &at, needsReview
		return nil
	})
}

func (s *addressService) Approve(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error) {
	return s.mutate(ctx, id, actor, "approve", func(f *models.AddressFields) error {
		if f.PL == "" {
			return ErrNotMapped
		}
		f.NeedsReview = false
		return nil
	})
}

func (s *addressService) Flag(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error) {
	return s.mutate(ctx, id, actor, "flag", func(f *models.AddressFields) error {
		if f.PL == "" {
			return ErrNotMapped
		}
		f.NeedsReview = true
		return nil
	})
}

func (s *addressService) SetMultiUnit(ctx context.Context, id int64, actor string, multiUnit bool) (*models.Address, *models.AddressChange, error) {
	return s.mutate(ctx, id, actor, "multi_unit", func(f *models.AddressFields) error {
		f.MultiUnit = multiUnit
		return nil
	})
}

func (s *addressService) Delete(ctx context.Context, id int64, actor string) (*models.AddressChange, error) {
	change, err := s.tracker.Delete(ctx, s.store, id, actor)
	if err != nil {
		return nil, s.notFound(err, ErrAddressNotFound, "Failed to delete address", id)
	}
	s.log.Info("Address deleted", map[string]interface{}{
		"actor":      actor,
		"address_id": id,
		"recorded":   change != nil,
	})
	return change, nil
}

func (s *addressService) Geocode(ctx context.Context, id int64, actor string) (*models.Address, *models.AddressChange, error) {
	if s.geocoder == nil {
		return nil, nil, ErrGeocoderUnavailable
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	query := a.Formatted()
	place, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		s.log.Error("Geocoding failed", err, map[string]interface{}{
			"address_id": id,
			"query":      query,
		})
		return nil, nil, fmt.Errorf("%w: %w", ErrGeocoderUnavailable, err)
	}
	if place == nil {
		s.log.Info("No geocoding match", map[string]interface{}{
			"address_id": id,
			"query":      query,
		})
		return nil, nil, ErrNoGeocodeMatch
	}

	lat, lng := place.Latitude, place.Longitude
	return s.mutate(ctx, id, actor, "geocode", func(f *models.AddressFields) error {
		f.Latitude, f.Longitude = &lat, &lng
		return nil
	})
}

func (s *addressService) Changes(ctx context.Context, id int64) ([]models.AddressChange, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	changes, err := s.store.Changes().ListForAddress(ctx, id)
	if err != nil {
		s.log.Error("Failed to list address history", err, map[string]interface{}{
			"address_id": id,
		})
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	return changes, nil
}

func (s *addressService) ListChanges(ctx context.Context, params url.Values) (*Page[models.AddressChange], error) {
	keys, page, err := listControls(params, repository.ChangeSort)
	if err != nil {
		return nil, err
	}

	where := s.changeFilter.Apply(params)
	total, err := s.store.Changes().Count(ctx, where)
	if err != nil {
		s.log.Error("Failed to count changes", err, nil)
		return nil, fmt.Errorf("failed to count changes: %w", err)
	}
	items, err := s.store.Changes().List(ctx, repository.ListQuery{
		Where:  where,
		Sort:   keys,
		Limit:  s.pageLength,
		Offset: (page - 1) * s.pageLength,
	})
	if err != nil {
		s.log.Error("Failed to list changes", err, nil)
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	return &Page[models.AddressChange]{Items: items, Total: total, Page: page, PageLength: s.pageLength}, nil
}

func (s *addressService) ChangeAutocomplete(ctx context.Context, query string) (filter.Suggestions, error) {
	out, err := s.changeFilter.Autocomplete(ctx, s.store.Changes(), query)
	if err != nil {
		s.log.Error("Failed to autocomplete changes", err, map[string]interface{}{
			"query": query,
		})
		return filter.Suggestions{}, fmt.Errorf("failed to autocomplete: %w", err)
	}
	return out, nil
}

func (s *addressService) Revert(ctx context.Context, changeID int64, actor string) (history.RevertResult, error) {
	res, err := s.tracker.Revert(ctx, s.store, changeID, actor)
	if err != nil {
		return history.RevertResult{}, s.notFound(err, ErrChangeNotFound, "Failed to revert change", changeID)
	}

	s.log.Info("Change reverted", map[string]interface{}{
		"actor":     actor,
		"change_id": changeID,
		"no_op":     res.NoOp,
		"conflicts": res.Conflicts,
	})
	return res, nil
}

// mutate runs fn through the tracker on a live address.
func (s *addressService) mutate(ctx context.Context, id int64, actor, op string, fn history.Mutation) (*models.Address, *models.AddressChange, error) {
	a, change, err := s.tracker.Track(ctx, s.store, id, actor, func(f *models.AddressFields) error {
		if f.Deleted {
			return ErrAddressDeleted
		}
		return fn(f)
	})
	if err != nil {
		var ferrs validation.FieldErrors
		if errors.As(err, &ferrs) || errors.Is(err, ErrAddressDeleted) || errors.Is(err, ErrNotMapped) {
			s.log.Warn("Address change rejected", map[string]interface{}{
				"actor":      actor,
				"address_id": id,
				"op":         op,
				"reason":     err.Error(),
			})
			return nil, nil, err
		}
		return nil, nil, s.notFound(err, ErrAddressNotFound, "Failed to change address", id)
	}

	if change != nil {
		s.log.Info("Address changed", map[string]interface{}{
			"actor":      actor,
			"address_id": id,
			"op":         op,
			"change_id":  change.ID,
		})
	}
	return a, change, nil
}

// notFound maps repository.ErrNotFound to sentinel and wraps anything else.
func (s *addressService) notFound(err, sentinel error, msg string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	s.log.Error(msg, err, map[string]interface{}{
		"id": id,
	})
	return fmt.Errorf("%s: %w", strings.ToLower(msg), err)
}

// listControls validates the sort keys and page number carried by params.
func listControls(params url.Values, cfg sorting.Config) ([]string, int, error) {
	keys := sorting.ParseKeys(strings.Join(params[SortParam], ","))
	if err := cfg.Validate(keys); err != nil {
		return nil, 0, err
	}
	page, err := strconv.Atoi(params.Get(PageParam))
	if err != nil || page < 1 {
		page = 1
	}
	return keys, page, nil
}

func withDefault(params url.Values, key, value string) url.Values {
	out := make(url.Values, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	if len(out[key]) == 0 {
		out.Set(key, value)
	}
	return out
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
