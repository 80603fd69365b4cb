// Package dedup creates addresses from loosely typed input, skipping any
// address that already exists.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/addressmap/internal/history"
	"github.com/stwalsh4118/addressmap/internal/models"
	"github.com/stwalsh4118/addressmap/internal/repository"
	"github.com/stwalsh4118/addressmap/internal/streetparser"
	"github.com/stwalsh4118/addressmap/internal/validation"
)

// TimeLayout is the accepted format of imported_at.
const TimeLayout = time.RFC3339

// Outcome tells whether Create saved a new address.
type Outcome string

const (
	Created   Outcome = "created"
	Duplicate Outcome = "duplicate"
)

// Result is the outcome of Create. Address is set only when Created.
type Result struct {
	Outcome Outcome
	Address *models.Address
}

// UnknownColumnsError reports input keys that are not address columns.
type UnknownColumnsError struct {
	Columns []string
}

func (e *UnknownColumnsError) Error() string {
	return "extra or unknown columns: " + strings.Join(e.Columns, ", ")
}

// input is the validated form of the accepted columns.
type input struct {
	Street       string `json:"street" validate:"required"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required,usstate"`
	Complex      string `json:"complex"`
	Notes        string `json:"notes"`
	MultiUnit    string `json:"multi_unit" validate:"omitempty,boolean"`
	PL           string `json:"pl"`
	NeedsReview  string `json:"needs_review" validate:"omitempty,boolean"`
	ImportedBy   string `json:"imported_by"`
	ImportedAt   string `json:"imported_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ImportSource string `json:"import_source"`
	Latitude     string `json:"latitude" validate:"omitempty,latitude"`
	Longitude    string `json:"longitude" validate:"omitempty,longitude"`
}

// Columns lists the keys Create accepts.
var Columns = []string{
	"street", "city", "state", "complex", "notes", "multi_unit", "pl", "needs_review",
	"imported_by", "imported_at", "import_source", "latitude", "longitude",
}

var known = func() map[string]bool {
	m := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		m[c] = true
	}
	return m
}()

// Options tunes a Deduplicator.
type Options struct {
	// Strict turns an unparseable street into a street field error instead
	// of keeping the raw input unparsed.
	Strict bool
}

// Deduplicator creates addresses unless an equivalent one exists.
type Deduplicator struct {
	parser    *streetparser.Parser
	validator *validation.Validator
	tracker   *history.Tracker
	opts      Options
}

// New returns a Deduplicator. A nil parser uses the default suffixes.
func New(parser *streetparser.Parser, tracker *history.Tracker, opts Options) *Deduplicator {
	if parser == nil {
		parser = streetparser.NewParser(nil)
	}
	return &Deduplicator{
		parser:    parser,
		validator: validation.New(),
		tracker:   tracker,
		opts:      opts,
	}
}

// CheckColumns fails with *UnknownColumnsError when any key of fields is not
// in Columns.
func CheckColumns(fields map[string]string) error {
	var unknown []string
	for k := range fields {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &UnknownColumnsError{Columns: unknown}
}

// Create saves the address described by fields and records its creation
// under actor, both on store. An existing address with the same street, city
// and state makes it a Duplicate and nothing is written. Field problems come
// back as validation.FieldErrors.
func (d *Deduplicator) Create(ctx context.Context, store repository.Store, actor string, fields map[string]string) (Result, error) {
	if err := CheckColumns(fields); err != nil {
		return Result{}, err
	}
	in := normalize(fields)

	street, parseErr := d.parser.Parse(in.Street)
	if in.Street != "" && in.City != "" && in.State != "" {
		candidates := []string{in.Street}
		if parseErr == nil {
			candidates = append(candidates, street.String())
		}
		existing, err := store.Addresses().FindDuplicates(ctx, candidates, in.City, in.State)
		if err != nil {
			return Result{}, fmt.Errorf("failed to check for duplicates: %w", err)
		}
		if len(existing) > 0 {
			return Result{Outcome: Duplicate}, nil
		}
	}

	ferrs := validation.FieldErrors{}
	if err := d.validator.Struct(in); err != nil {
		verrs, ok := err.(validation.FieldErrors)
		if !ok {
			return Result{}, err
		}
		ferrs = verrs
	}
	if parseErr != nil && d.opts.Strict && in.Street != "" {
		ferrs.Add("street", parseErr.Error())
	}
	if len(ferrs) > 0 {
		return Result{}, ferrs
	}

	a := &models.Address{AddressFields: in.fields()}
	if parseErr == nil {
		a.Number, a.Name, a.Suffix = street.Number, street.Name, street.Suffix
	}

	err := store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Addresses().Create(ctx, a); err != nil {
			return err
		}
		_, err := d.tracker.RecordCreation(ctx, tx, a, actor)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create address: %w", err)
	}
	return Result{Outcome: Created, Address: a}, nil
}

// SetStreet stores raw as the input street of f and replaces the parsed
// components. An unparseable street leaves the components empty, or fails
// with a street FieldErrors in strict mode.
func (d *Deduplicator) SetStreet(f *models.AddressFields, raw string) error {
	raw = strings.TrimSpace(raw)
	street, err := d.parser.Parse(raw)
	if err != nil && d.opts.Strict {
		return validation.FieldErrors{"street": {err.Error()}}
	}
	f.InputStreet = raw
	f.Number, f.Prefix, f.Name, f.Type, f.Suffix = "", "", "", "", ""
	if err == nil {
		f.Number, f.Name, f.Suffix = street.Number, street.Name, street.Suffix
	}
	f.ComputeStreet()
	return nil
}

func normalize(fields map[string]string) input {
	get := func(k string) string { return strings.TrimSpace(fields[k]) }
	return input{
		Street:       get("street"),
		City:         get("city"),
		State:        strings.ToUpper(get("state")),
		Complex:      get("complex"),
		Notes:        get("notes"),
		MultiUnit:    get("multi_unit"),
		PL:           get("pl"),
		NeedsReview:  get("needs_review"),
		ImportedBy:   get("imported_by"),
		ImportedAt:   get("imported_at"),
		ImportSource: get("import_source"),
		Latitude:     get("latitude"),
		Longitude:    get("longitude"),
	}
}

// fields converts validated input; parse errors cannot occur here.
func (in input) fields() models.AddressFields {
	f := models.AddressFields{
		InputStreet:  in.Street,
		City:         in.City,
		State:        in.State,
		Complex:      in.Complex,
		Notes:        in.Notes,
		PL:           in.PL,
		ImportedBy:   in.ImportedBy,
		ImportSource: in.ImportSource,
	}
	f.MultiUnit, _ = strconv.ParseBool(in.MultiUnit)
	f.NeedsReview, _ = strconv.ParseBool(in.NeedsReview)
	if in.ImportedAt != "" {
		if t, err := time.Parse(TimeLayout, in.ImportedAt); err == nil {
			t = t.UTC()
			f.ImportedAt = &t
		}
	}
	if in.Latitude != "" && in.Longitude != "" {
		lat, errLat := strconv.ParseFloat(in.Latitude, 64)
		lng, errLng := strconv.ParseFloat(in.Longitude, 64)
		if errLat == nil && errLng == nil {
			f.Latitude, f.Longitude = &lat, &lng
		}
	}
	return f
}
