package models

import (
	"strings"
	"time"
)

// AddressStatus is the mapping state derived from pl and needs_review.
type AddressStatus string

const (
	StatusUnmapped AddressStatus = "unmapped"
	StatusFlagged  AddressStatus = "flagged"
	StatusApproved AddressStatus = "approved"
)

// AddressFields holds every user-visible address attribute. It is shared by
// Address and AddressSnapshot so a snapshot is always a full copy.
//
// Fields tagged history:"derived" are recomputed on save and are never
// compared or restored by the change tracker.
type AddressFields struct {
	InputStreet  string     `db:"input_street" json:"input_street"`
	Number       string     `db:"number" json:"number"`
	Prefix       string     `db:"prefix" json:"prefix"`
	Name         string     `db:"name" json:"name"`
	Type         string     `db:"type" json:"type"`
	Suffix       string     `db:"suffix" json:"suffix"`
	Street       string     `db:"street" json:"street" history:"derived"`
	City         string     `db:"city" json:"city"`
	State        string     `db:"state" json:"state"`
	Complex      string     `db:"complex" json:"complex"`
	Notes        string     `db:"notes" json:"notes"`
	MultiUnit    bool       `db:"multi_unit" json:"multi_unit"`
	PL           string     `db:"pl" json:"pl"`
	MappedBy     string     `db:"mapped_by" json:"mapped_by"`
	MappedAt     *time.Time `db:"mapped_at" json:"mapped_at"`
	NeedsReview  bool       `db:"needs_review" json:"needs_review"`
	Deleted      bool       `db:"deleted" json:"deleted"`
	ImportedBy   string     `db:"imported_by" json:"imported_by"`
	ImportedAt   *time.Time `db:"imported_at" json:"imported_at"`
	ImportSource string     `db:"import_source" json:"import_source"`
	Latitude     *float64   `db:"latitude" json:"latitude"`
	Longitude    *float64   `db:"longitude" json:"longitude"`
}

// Address is the canonical record of a known street address.
type Address struct {
	ID int64 `db:"id" json:"id"`
	AddressFields
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ComposedStreet joins the non-empty parsed components with single spaces,
// falling back to the raw input when every component is empty.
func (f AddressFields) ComposedStreet() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{f.Number, f.Prefix, f.Name, f.Type, f.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return f.InputStreet
	}
	return strings.Join(parts, " ")
}

// ComputeStreet refreshes the denormalized street. Call before every save.
func (f *AddressFields) ComputeStreet() {
	f.Street = f.ComposedStreet()
}

// Status reports whether the address is unmapped, flagged or approved.
func (f AddressFields) Status() AddressStatus {
	switch {
	case f.PL == "":
		return StatusUnmapped
	case f.NeedsReview:
		return StatusFlagged
	default:
		return StatusApproved
	}
}

// Formatted renders the address for geocoding and display.
func (f AddressFields) Formatted() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{f.Street, f.City, f.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
