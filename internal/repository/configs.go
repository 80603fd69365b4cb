package repository

import (
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/stwalsh4118/addressmap/internal/filter"
	"github.com/stwalsh4118/addressmap/internal/sorting"
)

// AddressSort declares the sort keys accepted by AddressRepository.List.
var AddressSort = sorting.Config{
	Fields: map[string]string{
		"id":            "addresses.id",
		"street":        "addresses.street",
		"city":          "addresses.city",
		"state":         "addresses.state",
		"complex":       "addresses.complex",
		"pl":            "addresses.pl",
		"import_source": "addresses.import_source",
		"imported_at":   "addresses.imported_at",
		"created_at":    "addresses.created_at",
		"updated_at":    "addresses.updated_at",
		"mapped_at":     "addresses.mapped_at",
	},
	Virtual: map[string]sorting.Virtual{
		"last_changed": {
			Join:    "address_changes ON address_changes.address_id = addresses.id",
			Expr:    "MAX(address_changes.changed_at)",
			GroupBy: "addresses.id",
		},
	},
	Tiebreak: "addresses.id",
}

// ChangeSort declares the sort keys accepted by ChangeRepository.List.
var ChangeSort = sorting.Config{
	Fields: map[string]string{
		"id":         "address_changes.id",
		"address":    "address_changes.address_id",
		"changed_at": "address_changes.changed_at",
		"changed_by": "address_changes.changed_by",
	},
	Tiebreak: "address_changes.id",
}

// BatchSort declares the sort keys accepted by BatchRepository.List.
var BatchSort = sorting.Config{
	Fields: map[string]string{
		"tag":        "address_batches.tag",
		"created_at": "address_batches.created_at",
		"created_by": "address_batches.created_by",
		"members":    "members",
	},
	Tiebreak: "address_batches.id",
}

var yes = map[string]bool{"yes": true, "true": true, "1": true}
var no = map[string]bool{"no": true, "false": true, "0": true}

// flag turns yes/no style values into a boolean column test. "any" and
// unrecognized values leave the column unconstrained.
func flag(col string) filter.Special {
	return filter.Special{Func: func(values []string) sq.Sqlizer {
		or := sq.Or{}
		for _, v := range values {
			switch v = strings.ToLower(v); {
			case yes[v]:
				or = append(or, sq.Eq{col: true})
			case no[v]:
				or = append(or, sq.Eq{col: false})
			}
		}
		if len(or) == 0 {
			return nil
		}
		return or
	}}
}

// idsIn matches col against the numeric values; other values never match.
func idsIn(col string) filter.Special {
	return filter.Special{Func: func(values []string) sq.Sqlizer {
		ids := make([]int64, 0, len(values))
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
					ids = append(ids, id)
				}
			}
		}
		if len(ids) == 0 {
			return sq.Expr("1=0")
		}
		return sq.Eq{col: ids}
	}}
}

// AddressFilter returns the filter configuration for address lists. The
// deleted key defaults to "no" in the address service, not here.
func AddressFilter() filter.Config {
	return filter.Config{
		Fields: map[string]string{
			"street":        "addresses.street",
			"city":          "addresses.city",
			"state":         "addresses.state",
			"complex":       "addresses.complex",
			"import_source": "addresses.import_source",
			"imported_by":   "addresses.imported_by",
			"mapped_by":     "addresses.mapped_by",
		},
		RawFields: map[string]string{
			"pl": "addresses.pl",
		},
		DateFields: map[string]string{
			"created":  "addresses.created_at",
			"mapped":   "addresses.mapped_at",
			"imported": "addresses.imported_at",
		},
		Special: map[string]filter.Special{
			"id": idsIn("addresses.id"),
			"status": {Values: map[string]sq.Sqlizer{
				"unmapped": sq.Eq{"addresses.pl": ""},
				"flagged":  sq.And{sq.NotEq{"addresses.pl": ""}, sq.Eq{"addresses.needs_review": true}},
				"approved": sq.And{sq.NotEq{"addresses.pl": ""}, sq.Eq{"addresses.needs_review": false}},
			}},
			"multi_unit": flag("addresses.multi_unit"),
			"deleted":    flag("addresses.deleted"),
			"batch": {Func: func(tags []string) sq.Sqlizer {
				return sq.Expr(`addresses.id IN (
					SELECT m.address_id FROM address_batch_members m
					JOIN address_batches b ON b.id = m.batch_id
					WHERE b.tag = ANY(?))`, tags)
			}},
		},
		Override: map[string]filter.Special{
			"include": idsIn("addresses.id"),
		},
		Autocomplete: []filter.AutocompleteField{
			{Key: "street", Label: "Street", Column: "addresses.street"},
			{Key: "city", Label: "City", Column: "addresses.city"},
			{Key: "complex", Label: "Complex", Column: "addresses.complex"},
			{Key: "pl", Label: "Parcel", Column: "addresses.pl"},
			{Key: "import_source", Label: "Import source", Column: "addresses.import_source"},
			{Key: "imported_by", Label: "Imported by", Column: "addresses.imported_by"},
			{Key: "mapped_by", Label: "Mapped by", Column: "addresses.mapped_by"},
			{Key: "created", Label: "Created", Date: true},
			{Key: "mapped", Label: "Mapped", Date: true},
		},
	}
}

// ChangeFilter returns the filter configuration for change lists.
func ChangeFilter() filter.Config {
	return filter.Config{
		Fields: map[string]string{
			"changed_by": "address_changes.changed_by",
		},
		DateFields: map[string]string{
			"changed": "address_changes.changed_at",
		},
		Special: map[string]filter.Special{
			"address": idsIn("address_changes.address_id"),
			"kind": {Values: map[string]sq.Sqlizer{
				"created": sq.Eq{"address_changes.pre_id": nil},
				"deleted": sq.Eq{"address_changes.post_id": nil},
				"updated": sq.And{
					sq.NotEq{"address_changes.pre_id": nil},
					sq.NotEq{"address_changes.post_id": nil},
				},
			}},
		},
		Autocomplete: []filter.AutocompleteField{
			{Key: "changed_by", Label: "Changed by", Column: "address_changes.changed_by"},
			{Key: "changed", Label: "Changed", Date: true},
		},
	}
}
