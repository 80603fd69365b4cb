// Package filter builds query predicates and autocomplete suggestions from a
// declarative per-entity field configuration.
package filter

import (
	"net/url"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// DefaultMaxSuggestions caps autocomplete results per field.
const DefaultMaxSuggestions = 12

// Special maps a query key to a predicate, either through a fixed table of
// accepted values or through a function of all supplied values. Func wins
// when both are set.
type Special struct {
	Values map[string]sq.Sqlizer
	Func   func(values []string) sq.Sqlizer
}

func (s Special) predicate(values []string) sq.Sqlizer {
	if s.Func != nil {
		return s.Func(values)
	}
	or := sq.Or{}
	for _, v := range values {
		if p, ok := s.Values[v]; ok {
			or = append(or, p)
		}
	}
	if len(or) == 0 {
		return nil
	}
	return or
}

// AutocompleteField is a field offered by Autocomplete.
type AutocompleteField struct {
	Key    string
	Label  string
	Column string
	Date   bool
}

// Config declares the filterable fields of one entity. Every map is keyed by
// query parameter name and, except for Special and Override, holds a column
// expression.
type Config struct {
	// Fields match case-insensitively; several values for one key are ORed.
	Fields map[string]string
	// RawFields match exactly by set membership.
	RawFields map[string]string
	// DateFields take a ParseDateRange expression, inclusive of whole days.
	DateFields map[string]string
	// Special predicates narrow the result like plain fields.
	Special map[string]Special
	// Override predicates are ORed onto everything else.
	Override map[string]Special

	Autocomplete   []AutocompleteField
	MaxSuggestions int
}

// Filter applies a Config to query parameters.
type Filter struct {
	cfg Config
	now func() time.Time
}

// New returns a Filter for cfg. A zero MaxSuggestions uses the default.
func New(cfg Config) *Filter {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultMaxSuggestions
	}
	return &Filter{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of f that resolves relative dates against now.
func (f *Filter) WithClock(now func() time.Time) *Filter {
	cp := *f
	cp.now = now
	return &cp
}

// WithMaxSuggestions returns a copy of f with a different suggestion cap.
func (f *Filter) WithMaxSuggestions(n int) *Filter {
	cp := *f
	if n > 0 {
		cp.cfg.MaxSuggestions = n
	}
	return &cp
}

// Config returns the filter's configuration.
func (f *Filter) Config() Config {
	return f.cfg
}

// Apply narrows by every recognized parameter. Unknown parameters and blank
// values are ignored. With nothing to apply the predicate is always true.
func (f *Filter) Apply(params url.Values) sq.Sqlizer {
	and := sq.And{}

	for _, key := range sortedKeys(f.cfg.Fields) {
		values := present(params[key])
		if len(values) == 0 {
			continue
		}
		col := f.cfg.Fields[key]
		or := sq.Or{}
		for _, v := range values {
			or = append(or, sq.Expr("lower("+col+") = lower(?)", v))
		}
		and = append(and, or)
	}

	for _, key := range sortedKeys(f.cfg.RawFields) {
		values := present(params[key])
		if len(values) == 0 {
			continue
		}
		and = append(and, sq.Eq{f.cfg.RawFields[key]: values})
	}

	now := f.now()
	for _, key := range sortedKeys(f.cfg.DateFields) {
		col := f.cfg.DateFields[key]
		or := sq.Or{}
		for _, v := range present(params[key]) {
			r, ok := ParseDateRange(v, now)
			if !ok {
				continue
			}
			or = append(or, sq.And{
				sq.GtOrEq{col: r.Start},
				sq.Lt{col: r.Until()},
			})
		}
		if len(or) > 0 {
			and = append(and, or)
		}
	}

	for _, key := range sortedKeys(f.cfg.Special) {
		values := present(params[key])
		if len(values) == 0 {
			continue
		}
		if p := f.cfg.Special[key].predicate(values); p != nil {
			and = append(and, p)
		}
	}

	overrides := sq.Or{}
	for _, key := range sortedKeys(f.cfg.Override) {
		values := present(params[key])
		if len(values) == 0 {
			continue
		}
		if p := f.cfg.Override[key].predicate(values); p != nil {
			overrides = append(overrides, p)
		}
	}
	if len(overrides) == 0 {
		return and
	}
	return append(sq.Or{and}, overrides...)
}

func present(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
