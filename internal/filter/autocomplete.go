package filter

import (
	"context"
	"fmt"
	"strings"
)

// Candidate is a distinct stored value offered for autocompletion.
type Candidate struct {
	Value   string
	Display string
}

// ValueSource looks up distinct values of field whose display form starts
// with prefix, case-insensitively. It returns at most limit candidates.
type ValueSource interface {
	Values(ctx context.Context, field AutocompleteField, prefix string, limit int) ([]Candidate, error)
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	Query      string `json:"query"`
	Display    string `json:"display"`
	Value      string `json:"value"`
	Remainder  string `json:"remainder"`
	Field      string `json:"field"`
	FieldLabel string `json:"field_label"`
	// ReplacesField is set when choosing the suggestion replaces the whole
	// field value rather than adding one more value.
	ReplacesField bool `json:"replaces_field"`
}

// Suggestions is the result of Autocomplete. TooMany lists the keys of
// fields with more matches than the cap; their values are omitted.
type Suggestions struct {
	Suggestions []Suggestion `json:"suggestions"`
	TooMany     []string     `json:"too_many"`
}

// Autocomplete suggests values for query across every autocomplete field.
func (f *Filter) Autocomplete(ctx context.Context, src ValueSource, query string) (Suggestions, error) {
	out := Suggestions{Suggestions: []Suggestion{}, TooMany: []string{}}
	if strings.TrimSpace(query) == "" {
		return out, nil
	}

	seen := make(map[string]struct{})
	for _, field := range f.cfg.Autocomplete {
		if field.Date {
			if r, ok := ParseDateRange(query, f.now()); ok {
				formatted := r.String()
				out.Suggestions = append(out.Suggestions, Suggestion{
					Query:         query,
					Display:       formatted,
					Value:         formatted,
					Field:         field.Key,
					FieldLabel:    field.Label,
					ReplacesField: true,
				})
			}
			continue
		}

		// One extra row tells "exactly at the cap" from "over the cap".
		candidates, err := src.Values(ctx, field, query, f.cfg.MaxSuggestions+1)
		if err != nil {
			return Suggestions{}, fmt.Errorf("failed to look up %s suggestions: %w", field.Key, err)
		}
		if len(candidates) > f.cfg.MaxSuggestions {
			out.TooMany = append(out.TooMany, field.Key)
			continue
		}

		for _, c := range candidates {
			key := field.Key + "\x00" + c.Value
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			display := c.Display
			if display == "" {
				display = c.Value
			}
			out.Suggestions = append(out.Suggestions, Suggestion{
				Query:      query,
				Display:    display,
				Value:      c.Value,
				Remainder:  remainder(display, query),
				Field:      field.Key,
				FieldLabel: field.Label,
			})
		}
	}
	return out, nil
}

// remainder returns the part of display after a case-insensitive query
// prefix, or all of display when it does not start with query.
func remainder(display, query string) string {
	if len(display) >= len(query) && strings.EqualFold(display[:len(query)], query) {
		return display[len(query):]
	}
	return display
}

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
