// Package sorting applies caller-supplied ORDER BY keys to squirrel queries
// and rejects unknown keys explicitly.
package sorting

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// InvalidFieldsError lists the field name of every sort key that could not
// be applied.
type InvalidFieldsError struct {
	Fields []string
}

func (e *InvalidFieldsError) Error() string {
	return fmt.Sprintf("invalid sort fields: %s", strings.Join(e.Fields, ", "))
}

// Virtual is a sort key computed from a fan-out relation. The query is
// joined once and grouped so every row still appears exactly once.
type Virtual struct {
	Join    string
	Expr    string
	GroupBy string
}

// Config declares the sortable keys of one entity.
type Config struct {
	// Fields maps a key to a column expression.
	Fields map[string]string
	// Virtual maps a key to an aggregate over a joined relation.
	Virtual map[string]Virtual
	// Tiebreak is appended last so paging is stable.
	Tiebreak string
}

type key struct {
	name string
	desc bool
}

func parseKey(raw string) key {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "-") {
		return key{name: raw[1:], desc: true}
	}
	return key{name: strings.TrimPrefix(raw, "+")}
}

// Validate checks each key on its own and reports the names of all that
// are unknown, without their direction prefix. A key with no name at all
// is reported as written.
func (c Config) Validate(keys []string) error {
	var invalid []string
	for _, raw := range keys {
		name := parseKey(raw).name
		if c.known(name) {
			continue
		}
		if name == "" {
			name = strings.TrimSpace(raw)
		}
		invalid = append(invalid, name)
	}
	if len(invalid) > 0 {
		return &InvalidFieldsError{Fields: invalid}
	}
	return nil
}

func (c Config) known(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := c.Fields[name]; ok {
		return true
	}
	_, ok := c.Virtual[name]
	return ok
}

// Apply orders b by keys. Blank keys are skipped; a repeated key only
// counts the first time. Nothing is applied when any key is invalid.
func (c Config) Apply(b sq.SelectBuilder, keys []string) (sq.SelectBuilder, error) {
	keys = nonBlank(keys)
	if err := c.Validate(keys); err != nil {
		return b, err
	}

	used := make(map[string]bool, len(keys))
	joined := make(map[string]bool)
	for _, raw := range keys {
		k := parseKey(raw)
		if used[k.name] {
			continue
		}
		used[k.name] = true

		expr, ok := c.Fields[k.name]
		if !ok {
			v := c.Virtual[k.name]
			if !joined[v.Join] {
				b = b.LeftJoin(v.Join).GroupBy(v.GroupBy)
				joined[v.Join] = true
			}
			expr = v.Expr
		}
		b = b.OrderBy(expr + direction(k.desc))
	}

	if c.Tiebreak != "" {
		b = b.OrderBy(c.Tiebreak + " ASC")
	}
	return b, nil
}

func direction(desc bool) string {
	if desc {
		return " DESC"
	}
	return " ASC"
}

func nonBlank(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			out = append(out, strings.TrimSpace(k))
		}
	}
	return out
}

// ParseKeys splits a comma separated sort parameter.
func ParseKeys(param string) []string {
	if strings.TrimSpace(param) == "" {
		return nil
	}
	return nonBlank(strings.Split(param, ","))
}
