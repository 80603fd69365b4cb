// Package export flattens records into field name to string mappings for
// file writers. Each field's encoding can be replaced per column.
package export

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Encoder turns a field value into its exported text.
type Encoder func(v interface{}) string

// Column is one exported field of T.
type Column[T any] struct {
	Name  string
	Value func(r T) interface{}
	// Encode overrides the default encoding when set.
	Encode Encoder
}

// Serializer exports records of T through a fixed column list.
type Serializer[T any] struct {
	columns []Column[T]
}

// New returns a Serializer for columns, exported in the given order.
func New[T any](columns ...Column[T]) *Serializer[T] {
	return &Serializer[T]{columns: columns}
}

// With returns a copy of s with the encoder of the named column replaced.
// Unknown names are ignored.
func (s *Serializer[T]) With(name string, enc Encoder) *Serializer[T] {
	cols := make([]Column[T], len(s.columns))
	copy(cols, s.columns)
	for i := range cols {
		if cols[i].Name == name {
			cols[i].Encode = enc
		}
	}
	return &Serializer[T]{columns: cols}
}

// Header returns the column names.
func (s *Serializer[T]) Header() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Row exports one record.
func (s *Serializer[T]) Row(r T) map[string]string {
	out := make(map[string]string, len(s.columns))
	for _, c := range s.columns {
		enc := c.Encode
		if enc == nil {
			enc = Default
		}
		out[c.Name] = enc(c.Value(r))
	}
	return out
}

// Rows exports every record.
func (s *Serializer[T]) Rows(records []T) []map[string]string {
	out := make([]map[string]string, len(records))
	for i, r := range records {
		out[i] = s.Row(r)
	}
	return out
}

// Default renders nil pointers as "", times as RFC 3339 and everything
// else with fmt.
func Default(v interface{}) string {
	v = deref(v)
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// YesNo renders booleans as a single Y or N.
func YesNo(v interface{}) string {
	if b, ok := deref(v).(bool); ok {
		if b {
			return "Y"
		}
		return "N"
	}
	return Default(v)
}

// TimeFormat renders times with layout; zero and nil times render as "".
func TimeFormat(layout string) Encoder {
	return func(v interface{}) string {
		t, ok := deref(v).(time.Time)
		if !ok {
			return Default(v)
		}
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	}
}

// ActorName renders an actor reference through lookup, falling back to the
// reference itself when lookup returns "".
func ActorName(lookup func(actor string) string) Encoder {
	return func(v interface{}) string {
		ref := Default(v)
		if ref == "" {
			return ""
		}
		if name := lookup(ref); name != "" {
			return name
		}
		return ref
	}
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
