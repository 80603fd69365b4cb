package models

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

type fieldInfo struct {
	name    string
	index   int
	derived bool
}

var (
	addressFieldInfo  = indexAddressFields()
	addressFieldByKey = func() map[string]fieldInfo {
		m := make(map[string]fieldInfo, len(addressFieldInfo))
		for _, fi := range addressFieldInfo {
			m[fi.name] = fi
		}
		return m
	}()
)

func indexAddressFields() []fieldInfo {
	t := reflect.TypeOf(AddressFields{})
	out := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		out = append(out, fieldInfo{
			name:    name,
			index:   i,
			derived: f.Tag.Get("history") == "derived",
		})
	}
	return out
}

// AddressFieldNames lists every address field by its JSON name, in
// declaration order.
func AddressFieldNames() []string {
	names := make([]string, len(addressFieldInfo))
	for i, fi := range addressFieldInfo {
		names[i] = fi.name
	}
	return names
}

// TrackedAddressFields lists the fields the change tracker compares and
// restores. Derived fields are excluded.
func TrackedAddressFields() []string {
	names := make([]string, 0, len(addressFieldInfo))
	for _, fi := range addressFieldInfo {
		if !fi.derived {
			names = append(names, fi.name)
		}
	}
	return names
}

// Clone returns a copy that shares no pointers with f.
func (f AddressFields) Clone() AddressFields {
	out := f
	if f.MappedAt != nil {
		t := *f.MappedAt
		out.MappedAt = &t
	}
	if f.ImportedAt != nil {
		t := *f.ImportedAt
		out.ImportedAt = &t
	}
	if f.Latitude != nil {
		v := *f.Latitude
		out.Latitude = &v
	}
	if f.Longitude != nil {
		v := *f.Longitude
		out.Longitude = &v
	}
	return out
}

// Value returns the value of the named field.
func (f *AddressFields) Value(name string) (interface{}, error) {
	fi, ok := addressFieldByKey[name]
	if !ok {
		return nil, fmt.Errorf("unknown address field %q", name)
	}
	return reflect.ValueOf(f).Elem().Field(fi.index).Interface(), nil
}

// CopyField sets the named field of f to its value in src.
func (f *AddressFields) CopyField(src *AddressFields, name string) error {
	fi, ok := addressFieldByKey[name]
	if !ok {
		return fmt.Errorf("unknown address field %q", name)
	}
	cloned := src.Clone()
	reflect.ValueOf(f).Elem().Field(fi.index).Set(reflect.ValueOf(&cloned).Elem().Field(fi.index))
	return nil
}

// FieldEqual reports whether the named field holds the same value in a and b.
// Pointer fields compare by pointee and times compare by instant.
func FieldEqual(a, b *AddressFields, name string) (bool, error) {
	fi, ok := addressFieldByKey[name]
	if !ok {
		return false, fmt.Errorf("unknown address field %q", name)
	}
	va := reflect.ValueOf(a).Elem().Field(fi.index)
	vb := reflect.ValueOf(b).Elem().Field(fi.index)
	return valuesEqual(va, vb), nil
}

func valuesEqual(a, b reflect.Value) bool {
	if a.Kind() == reflect.Ptr {
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return valuesEqual(a.Elem(), b.Elem())
	}
	if ta, ok := a.Interface().(time.Time); ok {
		return ta.Equal(b.Interface().(time.Time))
	}
	return a.Interface() == b.Interface()
}
