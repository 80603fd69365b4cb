// Package validation wraps go-playground/validator with the address-specific
// rules and renders failures as per-field message lists.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a field name to its human-readable messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Fields returns the failing field names in sorted order.
func (e FieldErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e[f], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator validates structs and reports FieldErrors keyed by JSON name.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the custom address rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	Register(v)
	return &Validator{validate: v}
}

// Register installs the custom tags and JSON field naming on v. It is also
// used to extend gin's binding validator.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("usstate", func(fl validator.FieldLevel) bool {
		return IsState(fl.Field().String())
	})
}

// Struct validates s. Rule failures come back as FieldErrors; anything else
// (for example an invalid argument) is returned unchanged.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return FromValidationErrors(verrs)
	}
	return err
}

// FromValidationErrors converts validator output to FieldErrors.
func FromValidationErrors(verrs validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out.Add(fe.Field(), Message(fe))
	}
	return out
}

// Message converts a validator.FieldError to a human-readable message.
func Message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "usstate":
		return "Must be a valid two-letter US state code"
	case "boolean":
		return "Must be true or false"
	case "latitude":
		return "Must be a valid latitude"
	case "longitude":
		return "Must be a valid longitude"
	case "datetime":
		return "Must be a timestamp in the format " + err.Param()
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "len":
		return "Must have length of " + err.Param()
	case "gt":
		return "Must be greater than " + err.Param()
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lt":
		return "Must be less than " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "url":
		return "Must be a valid URL"
	case "uuid":
		return "Must be a valid UUID"
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
