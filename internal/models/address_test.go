package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStreet(t *testing.T) {
	tests := []struct {
		name   string
		fields AddressFields
		want   string
	}{
		{
			name:   "parsed components joined",
			fields: AddressFields{InputStreet: "123 n main street", Number: "123", Name: "N Main", Suffix: "St"},
			want:   "123 N Main St",
		},
		{
			name:   "all components",
			fields: AddressFields{Number: "5", Prefix: "W", Name: "Oak", Type: "Ave", Suffix: "NE"},
			want:   "5 W Oak Ave NE",
		},
		{
			name:   "falls back to raw input",
			fields: AddressFields{InputStreet: "Rural Route 9"},
			want:   "Rural Route 9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fields
			f.Street = "stale"
			f.ComputeStreet()
			assert.Equal(t, tt.want, f.Street)
		})
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusUnmapped, AddressFields{}.Status())
	assert.Equal(t, StatusUnmapped, AddressFields{NeedsReview: true}.Status())
	assert.Equal(t, StatusFlagged, AddressFields{PL: "12-34", NeedsReview: true}.Status())
	assert.Equal(t, StatusApproved, AddressFields{PL: "12-34"}.Status())
}

func TestTrackedAddressFields(t *testing.T) {
	tracked := TrackedAddressFields()

	assert.NotContains(t, tracked, "street")
	assert.Contains(t, tracked, "input_street")
	assert.Contains(t, tracked, "pl")
	assert.Contains(t, tracked, "deleted")
	assert.Len(t, tracked, len(AddressFieldNames())-1)
}

func TestCopyFieldAndFieldEqual(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lat := 30.1
	src := AddressFields{City: "Conroe", MappedAt: &now, Latitude: &lat}
	var dst AddressFields

	for _, name := range []string{"city", "mapped_at", "latitude"} {
		require.NoError(t, dst.CopyField(&src, name))
		eq, err := FieldEqual(&dst, &src, name)
		require.NoError(t, err)
		assert.True(t, eq, name)
	}

	// Copies never alias the source.
	*src.Latitude = 99
	assert.Equal(t, 30.1, *dst.Latitude)

	sameInstant := now.In(time.FixedZone("CST", -6*3600))
	other := AddressFields{MappedAt: &sameInstant}
	eq, err := FieldEqual(&dst, &other, "mapped_at")
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = FieldEqual(&dst, &AddressFields{}, "mapped_at")
	require.NoError(t, err)
	assert.False(t, eq)

	assert.Error(t, dst.CopyField(&src, "nope"))
	_, err = FieldEqual(&dst, &src, "nope")
	assert.Error(t, err)
}

func TestAddressChangeKind(t *testing.T) {
	id := int64(1)
	assert.Equal(t, ChangeCreated, AddressChange{PostID: &id}.Kind())
	assert.Equal(t, ChangeDeleted, AddressChange{PreID: &id}.Kind())
	assert.Equal(t, ChangeUpdated, AddressChange{PreID: &id, PostID: &id}.Kind())
}
