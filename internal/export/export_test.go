package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stwalsh4118/addressmap/internal/models"
)

func TestAddresses_Row(t *testing.T) {
	mapped := time.Date(2024, 9, 10, 15, 30, 0, 0, time.UTC)
	lat := 30.5
	a := models.Address{ID: 7, AddressFields: models.AddressFields{
		Street: "1 Elm St", City: "Conroe", State: "TX", MultiUnit: true,
		PL: "PL-1", NeedsReview: true, MappedBy: "ann", MappedAt: &mapped, Latitude: &lat,
	}}

	row := Addresses().Row(a)
	assert.Equal(t, "7", row["id"])
	assert.Equal(t, "Y", row["multi_unit"])
	assert.Equal(t, "flagged", row["status"])
	assert.Equal(t, "2024-09-10T15:30:00Z", row["mapped_at"])
	assert.Equal(t, "30.5", row["latitude"])
	assert.Equal(t, "", row["longitude"])
	assert.Len(t, row, len(Addresses().Header()))
}

func TestSerializer_WithHooks(t *testing.T) {
	names := map[string]string{"ann": "Ann Smith"}
	base := Addresses()
	s := base.
		With("mapped_at", TimeFormat("01/02/2006")).
		With("mapped_by", ActorName(func(ref string) string { return names[ref] })).
		With("unknown", YesNo)

	mapped := time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC)
	rows := s.Rows([]models.Address{
		{AddressFields: models.AddressFields{MappedBy: "ann", MappedAt: &mapped}},
		{AddressFields: models.AddressFields{MappedBy: "bob"}},
	})
	assert.Equal(t, "09/10/2024", rows[0]["mapped_at"])
	assert.Equal(t, "Ann Smith", rows[0]["mapped_by"])
	assert.Equal(t, "", rows[1]["mapped_at"])
	assert.Equal(t, "bob", rows[1]["mapped_by"])

	// the original serializer is untouched
	plain := base.Row(models.Address{AddressFields: models.AddressFields{MappedAt: &mapped}})
	assert.Equal(t, "2024-09-10T00:00:00Z", plain["mapped_at"])
}

func TestEncoders(t *testing.T) {
	var nilTime *time.Time
	assert.Equal(t, "N", YesNo(false))
	assert.Equal(t, "x", YesNo("x"))
	assert.Equal(t, "", Default(nil))
	assert.Equal(t, "", Default(nilTime))
	assert.Equal(t, "", TimeFormat("2006")(time.Time{}))
	assert.Equal(t, "", ActorName(func(string) string { return "nobody" })(""))
}

func TestChanges_Row(t *testing.T) {
	pre := int64(1)
	row := Changes().Row(models.AddressChange{ID: 3, AddressID: 9, ChangedBy: "ann", PreID: &pre})
	assert.Equal(t, "deleted", row["kind"])
	assert.Equal(t, "9", row["address_id"])
}

func TestParcels_Header(t *testing.T) {
	assert.Equal(t, []string{"pl", "owner_name", "classification", "loaded_at"}, Parcels().Header())
}
