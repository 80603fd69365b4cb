package export

import (
	"github.com/stwalsh4118/addressmap/internal/models"
)

// Addresses returns the address serializer.
func Addresses() *Serializer[models.Address] {
	return New(
		Column[models.Address]{Name: "id", Value: func(a models.Address) interface{} { return a.ID }},
		Column[models.Address]{Name: "street", Value: func(a models.Address) interface{} { return a.Street }},
		Column[models.Address]{Name: "city", Value: func(a models.Address) interface{} { return a.City }},
		Column[models.Address]{Name: "state", Value: func(a models.Address) interface{} { return a.State }},
		Column[models.Address]{Name: "complex", Value: func(a models.Address) interface{} { return a.Complex }},
		Column[models.Address]{Name: "notes", Value: func(a models.Address) interface{} { return a.Notes }},
		Column[models.Address]{Name: "multi_unit", Value: func(a models.Address) interface{} { return a.MultiUnit }, Encode: YesNo},
		Column[models.Address]{Name: "pl", Value: func(a models.Address) interface{} { return a.PL }},
		Column[models.Address]{Name: "status", Value: func(a models.Address) interface{} { return string(a.Status()) }},
		Column[models.Address]{Name: "mapped_by", Value: func(a models.Address) interface{} { return a.MappedBy }},
		Column[models.Address]{Name: "mapped_at", Value: func(a models.Address) interface{} { return a.MappedAt }},
		Column[models.Address]{Name: "latitude", Value: func(a models.Address) interface{} { return a.Latitude }},
		Column[models.Address]{Name: "longitude", Value: func(a models.Address) interface{} { return a.Longitude }},
		Column[models.Address]{Name: "imported_by", Value: func(a models.Address) interface{} { return a.ImportedBy }},
		Column[models.Address]{Name: "import_source", Value: func(a models.Address) interface{} { return a.ImportSource }},
	)
}

// Changes returns the change serializer.
func Changes() *Serializer[models.AddressChange] {
	return New(
		Column[models.AddressChange]{Name: "id", Value: func(c models.AddressChange) interface{} { return c.ID }},
		Column[models.AddressChange]{Name: "address_id", Value: func(c models.AddressChange) interface{} { return c.AddressID }},
		Column[models.AddressChange]{Name: "kind", Value: func(c models.AddressChange) interface{} { return string(c.Kind()) }},
		Column[models.AddressChange]{Name: "changed_by", Value: func(c models.AddressChange) interface{} { return c.ChangedBy }},
		Column[models.AddressChange]{Name: "changed_at", Value: func(c models.AddressChange) interface{} { return c.ChangedAt }},
	)
}

// Parcels returns the parcel serializer. Geometry is left to the writers.
func Parcels() *Serializer[models.Parcel] {
	return New(
		Column[models.Parcel]{Name: "pl", Value: func(p models.Parcel) interface{} { return p.PL }},
		Column[models.Parcel]{Name: "owner_name", Value: func(p models.Parcel) interface{} { return p.OwnerName }},
		Column[models.Parcel]{Name: "classification", Value: func(p models.Parcel) interface{} { return p.Classification }},
		Column[models.Parcel]{Name: "loaded_at", Value: func(p models.Parcel) interface{} { return p.LoadedAt }},
	)
}
