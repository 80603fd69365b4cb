package models

import (
	"time"
)

// Parcel is a geographic unit identified by its parcel locator code (pl).
// Addresses reference parcels by pl value only.
type Parcel struct {
	ID             int64        `db:"id" json:"id"`
	PL             string       `db:"pl" json:"pl"`
	OwnerName      string       `db:"owner_name" json:"owner_name"`
	Classification string       `db:"classification" json:"classification"`
	Geom           MultiPolygon `db:"geom" json:"geometry"`
	LoadedAt       time.Time    `db:"loaded_at" json:"loaded_at"`
}
