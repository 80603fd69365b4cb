package models

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// DecodeParcels reads a GeoJSON FeatureCollection of parcel polygons.
// Property names are matched case-insensitively: pl, owner_name and
// classification. Every feature must carry a pl and a polygon geometry.
func DecodeParcels(r io.Reader) ([]Parcel, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	parcels := make([]Parcel, 0, len(fc.Features))
	for i, f := range fc.Features {
		props := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			if v == nil {
				continue
			}
			props[strings.ToLower(k)] = strings.TrimSpace(fmt.Sprint(v))
		}
		if props["pl"] == "" {
			return nil, fmt.Errorf("feature %d: missing pl", i)
		}
		geom, err := DecodeGeometry(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d (pl %s): %w", i, props["pl"], err)
		}
		parcels = append(parcels, Parcel{
			PL:             props["pl"],
			OwnerName:      props["owner_name"],
			Classification: props["classification"],
			Geom:           geom,
		})
	}
	return parcels, nil
}
