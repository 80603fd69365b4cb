package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SRID is the spatial reference of every stored geometry (WGS84).
const SRID = 4326

// Polygon is a GeoJSON polygon: [rings][points][lon,lat].
// Loaders accept it and promote it to a MultiPolygon before storage.
type Polygon struct {
	Coordinates [][][2]float64
}

// Multi wraps the polygon in a single-member MultiPolygon.
func (p Polygon) Multi() MultiPolygon {
	if len(p.Coordinates) == 0 {
		return MultiPolygon{}
	}
	return MultiPolygon{Coordinates: [][][][2]float64{p.Coordinates}}
}

// MultiPolygon is a PostGIS MultiPolygon in GeoJSON coordinate order:
// [polygons][rings][points][lon,lat].
type MultiPolygon struct {
	Coordinates [][][][2]float64
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DecodeGeometry parses a GeoJSON Polygon or MultiPolygon. Polygons are
// promoted so parcels always carry a MultiPolygon.
func DecodeGeometry(data []byte) (MultiPolygon, error) {
	var geom geoJSONGeometry
	if err := json.Unmarshal(data, &geom); err != nil {
		return MultiPolygon{}, fmt.Errorf("failed to unmarshal geometry: %w", err)
	}

	switch geom.Type {
	case "MultiPolygon":
		var coords [][][][2]float64
		if err := json.Unmarshal(geom.Coordinates, &coords); err != nil {
			return MultiPolygon{}, fmt.Errorf("failed to unmarshal multipolygon coordinates: %w", err)
		}
		return MultiPolygon{Coordinates: coords}, nil
	case "Polygon":
		var coords [][][2]float64
		if err := json.Unmarshal(geom.Coordinates, &coords); err != nil {
			return MultiPolygon{}, fmt.Errorf("failed to unmarshal polygon coordinates: %w", err)
		}
		return Polygon{Coordinates: coords}.Multi(), nil
	default:
		return MultiPolygon{}, fmt.Errorf("expected Polygon or MultiPolygon type, got %q", geom.Type)
	}
}

// Scan implements sql.Scanner for ST_AsGeoJSON output.
func (mp *MultiPolygon) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan MultiPolygon: expected []byte or string, got %T", value)
	}

	decoded, err := DecodeGeometry(data)
	if err != nil {
		return err
	}
	*mp = decoded
	return nil
}

// Value implements driver.Valuer, producing GeoJSON for ST_GeomFromGeoJSON.
func (mp MultiPolygon) Value() (driver.Value, error) {
	if len(mp.Coordinates) == 0 {
		return nil, nil
	}
	data, err := mp.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// MarshalJSON renders the geometry as a GeoJSON object.
func (mp MultiPolygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string           `json:"type"`
		Coordinates [][][][2]float64 `json:"coordinates"`
	}{
		Type:        "MultiPolygon",
		Coordinates: mp.Coordinates,
	})
}

// UnmarshalJSON accepts GeoJSON Polygon or MultiPolygon objects.
func (mp *MultiPolygon) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeGeometry(data)
	if err != nil {
		return err
	}
	*mp = decoded
	return nil
}

// EWKT renders the geometry as extended WKT with the SRID prefix, the form
// the parcel loader stages through COPY.
func (mp MultiPolygon) EWKT() string {
	var b strings.Builder
	b.WriteString("SRID=")
	b.WriteString(strconv.Itoa(SRID))
	b.WriteString(";MULTIPOLYGON(")
	for i, poly := range mp.Coordinates {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j, ring := range poly {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('(')
			for k, pt := range ring {
				if k > 0 {
					b.WriteByte(',')
				}
				b.WriteString(strconv.FormatFloat(pt[0], 'f', -1, 64))
				b.WriteByte(' ')
				b.WriteString(strconv.FormatFloat(pt[1], 'f', -1, 64))
			}
			b.WriteByte(')')
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}
