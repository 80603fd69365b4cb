package models

import (
	"database/sql/driver"
	"encoding/json"
	"testing"
)

var square = [][][2]float64{
	{{-95.5, 30.2}, {-95.4, 30.2}, {-95.4, 30.3}, {-95.5, 30.3}, {-95.5, 30.2}},
}

// TestMultiPolygonImplementsInterfaces verifies the database interfaces
func TestMultiPolygonImplementsInterfaces(t *testing.T) {
	var _ driver.Valuer = MultiPolygon{}

	var mp MultiPolygon
	var scanner interface{} = &mp
	if _, ok := scanner.(interface{ Scan(interface{}) error }); !ok {
		t.Error("MultiPolygon does not implement sql.Scanner interface")
	}
}

func TestDecodeGeometry(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantPolys int
		wantError bool
	}{
		{
			name:      "multipolygon",
			input:     `{"type":"MultiPolygon","coordinates":[[[[-95.5,30.2],[-95.4,30.2],[-95.4,30.3],[-95.5,30.2]]],[[[-94,30],[-93.9,30],[-93.9,30.1],[-94,30]]]]}`,
			wantPolys: 2,
		},
		{
			name:      "polygon is promoted",
			input:     `{"type":"Polygon","coordinates":[[[-95.5,30.2],[-95.4,30.2],[-95.4,30.3],[-95.5,30.2]]]}`,
			wantPolys: 1,
		},
		{
			name:      "point is rejected",
			input:     `{"type":"Point","coordinates":[0,0]}`,
			wantError: true,
		},
		{
			name:      "invalid JSON",
			input:     `{invalid}`,
			wantError: true,
		},
		{
			name:      "coordinates of the wrong shape",
			input:     `{"type":"Polygon","coordinates":[1,2]}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp, err := DecodeGeometry([]byte(tt.input))
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(mp.Coordinates) != tt.wantPolys {
				t.Errorf("expected %d polygons, got %d", tt.wantPolys, len(mp.Coordinates))
			}
		})
	}
}

// TestMultiPolygonScan tests reading ST_AsGeoJSON output
func TestMultiPolygonScan(t *testing.T) {
	geoJSON := `{"type":"MultiPolygon","coordinates":[[[[-95.5,30.2],[-95.4,30.2],[-95.4,30.3],[-95.5,30.2]]]]}`

	tests := []struct {
		name      string
		input     interface{}
		wantError bool
		wantEmpty bool
	}{
		{name: "nil value", input: nil, wantEmpty: true},
		{name: "bytes", input: []byte(geoJSON)},
		{name: "string", input: geoJSON},
		{name: "unsupported input type", input: 42, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mp MultiPolygon
			err := mp.Scan(tt.input)

			if tt.wantError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantError && !tt.wantEmpty && len(mp.Coordinates) != 1 {
				t.Errorf("expected one polygon, got %d", len(mp.Coordinates))
			}
		})
	}
}

// TestMultiPolygonValue tests writing GeoJSON to the database
func TestMultiPolygonValue(t *testing.T) {
	empty, err := MultiPolygon{}.Value()
	if err != nil || empty != nil {
		t.Errorf("expected nil value for empty geometry, got %v (%v)", empty, err)
	}

	val, err := Polygon{Coordinates: square}.Multi().Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var geom map[string]interface{}
	if err := json.Unmarshal([]byte(val.(string)), &geom); err != nil {
		t.Fatalf("Value() did not return valid JSON: %v", err)
	}
	if geom["type"] != "MultiPolygon" {
		t.Errorf("expected type=MultiPolygon, got %v", geom["type"])
	}
}

func TestMultiPolygonEWKT(t *testing.T) {
	mp := MultiPolygon{Coordinates: [][][][2]float64{
		{{{-95.5, 30.2}, {-95.4, 30.2}, {-95.4, 30.3}, {-95.5, 30.2}}},
		{{{1, 2}, {3, 4}, {5, 6}, {1, 2}}},
	}}

	want := "SRID=4326;MULTIPOLYGON(((-95.5 30.2,-95.4 30.2,-95.4 30.3,-95.5 30.2)),((1 2,3 4,5 6,1 2)))"
	if got := mp.EWKT(); got != want {
		t.Errorf("EWKT mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestMultiPolygonUnmarshalPolygonFeature(t *testing.T) {
	var feature struct {
		Geometry MultiPolygon `json:"geometry"`
	}
	data := `{"geometry":{"type":"Polygon","coordinates":[[[-95.5,30.2],[-95.4,30.2],[-95.4,30.3],[-95.5,30.2]]]}}`

	if err := json.Unmarshal([]byte(data), &feature); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(feature.Geometry.Coordinates) != 1 || len(feature.Geometry.Coordinates[0][0]) != 4 {
		t.Errorf("unexpected coordinates: %v", feature.Geometry.Coordinates)
	}
}
