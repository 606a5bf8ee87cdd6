// Package roadsplit cuts road centerlines into fixed-length segments.
// Road collections live as FlatGeobuf files inside a workspace
// directory; a run reprojects the input into a metric reference
// system, walks each road by arc-length ratio, and writes consecutive
// sub-segments of at most a target length to a new collection tagged
// with segment and road identifiers.
package roadsplit

import (
	"errors"
)

// Common errors returned by this package.
var (
	ErrInputNotFound    = errors.New("roadsplit: input collection not found")
	ErrCollectionExists = errors.New("roadsplit: collection already exists")
	ErrProjectionFailed = errors.New("roadsplit: reprojection and fallback copy both failed")
	ErrNilGeometry      = errors.New("roadsplit: nil or degenerate geometry")
	ErrUnsupportedType  = errors.New("roadsplit: unsupported geometry or column type")
	ErrNoIndex          = errors.New("roadsplit: collection has no spatial index")
	ErrColumnMismatch   = errors.New("roadsplit: attributes do not match column schema")
	ErrBadSegmentLength = errors.New("roadsplit: segment length must be positive")
	ErrNoProgress       = errors.New("roadsplit: sub-path extraction made no forward progress")
)

// CRS identifies a coordinate reference system on a collection.
type CRS struct {
	Code int    // EPSG code (e.g. 4326 for WGS84)
	Name string // CRS name
	WKT  string // Well-Known Text representation, if known
}

// WGS84 returns the geographic WGS 84 system (EPSG:4326), the assumed
// system of imported road centerlines.
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// UTMZone39N returns the fixed target metric system for segmentation:
// WGS 84 / UTM zone 39N (EPSG:32639), a Transverse Mercator projection
// with central meridian 51°E, scale factor 0.9996 and a 500 km false
// easting. Coordinates are in meters.
func UTMZone39N() *CRS {
	return &CRS{
		Code: 32639,
		Name: "WGS 84 / UTM zone 39N",
		WKT: `PROJCS["WGS_1984_UTM_Zone_39N",` +
			`GEOGCS["GCS_WGS_1984",` +
			`DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],` +
			`PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],` +
			`PROJECTION["Transverse_Mercator"],` +
			`PARAMETER["False_Easting",500000.0],` +
			`PARAMETER["False_Northing",0.0],` +
			`PARAMETER["Central_Meridian",51.0],` +
			`PARAMETER["Scale_Factor",0.9996],` +
			`PARAMETER["Latitude_Of_Origin",0.0],` +
			`UNIT["Meter",1.0]]`,
	}
}

// ColumnType enumerates the attribute types collections can carry.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeDouble
	TypeString
)

// Column declares one attribute field of a collection.
type Column struct {
	Name  string
	Type  ColumnType
	Title string // display alias
	Width int    // max length for TypeString values, 0 = unlimited
}

// Header describes a collection's metadata.
type Header struct {
	Name          string
	GeometryType  string
	FeaturesCount uint64
	Envelope      [4]float64 // [minX, minY, maxX, maxY]
	CRS           *CRS
	Columns       []Column
}
