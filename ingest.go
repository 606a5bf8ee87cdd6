package roadsplit

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"
)

// roadColumns is the schema of imported road collections.
var roadColumns = []Column{
	{Name: "NAME", Type: TypeString, Title: "Road Name", Width: 100},
	{Name: "LENGTH_KM", Type: TypeDouble, Title: "Geodesic Length in Kilometers"},
}

// ImportStats reports an import run.
type ImportStats struct {
	Roads   int
	TotalKM float64
}

const earthRadiusKM = 6371.0

// geodesicKM measures a degree-space path along the great circles
// between consecutive vertices. Imported roads are in degrees, so
// planar length would be meaningless here.
func geodesicKM(line orb.LineString) float64 {
	var km float64
	for i := 1; i < len(line); i++ {
		a := s2.LatLngFromDegrees(line[i-1][1], line[i-1][0])
		b := s2.LatLngFromDegrees(line[i][1], line[i][0])
		km += a.Distance(b).Radians() * earthRadiusKM
	}
	return km
}

// ImportGeoJSON loads LineString and MultiLineString features from a
// GeoJSON file into a fresh WGS84 road collection, replacing any
// existing collection of that name. Features with other geometry
// types are skipped.
func (w *Workspace) ImportGeoJSON(path, collection string) (*ImportStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roadsplit: import: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("roadsplit: import %s: %w", path, err)
	}

	ins, err := w.replaceRoads(collection)
	if err != nil {
		return nil, err
	}
	defer ins.Close()

	stats := &ImportStats{}
	for _, f := range fc.Features {
		line := lineFromGeometry(f.Geometry)
		if len(line) < 2 {
			continue
		}

		name := ""
		if f.Properties != nil {
			if v, ok := f.Properties["name"].(string); ok {
				name = v
			}
		}

		km := geodesicKM(line)
		if err := ins.Insert(line, name, km); err != nil {
			return nil, err
		}
		stats.Roads++
		stats.TotalKM += km
	}

	if err := ins.Close(); err != nil {
		return nil, err
	}
	return stats, nil
}

// ImportPolylines loads Google encoded polylines, one per non-blank
// line of a text file, into a fresh WGS84 road collection.
func (w *Workspace) ImportPolylines(path, collection string) (*ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roadsplit: import: %w", err)
	}
	defer f.Close()

	ins, err := w.replaceRoads(collection)
	if err != nil {
		return nil, err
	}
	defer ins.Close()

	stats := &ImportStats{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		enc := strings.TrimSpace(scanner.Text())
		if enc == "" {
			continue
		}

		coords, _, err := polyline.DecodeCoords([]byte(enc))
		if err != nil {
			return nil, fmt.Errorf("roadsplit: import %s line %d: %w", path, lineNo, err)
		}
		if len(coords) < 2 {
			continue
		}

		// Encoded coordinates are (lat, lng); collections store (x, y).
		road := make(orb.LineString, 0, len(coords))
		for _, c := range coords {
			road = append(road, orb.Point{c[1], c[0]})
		}

		km := geodesicKM(road)
		if err := ins.Insert(road, fmt.Sprintf("road_%d", stats.Roads+1), km); err != nil {
			return nil, err
		}
		stats.Roads++
		stats.TotalKM += km
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("roadsplit: import %s: %w", path, err)
	}

	if err := ins.Close(); err != nil {
		return nil, err
	}
	return stats, nil
}

// replaceRoads recreates the named road collection and opens an
// insert cursor on it.
func (w *Workspace) replaceRoads(collection string) (*InsertCursor, error) {
	if w.Exists(collection) {
		if err := w.Delete(collection); err != nil {
			return nil, err
		}
	}
	if err := w.Create(collection, roadColumns, WGS84()); err != nil {
		return nil, err
	}
	return w.OpenInsert(collection)
}

// lineFromGeometry flattens the supported linear geometry types to a
// single path.
func lineFromGeometry(g orb.Geometry) orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return v
	case orb.MultiLineString:
		var line orb.LineString
		for _, part := range v {
			line = append(line, part...)
		}
		return line
	default:
		return nil
	}
}
