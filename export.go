package roadsplit

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	kml "github.com/twpayne/go-kml/v2"
)

// ExportKML writes the named polyline collection as a KML document,
// one placemark per row, for inspection in external viewers. Segment
// labels (or road names) become placemark names. Collections in the
// metric target system are transformed back to WGS84 first, since KML
// is degree-based.
func (w *Workspace) ExportKML(collection, path string) error {
	cur, err := w.OpenRead(collection)
	if err != nil {
		return err
	}
	defer cur.Close()

	hdr := cur.Header()
	toWGS84, err := inverseTransform(hdr.CRS)
	if err != nil {
		return err
	}

	var placemarks []kml.Element
	for {
		fid, line, ok := cur.Next()
		if !ok {
			break
		}
		if len(line) < 2 {
			continue
		}

		coords := make([]kml.Coordinate, 0, len(line))
		for _, p := range line {
			if toWGS84 != nil {
				lon, lat, err := toWGS84(p[0], p[1])
				if err != nil {
					return fmt.Errorf("roadsplit: export %s: %w", collection, err)
				}
				p = orb.Point{lon, lat}
			}
			coords = append(coords, kml.Coordinate{Lon: p[0], Lat: p[1]})
		}

		placemarks = append(placemarks, kml.Placemark(
			kml.Name(placemarkName(cur.Attrs(), fid)),
			kml.LineString(kml.Coordinates(coords...)),
		))
	}
	if err := cur.Err(); err != nil {
		return err
	}

	children := append([]kml.Element{kml.Name(collection)}, placemarks...)
	doc := kml.KML(kml.Document(children...))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("roadsplit: export: %w", err)
	}
	defer f.Close()
	return doc.WriteIndent(f, "", "  ")
}

// inverseTransform returns a transformer back to WGS84 for the metric
// target system, nil when coordinates are already in degrees.
func inverseTransform(crs *CRS) (func(x, y float64) (float64, float64, error), error) {
	if crs == nil || crs.Code != UTMZone39N().Code {
		return nil, nil
	}
	tr, err := newTransform(proj4UTM39N, proj4WGS84)
	if err != nil {
		return nil, fmt.Errorf("roadsplit: export: %w", err)
	}
	return tr, nil
}

func placemarkName(attrs map[string]interface{}, fid uint64) string {
	if v, ok := attrs["LABEL"].(string); ok && v != "" {
		return v
	}
	if v, ok := attrs["NAME"].(string); ok && v != "" {
		return v
	}
	return fmt.Sprintf("feature_%d", fid)
}
