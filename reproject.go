package roadsplit

import (
	"errors"
	"fmt"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Proj4 definitions for the fixed reference systems. The target is
// WGS 84 / UTM zone 39N: Transverse Mercator, central meridian 51°E,
// scale factor 0.9996, 500 km false easting, meters.
const (
	proj4WGS84  = "+proj=longlat +datum=WGS84 +no_defs"
	proj4UTM39N = "+proj=tmerc +lat_0=0 +lon_0=51 +k=0.9996 +x_0=500000 +y_0=0 +datum=WGS84 +units=m +no_defs"
)

// sourceProj4 maps the EPSG codes we can transform from to their
// proj4 definitions. Anything else takes the declare-only fallback.
var sourceProj4 = map[int]string{
	4326: proj4WGS84,
	4269: "+proj=longlat +datum=NAD83 +no_defs",
}

// newTransform builds a coordinate transformer between two proj4
// definitions.
func newTransform(fromP4, toP4 string) (proj.Transformer, error) {
	from, err := proj.Parse(fromP4)
	if err != nil {
		return nil, err
	}
	to, err := proj.Parse(toP4)
	if err != nil {
		return nil, err
	}
	return from.NewTransform(to)
}

// Reproject copies the named collection into <name>_utm with every
// vertex transformed into the target metric system. When the source
// reference system is missing or unsupported, or the transform cannot
// be built or applied, geometries are copied verbatim and the target
// system is declared on the copy; this degraded path is not an error.
// Read and write failures propagate; ErrProjectionFailed is returned
// only when the transform failed and the fallback copy failed too.
func (w *Workspace) Reproject(input string) (string, error) {
	out := input + "_utm"
	if w.Exists(out) {
		if err := w.Delete(out); err != nil {
			return "", err
		}
	}

	cur, err := w.OpenRead(input)
	if err != nil {
		return "", err
	}
	defer cur.Close()

	hdr := cur.Header()
	rows := make([]row, 0, hdr.FeaturesCount)
	for {
		_, line, ok := cur.Next()
		if !ok {
			break
		}
		rows = append(rows, row{line: line, attrs: tupleFromAttrs(hdr.Columns, cur.Attrs())})
	}
	if err := cur.Err(); err != nil {
		return "", err
	}

	transformed, terr := transformRows(hdr.CRS, rows)
	if terr != nil {
		transformed = rows // fallback: copy and declare
	}

	if err := w.writeFile(out, hdr.Columns, UTMZone39N(), transformed); err != nil {
		if terr != nil {
			return "", fmt.Errorf("%w: transform: %v; fallback: %v", ErrProjectionFailed, terr, err)
		}
		return "", err
	}
	return out, nil
}

// transformRows applies the source→target transform to every vertex.
func transformRows(src *CRS, rows []row) ([]row, error) {
	if src == nil || src.Code == 0 {
		return nil, errors.New("source reference system undefined")
	}
	p4, ok := sourceProj4[src.Code]
	if !ok {
		return nil, fmt.Errorf("unsupported source reference system EPSG:%d", src.Code)
	}

	tr, err := newTransform(p4, proj4UTM39N)
	if err != nil {
		return nil, err
	}

	out := make([]row, len(rows))
	for i, r := range rows {
		if len(r.line) == 0 {
			out[i] = r
			continue
		}
		line, err := transformLine(r.line, tr)
		if err != nil {
			return nil, err
		}
		out[i] = row{line: line, attrs: r.attrs}
	}
	return out, nil
}

// transformLine maps every vertex of line through tr, preserving the
// original.
func transformLine(line orb.LineString, tr proj.Transformer) (orb.LineString, error) {
	var terr error
	mapped := project.LineString(line.Clone(), func(p orb.Point) orb.Point {
		x, y, err := tr(p[0], p[1])
		if err != nil && terr == nil {
			terr = err
		}
		return orb.Point{x, y}
	})
	if terr != nil {
		return nil, terr
	}
	return mapped, nil
}
