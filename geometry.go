package roadsplit

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// lineToFGB converts a linear path to a FlatGeobuf writer.Geometry.
// Returns nil for degenerate paths (fewer than two vertices).
func lineToFGB(line orb.LineString, builder *flatbuffers.Builder) *writer.Geometry {
	if len(line) < 2 {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(flattypes.GeometryTypeLineString)

	xy := make([]float64, 0, len(line)*2)
	for _, p := range line {
		xy = append(xy, p[0], p[1])
	}
	g.SetXY(xy)

	return g
}

// lineFromFGB converts a FlatGeobuf geometry to a single linear path.
// MultiLineString coordinates are concatenated: each stored row is
// treated as one path. Null, empty, or non-linear geometries yield nil.
func lineFromFGB(fgbGeom *flattypes.Geometry) orb.LineString {
	if fgbGeom == nil {
		return nil
	}

	switch fgbGeom.Type() {
	case flattypes.GeometryTypeLineString, flattypes.GeometryTypeMultiLineString:
		return lineFromXY(fgbGeom)
	default:
		return nil
	}
}

func lineFromXY(fgbGeom *flattypes.Geometry) orb.LineString {
	xyLen := fgbGeom.XyLength()
	if xyLen < 4 {
		return nil
	}

	line := make(orb.LineString, 0, xyLen/2)
	for i := 0; i+1 < xyLen; i += 2 {
		line = append(line, orb.Point{fgbGeom.Xy(i), fgbGeom.Xy(i + 1)})
	}
	return line
}
