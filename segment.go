package roadsplit

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SubPath is one arc-length-bounded piece of a split line, with its
// measured planar length in the line's linear unit.
type SubPath struct {
	Line   orb.LineString
	Length float64
}

// SplitLine cuts line into consecutive sub-paths of at most targetM
// arc length. Each cut position is carried forward as an absolute arc
// length, so the start of one piece is interpolated from the exact
// same distance as the end of the previous one: junction vertices are
// bitwise identical and the final cut lands exactly on the line's
// endpoint. A nil line or one with fewer than two vertices yields no
// sub-paths; a line no longer than targetM (a zero-length line
// included) yields itself as the only piece.
//
// SplitLine is a pure function of its inputs: the same line and target
// always produce the same pieces.
func SplitLine(line orb.LineString, targetM float64) ([]SubPath, error) {
	if targetM <= 0 {
		return nil, ErrBadSegmentLength
	}
	if len(line) < 2 {
		return nil, nil
	}

	cum := cumulativeLengths(line)
	total := cum[len(cum)-1]
	if total <= targetM {
		return []SubPath{{Line: line, Length: total}}, nil
	}

	// Every cut advances by targetM, so the walk cannot stall unless
	// slicing returns a zero-length piece for a non-degenerate span.
	// Cap the iterations to fail loudly instead of spinning on
	// malformed geometry.
	maxIter := int(math.Ceil(total/targetM)) + 1

	var pieces []SubPath
	d0 := 0.0
	for iter := 0; d0 < total; iter++ {
		if iter >= maxIter {
			return nil, fmt.Errorf("%w after %d pieces", ErrNoProgress, len(pieces))
		}

		d1 := math.Min(d0+targetM, total)

		sub := lineSlice(line, cum, d0, d1)
		length := planar.Length(sub)
		if length <= 0 {
			return nil, fmt.Errorf("%w after %d pieces", ErrNoProgress, len(pieces))
		}

		pieces = append(pieces, SubPath{Line: sub, Length: length})
		if d1 >= total {
			break // landed exactly on the endpoint
		}
		d0 = d1
	}

	return pieces, nil
}

// cumulativeLengths returns the arc-length distance from the start of
// line to each vertex.
func cumulativeLengths(line orb.LineString) []float64 {
	cum := make([]float64, len(line))
	for i := 1; i < len(line); i++ {
		cum[i] = cum[i-1] + planar.Distance(line[i-1], line[i])
	}
	return cum
}

// lineSlice extracts the sub-path between two arc-length distances
// from line's start. Boundary vertices are interpolated; an end at or
// past the total length ends exactly on the final original vertex,
// never beyond it.
func lineSlice(line orb.LineString, cum []float64, d0, d1 float64) orb.LineString {
	total := cum[len(cum)-1]

	sub := orb.LineString{pointAt(line, cum, d0)}
	for i := 1; i < len(line); i++ {
		if cum[i] <= d0 {
			continue
		}
		if cum[i] >= d1 {
			break
		}
		sub = append(sub, line[i])
	}
	if d1 >= total {
		sub = append(sub, line[len(line)-1])
	} else {
		sub = append(sub, pointAt(line, cum, d1))
	}
	return sub
}

// pointAt returns the point at arc-length distance d from the start of
// line, interpolating linearly within a segment.
func pointAt(line orb.LineString, cum []float64, d float64) orb.Point {
	if d <= 0 {
		return line[0]
	}
	total := cum[len(cum)-1]
	if d >= total {
		return line[len(line)-1]
	}

	// First vertex at or past d; d in (0, total) guarantees i >= 1.
	i := sort.SearchFloat64s(cum, d)
	seg := cum[i] - cum[i-1]
	if seg == 0 {
		return line[i]
	}
	t := (d - cum[i-1]) / seg
	a, b := line[i-1], line[i]
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}
