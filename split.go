package roadsplit

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// segmentColumns is the output schema, in declared insert order.
var segmentColumns = []Column{
	{Name: "SEGMENT_ID", Type: TypeInt, Title: "Segment Number"},
	{Name: "ROAD_ID", Type: TypeInt, Title: "Original Road ID"},
	{Name: "LENGTH_KM", Type: TypeDouble, Title: "Length in Kilometers"},
	{Name: "LABEL", Type: TypeString, Title: "Segment Label", Width: 50},
}

// Result reports a completed split run.
type Result struct {
	Output   string        // output collection name
	Roads    int           // roads segmented (null rows excluded)
	Segments int           // segments written
	Elapsed  time.Duration // wall-clock time for the run
}

// Splitter segments road collections within a single workspace.
// Construct with NewSplitter; the zero value is not usable.
type Splitter struct {
	cfg Config
	ws  *Workspace
}

// NewSplitter opens the configured workspace. A non-positive segment
// length falls back to the default.
func NewSplitter(cfg Config) (*Splitter, error) {
	ws, err := OpenWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	if cfg.SegmentLengthKM <= 0 {
		cfg.SegmentLengthKM = DefaultSegmentLengthKM
	}
	return &Splitter{cfg: cfg, ws: ws}, nil
}

// Workspace returns the splitter's workspace, for collection
// management around a run.
func (s *Splitter) Workspace() *Workspace { return s.ws }

// Split segments input using the configured default length. It is the
// default-configuration wrapper over SplitRoads, not a separate
// pipeline.
func (s *Splitter) Split(input, output string) (*Result, error) {
	return s.SplitRoads(input, output, s.cfg.SegmentLengthKM)
}

// Split runs a whole segmentation with the default configuration in
// the current directory.
func Split(input, output string, segmentKM float64) (*Result, error) {
	s, err := NewSplitter(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return s.SplitRoads(input, output, segmentKM)
}

// SplitRoads reprojects the input collection into the target metric
// system, cuts every road into pieces of at most segmentKM kilometers,
// and writes them to a fresh output collection with the segment
// schema. The intermediate projected collection is removed whether or
// not segmentation succeeds; a partially written output is left in
// place on failure.
func (s *Splitter) SplitRoads(input, output string, segmentKM float64) (*Result, error) {
	if segmentKM <= 0 {
		return nil, ErrBadSegmentLength
	}
	if !s.ws.Exists(input) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, input)
	}

	start := time.Now()

	projected, err := s.ws.Reproject(input)
	if err != nil {
		return nil, err
	}
	defer s.ws.Delete(projected)

	if err := s.createOutput(projected, output); err != nil {
		return nil, err
	}

	cur, err := s.ws.OpenRead(projected)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	ins, err := s.ws.OpenInsert(output)
	if err != nil {
		return nil, err
	}
	// Flush whatever was inserted even when the loop fails; the
	// output is deliberately not rolled back.
	defer ins.Close()

	roads, segments, err := writeSegments(cur, ins, segmentKM*1000)
	if err != nil {
		return nil, err
	}
	if err := ins.Close(); err != nil {
		return nil, err
	}

	return &Result{
		Output:   output,
		Roads:    roads,
		Segments: segments,
		Elapsed:  time.Since(start),
	}, nil
}

// createOutput creates the destination collection with the segment
// schema, carrying the projected input's reference system. An
// existing output is deleted first when overwriting is allowed.
func (s *Splitter) createOutput(template, output string) error {
	hdr, err := s.ws.ReadHeader(template)
	if err != nil {
		return err
	}

	if s.ws.Exists(output) {
		if !s.cfg.Overwrite {
			return fmt.Errorf("%w: %s", ErrCollectionExists, output)
		}
		if err := s.ws.Delete(output); err != nil {
			return err
		}
	}
	return s.ws.Create(output, segmentColumns, hdr.CRS)
}

// roadSource yields (identifier, geometry) rows. A nil or degenerate
// line marks a null geometry row.
type roadSource interface {
	Next() (uint64, orb.LineString, bool)
	Err() error
}

// segmentSink accepts ordered attribute tuples matching the segment
// schema.
type segmentSink interface {
	Insert(line orb.LineString, attrs ...interface{}) error
}

// writeSegments drives the per-road loop. Road ids are assigned
// 1-based in iteration order to non-null rows only; segment ids
// restart at 1 for each road; lengths are measured after the cut and
// reported in kilometers.
func writeSegments(src roadSource, sink segmentSink, targetM float64) (roads, segments int, err error) {
	roadID := 1
	for {
		_, line, ok := src.Next()
		if !ok {
			break
		}
		if len(line) < 2 {
			continue // null geometry: no segments, no road id
		}

		pieces, err := SplitLine(line, targetM)
		if err != nil {
			return roads, segments, err
		}

		for i, piece := range pieces {
			segID := i + 1
			label := fmt.Sprintf("R%d_S%02d", roadID, segID)
			if err := sink.Insert(piece.Line, segID, roadID, piece.Length/1000, label); err != nil {
				return roads, segments, err
			}
			segments++
		}

		roadID++
		roads++
	}
	return roads, segments, src.Err()
}
