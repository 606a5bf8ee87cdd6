package roadsplit

import (
	"fmt"
	"os"
	"path/filepath"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// Workspace is a directory holding named feature collections, one
// FlatGeobuf file per collection.
type Workspace struct {
	dir string
}

// OpenWorkspace opens (creating if needed) a workspace directory.
func OpenWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("roadsplit: workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the file backing the named collection.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name+".fgb")
}

// Exists reports whether the named collection exists.
func (w *Workspace) Exists(name string) bool {
	_, err := os.Stat(w.Path(name))
	return err == nil
}

// Delete removes the named collection. Deleting a collection that does
// not exist is not an error.
func (w *Workspace) Delete(name string) error {
	err := os.Remove(w.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("roadsplit: delete %s: %w", name, err)
	}
	return nil
}

// Create writes a new, empty polyline collection with the declared
// column schema and reference system. Creating over an existing
// collection is an error; overwrite policy belongs to the caller.
func (w *Workspace) Create(name string, cols []Column, crs *CRS) error {
	if w.Exists(name) {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	return w.writeFile(name, cols, crs, nil)
}

// ReadHeader returns the named collection's metadata.
func (w *Workspace) ReadHeader(name string) (*Header, error) {
	cur, err := w.OpenRead(name)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.Header(), nil
}

// row is one buffered feature: a linear path plus its ordered
// attribute tuple.
type row struct {
	line  orb.LineString
	attrs []interface{}
}

// writeFile writes a complete collection file. Non-empty collections
// get a spatial index; an empty file is just the header and schema.
func (w *Workspace) writeFile(name string, cols []Column, crs *CRS, rows []row) error {
	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetName(name)
	header.SetGeometryType(flattypes.GeometryTypeLineString)
	if len(cols) > 0 {
		header.SetColumns(buildColumns(builder, cols))
	}
	if crs != nil {
		c := writer.NewCrs(builder)
		c.SetOrg("EPSG")
		if crs.Code > 0 {
			c.SetCode(int32(crs.Code))
		}
		if crs.Name != "" {
			c.SetName(crs.Name)
		}
		if crs.WKT != "" {
			c.SetDescription(crs.WKT)
		}
		header.SetCrs(c)
	}

	gen := &rowGenerator{cols: cols, rows: rows}
	fgbWriter := writer.NewWriter(header, len(rows) > 0, gen, nil)

	f, err := os.Create(w.Path(name))
	if err != nil {
		return fmt.Errorf("roadsplit: create %s: %w", name, err)
	}
	_, werr := fgbWriter.Write(f)
	// The generator reports row encoding failures out of band; a row
	// must never land without its attributes. The generator's error is
	// the root cause when both fail.
	if gen.err != nil {
		werr = gen.err
	}
	if werr != nil {
		f.Close()
		os.Remove(w.Path(name))
		return fmt.Errorf("roadsplit: write %s: %w", name, werr)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("roadsplit: write %s: %w", name, err)
	}
	return nil
}

// rowGenerator feeds buffered rows to the FlatGeobuf writer. An
// encoding failure stops generation and is reported through err.
type rowGenerator struct {
	cols  []Column
	rows  []row
	index int
	err   error
}

func (g *rowGenerator) Generate() *writer.Feature {
	if g.err != nil || g.index >= len(g.rows) {
		return nil
	}

	r := g.rows[g.index]
	g.index++

	builder := flatbuffers.NewBuilder(1024)
	geom := lineToFGB(r.line, builder)
	if geom == nil {
		return g.Generate() // skip degenerate rows
	}

	feature := writer.NewFeature(builder)
	feature.SetGeometry(geom)

	if len(g.cols) > 0 {
		props, err := encodeRow(g.cols, r.attrs)
		if err != nil {
			g.err = fmt.Errorf("row %d: %w", g.index, err)
			return nil
		}
		if len(props) > 0 {
			feature.SetProperties(props)
		}
	}

	return feature
}

// ReadCursor iterates a collection's rows in stored order, yielding
// (identifier, geometry) pairs. Identifiers are 1-based positions.
type ReadCursor struct {
	fgb    *flatgeobuf.FlatGeoBuf
	header *Header
	feats  []*flattypes.Feature
	pos    int
	cur    *flattypes.Feature
	err    error
}

// OpenRead opens a read cursor over the named collection. The backing
// file is memory-mapped; Close must run on every exit path.
func (w *Workspace) OpenRead(name string) (*ReadCursor, error) {
	if !w.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, name)
	}

	fgb, err := flatgeobuf.New(w.Path(name))
	if err != nil {
		return nil, fmt.Errorf("roadsplit: open %s: %w", name, err)
	}

	cur := &ReadCursor{fgb: fgb}
	if err := cur.load(); err != nil {
		cur.Close()
		return nil, fmt.Errorf("roadsplit: open %s: %w", name, err)
	}
	return cur, nil
}

// load reads the header and fetches all features through the spatial
// index. The official reader offers no sequential scan, so iteration
// is a full-envelope search.
func (c *ReadCursor) load() error {
	h := c.fgb.Header()
	if h == nil {
		return ErrUnsupportedType
	}

	header := &Header{
		Name:          string(h.Name()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code: int(crs.Code()),
			Name: string(crs.Name()),
			WKT:  string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if !h.Columns(&col, i) {
			continue
		}
		t, ok := columnTypeFromFGB(col.Type())
		if !ok {
			return fmt.Errorf("%w: column %s", ErrUnsupportedType, string(col.Name()))
		}
		header.Columns = append(header.Columns, Column{
			Name:  string(col.Name()),
			Type:  t,
			Title: string(col.Title()),
		})
	}

	c.header = header

	if header.FeaturesCount == 0 {
		return nil
	}
	if h.IndexNodeSize() == 0 {
		return ErrNoIndex
	}

	feats, err := c.fgb.Search(header.Envelope[0], header.Envelope[1], header.Envelope[2], header.Envelope[3])
	if err != nil {
		return err
	}
	c.feats = feats
	return nil
}

// Header returns the collection's metadata.
func (c *ReadCursor) Header() *Header { return c.header }

// Next advances to the next row, returning its 1-based identifier and
// geometry. A nil geometry marks a null or non-linear row; iteration
// still yields it. Returns ok=false when the cursor is exhausted.
func (c *ReadCursor) Next() (uint64, orb.LineString, bool) {
	if c.pos >= len(c.feats) {
		c.cur = nil
		return 0, nil, false
	}

	c.cur = c.feats[c.pos]
	c.pos++

	var geomObj flattypes.Geometry
	line := lineFromFGB(c.cur.Geometry(&geomObj))
	return uint64(c.pos), line, true
}

// Attrs decodes the current row's attributes.
func (c *ReadCursor) Attrs() map[string]interface{} {
	if c.cur == nil || len(c.header.Columns) == 0 {
		return nil
	}

	propsLen := c.cur.PropertiesLength()
	if propsLen == 0 {
		return nil
	}
	props := make([]byte, propsLen)
	for i := 0; i < propsLen; i++ {
		props[i] = byte(c.cur.Properties(i))
	}

	attrs, err := decodeRow(props, c.header.Columns)
	if err != nil && c.err == nil {
		c.err = err
	}
	return attrs
}

// Err reports any row decoding error seen during iteration.
func (c *ReadCursor) Err() error { return c.err }

// Close releases the cursor. The underlying FlatGeoBuf type exposes no
// public close; dropping the reference lets the finalizer unmap the
// file.
func (c *ReadCursor) Close() error {
	c.fgb = nil
	c.feats = nil
	c.cur = nil
	return nil
}

// InsertCursor appends rows to a collection. FlatGeobuf files are
// immutable, so inserts buffer in memory and the file is rewritten on
// Close; Close must therefore run on every exit path, including
// failures, which is also what leaves partially inserted rows behind.
type InsertCursor struct {
	ws     *Workspace
	name   string
	cols   []Column
	crs    *CRS
	rows   []row
	closed bool
}

// declaredWidth looks up the string cap this package declares for a
// column name. The file format does not persist widths, so cursors
// opened from file restore them from the declared schemas.
func declaredWidth(name string) int {
	for _, schema := range [][]Column{segmentColumns, roadColumns} {
		for _, c := range schema {
			if c.Name == name {
				return c.Width
			}
		}
	}
	return 0
}

// OpenInsert opens an insert cursor on an existing collection. The
// column schema and reference system come from the collection itself;
// inserted tuples must match the declared column order.
func (w *Workspace) OpenInsert(name string) (*InsertCursor, error) {
	cur, err := w.OpenRead(name)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	hdr := cur.Header()
	for i := range hdr.Columns {
		if hdr.Columns[i].Type == TypeString && hdr.Columns[i].Width == 0 {
			hdr.Columns[i].Width = declaredWidth(hdr.Columns[i].Name)
		}
	}
	rows := make([]row, 0, hdr.FeaturesCount)
	for {
		_, line, ok := cur.Next()
		if !ok {
			break
		}
		rows = append(rows, row{line: line, attrs: tupleFromAttrs(hdr.Columns, cur.Attrs())})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return &InsertCursor{
		ws:   w,
		name: name,
		cols: hdr.Columns,
		crs:  hdr.CRS,
		rows: rows,
	}, nil
}

// Columns returns the cursor's declared column order.
func (c *InsertCursor) Columns() []Column { return c.cols }

// Insert buffers one row. The attribute tuple must match the declared
// columns; string values longer than a column's width are truncated.
func (c *InsertCursor) Insert(line orb.LineString, attrs ...interface{}) error {
	if c.closed {
		return fmt.Errorf("roadsplit: insert on closed cursor for %s", c.name)
	}
	if len(line) < 2 {
		return ErrNilGeometry
	}
	if len(attrs) != len(c.cols) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrColumnMismatch, len(attrs), len(c.cols))
	}
	// Validate eagerly so schema mismatches surface at the insert,
	// not at flush time.
	if _, err := encodeRow(c.cols, attrs); err != nil {
		return err
	}
	c.rows = append(c.rows, row{line: line, attrs: attrs})
	return nil
}

// Close flushes buffered rows to the collection file. Closing twice is
// a no-op.
func (c *InsertCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.writeFile(c.name, c.cols, c.crs, c.rows)
}
