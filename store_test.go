package roadsplit

import (
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

var testColumns = []Column{
	{Name: "ID", Type: TypeInt, Title: "Identifier"},
	{Name: "KM", Type: TypeDouble, Title: "Kilometers"},
	{Name: "TAG", Type: TypeString, Title: "Tag", Width: 8},
}

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := OpenWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("OpenWorkspace failed: %v", err)
	}
	return ws
}

func TestWorkspace_CreateExistsDelete(t *testing.T) {
	ws := testWorkspace(t)

	if ws.Exists("roads") {
		t.Fatal("collection should not exist before Create")
	}

	if err := ws.Create("roads", testColumns, WGS84()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !ws.Exists("roads") {
		t.Error("collection should exist after Create")
	}

	// Creating over an existing collection is refused.
	err := ws.Create("roads", testColumns, WGS84())
	if !errors.Is(err, ErrCollectionExists) {
		t.Errorf("expected ErrCollectionExists, got %v", err)
	}

	if err := ws.Delete("roads"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ws.Exists("roads") {
		t.Error("collection should not exist after Delete")
	}

	// Deleting a missing collection is fine.
	if err := ws.Delete("roads"); err != nil {
		t.Errorf("Delete of missing collection: %v", err)
	}
}

func TestWorkspace_ReadHeader(t *testing.T) {
	ws := testWorkspace(t)

	if err := ws.Create("empty", testColumns, UTMZone39N()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	hdr, err := ws.ReadHeader("empty")
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if hdr.Name != "empty" {
		t.Errorf("expected name 'empty', got %q", hdr.Name)
	}
	if hdr.GeometryType != "LineString" {
		t.Errorf("expected geometry type 'LineString', got %q", hdr.GeometryType)
	}
	if hdr.FeaturesCount != 0 {
		t.Errorf("expected 0 features, got %d", hdr.FeaturesCount)
	}
	if hdr.CRS == nil || hdr.CRS.Code != 32639 {
		t.Errorf("expected EPSG 32639, got %+v", hdr.CRS)
	}
	if hdr.CRS.WKT == "" {
		t.Error("expected WKT to round-trip through the header")
	}
	if len(hdr.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(hdr.Columns))
	}
	if hdr.Columns[0].Name != "ID" || hdr.Columns[0].Type != TypeInt {
		t.Errorf("unexpected first column: %+v", hdr.Columns[0])
	}
	if hdr.Columns[2].Title != "Tag" {
		t.Errorf("expected title to round-trip, got %q", hdr.Columns[2].Title)
	}

	if _, err := ws.ReadHeader("missing"); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("expected ErrInputNotFound, got %v", err)
	}
}

func TestInsertReadRoundTrip(t *testing.T) {
	ws := testWorkspace(t)

	if err := ws.Create("lines", testColumns, WGS84()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ins, err := ws.OpenInsert("lines")
	if err != nil {
		t.Fatalf("OpenInsert failed: %v", err)
	}

	want := map[int]struct {
		km  float64
		tag string
	}{
		1: {1.5, "alpha"},
		2: {2.25, "beta"},
		3: {0.75, "gamma"},
	}
	for id, v := range want {
		line := orb.LineString{
			{float64(id), 0}, {float64(id), 1}, {float64(id) + 1, 1},
		}
		if err := ins.Insert(line, id, v.km, v.tag); err != nil {
			t.Fatalf("Insert %d failed: %v", id, err)
		}
	}
	if err := ins.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Indexed files store features in spatial order, so match rows by
	// the ID attribute rather than by position.
	cur, err := ws.OpenRead("lines")
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer cur.Close()

	if cur.Header().FeaturesCount != 3 {
		t.Errorf("expected 3 features, got %d", cur.Header().FeaturesCount)
	}

	seen := 0
	for {
		_, line, ok := cur.Next()
		if !ok {
			break
		}
		seen++
		attrs := cur.Attrs()
		if attrs == nil {
			t.Fatal("expected attributes on every row")
		}
		id, ok := attrs["ID"].(int)
		if !ok {
			t.Fatalf("expected int ID, got %T", attrs["ID"])
		}
		v, ok := want[id]
		if !ok {
			t.Fatalf("unexpected row ID %d", id)
		}
		if got := attrs["KM"].(float64); got != v.km {
			t.Errorf("row %d: expected KM %v, got %v", id, v.km, got)
		}
		if got := attrs["TAG"].(string); got != v.tag {
			t.Errorf("row %d: expected TAG %q, got %q", id, v.tag, got)
		}
		if len(line) != 3 {
			t.Errorf("row %d: expected 3 vertices, got %d", id, len(line))
		}
		if line[0][0] != float64(id) {
			t.Errorf("row %d: geometry did not round-trip: %v", id, line)
		}
		delete(want, id)
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	if seen != 3 {
		t.Errorf("expected 3 rows, got %d", seen)
	}
}

func TestInsertCursor_Append(t *testing.T) {
	ws := testWorkspace(t)

	if err := ws.Create("lines", testColumns, WGS84()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for round := 1; round <= 2; round++ {
		ins, err := ws.OpenInsert("lines")
		if err != nil {
			t.Fatalf("OpenInsert round %d failed: %v", round, err)
		}
		line := orb.LineString{{float64(round), 0}, {float64(round), 1}}
		if err := ins.Insert(line, round, float64(round), "t"); err != nil {
			t.Fatalf("Insert round %d failed: %v", round, err)
		}
		if err := ins.Close(); err != nil {
			t.Fatalf("Close round %d failed: %v", round, err)
		}
	}

	hdr, err := ws.ReadHeader("lines")
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if hdr.FeaturesCount != 2 {
		t.Errorf("expected rows from the first cursor to survive, got %d features", hdr.FeaturesCount)
	}
}

func TestInsertCursor_Validation(t *testing.T) {
	ws := testWorkspace(t)

	if err := ws.Create("lines", testColumns, WGS84()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ins, err := ws.OpenInsert("lines")
	if err != nil {
		t.Fatalf("OpenInsert failed: %v", err)
	}
	defer ins.Close()

	good := orb.LineString{{0, 0}, {1, 1}}

	if err := ins.Insert(nil, 1, 1.0, "t"); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("nil line: expected ErrNilGeometry, got %v", err)
	}
	if err := ins.Insert(orb.LineString{{0, 0}}, 1, 1.0, "t"); !errors.Is(err, ErrNilGeometry) {
		t.Errorf("single point: expected ErrNilGeometry, got %v", err)
	}
	if err := ins.Insert(good, 1, 1.0); !errors.Is(err, ErrColumnMismatch) {
		t.Errorf("short tuple: expected ErrColumnMismatch, got %v", err)
	}
	if err := ins.Insert(good, "one", 1.0, "t"); !errors.Is(err, ErrColumnMismatch) {
		t.Errorf("wrong type: expected ErrColumnMismatch, got %v", err)
	}
	if err := ins.Insert(good, 1, 1.0, "t"); err != nil {
		t.Errorf("valid insert failed: %v", err)
	}

	if err := ins.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ins.Insert(good, 2, 2.0, "t"); err == nil {
		t.Error("expected error inserting on a closed cursor")
	}
	// Closing twice is a no-op.
	if err := ins.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWriteFile_BadRowFails(t *testing.T) {
	ws := testWorkspace(t)

	// A row that cannot be encoded must fail the whole write and
	// leave no file behind, never land attribute-less.
	bad := []row{{
		line:  orb.LineString{{0, 0}, {1, 1}},
		attrs: []interface{}{"not an int", 1.0, "t"},
	}}
	err := ws.writeFile("bad", testColumns, WGS84(), bad)
	if !errors.Is(err, ErrColumnMismatch) {
		t.Fatalf("expected ErrColumnMismatch, got %v", err)
	}
	if ws.Exists("bad") {
		t.Error("failed write should not leave a collection behind")
	}
}

func TestOpenInsert_RestoresDeclaredWidth(t *testing.T) {
	ws := testWorkspace(t)

	// The file format does not persist string widths, so a cursor
	// opened from file must still clip LABEL to its declared cap.
	if err := ws.Create("segments", segmentColumns, UTMZone39N()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ins, err := ws.OpenInsert("segments")
	if err != nil {
		t.Fatalf("OpenInsert failed: %v", err)
	}

	long := "R1_S01_" + strings.Repeat("x", 100)
	line := orb.LineString{{500000, 0}, {500100, 0}}
	if err := ins.Insert(line, 1, 1, 0.1, long); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := ins.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cur, err := ws.OpenRead("segments")
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer cur.Close()

	if _, _, ok := cur.Next(); !ok {
		t.Fatal("expected one row")
	}
	label := cur.Attrs()["LABEL"].(string)
	if len(label) != 50 {
		t.Errorf("expected LABEL clipped to 50 chars, got %d: %q", len(label), label)
	}
	if label != long[:50] {
		t.Errorf("expected prefix of the inserted label, got %q", label)
	}
}

func TestOpenRead_Missing(t *testing.T) {
	ws := testWorkspace(t)
	if _, err := ws.OpenRead("nope"); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("expected ErrInputNotFound, got %v", err)
	}
}
