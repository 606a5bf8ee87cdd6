package roadsplit

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// Attribute values are stored in the FlatGeobuf property format:
// a little-endian uint16 column index followed by the value encoded
// per the column's declared type, repeated per attribute. Unlike a
// free-form GeoJSON property bag, the schema here is declared up
// front and rows are ordered tuples matching the column order.

func fgbColumnType(t ColumnType) flattypes.ColumnType {
	switch t {
	case TypeInt:
		return flattypes.ColumnTypeInt
	case TypeDouble:
		return flattypes.ColumnTypeDouble
	default:
		return flattypes.ColumnTypeString
	}
}

func columnTypeFromFGB(t flattypes.ColumnType) (ColumnType, bool) {
	switch t {
	case flattypes.ColumnTypeInt, flattypes.ColumnTypeLong,
		flattypes.ColumnTypeShort, flattypes.ColumnTypeByte:
		return TypeInt, true
	case flattypes.ColumnTypeDouble, flattypes.ColumnTypeFloat:
		return TypeDouble, true
	case flattypes.ColumnTypeString:
		return TypeString, true
	default:
		return 0, false
	}
}

// buildColumns converts the declared schema to FlatGeobuf writer
// columns. Titles double as display aliases.
func buildColumns(builder *flatbuffers.Builder, cols []Column) []*writer.Column {
	out := make([]*writer.Column, 0, len(cols))
	for _, c := range cols {
		col := writer.NewColumn(builder)
		col.SetName(c.Name)
		if c.Title != "" {
			col.SetTitle(c.Title)
		} else {
			col.SetTitle(c.Name)
		}
		col.SetType(fgbColumnType(c.Type))
		col.SetNullable(true)
		out = append(out, col)
	}
	return out
}

// encodeRow encodes one ordered attribute tuple. The tuple length and
// value types must match the declared columns.
func encodeRow(cols []Column, attrs []interface{}) ([]byte, error) {
	if len(attrs) != len(cols) {
		return nil, fmt.Errorf("%w: got %d values for %d columns", ErrColumnMismatch, len(attrs), len(cols))
	}

	var buf bytes.Buffer
	for i, col := range cols {
		idx := make([]byte, 2)
		binary.LittleEndian.PutUint16(idx, uint16(i))
		buf.Write(idx)

		switch col.Type {
		case TypeInt:
			v, ok := toInt64(attrs[i])
			if !ok {
				return nil, fmt.Errorf("%w: column %s wants an integer, got %T", ErrColumnMismatch, col.Name, attrs[i])
			}
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(int32(v)))
			buf.Write(b)

		case TypeDouble:
			v, ok := toFloat64(attrs[i])
			if !ok {
				return nil, fmt.Errorf("%w: column %s wants a float, got %T", ErrColumnMismatch, col.Name, attrs[i])
			}
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, math.Float64bits(v))
			buf.Write(b)

		case TypeString:
			v, ok := attrs[i].(string)
			if !ok {
				return nil, fmt.Errorf("%w: column %s wants a string, got %T", ErrColumnMismatch, col.Name, attrs[i])
			}
			if col.Width > 0 && len(v) > col.Width {
				v = v[:col.Width]
			}
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(len(v)))
			buf.Write(b)
			buf.WriteString(v)
		}
	}
	return buf.Bytes(), nil
}

// decodeRow decodes stored properties back into a name-keyed map.
// Unknown column indexes end decoding; a short buffer is invalid.
func decodeRow(data []byte, cols []Column) (map[string]interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}

	attrs := make(map[string]interface{}, len(cols))
	offset := 0

	for offset+2 <= len(data) {
		colIndex := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if colIndex >= len(cols) {
			break
		}
		col := cols[colIndex]

		switch col.Type {
		case TypeInt:
			if offset+4 > len(data) {
				return nil, fmt.Errorf("%w: truncated value for %s", ErrColumnMismatch, col.Name)
			}
			attrs[col.Name] = int(int32(binary.LittleEndian.Uint32(data[offset : offset+4])))
			offset += 4

		case TypeDouble:
			if offset+8 > len(data) {
				return nil, fmt.Errorf("%w: truncated value for %s", ErrColumnMismatch, col.Name)
			}
			attrs[col.Name] = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
			offset += 8

		case TypeString:
			if offset+4 > len(data) {
				return nil, fmt.Errorf("%w: truncated value for %s", ErrColumnMismatch, col.Name)
			}
			n := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
			offset += 4
			if offset+n > len(data) {
				return nil, fmt.Errorf("%w: truncated value for %s", ErrColumnMismatch, col.Name)
			}
			attrs[col.Name] = string(data[offset : offset+n])
			offset += n
		}
	}

	return attrs, nil
}

// tupleFromAttrs rebuilds the ordered tuple for a decoded row, using
// type zero values for attributes the row did not carry.
func tupleFromAttrs(cols []Column, attrs map[string]interface{}) []interface{} {
	tuple := make([]interface{}, len(cols))
	for i, col := range cols {
		if v, ok := attrs[col.Name]; ok {
			tuple[i] = v
			continue
		}
		switch col.Type {
		case TypeInt:
			tuple[i] = 0
		case TypeDouble:
			tuple[i] = 0.0
		default:
			tuple[i] = ""
		}
	}
	return tuple
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint64:
		return int64(val), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}
