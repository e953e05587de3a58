package save

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jf908/openttd-map-parser/gamma"
)

// TableRow is one decoded row of a Table chunk: its typed field values plus
// any leftover bytes the declared row size included beyond what the schema
// accounts for (preserved verbatim so re-encoding is lossless even against a
// newer game version's wider row format).
type TableRow struct {
	Row      Row
	Leftover []byte
}

// SparseTableRow is one decoded row of a SparseTable chunk, additionally
// carrying the explicit gamma-encoded index sparse rows use in place of an
// implicit sequential index.
type SparseTableRow struct {
	Index    uint32
	Row      Row
	Leftover []byte
}

// TableValue is the decoded payload of a Table-shaped chunk: a schema and the
// rows decoded against it.
type TableValue struct {
	Schema *StructSchema
	Rows   []TableRow
}

func (TableValue) chunkValue() {}

// SparseTableValue is the decoded payload of a SparseTable-shaped chunk.
type SparseTableValue struct {
	Schema *StructSchema
	Rows   []SparseTableRow
}

func (SparseTableValue) chunkValue() {}

// readRow decodes one row's fields against schema, in schema order.
func readRow(r io.Reader, schema *StructSchema) (Row, error) {
	fields := make([]FieldValue, 0, len(schema.Properties))
	for _, p := range schema.Properties {
		v, err := readValue(r, p.Kind, p.Struct)
		if err != nil {
			return Row{}, err
		}
		fields = append(fields, FieldValue{Key: p.Key, Value: v})
	}
	return Row{Fields: fields}, nil
}

// writeRow encodes row's fields in order. row must have exactly one field per
// schema property, matching by position.
func writeRow(w io.Writer, row Row) error {
	for _, f := range row.Fields {
		if err := writeValue(w, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func readValue(r io.Reader, kind FieldKind, sub *StructSchema) (Value, error) {
	if size := primitiveSize(kind); size > 0 {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, wrapTruncated(err, "scalar field")
		}
		switch kind {
		case KindI8:
			return Int8Value(int8(buf[0])), nil
		case KindU8:
			return UInt8Value(buf[0]), nil
		case KindI16:
			return Int16Value(int16(binary.BigEndian.Uint16(buf))), nil
		case KindU16:
			return UInt16Value(binary.BigEndian.Uint16(buf)), nil
		case KindI32:
			return Int32Value(int32(binary.BigEndian.Uint32(buf))), nil
		case KindU32:
			return UInt32Value(binary.BigEndian.Uint32(buf)), nil
		case KindI64:
			return Int64Value(int64(binary.BigEndian.Uint64(buf))), nil
		case KindU64:
			return UInt64Value(binary.BigEndian.Uint64(buf)), nil
		case KindStringID:
			return StringIDValue(binary.BigEndian.Uint16(buf)), nil
		}
	}

	if elemSize := listElemSize(kind); elemSize > 0 {
		count, err := gamma.Read(r)
		if err != nil {
			return nil, wrapTruncated(err, "list length")
		}
		buf := make([]byte, int(count)*elemSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, wrapTruncated(err, "list elements")
		}
		return decodeList(kind, count, buf), nil
	}

	switch kind {
	case KindStr:
		length, err := gamma.Read(r)
		if err != nil {
			return nil, wrapTruncated(err, "string length")
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, wrapTruncated(err, "string bytes")
		}
		if utf8.Valid(raw) {
			return StrValue{Text: string(raw)}, nil
		}
		return StrValue{Text: strings.ToValidUTF8(string(raw), "�"), Raw: raw}, nil

	case KindStruct:
		count, err := gamma.Read(r)
		if err != nil {
			return nil, wrapTruncated(err, "struct row count")
		}
		rows := make(StructValue, count)
		for i := range rows {
			row, err := readRow(r, sub)
			if err != nil {
				return nil, err
			}
			rows[i] = row
		}
		return rows, nil
	}

	return nil, UnknownFieldKindError{Tag: byte(kind)}
}

func decodeList(kind FieldKind, count uint32, buf []byte) Value {
	switch kind {
	case KindI8List:
		v := make(Int8ListValue, count)
		for i := range v {
			v[i] = int8(buf[i])
		}
		return v
	case KindU8List:
		v := make(UInt8ListValue, count)
		copy(v, buf)
		return v
	case KindI16List:
		v := make(Int16ListValue, count)
		for i := range v {
			v[i] = int16(binary.BigEndian.Uint16(buf[i*2:]))
		}
		return v
	case KindU16List:
		v := make(UInt16ListValue, count)
		for i := range v {
			v[i] = binary.BigEndian.Uint16(buf[i*2:])
		}
		return v
	case KindI32List:
		v := make(Int32ListValue, count)
		for i := range v {
			v[i] = int32(binary.BigEndian.Uint32(buf[i*4:]))
		}
		return v
	case KindU32List:
		v := make(UInt32ListValue, count)
		for i := range v {
			v[i] = binary.BigEndian.Uint32(buf[i*4:])
		}
		return v
	case KindI64List:
		v := make(Int64ListValue, count)
		for i := range v {
			v[i] = int64(binary.BigEndian.Uint64(buf[i*8:]))
		}
		return v
	case KindU64List:
		v := make(UInt64ListValue, count)
		for i := range v {
			v[i] = binary.BigEndian.Uint64(buf[i*8:])
		}
		return v
	case KindStringIDList:
		v := make(StringIDListValue, count)
		for i := range v {
			v[i] = binary.BigEndian.Uint16(buf[i*2:])
		}
		return v
	}
	panic("save: decodeList called with non-list kind")
}

func writeValue(w io.Writer, v Value) error {
	switch tv := v.(type) {
	case Int8Value:
		_, err := w.Write([]byte{byte(tv)})
		return err
	case UInt8Value:
		_, err := w.Write([]byte{byte(tv)})
		return err
	case Int16Value:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(tv))
		_, err := w.Write(buf[:])
		return err
	case UInt16Value:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(tv))
		_, err := w.Write(buf[:])
		return err
	case Int32Value:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(tv))
		_, err := w.Write(buf[:])
		return err
	case UInt32Value:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(tv))
		_, err := w.Write(buf[:])
		return err
	case Int64Value:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(tv))
		_, err := w.Write(buf[:])
		return err
	case UInt64Value:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(tv))
		_, err := w.Write(buf[:])
		return err
	case StringIDValue:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(tv))
		_, err := w.Write(buf[:])
		return err
	case StrValue:
		b := tv.bytes()
		if err := gamma.Write(w, uint32(len(b))); err != nil {
			return err
		}
		_, err := w.Write(b)
		return err
	case Int8ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		for _, x := range tv {
			if _, err := w.Write([]byte{byte(x)}); err != nil {
				return err
			}
		}
		return nil
	case UInt8ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		_, err := w.Write(tv)
		return err
	case Int16ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		buf := make([]byte, len(tv)*2)
		for i, x := range tv {
			binary.BigEndian.PutUint16(buf[i*2:], uint16(x))
		}
		_, err := w.Write(buf)
		return err
	case UInt16ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		buf := make([]byte, len(tv)*2)
		for i, x := range tv {
			binary.BigEndian.PutUint16(buf[i*2:], x)
		}
		_, err := w.Write(buf)
		return err
	case Int32ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		buf := make([]byte, len(tv)*4)
		for i, x := range tv {
			binary.BigEndian.PutUint32(buf[i*4:], uint32(x))
		}
		_, err := w.Write(buf)
		return err
	case UInt32ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		buf := make([]byte, len(tv)*4)
		for i, x := range tv {
			binary.BigEndian.PutUint32(buf[i*4:], x)
		}
		_, err := w.Write(buf)
		return err
	case Int64ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		buf := make([]byte, len(tv)*8)
		for i, x := range tv {
			binary.BigEndian.PutUint64(buf[i*8:], uint64(x))
		}
		_, err := w.Write(buf)
		return err
	case UInt64ListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		buf := make([]byte, len(tv)*8)
		for i, x := range tv {
			binary.BigEndian.PutUint64(buf[i*8:], x)
		}
		_, err := w.Write(buf)
		return err
	case StringIDListValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		buf := make([]byte, len(tv)*2)
		for i, x := range tv {
			binary.BigEndian.PutUint16(buf[i*2:], x)
		}
		_, err := w.Write(buf)
		return err
	case StructValue:
		if err := gamma.Write(w, uint32(len(tv))); err != nil {
			return err
		}
		for _, row := range tv {
			if err := writeRow(w, row); err != nil {
				return err
			}
		}
		return nil
	}
	return UnknownFieldKindError{Tag: byte(v.Kind())}
}

// readTableRow reads one Table row envelope (size gamma, fields, leftover).
// ok is false when the size gamma is the zero terminator.
//
// The row's declared byte span is read up front and fields are parsed from
// that buffer rather than the live stream, so a row whose schema doesn't fit
// its declared size can never desynchronize the rows that follow it. When
// that happens, ctx.strict decides the outcome: strict returns
// *SizeMismatchError immediately; non-strict records a warning via ctx.warn
// and hands back the row with empty fields and the whole span as Leftover,
// per SPEC_FULL.md's non-strict decode contract.
func readTableRow(r io.Reader, schema *StructSchema, ctx *decodeCtx) (row TableRow, ok bool, err error) {
	size, err := gamma.Read(r)
	if err != nil {
		return TableRow{}, false, wrapTruncated(err, "table row size")
	}
	if size == 0 {
		return TableRow{}, false, nil
	}

	raw := make([]byte, size-1)
	if _, err := io.ReadFull(r, raw); err != nil {
		return TableRow{}, false, wrapTruncated(err, "table row data")
	}

	br := bytes.NewReader(raw)
	decoded, err := readRow(br, schema)
	if err != nil {
		mismatch := &SizeMismatchError{Declared: uint32(len(raw)), Required: uint32(len(raw)) + 1}
		if ctx.strict {
			return TableRow{}, false, mismatch
		}
		ctx.warn(&MalformedRowWarning{Tag: ctx.tag, Err: mismatch})
		return TableRow{Leftover: raw}, true, nil
	}
	leftover := raw[len(raw)-br.Len():]
	return TableRow{Row: decoded, Leftover: leftover}, true, nil
}

func writeTableRow(w io.Writer, row TableRow) error {
	dataLen := row.Row.byteLen() + len(row.Leftover)
	if err := gamma.Write(w, uint32(dataLen)+1); err != nil {
		return err
	}
	if err := writeRow(w, row.Row); err != nil {
		return err
	}
	_, err := w.Write(row.Leftover)
	return err
}

// readSparseTableRow mirrors readTableRow but with a leading gamma index
// within the same declared-size-bounded buffer.
func readSparseTableRow(r io.Reader, schema *StructSchema, ctx *decodeCtx) (row SparseTableRow, ok bool, err error) {
	size, err := gamma.Read(r)
	if err != nil {
		return SparseTableRow{}, false, wrapTruncated(err, "sparse table row size")
	}
	if size == 0 {
		return SparseTableRow{}, false, nil
	}

	raw := make([]byte, size-1)
	if _, err := io.ReadFull(r, raw); err != nil {
		return SparseTableRow{}, false, wrapTruncated(err, "sparse table row data")
	}

	br := bytes.NewReader(raw)
	index, err := gamma.Read(br)
	if err != nil {
		// Too short to even hold its index; there is no byte-stable way to
		// separate an index from the fields here, so the whole span is the
		// opaque leftover and the index is unrecoverable.
		mismatch := &SizeMismatchError{Declared: uint32(len(raw)), Required: uint32(len(raw)) + 1}
		if ctx.strict {
			return SparseTableRow{}, false, mismatch
		}
		ctx.warn(&MalformedRowWarning{Tag: ctx.tag, Err: mismatch})
		return SparseTableRow{Leftover: raw}, true, nil
	}

	afterIndex := raw[len(raw)-br.Len():]
	decoded, err := readRow(br, schema)
	if err != nil {
		mismatch := &SizeMismatchError{Declared: uint32(len(raw)), Required: uint32(len(raw)) + 1}
		if ctx.strict {
			return SparseTableRow{}, false, mismatch
		}
		ctx.warn(&MalformedRowWarning{Tag: ctx.tag, Err: mismatch})
		// The index itself decoded fine; only the fields didn't fit, so keep
		// it and put only the bytes after it into Leftover: re-encoding
		// writes a fresh index gamma, which a Leftover holding the index
		// bytes too would duplicate.
		return SparseTableRow{Index: index, Leftover: afterIndex}, true, nil
	}
	leftover := raw[len(raw)-br.Len():]
	return SparseTableRow{Index: index, Row: decoded, Leftover: leftover}, true, nil
}

func writeSparseTableRow(w io.Writer, row SparseTableRow) error {
	dataLen := gamma.Length(row.Index) + row.Row.byteLen() + len(row.Leftover)
	if err := gamma.Write(w, uint32(dataLen)+1); err != nil {
		return err
	}
	if err := gamma.Write(w, row.Index); err != nil {
		return err
	}
	if err := writeRow(w, row.Row); err != nil {
		return err
	}
	_, err := w.Write(row.Leftover)
	return err
}

func readTableValue(r io.Reader, ctx *decodeCtx) (*TableValue, error) {
	// header_size is informational only; it is consumed from the stream but
	// not relied upon, since schema parsing detects its own end via the
	// property-list terminator.
	if _, err := gamma.Read(r); err != nil {
		return nil, wrapTruncated(err, "table header size")
	}
	schema, err := ParseSchema(r)
	if err != nil {
		return nil, err
	}
	var rows []TableRow
	for {
		row, ok, err := readTableRow(r, schema, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return &TableValue{Schema: schema, Rows: rows}, nil
}

func (v *TableValue) encode(w io.Writer) error {
	if err := gamma.Write(w, uint32(v.Schema.ByteLen())+1); err != nil {
		return err
	}
	if err := v.Schema.Encode(w); err != nil {
		return err
	}
	for _, row := range v.Rows {
		if err := writeTableRow(w, row); err != nil {
			return err
		}
	}
	return gamma.Write(w, 0)
}

func readSparseTableValue(r io.Reader, ctx *decodeCtx) (*SparseTableValue, error) {
	if _, err := gamma.Read(r); err != nil {
		return nil, wrapTruncated(err, "sparse table header size")
	}
	schema, err := ParseSchema(r)
	if err != nil {
		return nil, err
	}
	var rows []SparseTableRow
	for {
		row, ok, err := readSparseTableRow(r, schema, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return &SparseTableValue{Schema: schema, Rows: rows}, nil
}

func (v *SparseTableValue) encode(w io.Writer) error {
	if err := gamma.Write(w, uint32(v.Schema.ByteLen())+1); err != nil {
		return err
	}
	if err := v.Schema.Encode(w); err != nil {
		return err
	}
	for _, row := range v.Rows {
		if err := writeSparseTableRow(w, row); err != nil {
			return err
		}
	}
	return gamma.Write(w, 0)
}
