package save

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MarshalJSON renders s as a JSON mirror of the decoded save: chunks become
// a map keyed by tag, and each typed value is tagged by its FieldKind.
func (s *Save) MarshalJSON() ([]byte, error) {
	chunks := make(map[string]json.RawMessage, len(s.Chunks))
	for _, c := range s.Chunks {
		raw, err := marshalChunkValue(c.Value)
		if err != nil {
			return nil, &ChunkError{Tag: c.Tag, Err: err}
		}
		chunks[c.Tag] = raw
	}

	warnings := make([]string, len(s.Warnings))
	for i, w := range s.Warnings {
		warnings[i] = w.Error()
	}

	return json.Marshal(struct {
		Compression string                     `json:"compression"`
		Version     uint16                     `json:"version"`
		Ignored     uint16                     `json:"ignored"`
		Chunks      map[string]json.RawMessage `json:"chunks"`
		Warnings    []string                   `json:"warnings,omitempty"`
	}{
		Compression: s.Compression.String(),
		Version:     s.Version,
		Ignored:     s.Ignored,
		Chunks:      chunks,
		Warnings:    warnings,
	})
}

// UnmarshalJSON rebuilds a Save from its JSON mirror. Chunk order is not
// preserved by the JSON form (chunks are keyed by tag, per spec), so the
// resulting Chunks slice's order is unspecified relative to the original.
func (s *Save) UnmarshalJSON(data []byte) error {
	var in struct {
		Compression string                     `json:"compression"`
		Version     uint16                     `json:"version"`
		Ignored     uint16                     `json:"ignored"`
		Chunks      map[string]json.RawMessage `json:"chunks"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var magic [4]byte
	copy(magic[:], in.Compression)
	compression, err := detectCompression(magic)
	if err != nil {
		return err
	}

	chunks := make([]Chunk, 0, len(in.Chunks))
	for tag, raw := range in.Chunks {
		value, err := unmarshalChunkValue(raw)
		if err != nil {
			return &ChunkError{Tag: tag, Err: err}
		}
		chunks = append(chunks, Chunk{Tag: tag, Value: value})
	}

	s.Compression = compression
	s.Version = in.Version
	s.Ignored = in.Ignored
	s.Chunks = chunks
	s.Warnings = nil
	return nil
}

type jsonProperty struct {
	Key    string         `json:"key"`
	Kind   string         `json:"kind"`
	Fields []jsonProperty `json:"fields,omitempty"`
}

func marshalSchema(s *StructSchema) []jsonProperty {
	out := make([]jsonProperty, len(s.Properties))
	for i, p := range s.Properties {
		jp := jsonProperty{Key: p.Key, Kind: p.Kind.String()}
		if p.Kind == KindStruct {
			jp.Fields = marshalSchema(p.Struct)
		}
		out[i] = jp
	}
	return out
}

func unmarshalSchema(props []jsonProperty) (*StructSchema, error) {
	out := make([]Property, len(props))
	for i, jp := range props {
		kind, ok := kindByName[jp.Kind]
		if !ok {
			return nil, &MalformedSchemaError{Reason: "unknown field kind", Key: jp.Key}
		}
		p := Property{Key: jp.Key, Kind: kind}
		if kind == KindStruct {
			sub, err := unmarshalSchema(jp.Fields)
			if err != nil {
				return nil, err
			}
			p.Struct = sub
		}
		out[i] = p
	}
	return &StructSchema{Properties: out}, nil
}

var kindByName = func() map[string]FieldKind {
	m := make(map[string]FieldKind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

type jsonRowFields map[string]json.RawMessage

func marshalRow(row Row) (jsonRowFields, error) {
	out := make(jsonRowFields, len(row.Fields))
	for _, f := range row.Fields {
		raw, err := marshalValue(f.Value)
		if err != nil {
			return nil, err
		}
		out[f.Key] = raw
	}
	return out, nil
}

func unmarshalRow(fields jsonRowFields, schema *StructSchema) (Row, error) {
	out := make([]FieldValue, 0, len(schema.Properties))
	for _, p := range schema.Properties {
		raw, ok := fields[p.Key]
		if !ok {
			return Row{}, &MalformedSchemaError{Reason: "row missing field", Key: p.Key}
		}
		v, err := unmarshalValue(raw, p.Kind, p.Struct)
		if err != nil {
			return Row{}, err
		}
		out = append(out, FieldValue{Key: p.Key, Value: v})
	}
	return Row{Fields: out}, nil
}

type jsonValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
	Text  string          `json:"text,omitempty"`
	Raw   string          `json:"raw,omitempty"`
	Rows  []jsonRowFields `json:"rows,omitempty"`
}

func marshalValue(v Value) (json.RawMessage, error) {
	jv := jsonValue{Kind: v.Kind().String()}

	switch tv := v.(type) {
	case Int8Value:
		jv.Value, _ = json.Marshal(int8(tv))
	case UInt8Value:
		jv.Value, _ = json.Marshal(uint8(tv))
	case Int16Value:
		jv.Value, _ = json.Marshal(int16(tv))
	case UInt16Value:
		jv.Value, _ = json.Marshal(uint16(tv))
	case Int32Value:
		jv.Value, _ = json.Marshal(int32(tv))
	case UInt32Value:
		jv.Value, _ = json.Marshal(uint32(tv))
	case Int64Value:
		jv.Value, _ = json.Marshal(int64(tv))
	case UInt64Value:
		jv.Value, _ = json.Marshal(uint64(tv))
	case StringIDValue:
		jv.Value, _ = json.Marshal(uint16(tv))
	case StrValue:
		jv.Text = tv.Text
		if tv.Raw != nil {
			jv.Raw = base64.StdEncoding.EncodeToString(tv.Raw)
		}
	case Int8ListValue:
		jv.Value, _ = json.Marshal([]int8(tv))
	case UInt8ListValue:
		jv.Value, _ = json.Marshal([]uint8(tv))
	case Int16ListValue:
		jv.Value, _ = json.Marshal([]int16(tv))
	case UInt16ListValue:
		jv.Value, _ = json.Marshal([]uint16(tv))
	case Int32ListValue:
		jv.Value, _ = json.Marshal([]int32(tv))
	case UInt32ListValue:
		jv.Value, _ = json.Marshal([]uint32(tv))
	case Int64ListValue:
		jv.Value, _ = json.Marshal([]int64(tv))
	case UInt64ListValue:
		jv.Value, _ = json.Marshal([]uint64(tv))
	case StringIDListValue:
		jv.Value, _ = json.Marshal([]uint16(tv))
	case StructValue:
		jv.Rows = make([]jsonRowFields, len(tv))
		for i, row := range tv {
			rowJSON, err := marshalRow(row)
			if err != nil {
				return nil, err
			}
			jv.Rows[i] = rowJSON
		}
	default:
		return nil, UnknownFieldKindError{Tag: byte(v.Kind())}
	}

	return json.Marshal(jv)
}

func unmarshalValue(raw json.RawMessage, kind FieldKind, sub *StructSchema) (Value, error) {
	var jv jsonValue
	if err := json.Unmarshal(raw, &jv); err != nil {
		return nil, err
	}
	if jv.Kind != kind.String() {
		return nil, fmt.Errorf("save: json field kind %q does not match schema kind %q", jv.Kind, kind)
	}

	switch kind {
	case KindI8:
		var x int8
		return Int8Value(x), json.Unmarshal(jv.Value, &x)
	case KindU8:
		var x uint8
		return UInt8Value(x), json.Unmarshal(jv.Value, &x)
	case KindI16:
		var x int16
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return Int16Value(x), nil
	case KindU16:
		var x uint16
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return UInt16Value(x), nil
	case KindI32:
		var x int32
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return Int32Value(x), nil
	case KindU32:
		var x uint32
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return UInt32Value(x), nil
	case KindI64:
		var x int64
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return Int64Value(x), nil
	case KindU64:
		var x uint64
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return UInt64Value(x), nil
	case KindStringID:
		var x uint16
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return StringIDValue(x), nil
	case KindStr:
		sv := StrValue{Text: jv.Text}
		if jv.Raw != "" {
			raw, err := base64.StdEncoding.DecodeString(jv.Raw)
			if err != nil {
				return nil, err
			}
			sv.Raw = raw
		}
		return sv, nil
	case KindI8List:
		var x []int8
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return Int8ListValue(x), nil
	case KindU8List:
		var x []uint8
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return UInt8ListValue(x), nil
	case KindI16List:
		var x []int16
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return Int16ListValue(x), nil
	case KindU16List:
		var x []uint16
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return UInt16ListValue(x), nil
	case KindI32List:
		var x []int32
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return Int32ListValue(x), nil
	case KindU32List:
		var x []uint32
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return UInt32ListValue(x), nil
	case KindI64List:
		var x []int64
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return Int64ListValue(x), nil
	case KindU64List:
		var x []uint64
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return UInt64ListValue(x), nil
	case KindStringIDList:
		var x []uint16
		if err := json.Unmarshal(jv.Value, &x); err != nil {
			return nil, err
		}
		return StringIDListValue(x), nil
	case KindStruct:
		rows := make(StructValue, len(jv.Rows))
		for i, fields := range jv.Rows {
			row, err := unmarshalRow(fields, sub)
			if err != nil {
				return nil, err
			}
			rows[i] = row
		}
		return rows, nil
	}
	return nil, UnknownFieldKindError{Tag: byte(kind)}
}

type jsonChunk struct {
	Shape    string          `json:"shape"`
	Data     string          `json:"data,omitempty"`
	Rows     json.RawMessage `json:"rows,omitempty"`
	Schema   []jsonProperty  `json:"schema,omitempty"`
}

type jsonArrayRow struct {
	Index *uint32 `json:"index,omitempty"`
	Data  string  `json:"data"`
}

type jsonTableRow struct {
	Index    *uint32       `json:"index,omitempty"`
	Fields   jsonRowFields `json:"fields"`
	Leftover string        `json:"leftover,omitempty"`
}

func marshalChunkValue(v ChunkValue) (json.RawMessage, error) {
	switch tv := v.(type) {
	case RiffValue:
		return json.Marshal(jsonChunk{Shape: "riff", Data: base64.StdEncoding.EncodeToString(tv.Data)})

	case *ArrayValue:
		rows := make([]jsonArrayRow, len(tv.Rows))
		for i, row := range tv.Rows {
			rows[i] = jsonArrayRow{Data: base64.StdEncoding.EncodeToString(row)}
		}
		rawRows, _ := json.Marshal(rows)
		return json.Marshal(jsonChunk{Shape: "array", Rows: rawRows})

	case *SparseArrayValue:
		rows := make([]jsonArrayRow, len(tv.Rows))
		for i, row := range tv.Rows {
			idx := row.Index
			rows[i] = jsonArrayRow{Index: &idx, Data: base64.StdEncoding.EncodeToString(row.Data)}
		}
		rawRows, _ := json.Marshal(rows)
		return json.Marshal(jsonChunk{Shape: "sparse_array", Rows: rawRows})

	case *TableValue:
		rows := make([]jsonTableRow, len(tv.Rows))
		for i, row := range tv.Rows {
			fields, err := marshalRow(row.Row)
			if err != nil {
				return nil, err
			}
			rows[i] = jsonTableRow{Fields: fields, Leftover: encodeLeftover(row.Leftover)}
		}
		rawRows, _ := json.Marshal(rows)
		return json.Marshal(jsonChunk{Shape: "table", Schema: marshalSchema(tv.Schema), Rows: rawRows})

	case *SparseTableValue:
		rows := make([]jsonTableRow, len(tv.Rows))
		for i, row := range tv.Rows {
			fields, err := marshalRow(row.Row)
			if err != nil {
				return nil, err
			}
			idx := row.Index
			rows[i] = jsonTableRow{Index: &idx, Fields: fields, Leftover: encodeLeftover(row.Leftover)}
		}
		rawRows, _ := json.Marshal(rows)
		return json.Marshal(jsonChunk{Shape: "sparse_table", Schema: marshalSchema(tv.Schema), Rows: rawRows})

	default:
		return nil, &UnknownShapeError{}
	}
}

func encodeLeftover(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func decodeLeftover(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func unmarshalChunkValue(raw json.RawMessage) (ChunkValue, error) {
	var jc jsonChunk
	if err := json.Unmarshal(raw, &jc); err != nil {
		return nil, err
	}

	switch jc.Shape {
	case "riff":
		data, err := base64.StdEncoding.DecodeString(jc.Data)
		if err != nil {
			return nil, err
		}
		return RiffValue{Data: data}, nil

	case "array":
		var rows []jsonArrayRow
		if err := json.Unmarshal(jc.Rows, &rows); err != nil {
			return nil, err
		}
		out := make([][]byte, len(rows))
		for i, r := range rows {
			data, err := base64.StdEncoding.DecodeString(r.Data)
			if err != nil {
				return nil, err
			}
			out[i] = data
		}
		return &ArrayValue{Rows: out}, nil

	case "sparse_array":
		var rows []jsonArrayRow
		if err := json.Unmarshal(jc.Rows, &rows); err != nil {
			return nil, err
		}
		out := make([]SparseArrayRow, len(rows))
		for i, r := range rows {
			data, err := base64.StdEncoding.DecodeString(r.Data)
			if err != nil {
				return nil, err
			}
			if r.Index == nil {
				return nil, &MalformedSchemaError{Reason: "sparse array row missing index"}
			}
			out[i] = SparseArrayRow{Index: *r.Index, Data: data}
		}
		return &SparseArrayValue{Rows: out}, nil

	case "table":
		schema, err := unmarshalSchema(jc.Schema)
		if err != nil {
			return nil, err
		}
		var rows []jsonTableRow
		if err := json.Unmarshal(jc.Rows, &rows); err != nil {
			return nil, err
		}
		out := make([]TableRow, len(rows))
		for i, r := range rows {
			row, err := unmarshalRow(r.Fields, schema)
			if err != nil {
				return nil, err
			}
			leftover, err := decodeLeftover(r.Leftover)
			if err != nil {
				return nil, err
			}
			out[i] = TableRow{Row: row, Leftover: leftover}
		}
		return &TableValue{Schema: schema, Rows: out}, nil

	case "sparse_table":
		schema, err := unmarshalSchema(jc.Schema)
		if err != nil {
			return nil, err
		}
		var rows []jsonTableRow
		if err := json.Unmarshal(jc.Rows, &rows); err != nil {
			return nil, err
		}
		out := make([]SparseTableRow, len(rows))
		for i, r := range rows {
			row, err := unmarshalRow(r.Fields, schema)
			if err != nil {
				return nil, err
			}
			leftover, err := decodeLeftover(r.Leftover)
			if err != nil {
				return nil, err
			}
			if r.Index == nil {
				return nil, &MalformedSchemaError{Reason: "sparse table row missing index"}
			}
			out[i] = SparseTableRow{Index: *r.Index, Row: row, Leftover: leftover}
		}
		return &SparseTableValue{Schema: schema, Rows: out}, nil

	default:
		return nil, &UnknownShapeError{}
	}
}
