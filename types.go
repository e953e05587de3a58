package save

import (
	"fmt"

	"github.com/jf908/openttd-map-parser/gamma"
)

// FieldKind identifies the wire type of a table schema property, matching
// OpenTTD's SLE (save/load entry) type tags.
type FieldKind byte

// The closed set of field kinds a StructSchema property may declare.
const (
	KindI8           FieldKind = 1
	KindU8           FieldKind = 2
	KindI16          FieldKind = 3
	KindU16          FieldKind = 4
	KindI32          FieldKind = 5
	KindU32          FieldKind = 6
	KindI64          FieldKind = 7
	KindU64          FieldKind = 8
	KindStringID     FieldKind = 9
	KindI8List       FieldKind = 0b10001
	KindU8List       FieldKind = 0b10010
	KindI16List      FieldKind = 0b10011
	KindU16List      FieldKind = 0b10100
	KindI32List      FieldKind = 0b10101
	KindU32List      FieldKind = 0b10110
	KindI64List      FieldKind = 0b10111
	KindU64List      FieldKind = 0b11000
	KindStringIDList FieldKind = 0b11001
	KindStr          FieldKind = 0b11010
	KindStruct       FieldKind = 0b11011
)

// kindTerminator is the byte that ends a property list within a StructSchema.
const kindTerminator FieldKind = 0

var kindNames = map[FieldKind]string{
	KindI8:           "i8",
	KindU8:           "u8",
	KindI16:          "i16",
	KindU16:          "u16",
	KindI32:          "i32",
	KindU32:          "u32",
	KindI64:          "i64",
	KindU64:          "u64",
	KindStringID:     "string_id",
	KindI8List:       "i8_list",
	KindU8List:       "u8_list",
	KindI16List:      "i16_list",
	KindU16List:      "u16_list",
	KindI32List:      "i32_list",
	KindU32List:      "u32_list",
	KindI64List:      "i64_list",
	KindU64List:      "u64_list",
	KindStringIDList: "string_id_list",
	KindStr:          "str",
	KindStruct:       "struct",
}

// String returns the JSON-facing name of the kind, or "invalid" if k is not a
// recognized FieldKind.
func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether k is one of the defined field kinds.
func (k FieldKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// primitiveSize returns the fixed wire width of a scalar FieldKind, or 0 if k
// is not a fixed-width scalar kind.
func primitiveSize(k FieldKind) int {
	switch k {
	case KindI8, KindU8:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32:
		return 4
	case KindI64, KindU64:
		return 8
	case KindStringID:
		return 2
	default:
		return 0
	}
}

// listElemSize returns the fixed wire width of one element of a list
// FieldKind, or 0 if k is not a list kind.
func listElemSize(k FieldKind) int {
	switch k {
	case KindI8List, KindU8List:
		return 1
	case KindI16List, KindU16List:
		return 2
	case KindI32List, KindU32List:
		return 4
	case KindI64List, KindU64List:
		return 8
	case KindStringIDList:
		return 2
	default:
		return 0
	}
}

// Value is a decoded table field value. Its concrete type corresponds to the
// FieldKind of the property it was decoded against.
type Value interface {
	// Kind returns the FieldKind this value encodes as.
	Kind() FieldKind

	// ByteLen returns the exact number of bytes this value occupies on the
	// wire, per spec's byte_len definition.
	ByteLen() int

	isValue()
}

// FieldValue pairs a schema key with its decoded value within a Row.
type FieldValue struct {
	Key   string
	Value Value
}

// Row is an ordered set of field values matching a StructSchema, in schema
// order.
type Row struct {
	Fields []FieldValue
}

// Get returns the value for key within the row, or nil if absent.
func (r Row) Get(key string) Value {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

func (r Row) byteLen() int {
	n := 0
	for _, f := range r.Fields {
		n += f.Value.ByteLen()
	}
	return n
}

////////////////////////////////////////////////////////////////
// Scalar values

type Int8Value int8

func (Int8Value) Kind() FieldKind { return KindI8 }
func (Int8Value) ByteLen() int    { return 1 }
func (Int8Value) isValue()        {}

type UInt8Value uint8

func (UInt8Value) Kind() FieldKind { return KindU8 }
func (UInt8Value) ByteLen() int    { return 1 }
func (UInt8Value) isValue()        {}

type Int16Value int16

func (Int16Value) Kind() FieldKind { return KindI16 }
func (Int16Value) ByteLen() int    { return 2 }
func (Int16Value) isValue()        {}

type UInt16Value uint16

func (UInt16Value) Kind() FieldKind { return KindU16 }
func (UInt16Value) ByteLen() int    { return 2 }
func (UInt16Value) isValue()        {}

type Int32Value int32

func (Int32Value) Kind() FieldKind { return KindI32 }
func (Int32Value) ByteLen() int    { return 4 }
func (Int32Value) isValue()        {}

type UInt32Value uint32

func (UInt32Value) Kind() FieldKind { return KindU32 }
func (UInt32Value) ByteLen() int    { return 4 }
func (UInt32Value) isValue()        {}

type Int64Value int64

func (Int64Value) Kind() FieldKind { return KindI64 }
func (Int64Value) ByteLen() int    { return 8 }
func (Int64Value) isValue()        {}

type UInt64Value uint64

func (UInt64Value) Kind() FieldKind { return KindU64 }
func (UInt64Value) ByteLen() int    { return 8 }
func (UInt64Value) isValue()        {}

// StringIDValue is a u16 index into the game's string table.
type StringIDValue uint16

func (StringIDValue) Kind() FieldKind { return KindStringID }
func (StringIDValue) ByteLen() int    { return 2 }
func (StringIDValue) isValue()        {}

////////////////////////////////////////////////////////////////
// Str

// StrValue is a gamma-length-prefixed UTF-8 string. Raw preserves the
// original bytes whenever lossy UTF-8 decoding changed them, so that Encode
// reproduces the input exactly even for adversarial (non-UTF-8) input. Raw is
// nil when Text's bytes are identical to what was on the wire.
type StrValue struct {
	Text string
	Raw  []byte
}

func (StrValue) Kind() FieldKind { return KindStr }

func (v StrValue) bytes() []byte {
	if v.Raw != nil {
		return v.Raw
	}
	return []byte(v.Text)
}

func (v StrValue) ByteLen() int {
	b := v.bytes()
	return gamma.Length(uint32(len(b))) + len(b)
}
func (StrValue) isValue() {}

////////////////////////////////////////////////////////////////
// Lists

type Int8ListValue []int8

func (Int8ListValue) Kind() FieldKind { return KindI8List }
func (v Int8ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v) }
func (Int8ListValue) isValue()        {}

type UInt8ListValue []uint8

func (UInt8ListValue) Kind() FieldKind { return KindU8List }
func (v UInt8ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v) }
func (UInt8ListValue) isValue()        {}

type Int16ListValue []int16

func (Int16ListValue) Kind() FieldKind { return KindI16List }
func (v Int16ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v)*2 }
func (Int16ListValue) isValue()        {}

type UInt16ListValue []uint16

func (UInt16ListValue) Kind() FieldKind { return KindU16List }
func (v UInt16ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v)*2 }
func (UInt16ListValue) isValue()        {}

type Int32ListValue []int32

func (Int32ListValue) Kind() FieldKind { return KindI32List }
func (v Int32ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v)*4 }
func (Int32ListValue) isValue()        {}

type UInt32ListValue []uint32

func (UInt32ListValue) Kind() FieldKind { return KindU32List }
func (v UInt32ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v)*4 }
func (UInt32ListValue) isValue()        {}

type Int64ListValue []int64

func (Int64ListValue) Kind() FieldKind { return KindI64List }
func (v Int64ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v)*8 }
func (Int64ListValue) isValue()        {}

type UInt64ListValue []uint64

func (UInt64ListValue) Kind() FieldKind { return KindU64List }
func (v UInt64ListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v)*8 }
func (UInt64ListValue) isValue()        {}

type StringIDListValue []uint16

func (StringIDListValue) Kind() FieldKind { return KindStringIDList }
func (v StringIDListValue) ByteLen() int  { return gamma.Length(uint32(len(v))) + len(v)*2 }
func (StringIDListValue) isValue()        {}

////////////////////////////////////////////////////////////////
// Struct

// StructValue is a list of nested rows, each matching the Struct property's
// sub-schema.
type StructValue []Row

func (StructValue) Kind() FieldKind { return KindStruct }
func (v StructValue) ByteLen() int {
	n := gamma.Length(uint32(len(v)))
	for _, row := range v {
		n += row.byteLen()
	}
	return n
}
func (StructValue) isValue() {}

// UnknownFieldKindError indicates a FieldKind byte that is not part of the
// closed set this codec understands.
type UnknownFieldKindError struct {
	Tag byte
}

func (e UnknownFieldKindError) Error() string {
	return fmt.Sprintf("save: unknown field kind 0x%X", e.Tag)
}
