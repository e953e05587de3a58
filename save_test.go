package save

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jf908/openttd-map-parser/gamma"
)

func TestDecodeEmptySave(t *testing.T) {
	data := []byte{'O', 'T', 'T', 'N', 0x00, 0x00, 0x00, 0x00, 0, 0, 0, 0}

	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Compression != CompressionNone {
		t.Errorf("Compression = %v, want CompressionNone", s.Compression)
	}
	if s.Version != 0 || s.Ignored != 0 {
		t.Errorf("Version/Ignored = %d/%d, want 0/0", s.Version, s.Ignored)
	}
	if len(s.Chunks) != 0 {
		t.Fatalf("len(Chunks) = %d, want 0", len(s.Chunks))
	}

	out, err := s.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("re-encoded = %x, want %x", out, data)
	}
}

func TestDecodeRejectsInvalidSignature(t *testing.T) {
	data := []byte{'X', 'X', 'X', 'X', 0, 0, 0, 0}
	_, err := Decode(data)
	if err != ErrInvalidSignature {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{'O', 'T'})
	if _, ok := err.(*TruncatedError); !ok {
		t.Fatalf("err = %v, want *TruncatedError", err)
	}
}

func TestSaveGet(t *testing.T) {
	s := &Save{
		Chunks: []Chunk{
			{Tag: "TEST", Value: RiffValue{Data: []byte{1, 2}}},
		},
	}
	v, ok := s.Get("TEST")
	if !ok {
		t.Fatal("expected TEST chunk to be present")
	}
	if riff, ok := v.(RiffValue); !ok || !bytes.Equal(riff.Data, []byte{1, 2}) {
		t.Errorf("Get(TEST) = %+v", v)
	}
	if _, ok := s.Get("NOPE"); ok {
		t.Error("expected NOPE chunk to be absent")
	}
}

func TestZlibAndLZOUnsupported(t *testing.T) {
	zlibData := []byte{'O', 'T', 'T', 'Z', 0, 0, 0, 0}
	if _, err := Decode(zlibData); err != ErrZlibNotSupported {
		t.Errorf("OTTZ err = %v, want ErrZlibNotSupported", err)
	}

	lzoData := []byte{'O', 'T', 'T', 'D', 0, 0, 0, 0}
	if _, err := Decode(lzoData); err != ErrLZONotSupported {
		t.Errorf("OTTD err = %v, want ErrLZONotSupported", err)
	}
}

// buildMalformedTableSave returns a full save with one TABL chunk whose
// single row declares less size than its schema ("a": u32) requires.
func buildMalformedTableSave(t *testing.T) []byte {
	t.Helper()
	schema := NewSchema().Field("a", KindU32).Build()

	var chunk bytes.Buffer
	chunk.WriteByte(shapeTable)
	if err := gamma.Write(&chunk, uint32(schema.ByteLen())+1); err != nil {
		t.Fatal(err)
	}
	if err := schema.Encode(&chunk); err != nil {
		t.Fatal(err)
	}
	if err := gamma.Write(&chunk, 2); err != nil { // declares 1 byte, u32 needs 4
		t.Fatal(err)
	}
	chunk.WriteByte(0xAB)
	if err := gamma.Write(&chunk, 0); err != nil { // row-stream terminator
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.WriteString("OTTN")
	buf.Write([]byte{0, 0, 0, 0}) // version, ignored
	buf.WriteString("TABL")
	buf.Write(chunk.Bytes())
	buf.Write([]byte{0, 0, 0, 0}) // chunk-stream terminator
	return buf.Bytes()
}

func TestDecodeStrictRejectsMalformedRow(t *testing.T) {
	data := buildMalformedTableSave(t)
	_, err := (&Decoder{Strict: true}).Decode(data)
	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *SizeMismatchError", err)
	}
}

func TestDecodeNonStrictWarnsAndDowngradesMalformedRow(t *testing.T) {
	data := buildMalformedTableSave(t)
	s, err := (&Decoder{Strict: false}).Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(s.Warnings) != 1 {
		t.Fatalf("len(Warnings) = %d, want 1", len(s.Warnings))
	}
	warn, ok := s.Warnings[0].(*MalformedRowWarning)
	if !ok {
		t.Fatalf("Warnings[0] = %T, want *MalformedRowWarning", s.Warnings[0])
	}
	if warn.Tag != "TABL" {
		t.Errorf("warn.Tag = %q, want TABL", warn.Tag)
	}

	table, ok := s.Get("TABL")
	if !ok {
		t.Fatal("expected TABL chunk")
	}
	tv, ok := table.(*TableValue)
	if !ok || len(tv.Rows) != 1 {
		t.Fatalf("TABL = %+v", table)
	}
	if len(tv.Rows[0].Row.Fields) != 0 {
		t.Errorf("Rows[0].Row.Fields = %+v, want empty", tv.Rows[0].Row.Fields)
	}
	if !bytes.Equal(tv.Rows[0].Leftover, []byte{0xAB}) {
		t.Errorf("Rows[0].Leftover = %x, want ab", tv.Rows[0].Leftover)
	}

	// The downgraded row still round-trips byte-for-byte.
	reencoded, err := s.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(reencoded, data) {
		t.Errorf("re-encoded = %x, want %x", reencoded, data)
	}
}

func TestRiffChunkSaveRoundTrip(t *testing.T) {
	s := &Save{
		Compression: CompressionNone,
		Version:     5,
		Ignored:     0,
		Chunks: []Chunk{
			{Tag: "TEST", Value: RiffValue{Data: []byte{0xAB, 0xCD}}},
		},
	}

	data, err := s.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Version != 5 || len(got.Chunks) != 1 {
		t.Fatalf("got = %+v", got)
	}
}
