package save

import (
	"bytes"
	"testing"
)

func TestRiffChunkRoundTrip(t *testing.T) {
	data := []byte{
		'T', 'E', 'S', 'T', // tag
		0x00, 0x00, 0x00, 0x02, // shape byte 0 (riff) + 3 size bytes = size 2
		0xAB, 0xCD,
		0, 0, 0, 0, // terminator
	}

	chunks, err := readChunks(bytes.NewReader(data), &decodeCtx{strict: true})
	if err != nil {
		t.Fatalf("readChunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].Tag != "TEST" {
		t.Errorf("Tag = %q, want TEST", chunks[0].Tag)
	}
	riff, ok := chunks[0].Value.(RiffValue)
	if !ok {
		t.Fatalf("Value = %T, want RiffValue", chunks[0].Value)
	}
	if !bytes.Equal(riff.Data, []byte{0xAB, 0xCD}) {
		t.Errorf("Data = %x, want abcd", riff.Data)
	}

	var buf bytes.Buffer
	if err := writeChunks(&buf, chunks); err != nil {
		t.Fatalf("writeChunks: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Errorf("re-encoded = %x, want %x", buf.Bytes(), data)
	}
}

func TestTerminatorNotMaterialized(t *testing.T) {
	chunks, err := readChunks(bytes.NewReader([]byte{0, 0, 0, 0}), &decodeCtx{strict: true})
	if err != nil {
		t.Fatalf("readChunks: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("len(chunks) = %d, want 0", len(chunks))
	}
	for _, c := range chunks {
		if c.Tag == "\x00\x00\x00\x00" {
			t.Fatal("zero-tag chunk leaked into chunks")
		}
	}
}

func TestSparseArrayWiresPerSpecExample(t *testing.T) {
	value := &SparseArrayValue{
		Rows: []SparseArrayRow{
			{Index: 150, Data: []byte{0x01, 0x02, 0x03}},
		},
	}

	var buf bytes.Buffer
	if err := value.encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := []byte{0x06, 0x80, 0x96, 0x01, 0x02, 0x03, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("encoded = %x, want %x", buf.Bytes(), want)
	}

	got, err := readSparseArrayValue(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("readSparseArrayValue: %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0].Index != 150 {
		t.Fatalf("Rows = %+v", got.Rows)
	}
	if !bytes.Equal(got.Rows[0].Data, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Data = %x, want 010203", got.Rows[0].Data)
	}
}

func TestUnknownShapeRejected(t *testing.T) {
	data := []byte{0x0F} // shape nibble 15, not defined
	_, err := readChunkValue(bytes.NewReader(data), &decodeCtx{strict: true})
	if _, ok := err.(*UnknownShapeError); !ok {
		t.Fatalf("err = %v, want *UnknownShapeError", err)
	}
}
