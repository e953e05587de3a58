package gamma

import (
	"bytes"
	"testing"
)

func TestReadVectors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"one byte", []byte{0x09}, 9},
		{"two bytes", []byte{0x81, 0x08}, 264},
		{"five bytes", []byte{0xF0, 0x08, 0x00, 0x00, 0x00}, 134217728},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(bytes.NewReader(tt.in))
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if got != tt.want {
				t.Errorf("Read(%x) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteVectors(t *testing.T) {
	tests := []struct {
		name string
		in   uint32
		want []byte
	}{
		{"three", 3, []byte{3}},
		{"264", 264, []byte{0x81, 0x08}},
		{"134217728", 134217728, []byte{0xE8, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tt.in); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), tt.want) {
				t.Errorf("Write(%d) = %x, want %x", tt.in, buf.Bytes(), tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152,
		268435455, 268435456, 179192378, 150, 0xFFFFFFFF}
	for _, v := range values {
		var buf bytes.Buffer
		if err := Write(&buf, v); err != nil {
			t.Fatalf("Write(%d): %v", v, err)
		}
		if buf.Len() != Length(v) {
			t.Errorf("Length(%d) = %d, but Write produced %d bytes", v, Length(v), buf.Len())
		}
		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("Read back %d: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestGammaLength(t *testing.T) {
	if Length(150) != 2 {
		t.Errorf("Length(150) = %d, want 2", Length(150))
	}
}

func TestReadTruncated(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte{0x81})); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if _, err := Read(bytes.NewReader(nil)); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}
