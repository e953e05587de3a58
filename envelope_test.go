package save

import (
	"bytes"
	"testing"
)

func TestDetectCompression(t *testing.T) {
	tests := []struct {
		magic [4]byte
		want  Compression
	}{
		{[4]byte{'O', 'T', 'T', 'N'}, CompressionNone},
		{[4]byte{'O', 'T', 'T', 'X'}, CompressionLZMA},
		{[4]byte{'O', 'T', 'T', 'S'}, CompressionZstd},
		{[4]byte{'O', 'T', 'T', 'Z'}, CompressionZlib},
		{[4]byte{'O', 'T', 'T', 'D'}, CompressionLZO},
	}
	for _, tt := range tests {
		got, err := detectCompression(tt.magic)
		if err != nil {
			t.Fatalf("detectCompression(%s): %v", tt.magic, err)
		}
		if got != tt.want {
			t.Errorf("detectCompression(%s) = %v, want %v", tt.magic, got, tt.want)
		}
	}
}

func TestDetectCompressionRejectsUnknownMagic(t *testing.T) {
	_, err := detectCompression([4]byte{'X', 'X', 'X', 'X'})
	if err != ErrInvalidSignature {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestLZMARoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 50)

	compressed, err := compress(CompressionLZMA, plain)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	got, err := decompress(CompressionLZMA, compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatal("lzma round trip mismatch")
	}
}

func TestZstdRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 50)

	compressed, err := compress(CompressionZstd, plain)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	got, err := decompress(CompressionZstd, compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatal("zstd round trip mismatch")
	}
}
