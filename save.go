// Package save implements a bidirectional binary codec for OpenTTD save
// files, including the JGR patchpack's extensions (the SLXI extended-chunk
// feature index and its dependent record layouts).
package save

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Save is a fully decoded save file: its compression kind, header fields,
// and ordered chunk stream.
type Save struct {
	Compression Compression
	Version     uint16
	Ignored     uint16
	Chunks      []Chunk

	// Warnings collects non-fatal issues noticed during Decode that did not
	// prevent the save from being fully decoded.
	Warnings []error
}

// Decode parses a complete save file from data.
func Decode(data []byte) (*Save, error) {
	return (&Decoder{}).Decode(data)
}

// Decoder configures how a save file is decoded.
type Decoder struct {
	// Strict causes Decode to fail with *SizeMismatchError the moment a
	// table or sparse-table row doesn't fit the size it declares for
	// itself. When false (the default), such a row is downgraded to a
	// MalformedRowWarning recorded in Save.Warnings, and decoded in place
	// as an opaque row with empty fields. A table row keeps its whole
	// declared span verbatim as Leftover; a sparse-table row keeps its
	// decoded index and the bytes after it as Leftover. Either way
	// re-encoding is byte-faithful, except for a sparse-table row too short
	// to hold its index: it gets index 0 and its whole span as Leftover, so
	// re-encoding adds an index byte.
	Strict bool
}

// Decode parses a complete save file from data using d's configuration.
func (d *Decoder) Decode(data []byte) (*Save, error) {
	if len(data) < 8 {
		return nil, &TruncatedError{Context: "save header"}
	}

	var magic [4]byte
	copy(magic[:], data[:4])
	compression, err := detectCompression(magic)
	if err != nil {
		return nil, err
	}

	version := binary.BigEndian.Uint16(data[4:6])
	ignored := binary.BigEndian.Uint16(data[6:8])

	plain, err := decompress(compression, data[8:])
	if err != nil {
		return nil, err
	}

	var warnings []error
	chunks, err := readChunks(bytes.NewReader(plain), &decodeCtx{strict: d.Strict, warnings: &warnings})
	if err != nil {
		return nil, err
	}

	return &Save{
		Compression: compression,
		Version:     version,
		Ignored:     ignored,
		Chunks:      chunks,
		Warnings:    warnings,
	}, nil
}

// Encoder configures how a save file is encoded. It currently has no
// options; it exists to mirror Decoder and give future encode-time options a
// home without breaking callers.
type Encoder struct{}

// Encode serializes s back into a complete save file.
func (s *Save) Encode() ([]byte, error) {
	return (&Encoder{}).Encode(s)
}

// Encode serializes s back into a complete save file using e's
// configuration.
func (e *Encoder) Encode(s *Save) ([]byte, error) {
	var plain bytes.Buffer
	if err := writeChunks(&plain, s.Chunks); err != nil {
		return nil, err
	}

	payload, err := compress(s.Compression, plain.Bytes())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 8, 8+len(payload))
	magic := s.Compression.Magic()
	copy(out[:4], magic[:])
	binary.BigEndian.PutUint16(out[4:6], s.Version)
	binary.BigEndian.PutUint16(out[6:8], s.Ignored)
	out = append(out, payload...)
	return out, nil
}

// Get returns the payload of the first chunk with the given tag, and
// whether such a chunk was present.
func (s *Save) Get(tag string) (ChunkValue, bool) {
	for _, c := range s.Chunks {
		if c.Tag == tag {
			return c.Value, true
		}
	}
	return nil, false
}

// Dump writes a human-readable tree describing s to w, for debugging.
func (s *Save) Dump(w io.Writer) error {
	return dumpSave(w, s)
}
