package save

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies the compression envelope a save file is wrapped in,
// selected by its 4-byte magic.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionLZMA
	CompressionZstd
	CompressionZlib
	CompressionLZO
)

var magicToCompression = map[[4]byte]Compression{
	{'O', 'T', 'T', 'N'}: CompressionNone,
	{'O', 'T', 'T', 'X'}: CompressionLZMA,
	{'O', 'T', 'T', 'S'}: CompressionZstd,
	{'O', 'T', 'T', 'Z'}: CompressionZlib,
	{'O', 'T', 'T', 'D'}: CompressionLZO,
}

// Magic returns the 4-byte signature this compression kind is identified by.
func (c Compression) Magic() [4]byte {
	for magic, kind := range magicToCompression {
		if kind == c {
			return magic
		}
	}
	return [4]byte{}
}

// String returns the magic as a string, for logging and error messages.
func (c Compression) String() string {
	m := c.Magic()
	return string(m[:])
}

func detectCompression(magic [4]byte) (Compression, error) {
	c, ok := magicToCompression[magic]
	if !ok {
		return 0, ErrInvalidSignature
	}
	return c, nil
}

// decompress returns the uncompressed chunk stream carried in payload, per
// the save's detected compression kind.
func decompress(c Compression, payload []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil

	case CompressionLZMA:
		xr, err := xz.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, &CompressionError{Op: "lzma decode", Err: err}
		}
		out, err := io.ReadAll(xr)
		if err != nil {
			return nil, &CompressionError{Op: "lzma decode", Err: err}
		}
		return out, nil

	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, &CompressionError{Op: "zstd decode", Err: err}
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, &CompressionError{Op: "zstd decode", Err: err}
		}
		return out, nil

	case CompressionZlib:
		return nil, ErrZlibNotSupported

	case CompressionLZO:
		return nil, ErrLZONotSupported

	default:
		magic := c.Magic()
		return nil, &UnsupportedCompressionError{Magic: magic}
	}
}

// compress wraps plain (an uncompressed chunk stream) per the save's
// compression kind.
func compress(c Compression, plain []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return plain, nil

	case CompressionLZMA:
		var buf bytes.Buffer
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, &CompressionError{Op: "lzma encode", Err: err}
		}
		if _, err := xw.Write(plain); err != nil {
			return nil, &CompressionError{Op: "lzma encode", Err: err}
		}
		if err := xw.Close(); err != nil {
			return nil, &CompressionError{Op: "lzma encode", Err: err}
		}
		return buf.Bytes(), nil

	case CompressionZstd:
		zw, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, &CompressionError{Op: "zstd encode", Err: err}
		}
		defer zw.Close()
		return zw.EncodeAll(plain, nil), nil

	case CompressionZlib:
		return nil, ErrZlibNotSupported

	case CompressionLZO:
		return nil, ErrLZONotSupported

	default:
		magic := c.Magic()
		return nil, &UnsupportedCompressionError{Magic: magic}
	}
}
