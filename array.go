package save

import (
	"io"

	"github.com/jf908/openttd-map-parser/gamma"
)

// RiffValue is the payload of a RIFF-shaped chunk: a single opaque blob whose
// length is carried in the chunk's shape byte plus three big-endian length
// bytes, rather than a gamma.
type RiffValue struct {
	Data []byte
}

func (RiffValue) chunkValue() {}

// ArrayValue is the payload of an Array-shaped chunk: a sequence of opaque
// rows, each prefixed by a gamma size of its length plus one, terminated by a
// size of zero.
type ArrayValue struct {
	Rows [][]byte
}

func (ArrayValue) chunkValue() {}

// SparseArrayRow is one row of a SparseArrayValue: an explicit gamma index
// plus an opaque payload.
type SparseArrayRow struct {
	Index uint32
	Data  []byte
}

// SparseArrayValue is the payload of a SparseArray-shaped chunk.
type SparseArrayValue struct {
	Rows []SparseArrayRow
}

func (SparseArrayValue) chunkValue() {}

func readArrayValue(r io.Reader) (*ArrayValue, error) {
	var rows [][]byte
	for {
		size, err := gamma.Read(r)
		if err != nil {
			return nil, wrapTruncated(err, "array row size")
		}
		if size == 0 {
			break
		}
		data := make([]byte, size-1)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, wrapTruncated(err, "array row data")
		}
		rows = append(rows, data)
	}
	return &ArrayValue{Rows: rows}, nil
}

func (v *ArrayValue) encode(w io.Writer) error {
	for _, row := range v.Rows {
		if err := gamma.Write(w, uint32(len(row))+1); err != nil {
			return err
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return gamma.Write(w, 0)
}

func readSparseArrayValue(r io.Reader) (*SparseArrayValue, error) {
	var rows []SparseArrayRow
	for {
		size, err := gamma.Read(r)
		if err != nil {
			return nil, wrapTruncated(err, "sparse array row size")
		}
		if size == 0 {
			break
		}
		index, err := gamma.Read(r)
		if err != nil {
			return nil, wrapTruncated(err, "sparse array row index")
		}
		indexLen := uint32(gamma.Length(index))
		if size-1 < indexLen {
			return nil, &SizeMismatchError{Declared: size - 1, Required: indexLen}
		}
		data := make([]byte, size-1-indexLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, wrapTruncated(err, "sparse array row data")
		}
		rows = append(rows, SparseArrayRow{Index: index, Data: data})
	}
	return &SparseArrayValue{Rows: rows}, nil
}

func (v *SparseArrayValue) encode(w io.Writer) error {
	for _, row := range v.Rows {
		size := uint32(gamma.Length(row.Index) + len(row.Data))
		if err := gamma.Write(w, size+1); err != nil {
			return err
		}
		if err := gamma.Write(w, row.Index); err != nil {
			return err
		}
		if _, err := w.Write(row.Data); err != nil {
			return err
		}
	}
	return gamma.Write(w, 0)
}
