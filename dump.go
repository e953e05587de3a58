package save

import (
	"fmt"
	"io"
)

// dumpSave writes a human-readable tree describing s to w.
func dumpSave(w io.Writer, s *Save) error {
	if _, err := fmt.Fprintf(w, "save: compression=%s version=%d ignored=%d chunks=%d\n",
		s.Compression, s.Version, s.Ignored, len(s.Chunks)); err != nil {
		return err
	}
	for _, c := range s.Chunks {
		if err := dumpChunk(w, 1, c); err != nil {
			return err
		}
	}
	for _, warn := range s.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}

func dumpChunk(w io.Writer, depth int, c Chunk) error {
	indent := indentString(depth)
	switch v := c.Value.(type) {
	case RiffValue:
		_, err := fmt.Fprintf(w, "%schunk %q: riff (%d bytes)\n", indent, c.Tag, len(v.Data))
		return err

	case *ArrayValue:
		if _, err := fmt.Fprintf(w, "%schunk %q: array (%d rows)\n", indent, c.Tag, len(v.Rows)); err != nil {
			return err
		}
		for i, row := range v.Rows {
			if _, err := fmt.Fprintf(w, "%s  [%d]: %d bytes\n", indent, i, len(row)); err != nil {
				return err
			}
		}
		return nil

	case *SparseArrayValue:
		if _, err := fmt.Fprintf(w, "%schunk %q: sparse_array (%d rows)\n", indent, c.Tag, len(v.Rows)); err != nil {
			return err
		}
		for _, row := range v.Rows {
			if _, err := fmt.Fprintf(w, "%s  [%d]: %d bytes\n", indent, row.Index, len(row.Data)); err != nil {
				return err
			}
		}
		return nil

	case *TableValue:
		if _, err := fmt.Fprintf(w, "%schunk %q: table (%d properties, %d rows)\n",
			indent, c.Tag, len(v.Schema.Properties), len(v.Rows)); err != nil {
			return err
		}
		return dumpSchema(w, depth+1, v.Schema)

	case *SparseTableValue:
		if _, err := fmt.Fprintf(w, "%schunk %q: sparse_table (%d properties, %d rows)\n",
			indent, c.Tag, len(v.Schema.Properties), len(v.Rows)); err != nil {
			return err
		}
		return dumpSchema(w, depth+1, v.Schema)

	default:
		_, err := fmt.Fprintf(w, "%schunk %q: unknown shape\n", indent, c.Tag)
		return err
	}
}

func dumpSchema(w io.Writer, depth int, schema *StructSchema) error {
	indent := indentString(depth)
	for _, p := range schema.Properties {
		if _, err := fmt.Fprintf(w, "%s%s: %s\n", indent, p.Key, p.Kind); err != nil {
			return err
		}
		if p.Kind == KindStruct {
			if err := dumpSchema(w, depth+1, p.Struct); err != nil {
				return err
			}
		}
	}
	return nil
}

func indentString(depth int) string {
	b := make([]byte, depth*2)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
