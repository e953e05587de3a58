package save

import (
	"io"
	"unicode/utf8"

	"github.com/jf908/openttd-map-parser/gamma"
)

// Property is one named, typed field within a StructSchema.
type Property struct {
	Key  string
	Kind FieldKind

	// Struct holds the nested schema for a KindStruct property. It is
	// non-nil if and only if Kind == KindStruct.
	Struct *StructSchema
}

// StructSchema is a self-describing, recursively nested table row layout: an
// ordered list of properties, terminated on the wire by a zero kind byte.
// Struct-kind properties carry their own nested StructSchema, read
// depth-first immediately after the property list that declares them.
type StructSchema struct {
	Properties []Property
}

// ByteLen returns the number of bytes ParseSchema would consume (equivalently
// that Encode would emit) for this schema, including nested sub-schemas.
func (s *StructSchema) ByteLen() int {
	n := 1 // terminator
	for _, p := range s.Properties {
		n += 1 + gamma.Length(uint32(len(p.Key))) + len(p.Key)
	}
	for _, p := range s.Properties {
		if p.Kind == KindStruct {
			n += p.Struct.ByteLen()
		}
	}
	return n
}

// rawProperty is a property entry as it appears on the wire, before its
// Struct-kind members are resolved against the following sub-schemas.
type rawProperty struct {
	key  string
	kind FieldKind
}

// ParseSchema reads a StructSchema from r.
func ParseSchema(r io.Reader) (*StructSchema, error) {
	props, err := readRawProperties(r)
	if err != nil {
		return nil, err
	}

	numStruct := 0
	for _, rp := range props {
		if rp.kind == KindStruct {
			numStruct++
		}
	}

	subSchemas := make([]*StructSchema, numStruct)
	for i := range subSchemas {
		sub, err := ParseSchema(r)
		if err != nil {
			return nil, err
		}
		subSchemas[i] = sub
	}

	seen := make(map[string]bool, len(props))
	properties := make([]Property, len(props))
	si := 0
	for i, rp := range props {
		if seen[rp.key] {
			return nil, &MalformedSchemaError{Reason: "duplicate property key", Key: rp.key}
		}
		seen[rp.key] = true

		p := Property{Key: rp.key, Kind: rp.kind}
		if rp.kind == KindStruct {
			p.Struct = subSchemas[si]
			si++
		}
		properties[i] = p
	}
	return &StructSchema{Properties: properties}, nil
}

func readRawProperties(r io.Reader) ([]rawProperty, error) {
	var props []rawProperty
	for {
		var tag [1]byte
		if _, err := io.ReadFull(r, tag[:]); err != nil {
			return nil, wrapTruncated(err, "schema property tag")
		}
		kind := FieldKind(tag[0])
		if kind == kindTerminator {
			return props, nil
		}
		if !kind.Valid() {
			return nil, &MalformedSchemaError{Reason: "unknown field kind", Key: ""}
		}

		keyLen, err := gamma.Read(r)
		if err != nil {
			return nil, wrapTruncated(err, "schema key length")
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBytes); err != nil {
			return nil, wrapTruncated(err, "schema key")
		}
		if !utf8.Valid(keyBytes) {
			return nil, &MalformedSchemaError{Reason: "non-UTF-8 property key", Key: string(keyBytes)}
		}

		props = append(props, rawProperty{key: string(keyBytes), kind: kind})
	}
}

// Encode writes the schema to w: its property list, a zero terminator, then
// each Struct-kind property's nested schema in declaration order.
func (s *StructSchema) Encode(w io.Writer) error {
	for _, p := range s.Properties {
		if _, err := w.Write([]byte{byte(p.Kind)}); err != nil {
			return err
		}
		if err := gamma.Write(w, uint32(len(p.Key))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, p.Key); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte{byte(kindTerminator)}); err != nil {
		return err
	}
	for _, p := range s.Properties {
		if p.Kind == KindStruct {
			if err := p.Struct.Encode(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find returns the property with the given key, or false if absent.
func (s *StructSchema) Find(key string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Key == key {
			return p, true
		}
	}
	return Property{}, false
}
