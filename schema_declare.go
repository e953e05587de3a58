package save

// SchemaBuilder builds a StructSchema declaratively, for use in tests and
// tooling that need to construct schemas by hand rather than parse them off
// the wire.
type SchemaBuilder struct {
	properties []Property
}

// NewSchema starts an empty schema builder.
func NewSchema() *SchemaBuilder {
	return &SchemaBuilder{}
}

// Field appends a scalar, string, or list property.
func (b *SchemaBuilder) Field(key string, kind FieldKind) *SchemaBuilder {
	b.properties = append(b.properties, Property{Key: key, Kind: kind})
	return b
}

// Struct appends a nested Struct property, built by sub.
func (b *SchemaBuilder) Struct(key string, sub *SchemaBuilder) *SchemaBuilder {
	b.properties = append(b.properties, Property{Key: key, Kind: KindStruct, Struct: sub.Build()})
	return b
}

// Build finalizes the schema.
func (b *SchemaBuilder) Build() *StructSchema {
	return &StructSchema{Properties: append([]Property(nil), b.properties...)}
}

// RowBuilder builds a Row declaratively. Fields keep the order in which Set
// is called; Build does not match them against a schema's property order.
type RowBuilder struct {
	fields []FieldValue
}

// NewRow starts an empty row builder.
func NewRow() *RowBuilder {
	return &RowBuilder{}
}

// Set appends a field value under key.
func (b *RowBuilder) Set(key string, v Value) *RowBuilder {
	b.fields = append(b.fields, FieldValue{Key: key, Value: v})
	return b
}

// Build finalizes the row.
func (b *RowBuilder) Build() Row {
	return Row{Fields: append([]FieldValue(nil), b.fields...)}
}
