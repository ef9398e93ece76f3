// Package schema describes the shape of record batches flowing through a
// physical plan.
package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
)

// Field is a named, typed column of a [Schema].
type Field struct {
	Name string
	Type datatype.DataType
}

func (f Field) String() string {
	return f.Name + ": " + f.Type.String()
}

// Schema is an ordered list of fields. Columns are identified by their
// position in the schema.
type Schema struct {
	Fields []Field
}

// New returns a schema holding the given fields.
func New(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// NumFields returns the number of fields.
func (s Schema) NumFields() int {
	return len(s.Fields)
}

// Field returns the i-th field.
func (s Schema) Field(i int) (Field, error) {
	if i < 0 || i >= len(s.Fields) {
		return Field{}, fmt.Errorf("field %d of %d: %w", i, len(s.Fields), errors.ErrColumnIndexOutOfRange)
	}
	return s.Fields[i], nil
}

// IndexOf returns the position of the first field called name, or -1.
func (s Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Select returns a schema holding only the named fields, in the order of
// names, together with their positions in s.
func (s Schema) Select(names []string) (Schema, []int, error) {
	fields := make([]Field, 0, len(names))
	indices := make([]int, 0, len(names))
	for _, name := range names {
		idx := s.IndexOf(name)
		if idx < 0 {
			return Schema{}, nil, fmt.Errorf("%q: %w", name, errors.ErrColumnNotFound)
		}
		fields = append(fields, s.Fields[idx])
		indices = append(indices, idx)
	}
	return Schema{Fields: fields}, indices, nil
}

// Equal reports whether s and o have the same fields in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != o.Fields[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	fields := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = f.String()
	}
	return "[" + strings.Join(fields, ", ") + "]"
}

// ToArrow converts s into an Arrow schema.
func (s Schema) ToArrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = arrow.Field{Name: f.Name, Type: f.Type.ArrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// FromArrow converts an Arrow schema. It fails with ErrNotImplemented if a
// field type has no logical counterpart.
func FromArrow(s *arrow.Schema) (Schema, error) {
	fields := make([]Field, s.NumFields())
	for i, f := range s.Fields() {
		dt, ok := datatype.FromArrow(f.Type)
		if !ok {
			return Schema{}, fmt.Errorf("field %q has unsupported type %s: %w", f.Name, f.Type, errors.ErrNotImplemented)
		}
		fields[i] = Field{Name: f.Name, Type: dt}
	}
	return Schema{Fields: fields}, nil
}
