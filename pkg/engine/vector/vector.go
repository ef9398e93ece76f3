// Package vector implements the column arrays that flow through the engine.
//
// A [ColumnVector] is either an [Array], which wraps a materialized Arrow
// array, or a [Scalar], which presents one constant value at every row
// without per-row storage. Both are read-only after construction.
package vector

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
)

// ColumnVector is a reference counted, read-only column of values of a
// single logical type.
type ColumnVector interface {
	// Type returns the logical type of all values in the vector.
	Type() datatype.DataType
	// Len returns the number of rows.
	Len() int
	// Value returns the value at row i. It fails with ErrOutOfRange if i is
	// not in [0, Len()).
	Value(i int) (datatype.Literal, error)
	// ToArray returns the vector as an Arrow array. The caller must release
	// the returned array.
	ToArray(mem memory.Allocator) arrow.Array
	// Retain increases the reference count by 1.
	Retain()
	// Release decreases the reference count by 1.
	Release()
}

// Array is a column of data stored as an [arrow.Array].
type Array struct {
	array arrow.Array
	dt    datatype.DataType
}

var _ ColumnVector = (*Array)(nil)

// NewArray wraps arr. It retains arr, so the caller keeps ownership of its
// own reference. NewArray fails if the Arrow type of arr has no logical
// counterpart.
func NewArray(arr arrow.Array) (*Array, error) {
	dt, ok := datatype.FromArrow(arr.DataType())
	if !ok {
		return nil, fmt.Errorf("arrow type %s: %w", arr.DataType(), errors.ErrNotImplemented)
	}
	arr.Retain()
	return &Array{array: arr, dt: dt}, nil
}

// Type implements ColumnVector.
func (a *Array) Type() datatype.DataType { return a.dt }

// Len implements ColumnVector.
func (a *Array) Len() int { return a.array.Len() }

// Value implements ColumnVector.
func (a *Array) Value(i int) (datatype.Literal, error) {
	if i < 0 || i >= a.array.Len() {
		return nil, fmt.Errorf("row %d of %d: %w", i, a.array.Len(), errors.ErrOutOfRange)
	}
	if a.array.IsNull(i) {
		return nil, fmt.Errorf("row %d: %w", i, errors.ErrNullValue)
	}

	switch arr := a.array.(type) {
	case *array.String:
		return datatype.StringLiteral(arr.Value(i)), nil
	case *array.Int64:
		return datatype.Int64Literal(arr.Value(i)), nil
	case *array.Float32:
		return datatype.Float32Literal(arr.Value(i)), nil
	case *array.Float64:
		return datatype.Float64Literal(arr.Value(i)), nil
	case *array.Boolean:
		return datatype.BoolLiteral(arr.Value(i)), nil
	}
	return nil, fmt.Errorf("reading %T: %w", a.array, errors.ErrNotImplemented)
}

// ToArray implements ColumnVector. The returned array shares its data with
// the vector.
func (a *Array) ToArray(_ memory.Allocator) arrow.Array {
	a.array.Retain()
	return a.array
}

// Retain implements ColumnVector.
func (a *Array) Retain() { a.array.Retain() }

// Release implements ColumnVector.
func (a *Array) Release() { a.array.Release() }

// Scalar represents a single value repeated any number of times.
type Scalar struct {
	value datatype.Literal
	rows  int
}

var _ ColumnVector = (*Scalar)(nil)

// NewScalar returns a vector of rows copies of value.
func NewScalar(value datatype.Literal, rows int) *Scalar {
	return &Scalar{value: value, rows: rows}
}

// Literal returns the broadcast value.
func (v *Scalar) Literal() datatype.Literal { return v.value }

// Type implements ColumnVector.
func (v *Scalar) Type() datatype.DataType { return v.value.Type() }

// Len implements ColumnVector.
func (v *Scalar) Len() int { return v.rows }

// Value implements ColumnVector.
func (v *Scalar) Value(i int) (datatype.Literal, error) {
	if i < 0 || i >= v.rows {
		return nil, fmt.Errorf("row %d of %d: %w", i, v.rows, errors.ErrOutOfRange)
	}
	return v.value, nil
}

// ToArray implements ColumnVector. It materializes the scalar into a new
// array of Len() values.
func (v *Scalar) ToArray(mem memory.Allocator) arrow.Array {
	builder := array.NewBuilder(mem, v.Type().ArrowType())
	defer builder.Release()

	builder.Reserve(v.rows)
	switch builder := builder.(type) {
	case *array.StringBuilder:
		value := string(v.value.(datatype.StringLiteral))
		for range v.rows {
			builder.Append(value)
		}
	case *array.Int64Builder:
		value := int64(v.value.(datatype.Int64Literal))
		for range v.rows {
			builder.Append(value)
		}
	case *array.Float32Builder:
		value := float32(v.value.(datatype.Float32Literal))
		for range v.rows {
			builder.Append(value)
		}
	case *array.Float64Builder:
		value := float64(v.value.(datatype.Float64Literal))
		for range v.rows {
			builder.Append(value)
		}
	case *array.BooleanBuilder:
		value := bool(v.value.(datatype.BoolLiteral))
		for range v.rows {
			builder.Append(value)
		}
	}
	return builder.NewArray()
}

// Retain implements ColumnVector. Scalars hold no reference counted data.
func (v *Scalar) Retain() {}

// Release implements ColumnVector.
func (v *Scalar) Release() {}

// Values returns all values of v in row order.
func Values(v ColumnVector) ([]datatype.Literal, error) {
	values := make([]datatype.Literal, v.Len())
	for i := range values {
		val, err := v.Value(i)
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	return values, nil
}
