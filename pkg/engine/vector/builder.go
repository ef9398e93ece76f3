package vector

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
)

// FromLiterals materializes values into a new [Array] of type dt. It fails
// with ErrTypeMismatch if any value is not of type dt.
func FromLiterals(mem memory.Allocator, dt datatype.DataType, values []datatype.Literal) (*Array, error) {
	if dt.ArrowType() == nil {
		return nil, fmt.Errorf("building %s array: %w", dt, errors.ErrNotImplemented)
	}

	builder := array.NewBuilder(mem, dt.ArrowType())
	defer builder.Release()
	builder.Reserve(len(values))

	var err error
	switch builder := builder.(type) {
	case *array.StringBuilder:
		err = appendLiterals[string](builder, values, func(l datatype.Literal) (string, bool) {
			v, ok := l.(datatype.StringLiteral)
			return string(v), ok
		})
	case *array.Int64Builder:
		err = appendLiterals[int64](builder, values, func(l datatype.Literal) (int64, bool) {
			v, ok := l.(datatype.Int64Literal)
			return int64(v), ok
		})
	case *array.Float32Builder:
		err = appendLiterals[float32](builder, values, func(l datatype.Literal) (float32, bool) {
			v, ok := l.(datatype.Float32Literal)
			return float32(v), ok
		})
	case *array.Float64Builder:
		err = appendLiterals[float64](builder, values, func(l datatype.Literal) (float64, bool) {
			v, ok := l.(datatype.Float64Literal)
			return float64(v), ok
		})
	case *array.BooleanBuilder:
		err = appendLiterals[bool](builder, values, func(l datatype.Literal) (bool, bool) {
			v, ok := l.(datatype.BoolLiteral)
			return bool(v), ok
		})
	default:
		err = fmt.Errorf("building %s array: %w", dt, errors.ErrNotImplemented)
	}
	if err != nil {
		return nil, err
	}

	arr := builder.NewArray()
	defer arr.Release()
	return NewArray(arr)
}

type valueBuilder[T any] interface {
	array.Builder
	Append(T)
}

func appendLiterals[T any](b valueBuilder[T], values []datatype.Literal, conv func(datatype.Literal) (T, bool)) error {
	for i, l := range values {
		v, ok := conv(l)
		if !ok {
			return fmt.Errorf("row %d: value %v of type %T: %w", i, l, l, errors.ErrTypeMismatch)
		}
		b.Append(v)
	}
	return nil
}

// Filter returns a new vector holding only the rows of v for which mask is
// true. A [Scalar] stays a Scalar with the number of selected rows. The
// caller must release the returned vector.
func Filter(mem memory.Allocator, v ColumnVector, mask []bool) (ColumnVector, error) {
	if len(mask) != v.Len() {
		return nil, fmt.Errorf("mask of %d rows for vector of %d rows: %w", len(mask), v.Len(), errors.ErrOutOfRange)
	}

	var selected int
	for _, keep := range mask {
		if keep {
			selected++
		}
	}

	switch v := v.(type) {
	case *Scalar:
		return NewScalar(v.value, selected), nil
	case *Array:
		arr, err := filterArray(mem, v.array, mask, selected)
		if err != nil {
			return nil, err
		}
		defer arr.Release()
		return NewArray(arr)
	}
	return nil, fmt.Errorf("filtering %T: %w", v, errors.ErrNotImplemented)
}

type valueArray[T any] interface {
	arrow.Array
	Value(int) T
}

func filterArray(mem memory.Allocator, src arrow.Array, mask []bool, selected int) (arrow.Array, error) {
	switch src := src.(type) {
	case *array.String:
		return filterValues[string](src, array.NewStringBuilder(mem), mask, selected), nil
	case *array.Int64:
		return filterValues[int64](src, array.NewInt64Builder(mem), mask, selected), nil
	case *array.Float32:
		return filterValues[float32](src, array.NewFloat32Builder(mem), mask, selected), nil
	case *array.Float64:
		return filterValues[float64](src, array.NewFloat64Builder(mem), mask, selected), nil
	case *array.Boolean:
		return filterValues[bool](src, array.NewBooleanBuilder(mem), mask, selected), nil
	}
	return nil, fmt.Errorf("filtering arrow type %s: %w", src.DataType(), errors.ErrNotImplemented)
}

func filterValues[T any](src valueArray[T], dst valueBuilder[T], mask []bool, selected int) arrow.Array {
	defer dst.Release()
	dst.Reserve(selected)

	for i, keep := range mask {
		if !keep {
			continue
		}
		if src.IsNull(i) {
			dst.AppendNull()
			continue
		}
		dst.Append(src.Value(i))
	}
	return dst.NewArray()
}
