package datatype

import "github.com/apache/arrow-go/v18/arrow"

var (
	// ArrowType holds the Arrow type backing each logical type.
	ArrowType = struct {
		Utf8    arrow.DataType
		Int64   arrow.DataType
		Float32 arrow.DataType
		Float64 arrow.DataType
		Bool    arrow.DataType
	}{
		Utf8:    arrow.BinaryTypes.String,
		Int64:   arrow.PrimitiveTypes.Int64,
		Float32: arrow.PrimitiveTypes.Float32,
		Float64: arrow.PrimitiveTypes.Float64,
		Bool:    arrow.FixedWidthTypes.Boolean,
	}

	toArrow = map[DataType]arrow.DataType{
		Utf8:    ArrowType.Utf8,
		Int64:   ArrowType.Int64,
		Float32: ArrowType.Float32,
		Float64: ArrowType.Float64,
		Bool:    ArrowType.Bool,
	}

	fromArrow = map[arrow.Type]DataType{
		arrow.STRING:  Utf8,
		arrow.INT64:   Int64,
		arrow.FLOAT32: Float32,
		arrow.FLOAT64: Float64,
		arrow.BOOL:    Bool,
	}
)

// ArrowType returns the Arrow type used to store values of t. It returns nil
// for [Invalid].
func (t DataType) ArrowType() arrow.DataType {
	return toArrow[t]
}

// FromArrow returns the logical type backed by the Arrow type dt. The second
// return value is false if dt has no logical counterpart.
func FromArrow(dt arrow.DataType) (DataType, bool) {
	if dt == nil {
		return Invalid, false
	}
	t, ok := fromArrow[dt.ID()]
	return t, ok
}
