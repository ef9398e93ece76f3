// Package datatype defines the logical value types of the engine, their
// literal values and their mapping to Arrow types.
package datatype

const (
	typeInvalid = "invalid"
)

// DataType is the logical element type of a column.
type DataType uint32

const (
	Invalid DataType = iota // zero-value is an invalid type

	Utf8    // UTF-8 encoded text
	Int64   // Signed 64bit integer value
	Float32 // 32bit floating point value
	Float64 // 64bit floating point value
	Bool    // Boolean value
)

// String returns the string representation of the DataType.
func (t DataType) String() string {
	switch t {
	case Utf8:
		return "utf8"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	default:
		return typeInvalid
	}
}

// IsNumeric reports whether values of t support arithmetic.
func (t DataType) IsNumeric() bool {
	switch t {
	case Int64, Float32, Float64:
		return true
	default:
		return false
	}
}

// Parse returns the DataType for its string representation, as produced by
// [DataType.String]. The second return value is false for unknown names.
func Parse(s string) (DataType, bool) {
	switch s {
	case "utf8", "string":
		return Utf8, true
	case "int64", "int":
		return Int64, true
	case "float32", "float":
		return Float32, true
	case "float64", "double":
		return Float64, true
	case "bool", "boolean":
		return Bool, true
	default:
		return Invalid, false
	}
}
