package datatype

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Literal is a dynamically typed single value. The set of implementations is
// closed: there is exactly one Literal type per [DataType], so callers can
// switch exhaustively over a Literal instead of asserting on untyped values.
type Literal interface {
	fmt.Stringer
	// Type returns the logical type of the value.
	Type() DataType
	// Any returns the underlying Go value.
	Any() any
	isLiteral()
}

type (
	StringLiteral  string
	Int64Literal   int64
	Float32Literal float32
	Float64Literal float64
	BoolLiteral    bool
)

var (
	_ Literal = StringLiteral("")
	_ Literal = Int64Literal(0)
	_ Literal = Float32Literal(0)
	_ Literal = Float64Literal(0)
	_ Literal = BoolLiteral(false)
)

func (StringLiteral) isLiteral()  {}
func (Int64Literal) isLiteral()   {}
func (Float32Literal) isLiteral() {}
func (Float64Literal) isLiteral() {}
func (BoolLiteral) isLiteral()    {}

func (StringLiteral) Type() DataType  { return Utf8 }
func (Int64Literal) Type() DataType   { return Int64 }
func (Float32Literal) Type() DataType { return Float32 }
func (Float64Literal) Type() DataType { return Float64 }
func (BoolLiteral) Type() DataType    { return Bool }

func (l StringLiteral) Any() any  { return string(l) }
func (l Int64Literal) Any() any   { return int64(l) }
func (l Float32Literal) Any() any { return float32(l) }
func (l Float64Literal) Any() any { return float64(l) }
func (l BoolLiteral) Any() any    { return bool(l) }

// String returns the value single-quoted, with embedded quotes doubled.
func (l StringLiteral) String() string {
	return "'" + strings.ReplaceAll(string(l), "'", "''") + "'"
}

func (l Int64Literal) String() string {
	return strconv.FormatInt(int64(l), 10)
}

func (l Float32Literal) String() string {
	return formatFloat(float64(l), 32)
}

func (l Float64Literal) String() string {
	return formatFloat(float64(l), 64)
}

// formatFloat renders f in plain decimal notation. Infinities render as
// inf and -inf, which ParseLiteral accepts back.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

func (l BoolLiteral) String() string {
	return strconv.FormatBool(bool(l))
}

// LiteralType is the set of Go types that can be converted into a [Literal].
type LiteralType interface {
	~string | ~int64 | ~float32 | ~float64 | ~bool
}

// NewLiteral returns the Literal for the Go value v.
func NewLiteral[T LiteralType](v T) Literal {
	switch v := any(v).(type) {
	case string:
		return StringLiteral(v)
	case int64:
		return Int64Literal(v)
	case float32:
		return Float32Literal(v)
	case float64:
		return Float64Literal(v)
	case bool:
		return BoolLiteral(v)
	case Literal:
		return v
	}
	panic(fmt.Sprintf("unsupported literal type %T", v))
}

// ParseLiteral parses s as a value of type t.
func ParseLiteral(t DataType, s string) (Literal, error) {
	switch t {
	case Utf8:
		return StringLiteral(s), nil
	case Int64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as %s: %w", s, t, err)
		}
		return Int64Literal(v), nil
	case Float32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as %s: %w", s, t, err)
		}
		return Float32Literal(v), nil
	case Float64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as %s: %w", s, t, err)
		}
		return Float64Literal(v), nil
	case Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as %s: %w", s, t, err)
		}
		return BoolLiteral(v), nil
	default:
		return nil, fmt.Errorf("cannot parse literal of type %s", t)
	}
}
