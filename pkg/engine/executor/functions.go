package executor

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/types"
	"github.com/rqdb/rq/pkg/engine/vector"
)

var binaryFunctions BinaryFunctionRegistry = &binaryFuncReg{}

func init() {
	// Arithmetic functions. Only numeric types can be added; there is no
	// implicit widening between them.
	registerArithmetic[int64](binaryFunctions, datatype.Int64)
	registerArithmetic[float32](binaryFunctions, datatype.Float32)
	registerArithmetic[float64](binaryFunctions, datatype.Float64)

	// Comparison functions
	registerComparisons[string](binaryFunctions, datatype.Utf8)
	registerComparisons[int64](binaryFunctions, datatype.Int64)
	registerComparisons[float32](binaryFunctions, datatype.Float32)
	registerComparisons[float64](binaryFunctions, datatype.Float64)
	registerBoolComparisons(binaryFunctions)

	// Logical functions
	_ = binaryFunctions.RegisterBinaryFunction(types.BinaryOpAnd, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return a && b }))
	_ = binaryFunctions.RegisterBinaryFunction(types.BinaryOpOr, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return a || b }))
}

// BinaryFunctionRegistry resolves the function implementing a binary
// operator for a given operand type.
type BinaryFunctionRegistry interface {
	RegisterBinaryFunction(types.BinaryOp, datatype.DataType, BinaryFunction) error
	GetForSignature(types.BinaryOp, datatype.DataType) (BinaryFunction, error)
}

// BinaryFunction computes the result of a binary operator row by row.
type BinaryFunction interface {
	Evaluate(mem memory.Allocator, lhs, rhs vector.ColumnVector) (vector.ColumnVector, error)
}

type binaryFuncReg struct {
	reg map[types.BinaryOp]map[datatype.DataType]BinaryFunction
}

// RegisterBinaryFunction implements BinaryFunctionRegistry.
func (b *binaryFuncReg) RegisterBinaryFunction(op types.BinaryOp, dt datatype.DataType, f BinaryFunction) error {
	if b.reg == nil {
		b.reg = make(map[types.BinaryOp]map[datatype.DataType]BinaryFunction)
	}
	if _, ok := b.reg[op]; !ok {
		b.reg[op] = make(map[datatype.DataType]BinaryFunction)
	}
	if _, ok := b.reg[op][dt]; ok {
		return fmt.Errorf("duplicate binary function registration for %s(%s)", op, dt)
	}
	b.reg[op][dt] = f
	return nil
}

// GetForSignature implements BinaryFunctionRegistry.
func (b *binaryFuncReg) GetForSignature(op types.BinaryOp, dt datatype.DataType) (BinaryFunction, error) {
	if !op.Implemented() {
		return nil, fmt.Errorf("binary operator %s: %w", op, errors.ErrNotImplemented)
	}
	fns, ok := b.reg[op]
	if !ok {
		return nil, fmt.Errorf("binary operator %s: %w", op, errors.ErrNotImplemented)
	}
	fn, ok := fns[dt]
	if !ok {
		return nil, fmt.Errorf("binary operator %s for type %s: %w", op, dt, errors.ErrNotImplemented)
	}
	return fn, nil
}

type numeric interface {
	~int64 | ~float32 | ~float64
}

type ordered interface {
	~string | ~int64 | ~float32 | ~float64
}

func registerArithmetic[T numeric](reg BinaryFunctionRegistry, dt datatype.DataType) {
	_ = reg.RegisterBinaryFunction(types.BinaryOpAdd, dt, newBinaryFunc(func(a, b T) T { return a + b }))
}

func registerComparisons[T ordered](reg BinaryFunctionRegistry, dt datatype.DataType) {
	_ = reg.RegisterBinaryFunction(types.BinaryOpEq, dt, newBinaryFunc(func(a, b T) bool { return a == b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpNeq, dt, newBinaryFunc(func(a, b T) bool { return a != b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpLt, dt, newBinaryFunc(func(a, b T) bool { return a < b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpLte, dt, newBinaryFunc(func(a, b T) bool { return a <= b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpGt, dt, newBinaryFunc(func(a, b T) bool { return a > b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpGte, dt, newBinaryFunc(func(a, b T) bool { return a >= b }))
}

// registerBoolComparisons orders false before true.
func registerBoolComparisons(reg BinaryFunctionRegistry) {
	_ = reg.RegisterBinaryFunction(types.BinaryOpEq, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return a == b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpNeq, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return a != b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpLt, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return !a && b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpLte, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return !a || b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpGt, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return a && !b }))
	_ = reg.RegisterBinaryFunction(types.BinaryOpGte, datatype.Bool, newBinaryFunc(func(a, b bool) bool { return a || !b }))
}

// binaryFunc applies fn to each pair of rows of two vectors of type T and
// produces a vector of type R.
type binaryFunc[T, R datatype.LiteralType] struct {
	fn func(a, b T) R
}

func newBinaryFunc[T, R datatype.LiteralType](fn func(a, b T) R) *binaryFunc[T, R] {
	return &binaryFunc[T, R]{fn: fn}
}

// Evaluate implements BinaryFunction. If both operands are broadcast
// scalars, the result is a scalar too.
func (f *binaryFunc[T, R]) Evaluate(mem memory.Allocator, lhs, rhs vector.ColumnVector) (vector.ColumnVector, error) {
	if lhs.Len() != rhs.Len() {
		return nil, fmt.Errorf("operands of %d and %d rows: %w", lhs.Len(), rhs.Len(), errors.ErrOutOfRange)
	}

	if l, ok := lhs.(*vector.Scalar); ok {
		if r, ok := rhs.(*vector.Scalar); ok {
			res, err := f.apply(l.Literal(), r.Literal())
			if err != nil {
				return nil, err
			}
			return vector.NewScalar(res, lhs.Len()), nil
		}
	}

	values := make([]datatype.Literal, lhs.Len())
	for i := range values {
		a, err := lhs.Value(i)
		if err != nil {
			return nil, err
		}
		b, err := rhs.Value(i)
		if err != nil {
			return nil, err
		}
		values[i], err = f.apply(a, b)
		if err != nil {
			return nil, err
		}
	}

	var zero R
	return vector.FromLiterals(mem, datatype.NewLiteral(zero).Type(), values)
}

func (f *binaryFunc[T, R]) apply(lhs, rhs datatype.Literal) (datatype.Literal, error) {
	a, ok := lhs.Any().(T)
	if !ok {
		return nil, fmt.Errorf("left operand %v of type %s: %w", lhs, lhs.Type(), errors.ErrTypeMismatch)
	}
	b, ok := rhs.Any().(T)
	if !ok {
		return nil, fmt.Errorf("right operand %v of type %s: %w", rhs, rhs.Type(), errors.ErrTypeMismatch)
	}
	return datatype.NewLiteral(f.fn(a, b)), nil
}
