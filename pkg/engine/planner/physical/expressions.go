package physical

import (
	"fmt"

	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/schema"
	"github.com/rqdb/rq/pkg/engine/types"
)

// ExpressionType represents the type of expression in the physical plan.
type ExpressionType uint32

const (
	_ ExpressionType = iota // zero-value is an invalid type

	ExprTypeColumn
	ExprTypeLiteral
	ExprTypeBinary
)

// String returns the string representation of the [ExpressionType].
func (t ExpressionType) String() string {
	switch t {
	case ExprTypeColumn:
		return "ColumnExpression"
	case ExprTypeLiteral:
		return "LiteralExpression"
	case ExprTypeBinary:
		return "BinaryExpression"
	default:
		return fmt.Sprintf("ExpressionType(%d)", t)
	}
}

// Expression is the common interface for all expressions in a physical plan.
// The set of implementations is closed: [*ColumnExpr], [*LiteralExpr] and
// [*BinaryExpr].
type Expression interface {
	fmt.Stringer
	Type() ExpressionType
	// DataType returns the type of the values the expression produces when
	// evaluated against a batch of schema s.
	DataType(s schema.Schema) (datatype.DataType, error)
	isExpr()
}

// ColumnExpr references a column of the input batch by position.
type ColumnExpr struct {
	Index int
}

// NewColumn returns an expression referencing the i-th input column.
func NewColumn(i int) *ColumnExpr {
	return &ColumnExpr{Index: i}
}

func (*ColumnExpr) isExpr() {}

// String returns the column position prefixed with '#'.
func (e *ColumnExpr) String() string {
	return fmt.Sprintf("#%d", e.Index)
}

// Type returns the type of the [ColumnExpr].
func (*ColumnExpr) Type() ExpressionType {
	return ExprTypeColumn
}

// DataType implements Expression.
func (e *ColumnExpr) DataType(s schema.Schema) (datatype.DataType, error) {
	f, err := s.Field(e.Index)
	if err != nil {
		return datatype.Invalid, err
	}
	return f.Type, nil
}

// LiteralExpr is a constant value.
type LiteralExpr struct {
	datatype.Literal
}

// NewLiteral returns a literal expression of the Go value v.
func NewLiteral[T datatype.LiteralType](v T) *LiteralExpr {
	return &LiteralExpr{Literal: datatype.NewLiteral(v)}
}

func (*LiteralExpr) isExpr() {}

// String returns the SQL-like literal syntax of the value.
func (e *LiteralExpr) String() string {
	return e.Literal.String()
}

// Type returns the type of the [LiteralExpr].
func (*LiteralExpr) Type() ExpressionType {
	return ExprTypeLiteral
}

// DataType implements Expression.
func (e *LiteralExpr) DataType(_ schema.Schema) (datatype.DataType, error) {
	return e.Literal.Type(), nil
}

// BinaryExpr applies Op to the results of Left and Right.
type BinaryExpr struct {
	Op          types.BinaryOp
	Left, Right Expression
}

// NewBinaryExpr returns a binary expression. It fails with
// ErrNotImplemented for operators that cannot be evaluated.
func NewBinaryExpr(op types.BinaryOp, left, right Expression) (*BinaryExpr, error) {
	if !op.Implemented() {
		return nil, fmt.Errorf("binary operator %s: %w", op, errors.ErrNotImplemented)
	}
	if left == nil || right == nil {
		return nil, fmt.Errorf("binary operator %s requires two operands", op)
	}
	return &BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func (*BinaryExpr) isExpr() {}

// String returns the infix form of the expression. Operators that cannot be
// evaluated render as `<SYMBOL NOT IMPLEMENTED>` so they never pass for a
// valid expression in plan output.
func (e *BinaryExpr) String() string {
	if !e.Op.Implemented() {
		return fmt.Sprintf("%s <%s NOT IMPLEMENTED> %s", e.Left, e.Op.Symbol(), e.Right)
	}
	return fmt.Sprintf("%s %s %s", e.Left, e.Op.Symbol(), e.Right)
}

// Type returns the type of the [BinaryExpr].
func (*BinaryExpr) Type() ExpressionType {
	return ExprTypeBinary
}

// DataType implements Expression. Both operands must be of the same type;
// values are never coerced.
func (e *BinaryExpr) DataType(s schema.Schema) (datatype.DataType, error) {
	lt, err := e.Left.DataType(s)
	if err != nil {
		return datatype.Invalid, err
	}
	rt, err := e.Right.DataType(s)
	if err != nil {
		return datatype.Invalid, err
	}
	return ResultType(e.Op, lt, rt)
}

// ResultType returns the type produced by applying op to operands of type lt
// and rt.
func ResultType(op types.BinaryOp, lt, rt datatype.DataType) (datatype.DataType, error) {
	if !op.Implemented() {
		return datatype.Invalid, fmt.Errorf("binary operator %s: %w", op, errors.ErrNotImplemented)
	}
	if lt != rt {
		return datatype.Invalid, fmt.Errorf("%s(%s, %s): %w", op, lt, rt, errors.ErrTypeMismatch)
	}

	switch {
	case op.IsArithmetic():
		if !lt.IsNumeric() {
			return datatype.Invalid, fmt.Errorf("%s(%s, %s): %w", op, lt, rt, errors.ErrNotImplemented)
		}
		return lt, nil
	case op.IsComparison():
		return datatype.Bool, nil
	case op.IsLogical():
		if lt != datatype.Bool {
			return datatype.Invalid, fmt.Errorf("%s(%s, %s): %w", op, lt, rt, errors.ErrTypeMismatch)
		}
		return datatype.Bool, nil
	}
	return datatype.Invalid, fmt.Errorf("binary operator %s: %w", op, errors.ErrNotImplemented)
}
