package executor

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
	"github.com/rqdb/rq/pkg/engine/vector"
)

type expressionEvaluator struct {
	mem memory.Allocator
}

func newExpressionEvaluator(mem memory.Allocator) expressionEvaluator {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return expressionEvaluator{mem: mem}
}

// eval evaluates expr against input. The caller must release the returned
// vector.
func (e expressionEvaluator) eval(expr physical.Expression, input *batch.RecordBatch) (vector.ColumnVector, error) {
	switch expr := expr.(type) {

	case *physical.LiteralExpr:
		return vector.NewScalar(expr.Literal, input.NumRows()), nil

	case *physical.ColumnExpr:
		col, err := input.Field(expr.Index)
		if err != nil {
			return nil, err
		}
		col.Retain()
		return col, nil

	case *physical.BinaryExpr:
		if !expr.Op.Implemented() {
			return nil, fmt.Errorf("binary operator %s: %w", expr.Op, errors.ErrNotImplemented)
		}

		lhs, err := e.eval(expr.Left, input)
		if err != nil {
			return nil, err
		}
		defer lhs.Release()

		rhs, err := e.eval(expr.Right, input)
		if err != nil {
			return nil, err
		}
		defer rhs.Release()

		// Operands are never coerced.
		if lhs.Type() != rhs.Type() {
			return nil, fmt.Errorf("failed to lookup binary function for signature %v(%v,%v): %w", expr.Op, lhs.Type(), rhs.Type(), errors.ErrTypeMismatch)
		}

		fn, err := binaryFunctions.GetForSignature(expr.Op, lhs.Type())
		if err != nil {
			return nil, fmt.Errorf("failed to lookup binary function for signature %v(%v,%v): %w", expr.Op, lhs.Type(), rhs.Type(), err)
		}
		return fn.Evaluate(e.mem, lhs, rhs)
	}

	return nil, fmt.Errorf("unknown expression: %v", expr)
}

// newFunc returns a new function that can evaluate an input against a bound
// expression.
func (e expressionEvaluator) newFunc(expr physical.Expression) evalFunc {
	return func(input *batch.RecordBatch) (vector.ColumnVector, error) {
		return e.eval(expr, input)
	}
}

type evalFunc func(input *batch.RecordBatch) (vector.ColumnVector, error)
