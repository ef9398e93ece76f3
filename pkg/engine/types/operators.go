// Package types defines the operators available in expressions.
package types

import "fmt"

// BinaryOp denotes the kind of binary operation to perform.
type BinaryOp int

// Recognized values of [BinaryOp].
const (
	// BinaryOpInvalid indicates an invalid binary operation.
	BinaryOpInvalid BinaryOp = iota

	BinaryOpAdd // Addition operation (+).
	BinaryOpSub // Subtraction operation (-).
	BinaryOpMul // Multiplication operation (*).
	BinaryOpDiv // Division operation (/).
	BinaryOpMod // Modulo operation (%).

	BinaryOpEq  // Equality comparison (=).
	BinaryOpNeq // Inequality comparison (!=).
	BinaryOpLt  // Less than comparison (<).
	BinaryOpLte // Less than or equal comparison (<=).
	BinaryOpGt  // Greater than comparison (>).
	BinaryOpGte // Greater than or equal comparison (>=).

	BinaryOpAnd // Logical AND operation.
	BinaryOpOr  // Logical OR operation.
)

var binaryOpStrings = map[BinaryOp]string{
	BinaryOpInvalid: "invalid",

	BinaryOpAdd: "ADD",
	BinaryOpSub: "SUB",
	BinaryOpMul: "MUL",
	BinaryOpDiv: "DIV",
	BinaryOpMod: "MOD",

	BinaryOpEq:  "EQ",
	BinaryOpNeq: "NEQ",
	BinaryOpLt:  "LT",
	BinaryOpLte: "LTE",
	BinaryOpGt:  "GT",
	BinaryOpGte: "GTE",

	BinaryOpAnd: "AND",
	BinaryOpOr:  "OR",
}

var binaryOpSymbols = map[BinaryOp]string{
	BinaryOpAdd: "+",
	BinaryOpSub: "-",
	BinaryOpMul: "*",
	BinaryOpDiv: "/",
	BinaryOpMod: "%",

	BinaryOpEq:  "=",
	BinaryOpNeq: "!=",
	BinaryOpLt:  "<",
	BinaryOpLte: "<=",
	BinaryOpGt:  ">",
	BinaryOpGte: ">=",

	BinaryOpAnd: "AND",
	BinaryOpOr:  "OR",
}

// String returns a human-readable name of the binary operation.
func (op BinaryOp) String() string {
	if s, ok := binaryOpStrings[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// Symbol returns the infix symbol of the operation, as used when printing
// expressions.
func (op BinaryOp) Symbol() string {
	if s, ok := binaryOpSymbols[op]; ok {
		return s
	}
	return op.String()
}

// Implemented reports whether the operation can be evaluated. Arithmetic
// other than addition is declared but not supported yet.
func (op BinaryOp) Implemented() bool {
	switch op {
	case BinaryOpAdd,
		BinaryOpEq, BinaryOpNeq, BinaryOpLt, BinaryOpLte, BinaryOpGt, BinaryOpGte,
		BinaryOpAnd, BinaryOpOr:
		return true
	default:
		return false
	}
}

// IsArithmetic reports whether op produces a value of its operand type.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case BinaryOpAdd, BinaryOpSub, BinaryOpMul, BinaryOpDiv, BinaryOpMod:
		return true
	default:
		return false
	}
}

// IsComparison reports whether op compares its operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case BinaryOpEq, BinaryOpNeq, BinaryOpLt, BinaryOpLte, BinaryOpGt, BinaryOpGte:
		return true
	default:
		return false
	}
}

// IsLogical reports whether op combines boolean operands.
func (op BinaryOp) IsLogical() bool {
	return op == BinaryOpAnd || op == BinaryOpOr
}

// ParseBinaryOp returns the BinaryOp for a symbol (such as "+") or name
// (such as "ADD"). The second return value is false for unknown operations.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op, sym := range binaryOpSymbols {
		if sym == s {
			return op, true
		}
	}
	for op, name := range binaryOpStrings {
		if op != BinaryOpInvalid && name == s {
			return op, true
		}
	}
	if s == "==" {
		return BinaryOpEq, true
	}
	return BinaryOpInvalid, false
}
