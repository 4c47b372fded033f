package compiler

import (
	"errors"
	"fmt"
)

// errZeroDivisor is returned by foldBinary for / MOD DIV with a zero right
// operand.
var errZeroDivisor = errors.New("division by zero in constant expression")

// BinaryOp is an arithmetic operator accepted by ProcessBinaryOp.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv    // /
	OpMod    // MOD
	OpIntDiv // DIV
)

var binaryOpNames = [...]string{
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "MOD",
	OpIntDiv: "DIV",
}

func (op BinaryOp) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// divides reports whether op takes a divisor.
func (op BinaryOp) divides() bool {
	return op == OpDiv || op == OpMod || op == OpIntDiv
}

// RelOp is a relational operator accepted by ProcessRelationalOp.
type RelOp int

const (
	RelEq RelOp = iota
	RelNe
	RelLt
	RelGt
	RelLe
	RelGe
)

var relOpNames = [...]string{
	RelEq: "=",
	RelNe: "<>",
	RelLt: "<",
	RelGt: ">",
	RelLe: "<=",
	RelGe: ">=",
}

func (op RelOp) String() string {
	if int(op) >= 0 && int(op) < len(relOpNames) {
		return relOpNames[op]
	}
	return fmt.Sprintf("RelOp(%d)", int(op))
}

// UnaryOp is a prefix operator accepted by ProcessUnaryOp.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "NOT"
	case OpNeg:
		return "-"
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// foldBinary evaluates a op b with 32-bit two's-complement semantics.
// Division and modulo truncate toward zero, matching IDIV.
func foldBinary(op BinaryOp, a, b int32) (int32, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv, OpIntDiv:
		if b == 0 {
			return 0, errZeroDivisor
		}
		return a / b, nil
	case OpMod:
		if b == 0 {
			return 0, errZeroDivisor
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("fold: unknown operator %v", op)
}

// foldNegate evaluates -a. The negation of the most negative value wraps.
func foldNegate(a int32) int32 {
	return -a
}
