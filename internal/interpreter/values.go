package interpreter

import (
	"fmt"

	"github.com/sdecook/golox/internal/token"
)

// Value is a Lox runtime value. Rather than define an Object interface
// with one wrapper type per kind, this uses Go's native dynamic
// typing directly — nil, bool, float64, string, *Function,
// *NativeFunction, *Class, *Instance — and dispatches with type switches,
// the same tagged-sum approach already used for ast.Expr/ast.Stmt. A
// parallel Object hierarchy would just re-implement what `any` already
// gives for free.
type Value = any

// NativeFn is the signature every built-in function implements.
type NativeFn func(it *Interpreter, args []Value) (Value, error)

// NativeFunction wraps a Go function as a callable Lox value.
type NativeFunction struct {
	Name string
	N    int // arity; field named N, not Arity, so the Arity() method below can't collide with it
	Fn   NativeFn
}

func (f *NativeFunction) Arity() int { return f.N }

func (f *NativeFunction) Call(it *Interpreter, args []Value) (Value, error) {
	return f.Fn(it, args)
}

func isTruthy(v Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func isEqual(a, b Value) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a == b
}

// arityError formats the arity-mismatch message. The missing space before
// the got-count is load-bearing: existing scripts and tests match the
// exact text.
func arityError(want, got int) string {
	return fmt.Sprintf("Expected %d arguments but got%d.", want, got)
}

// checkNumberOperand reports a runtime error unless v is a number.
func checkNumberOperand(op token.Token, v Value) (float64, error) {
	if n, ok := v.(float64); ok {
		return n, nil
	}
	return 0, &RuntimeError{Tok: op, Message: "Operand must be a number."}
}

func checkNumberOperands(op token.Token, a, b Value) (float64, float64, error) {
	an, aok := a.(float64)
	bn, bok := b.(float64)
	if aok && bok {
		return an, bn, nil
	}
	return 0, 0, &RuntimeError{Tok: op, Message: "Operands must be numbers."}
}

// compareOperands implements `< <= > >=`: two numbers
// compare numerically, two strings lexicographically, and a mixed
// number/string pair compares lexicographically after stringifying both
// sides. Any other combination is a runtime error. Numbers use Go's
// native comparison operators, so any comparison against NaN is false.
func compareOperands(op token.Token, a, b Value) (Value, error) {
	an, aNum := a.(float64)
	bn, bNum := b.(float64)
	if aNum && bNum {
		switch op.Kind {
		case token.GREATER:
			return an > bn, nil
		case token.GREATER_EQUAL:
			return an >= bn, nil
		case token.LESS:
			return an < bn, nil
		case token.LESS_EQUAL:
			return an <= bn, nil
		}
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)
	if (aNum || aStr) && (bNum || bStr) {
		if aNum {
			as = stringify(a)
		}
		if bNum {
			bs = stringify(b)
		}
		switch op.Kind {
		case token.GREATER:
			return as > bs, nil
		case token.GREATER_EQUAL:
			return as >= bs, nil
		case token.LESS:
			return as < bs, nil
		case token.LESS_EQUAL:
			return as <= bs, nil
		}
	}

	return nil, &RuntimeError{Tok: op, Message: "Operands must be numbers or strings."}
}
