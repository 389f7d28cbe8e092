package interpreter

import "github.com/sdecook/golox/internal/token"

// RuntimeError is a Lox-level runtime fault (type mismatch, undefined
// variable, wrong arity, ...). Interpret reports it via report.Reporter
// and cmd/golox then exits 70, matching the distinction file mode draws between static
// errors (65) and runtime errors (70).
type RuntimeError struct {
	Tok     token.Token
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

// unwind is returned (never panicked) by statement/expression evaluation
// to signal non-local control flow. break/continue/return/exit are
// control transfers, not errors, so they get their own sentinel types
// instead of being folded into RuntimeError; each still implements error
// so it can travel through the same (Value, error) / error return shape
// every executor already uses.
type unwind interface {
	error
	unwind()
}

type breakUnwind struct{}

func (breakUnwind) Error() string { return "unhandled break" }
func (breakUnwind) unwind()       {}

type continueUnwind struct{}

func (continueUnwind) Error() string { return "unhandled continue" }
func (continueUnwind) unwind()       {}

type returnUnwind struct {
	Value Value
}

func (returnUnwind) Error() string { return "unhandled return" }
func (returnUnwind) unwind()       {}

// exitUnwind carries the process exit code from the `exit()` builtin up
// through every enclosing call frame to the driver.
type exitUnwind struct {
	Code int
}

func (exitUnwind) Error() string { return "unhandled exit" }
func (exitUnwind) unwind()       {}

// asUnwind recovers an unwind sentinel from an error return, since
// execStmt/execBlock propagate unwinds wrapped as errors so every
// statement executor can keep the familiar (err error) signature.
func asUnwind(err error) (unwind, bool) {
	u, ok := err.(unwind)
	return u, ok
}
