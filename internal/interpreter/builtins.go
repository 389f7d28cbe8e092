package interpreter

import (
	"strconv"
	"time"
)

// LineReader abstracts stdin for the `input()` builtin, so the core
// interpreter never touches os.Stdin directly — cmd/golox wires in the
// real terminal, and tests can inject a canned reader.
type LineReader interface {
	ReadLine() (string, error)
}

func installBuiltins(env *Environment) {
	env.DefineGlobal("clock", &NativeFunction{
		Name: "clock", N: 0,
		Fn: func(it *Interpreter, args []Value) (Value, error) {
			return float64(time.Now().UnixNano()) / 1e9, nil
		},
	})

	env.DefineGlobal("input", &NativeFunction{
		Name: "input", N: 0,
		Fn: func(it *Interpreter, args []Value) (Value, error) {
			if it.lineReader == nil {
				return nil, nil
			}
			line, err := it.lineReader.ReadLine()
			if err != nil {
				return nil, nil
			}
			return line, nil
		},
	})

	// number(s) parses a string into a number; everything else, including
	// a number argument, yields nil.
	env.DefineGlobal("number", &NativeFunction{
		Name: "number", N: 1,
		Fn: func(it *Interpreter, args []Value) (Value, error) {
			s, ok := args[0].(string)
			if !ok {
				return nil, nil
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil
			}
			return n, nil
		},
	})

	// exit() takes no argument: it unwinds the top-level
	// Interpret call and is silently absorbed there, terminating the
	// program gracefully with exit code 0.
	env.DefineGlobal("exit", &NativeFunction{
		Name: "exit", N: 0,
		Fn: func(it *Interpreter, args []Value) (Value, error) {
			return nil, exitUnwind{Code: 0}
		},
	})
}
