// Command golox is the Lox interpreter's command-line driver: file mode
// when given a script path, an interactive REPL otherwise. Everything
// process-specific — argv, stdin/stdout, exit codes — lives here; the
// internal/* packages never import os.
package main

import (
	"fmt"
	"os"

	"github.com/sdecook/golox/internal/interpreter"
	"github.com/sdecook/golox/internal/parser"
	"github.com/sdecook/golox/internal/report"
	"github.com/sdecook/golox/internal/resolver"
	"github.com/sdecook/golox/internal/scanner"
)

const (
	exitUsage   = 64
	exitStatic  = 65
	exitRuntime = 70
)

func main() {
	switch len(os.Args) {
	case 1:
		runRepl()
	case 2:
		os.Exit(runFile(os.Args[1]))
	default:
		fmt.Fprintln(os.Stderr, "Usage: golox [script]")
		os.Exit(exitUsage)
	}
}

func runFile(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "golox: %v\n", err)
		return exitUsage
	}

	r := report.New(errorWriter{w: os.Stderr})

	toks := scanner.New(string(source), r).Scan()
	stmts := parser.New(toks, r).Parse()
	if r.HadError() {
		return exitStatic
	}

	res := resolver.New(r)
	res.StrictUnused = true
	locals := res.Resolve(stmts)
	if r.HadError() {
		return exitStatic
	}

	it := interpreter.New(os.Stdout, r, newStdinLineReader())
	it.SetLocals(locals)

	code, exited := it.Interpret(stmts)
	if exited {
		return code
	}
	if r.HadRuntimeError() {
		return exitRuntime
	}
	return 0
}
