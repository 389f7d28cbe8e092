package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/sdecook/golox/internal/interpreter"
	"github.com/sdecook/golox/internal/parser"
	"github.com/sdecook/golox/internal/report"
	"github.com/sdecook/golox/internal/resolver"
	"github.com/sdecook/golox/internal/scanner"
)

var (
	promptColor = color.New(color.FgCyan)
	errorColor  = color.New(color.FgRed)
	resultColor = color.New(color.FgYellow)
)

// stdinLineReader adapts the process's real stdin to interpreter.LineReader
// for file mode's `input()` builtin. A single shared *bufio.Reader is
// required: recreating one per call would re-buffer and drop already-read
// bytes.
type stdinLineReader struct {
	r *bufio.Reader
}

func newStdinLineReader() stdinLineReader {
	return stdinLineReader{r: bufio.NewReader(os.Stdin)}
}

func (s stdinLineReader) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

// replLineReader routes input() through the same readline instance the
// REPL's prompt uses, so history/editing stays consistent.
type replLineReader struct {
	rl *readline.Instance
}

func (r replLineReader) ReadLine() (string, error) {
	return r.rl.Readline()
}

// errorWriter colors everything written to it red, so scan/parse/
// resolve/runtime diagnostics stand out from program output.
type errorWriter struct{ w io.Writer }

func (e errorWriter) Write(p []byte) (int, error) {
	errorColor.Fprint(e.w, string(p))
	return len(p), nil
}

// runRepl implements the interactive loop: read a line, parse it as
// statements plus (if it ends in a terminator-less expression) a trailing
// bare expression to echo, then evaluate against state that persists
// across lines — the global environment and the resolver's locals table
// both accumulate line over line.
func runRepl() {
	rl, err := readline.NewEx(&readline.Config{Prompt: promptColor.Sprint("> ")})
	if err != nil {
		fmt.Fprintln(os.Stderr, "golox:", err)
		os.Exit(exitUsage)
	}
	defer rl.Close()

	r := report.New(errorWriter{w: os.Stderr})
	res := resolver.New(r)
	res.StrictUnused = false

	it := interpreter.New(os.Stdout, r, replLineReader{rl: rl})

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl+D, readline.ErrInterrupt on Ctrl+C
			fmt.Fprintln(os.Stdout)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isExitCommand(line) {
			return
		}

		r.Reset()
		runReplLine(it, res, r, line)
	}
}

func runReplLine(it *interpreter.Interpreter, res *resolver.Resolver, r *report.Reporter, line string) {
	toks := scanner.New(line, r).Scan()
	p := parser.New(toks, r)
	stmts, trailing, _ := p.ParseRepl()

	if r.HadError() {
		return
	}

	locals := res.Resolve(stmts)
	if trailing != nil {
		locals = res.ResolveExpr(trailing)
	}
	if r.HadError() {
		return
	}
	it.MergeLocals(locals)

	result, hasResult, code, exited := it.InterpretRepl(stmts, trailing)
	if exited {
		os.Exit(code)
	}
	if hasResult {
		printResult(os.Stdout, result)
	}
}

func printResult(w io.Writer, v interpreter.Value) {
	resultColor.Fprintln(w, "= "+interpreter.Stringify(v))
}

// isExitCommand reports whether line, after stripping whitespace and
// semicolons, is exactly "exit()" — the REPL's own quit shortcut,
// checked before any scan/parse pass so it works even if the
// resolver would otherwise reject or warn about the line.
func isExitCommand(line string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(line), "; \t")
	return trimmed == "exit()"
}
