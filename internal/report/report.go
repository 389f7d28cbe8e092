// Package report implements the process-wide error sink shared by the
// scanner, parser, resolver, and interpreter stages.
//
// All four stages write diagnostics here instead of directly to stderr, so
// the driver (file mode or REPL) can check HadError/HadRuntimeError once
// per phase and so a REPL can Reset error state between lines.
package report

import (
	"fmt"
	"io"

	"github.com/sdecook/golox/internal/token"
)

// Reporter collects static and runtime diagnostics and formats them in
// the interpreter's two fixed wire formats.
type Reporter struct {
	w               io.Writer
	hadError        bool
	hadRuntimeError bool
}

// New returns a Reporter that writes formatted diagnostics to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Reset clears accumulated error flags. Used between REPL lines.
func (r *Reporter) Reset() {
	r.hadError = false
	r.hadRuntimeError = false
}

// HadError reports whether a scan, parse, or resolve error has been seen.
func (r *Reporter) HadError() bool { return r.hadError }

// HadRuntimeError reports whether a runtime error has been seen.
func (r *Reporter) HadRuntimeError() bool { return r.hadRuntimeError }

// ScanError reports a lexical error at the given line.
func (r *Reporter) ScanError(line int, message string) {
	r.report(line, "", message)
}

// ParseError reports a grammar violation located at tok.
func (r *Reporter) ParseError(tok token.Token, message string) {
	if tok.Kind == token.EOF {
		r.report(tok.Line, " at end", message)
	} else {
		r.report(tok.Line, fmt.Sprintf(" at '%s'", tok.Lexeme), message)
	}
}

// ResolveError reports a static scoping violation located at tok.
func (r *Reporter) ResolveError(tok token.Token, message string) {
	r.ParseError(tok, message)
}

// ResolveWarning reports the unused-local diagnostic without setting the
// static-error flag — used in REPL mode, where an unused local must not
// abort the session.
func (r *Reporter) ResolveWarning(tok token.Token, message string) {
	where := fmt.Sprintf(" at '%s'", tok.Lexeme)
	fmt.Fprintf(r.w, "[line %d] Warning%s: %s\n", tok.Line, where, message)
}

func (r *Reporter) report(line int, where, message string) {
	fmt.Fprintf(r.w, "[line %d] Error%s: %s\n", line, where, message)
	r.hadError = true
}

// RuntimeError reports a runtime error at tok's line and sets the
// runtime-error flag.
func (r *Reporter) RuntimeError(tok token.Token, message string) {
	fmt.Fprintf(r.w, "%s\n[line %d]\n", message, tok.Line)
	r.hadRuntimeError = true
}
