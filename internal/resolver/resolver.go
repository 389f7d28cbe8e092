// Package resolver performs a single static pass over the parsed tree,
// binding every Variable/Assign/This/Super read to a
// (depth, slot) pair in the side table the interpreter's Environment
// chain uses at runtime, and enforcing the language's static rules
// (duplicate declarations, use-before-define, return/break/continue
// placement, `this`/`super` placement).
package resolver

import (
	"github.com/sdecook/golox/internal/ast"
	"github.com/sdecook/golox/internal/report"
	"github.com/sdecook/golox/internal/token"
)

// Resolution records where a name resolved: Depth scopes up the
// environment chain from the point of use, Slot is its index within that
// scope's frame. Globals never get a Resolution; the interpreter looks
// them up by name.
type Resolution struct {
	Depth int
	Slot  int
}

type funcType int

const (
	funcNone funcType = iota
	funcFunction
	funcMethod
	funcInitializer
)

type classType int

const (
	classNone classType = iota
	classClass
	classSubclass
)

// scopeEntry tracks one local binding through its declare/define/read
// lifecycle and the slot the interpreter will store it at.
type scopeEntry struct {
	tok     token.Token
	defined bool
	read    bool
	slot    int
}

// scope is insertion-ordered so the slot assigned here always matches the
// interpreter's Environment.Define order, since both walk declarations in
// source order.
type scope struct {
	names []string
	by    map[string]*scopeEntry
}

func newScope() *scope {
	return &scope{by: make(map[string]*scopeEntry)}
}

func (s *scope) declare(tok token.Token) *scopeEntry {
	e := &scopeEntry{tok: tok, slot: len(s.names)}
	s.names = append(s.names, tok.Lexeme)
	s.by[tok.Lexeme] = e
	return e
}

// Resolver walks the tree once, in the same order the interpreter will
// execute it, producing the locals side table.
type Resolver struct {
	reporter *report.Reporter

	// StrictUnused makes an unused local a static error (file mode, exit
	// 65) rather than a warning (REPL mode).
	StrictUnused bool

	scopes []*scope
	locals map[ast.Expr]Resolution

	currentFunc  funcType
	currentClass classType
	loopDepth    int
}

// New returns a Resolver that reports violations to r.
func New(r *report.Reporter) *Resolver {
	return &Resolver{reporter: r, locals: make(map[ast.Expr]Resolution)}
}

// Resolve walks stmts and returns the locals side table the interpreter
// consumes via SetLocals (or MergeLocals in the REPL).
func (r *Resolver) Resolve(stmts []ast.Stmt) map[ast.Expr]Resolution {
	r.resolveStmts(stmts)
	return r.locals
}

// ResolveExpr resolves a single bare expression — the REPL's trailing
// terminator-less form. A lambda there carries a whole function body
// whose locals need side-table entries just like any statement's.
func (r *Resolver) ResolveExpr(e ast.Expr) map[ast.Expr]Resolution {
	r.resolveExpr(e)
	return r.locals
}

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Expression:
		r.resolveExpr(s.E)
	case *ast.Print:
		r.resolveExpr(s.E)
	case *ast.Var:
		r.declare(s.Name)
		if s.Initializer != nil {
			r.resolveExpr(s.Initializer)
		}
		r.define(s.Name)
	case *ast.Block:
		r.beginScope()
		r.resolveStmts(s.Stmts)
		r.endScope()
	case *ast.If:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}
	case *ast.While:
		r.resolveExpr(s.Cond)
		r.loopDepth++
		r.resolveStmt(s.Body)
		if s.ForIncrement != nil {
			r.resolveExpr(s.ForIncrement)
		}
		r.loopDepth--
	case *ast.Break:
		if r.loopDepth == 0 {
			r.reporter.ResolveError(s.Keyword, "Can't use 'break' outside of a loop.")
		}
	case *ast.Continue:
		if r.loopDepth == 0 {
			r.reporter.ResolveError(s.Keyword, "Can't use 'continue' outside of a loop.")
		}
	case *ast.Return:
		if r.currentFunc == funcNone {
			r.reporter.ResolveError(s.Keyword, "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.currentFunc == funcInitializer {
				r.reporter.ResolveError(s.Keyword, "Can't return a value from an initializer.")
			}
			r.resolveExpr(s.Value)
		}
	case *ast.FunctionStmt:
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s.Fn, funcFunction)
	case *ast.ClassStmt:
		r.resolveClass(s)
	case *ast.InitSuper:
		if r.currentClass != classSubclass {
			r.reporter.ResolveError(s.Keyword, "Can't use 'super' outside of a subclass.")
		} else if r.currentFunc != funcInitializer {
			r.reporter.ResolveError(s.Keyword, "Can't call the superclass initializer outside of 'init'.")
		}
		for _, a := range s.Call.Args {
			r.resolveExpr(a)
		}
		// Keyed by the Super callee node, matching the normal super.method()
		// expression path, so the interpreter looks up "super" the same way
		// in both cases.
		r.resolveLocal(s.Call.Callee, s.Keyword)
	default:
		panic("resolver: unhandled statement type")
	}
}

func (r *Resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Literal:
		// no identifiers to resolve
	case *ast.Variable:
		if len(r.scopes) > 0 {
			if entry, ok := r.scopes[len(r.scopes)-1].by[e.Name.Lexeme]; ok && !entry.defined {
				r.reporter.ResolveError(e.Name, "Can't read local variable in it's own initializer.")
			}
		}
		r.resolveLocal(e, e.Name)
	case *ast.Assign:
		r.resolveExpr(e.Value)
		r.resolveAssign(e, e.Name)
	case *ast.Unary:
		r.resolveExpr(e.Right)
	case *ast.Binary:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.Logical:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.Grouping:
		r.resolveExpr(e.Inner)
	case *ast.Conditional:
		r.resolveExpr(e.Cond)
		r.resolveExpr(e.Then)
		r.resolveExpr(e.Else)
	case *ast.Call:
		r.resolveExpr(e.Callee)
		for _, a := range e.Args {
			r.resolveExpr(a)
		}
	case *ast.Get:
		r.resolveExpr(e.Object)
	case *ast.Set:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)
	case *ast.This:
		if r.currentClass == classNone {
			r.reporter.ResolveError(e.Keyword, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(e, e.Keyword)
	case *ast.Super:
		if r.currentClass == classNone {
			r.reporter.ResolveError(e.Keyword, "Can't use 'super' outside of a class.")
		} else if r.currentClass != classSubclass {
			r.reporter.ResolveError(e.Keyword, "Can't use 'super' in a class with no superclass.")
		}
		r.resolveLocal(e, e.Keyword)
	case *ast.Function:
		r.resolveFunction(e, funcFunction)
	default:
		panic("resolver: unhandled expression type")
	}
}

// resolveFunction pushes a new scope for params (and `this`, handled by
// callers that need it), resolves the body, then checks for unused
// locals before popping.
func (r *Resolver) resolveFunction(fn *ast.Function, kind funcType) {
	enclosingFunc := r.currentFunc
	r.currentFunc = kind
	enclosingLoop := r.loopDepth
	r.loopDepth = 0

	r.beginScope()
	for _, p := range fn.Params {
		r.declare(p)
		r.define(p)
	}
	r.resolveStmts(fn.Body)
	r.endScope()

	r.loopDepth = enclosingLoop
	r.currentFunc = enclosingFunc
}

// resolveClass implements the six-step class-resolution procedure: declare
// the name, resolve the superclass and push its `super` scope, push the
// instance scope with `this`, resolve instance methods, pop the instance
// scope, resolve static methods each in their own `this`-as-class scope,
// then pop the super scope.
func (r *Resolver) resolveClass(s *ast.ClassStmt) {
	enclosingClass := r.currentClass
	r.currentClass = classClass

	r.declare(s.Name)
	r.define(s.Name)

	if s.Superclass != nil {
		if s.Superclass.Name.Lexeme == s.Name.Lexeme {
			r.reporter.ResolveError(s.Superclass.Name, "A class can't inherit from itself.")
		}
		r.currentClass = classSubclass
		r.resolveLocal(s.Superclass, s.Superclass.Name)

		r.beginScope()
		r.scopes[len(r.scopes)-1].declare(token.Token{Kind: token.SUPER, Lexeme: "super"})
		r.define(token.Token{Lexeme: "super"})
	}

	r.beginScope()
	r.scopes[len(r.scopes)-1].declare(token.Token{Kind: token.THIS, Lexeme: "this"})
	r.define(token.Token{Lexeme: "this"})

	for _, m := range s.Methods {
		kind := funcMethod
		if m.Name.Lexeme == "init" {
			kind = funcInitializer
		}
		r.resolveFunctionMethod(m, kind)
	}

	r.endScope() // instance scope (`this`)

	for _, m := range s.ClassMethods {
		r.beginScope()
		r.scopes[len(r.scopes)-1].declare(token.Token{Kind: token.THIS, Lexeme: "this"})
		r.define(token.Token{Lexeme: "this"})
		r.resolveFunctionMethod(m, funcMethod)
		r.endScope()
	}

	if s.Superclass != nil {
		r.endScope() // super scope
	}

	r.currentClass = enclosingClass
}

// resolveFunctionMethod resolves one method body without re-declaring
// `this`/`super`, which already live in the enclosing scopes resolveClass
// pushed.
func (r *Resolver) resolveFunctionMethod(m *ast.FunctionStmt, kind funcType) {
	enclosingFunc := r.currentFunc
	r.currentFunc = kind
	enclosingLoop := r.loopDepth
	r.loopDepth = 0

	r.beginScope()
	for _, p := range m.Fn.Params {
		r.declare(p)
		r.define(p)
	}
	r.resolveStmts(m.Fn.Body)
	r.endScope()

	r.loopDepth = enclosingLoop
	r.currentFunc = enclosingFunc
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, newScope())
}

func (r *Resolver) endScope() {
	top := r.scopes[len(r.scopes)-1]
	for _, name := range top.names {
		entry := top.by[name]
		if !entry.read && entry.tok.Lexeme != "this" && entry.tok.Lexeme != "super" {
			msg := "Local variable '" + name + "' is never used."
			if r.StrictUnused {
				r.reporter.ResolveError(entry.tok, msg)
			} else {
				r.reporter.ResolveWarning(entry.tok, msg)
			}
		}
	}
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(tok token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	top := r.scopes[len(r.scopes)-1]
	if _, ok := top.by[tok.Lexeme]; ok {
		r.reporter.ResolveError(tok, "Already a variable with this name in this scope.")
		return
	}
	top.declare(tok)
}

func (r *Resolver) define(tok token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	if entry, ok := r.scopes[len(r.scopes)-1].by[tok.Lexeme]; ok {
		entry.defined = true
	}
}

// resolveLocal walks outward from the innermost scope looking for name,
// recording (depth, slot) in the side table keyed by the expr's identity
// and marking the binding read. A name found nowhere in the scope stack
// is left unresolved, meaning the interpreter will treat it as global.
func (r *Resolver) resolveLocal(expr ast.Expr, tok token.Token) {
	if entry := r.record(expr, tok); entry != nil {
		entry.read = true
	}
}

// resolveAssign records (depth, slot) for an assignment target without
// marking the binding read: a local that is only ever assigned still
// trips the unused diagnostic on scope exit.
func (r *Resolver) resolveAssign(expr ast.Expr, tok token.Token) {
	r.record(expr, tok)
}

func (r *Resolver) record(expr ast.Expr, tok token.Token) *scopeEntry {
	for depth := 0; depth < len(r.scopes); depth++ {
		s := r.scopes[len(r.scopes)-1-depth]
		if entry, ok := s.by[tok.Lexeme]; ok {
			r.locals[expr] = Resolution{Depth: depth, Slot: entry.slot}
			return entry
		}
	}
	return nil
}
