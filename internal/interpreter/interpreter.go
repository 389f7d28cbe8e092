// Package interpreter tree-walks a resolved Lox program.
//
// Expr/Stmt nodes are dispatched with a Go type switch rather than a
// Visitor interface (see internal/ast's package doc); non-local control
// flow (break/continue/return/exit) travels as distinct unwind sentinel
// values satisfying error, rather than panic/recover, so every executor
// keeps an ordinary (..., error) signature.
package interpreter

import (
	"fmt"
	"io"
	"math"

	"github.com/sdecook/golox/internal/ast"
	"github.com/sdecook/golox/internal/report"
	"github.com/sdecook/golox/internal/resolver"
	"github.com/sdecook/golox/internal/token"
)

// Interpreter holds the global frame, the current execution frame, the
// resolver's locals side table, and the collaborators (output sink,
// diagnostics sink, stdin abstraction) injected so core library code
// never touches a process-global directly.
type Interpreter struct {
	globals *Environment
	env     *Environment
	locals  map[ast.Expr]resolver.Resolution

	reporter   *report.Reporter
	stdout     io.Writer
	lineReader LineReader
}

// New returns an Interpreter with built-ins installed in its global
// frame. lineReader may be nil (input() then always returns nil).
func New(stdout io.Writer, reporter *report.Reporter, lineReader LineReader) *Interpreter {
	g := NewGlobal()
	installBuiltins(g)
	return &Interpreter{globals: g, env: g, reporter: reporter, stdout: stdout, lineReader: lineReader}
}

// SetLocals installs the resolver's side table for a one-shot resolve
// pass over a whole program (file mode), replacing any previous table.
func (it *Interpreter) SetLocals(locals map[ast.Expr]resolver.Resolution) {
	it.locals = locals
}

// MergeLocals adds locals's entries to the interpreter's side table
// without discarding entries from earlier calls. The REPL resolves one
// line at a time, but a closure declared on an earlier line may still be
// invoked on a later one — its body's
// AST nodes were keyed into the table by that earlier Resolve call, so
// replacing the table wholesale on each line would strand them.
func (it *Interpreter) MergeLocals(locals map[ast.Expr]resolver.Resolution) {
	if it.locals == nil {
		it.locals = make(map[ast.Expr]resolver.Resolution, len(locals))
	}
	for k, v := range locals {
		it.locals[k] = v
	}
}

// Interpret runs a full program (file mode). It returns the `exit()`
// code and exited=true if the program called exit(); otherwise exited is
// false and the caller should consult it.reporter.HadRuntimeError() to
// decide the process exit code.
func (it *Interpreter) Interpret(stmts []ast.Stmt) (code int, exited bool) {
	for _, s := range stmts {
		err := it.execStmt(s)
		if err == nil {
			continue
		}
		if u, ok := asUnwind(err); ok {
			if ex, ok := u.(exitUnwind); ok {
				return ex.Code, true
			}
			// A break/continue/return escaping every enclosing loop and
			// function is a resolver defect, not a reachable runtime state;
			// treat it as a no-op rather than crash the interpreter.
			continue
		}
		if rerr, ok := err.(*RuntimeError); ok {
			it.reporter.RuntimeError(rerr.Tok, rerr.Message)
			return 0, false
		}
	}
	return 0, false
}

// InterpretRepl runs one REPL line's statements, then — if the parser
// produced a bare trailing expression — evaluates and returns it so the
// REPL driver can echo its value.
func (it *Interpreter) InterpretRepl(stmts []ast.Stmt, trailing ast.Expr) (result Value, hasResult bool, code int, exited bool) {
	for _, s := range stmts {
		err := it.execStmt(s)
		if err == nil {
			continue
		}
		if u, ok := asUnwind(err); ok {
			if ex, ok := u.(exitUnwind); ok {
				return nil, false, ex.Code, true
			}
			continue
		}
		if rerr, ok := err.(*RuntimeError); ok {
			it.reporter.RuntimeError(rerr.Tok, rerr.Message)
			return nil, false, 0, false
		}
	}

	if trailing == nil {
		return nil, false, 0, false
	}

	v, err := it.evalExpr(trailing)
	if err != nil {
		if u, ok := asUnwind(err); ok {
			if ex, ok := u.(exitUnwind); ok {
				return nil, false, ex.Code, true
			}
		}
		if rerr, ok := err.(*RuntimeError); ok {
			it.reporter.RuntimeError(rerr.Tok, rerr.Message)
		}
		return nil, false, 0, false
	}
	return v, true, 0, false
}

// ---------------------------------------------------------------- //
// Statements
// ---------------------------------------------------------------- //

func (it *Interpreter) execStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Expression:
		_, err := it.evalExpr(s.E)
		return err

	case *ast.Print:
		v, err := it.evalExpr(s.E)
		if err != nil {
			return err
		}
		fmt.Fprintln(it.stdout, stringify(v))
		return nil

	case *ast.Var:
		var val Value
		if s.Initializer != nil {
			v, err := it.evalExpr(s.Initializer)
			if err != nil {
				return err
			}
			val = v
		}
		it.define(s.Name.Lexeme, val)
		return nil

	case *ast.Block:
		return it.execBlock(s.Stmts, NewChild(it.env))

	case *ast.If:
		cond, err := it.evalExpr(s.Cond)
		if err != nil {
			return err
		}
		if isTruthy(cond) {
			return it.execStmt(s.Then)
		} else if s.Else != nil {
			return it.execStmt(s.Else)
		}
		return nil

	case *ast.While:
		return it.execWhile(s)

	case *ast.Break:
		return breakUnwind{}

	case *ast.Continue:
		return continueUnwind{}

	case *ast.Return:
		var v Value
		if s.Value != nil {
			val, err := it.evalExpr(s.Value)
			if err != nil {
				return err
			}
			v = val
		}
		return returnUnwind{Value: v}

	case *ast.FunctionStmt:
		fn := &Function{name: s.Name.Lexeme, kind: kindFunction, decl: s.Fn, closure: it.env, isGetter: s.Fn.Params == nil}
		it.define(s.Name.Lexeme, fn)
		return nil

	case *ast.ClassStmt:
		return it.execClassStmt(s)

	case *ast.InitSuper:
		return it.execInitSuper(s)

	default:
		panic("interpreter: unhandled statement type")
	}
}

// define binds name in whichever frame is current: the global name map
// at the top level, or the next local slot otherwise. Both the resolver
// and this method walk declarations in source order, so slots assigned
// here line up with the resolver's.
func (it *Interpreter) define(name string, v Value) {
	if it.env.isGlobal() {
		it.env.DefineGlobal(name, v)
	} else {
		it.env.Define(v)
	}
}

// execBlock runs stmts in env, always restoring the caller's environment
// before returning — including when an unwind or error propagates.
func (it *Interpreter) execBlock(stmts []ast.Stmt, env *Environment) error {
	previous := it.env
	it.env = env
	defer func() { it.env = previous }()

	for _, s := range stmts {
		if err := it.execStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// execWhile runs the loop body, routing break to a clean exit and
// continue to running ForIncrement exactly once before re-testing the
// condition. The increment is never appended into the body, so continue
// can't skip or duplicate it.
func (it *Interpreter) execWhile(s *ast.While) error {
	for {
		cond, err := it.evalExpr(s.Cond)
		if err != nil {
			return err
		}
		if !isTruthy(cond) {
			return nil
		}

		err = it.execStmt(s.Body)
		if err != nil {
			if u, ok := asUnwind(err); ok {
				switch u.(type) {
				case breakUnwind:
					return nil
				case continueUnwind:
					if s.ForIncrement != nil {
						if _, ierr := it.evalExpr(s.ForIncrement); ierr != nil {
							return ierr
						}
					}
					continue
				default:
					return err
				}
			}
			return err
		}

		if s.ForIncrement != nil {
			if _, err := it.evalExpr(s.ForIncrement); err != nil {
				return err
			}
		}
	}
}

// execClassStmt builds the Class value and its metaclass. Method
// closures capture methodEnv — the environment with `super` defined in
// it, if there is a superclass — never an eagerly-bound `this`; `this`
// is injected per-access by Function.bind, matching how the resolver
// only pushes the instance/static `this` scope around each method body,
// not around the whole class (see resolver.go's resolveClass).
func (it *Interpreter) execClassStmt(s *ast.ClassStmt) error {
	var superclass *Class
	if s.Superclass != nil {
		v, err := it.lookupVariable(s.Superclass.Name, s.Superclass)
		if err != nil {
			return err
		}
		sc, ok := v.(*Class)
		if !ok {
			return &RuntimeError{Tok: s.Superclass.Name, Message: "Superclass must be a class."}
		}
		superclass = sc
	}

	methodEnv := it.env
	if superclass != nil {
		methodEnv = NewChild(it.env)
		methodEnv.Define(superclass)
	}

	methods := make(map[string]*Function, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name.Lexeme] = &Function{
			name: m.Name.Lexeme, kind: kindMethod, decl: m.Fn, closure: methodEnv,
			isGetter:      m.Fn.Params == nil,
			isInitializer: m.Name.Lexeme == "init",
		}
	}

	classMethods := make(map[string]*Function, len(s.ClassMethods))
	for _, m := range s.ClassMethods {
		classMethods[m.Name.Lexeme] = &Function{
			name: m.Name.Lexeme, kind: kindMethod, decl: m.Fn, closure: methodEnv,
			isGetter: m.Fn.Params == nil,
		}
	}

	class := NewClass(s.Name.Lexeme, superclass, methods, classMethods)
	it.define(s.Name.Lexeme, class)
	return nil
}

// execInitSuper runs the synthetic `super(...)` statement the parser
// emits for a bare call at statement position. A superclass without an
// init behaves like a zero-arity initializer that does nothing,
// mirroring a normal Class.Call with no initializer.
func (it *Interpreter) execInitSuper(s *ast.InitSuper) error {
	res, ok := it.locals[s.Call.Callee]
	if !ok {
		return &RuntimeError{Tok: s.Keyword, Message: "Can't resolve 'super' here."}
	}
	superclass, ok := it.env.GetAt(res.Depth, res.Slot).(*Class)
	if !ok {
		return &RuntimeError{Tok: s.Keyword, Message: "Can't resolve 'super' here."}
	}
	receiver := it.env.GetAt(res.Depth-1, 0)

	args := make([]Value, len(s.Call.Args))
	for i, a := range s.Call.Args {
		v, err := it.evalExpr(a)
		if err != nil {
			return err
		}
		args[i] = v
	}

	init := superclass.FindMethod("init")
	arity := 0
	if init != nil {
		arity = init.Arity()
	}
	if len(args) != arity {
		return &RuntimeError{Tok: s.Call.Paren, Message: arityError(arity, len(args))}
	}
	if init == nil {
		return nil
	}

	_, err := init.bind(receiver).Call(it, args)
	return err
}

// ---------------------------------------------------------------- //
// Expressions
// ---------------------------------------------------------------- //

func (it *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil

	case *ast.Variable:
		return it.lookupVariable(e.Name, e)

	case *ast.Assign:
		v, err := it.evalExpr(e.Value)
		if err != nil {
			return nil, err
		}
		if err := it.assignVariable(e.Name, e, v); err != nil {
			return nil, err
		}
		return v, nil

	case *ast.Grouping:
		return it.evalExpr(e.Inner)

	case *ast.Unary:
		right, err := it.evalExpr(e.Right)
		if err != nil {
			return nil, err
		}
		switch e.Op.Kind {
		case token.MINUS:
			n, err := checkNumberOperand(e.Op, right)
			if err != nil {
				return nil, err
			}
			return -n, nil
		case token.BANG:
			return !isTruthy(right), nil
		}
		panic("interpreter: unhandled unary operator")

	case *ast.Binary:
		return it.evalBinary(e)

	case *ast.Logical:
		left, err := it.evalExpr(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Op.Kind == token.OR {
			if isTruthy(left) {
				return left, nil
			}
		} else {
			if !isTruthy(left) {
				return left, nil
			}
		}
		return it.evalExpr(e.Right)

	case *ast.Conditional:
		cond, err := it.evalExpr(e.Cond)
		if err != nil {
			return nil, err
		}
		if isTruthy(cond) {
			return it.evalExpr(e.Then)
		}
		return it.evalExpr(e.Else)

	case *ast.Call:
		return it.evalCall(e)

	case *ast.Get:
		return it.evalGet(e)

	case *ast.Set:
		return it.evalSet(e)

	case *ast.This:
		return it.lookupVariable(e.Keyword, e)

	case *ast.Super:
		return it.evalSuper(e)

	case *ast.Function:
		return &Function{name: "lambda", kind: kindLambda, decl: e, closure: it.env, isGetter: e.Params == nil}, nil

	default:
		panic("interpreter: unhandled expression type")
	}
}

func (it *Interpreter) evalBinary(e *ast.Binary) (Value, error) {
	left, err := it.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := it.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op.Kind {
	case token.PLUS:
		if ln, lok := left.(float64); lok {
			if rn, rok := right.(float64); rok {
				return ln + rn, nil
			}
		}
		// If either side is a string, both sides stringify and concatenate:
		// "n=" + 1 and 1 + "!" both work.
		_, lStr := left.(string)
		_, rStr := right.(string)
		if lStr || rStr {
			return stringify(left) + stringify(right), nil
		}
		return nil, &RuntimeError{Tok: e.Op, Message: "Operands must be two numbers or two strings."}
	case token.MINUS:
		a, b, err := checkNumberOperands(e.Op, left, right)
		if err != nil {
			return nil, err
		}
		return a - b, nil
	case token.STAR:
		a, b, err := checkNumberOperands(e.Op, left, right)
		if err != nil {
			return nil, err
		}
		return a * b, nil
	case token.SLASH:
		a, b, err := checkNumberOperands(e.Op, left, right)
		if err != nil {
			return nil, err
		}
		// IEEE-754 division: a/0.0 yields +-Inf or NaN, never a runtime
		// error.
		return a / b, nil
	case token.PERCENT:
		a, b, err := checkNumberOperands(e.Op, left, right)
		if err != nil {
			return nil, err
		}
		return math.Mod(a, b), nil
	case token.GREATER, token.GREATER_EQUAL, token.LESS, token.LESS_EQUAL:
		return compareOperands(e.Op, left, right)
	case token.EQUAL_EQUAL:
		return isEqual(left, right), nil
	case token.BANG_EQUAL:
		return !isEqual(left, right), nil
	}
	panic("interpreter: unhandled binary operator")
}

func (it *Interpreter) evalCall(e *ast.Call) (Value, error) {
	callee, err := it.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := it.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	callable, ok := callee.(Callable)
	if !ok {
		return nil, &RuntimeError{Tok: e.Paren, Message: "Can only call functions and classes."}
	}
	if len(args) != callable.Arity() {
		return nil, &RuntimeError{Tok: e.Paren, Message: arityError(callable.Arity(), len(args))}
	}
	return callable.Call(it, args)
}

func (it *Interpreter) evalGet(e *ast.Get) (Value, error) {
	obj, err := it.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *Instance:
		v, ok := o.Get(e.Name.Lexeme)
		if !ok {
			return nil, &RuntimeError{Tok: e.Name, Message: "Undefined property '" + e.Name.Lexeme + "'."}
		}
		return it.invokeIfGetter(v)
	case *Class:
		v, ok := o.GetStatic(e.Name.Lexeme)
		if !ok {
			return nil, &RuntimeError{Tok: e.Name, Message: "Undefined property '" + e.Name.Lexeme + "'."}
		}
		return it.invokeIfGetter(v)
	default:
		return nil, &RuntimeError{Tok: e.Name, Message: "Only instances have properties."}
	}
}

// invokeIfGetter calls a getter method (no parameter list, the
// `name -> expr;` form) the moment it's accessed as a property, rather
// than returning the bound method as a value to be called separately.
func (it *Interpreter) invokeIfGetter(v Value) (Value, error) {
	if fn, ok := v.(*Function); ok && fn.isGetter {
		return fn.Call(it, nil)
	}
	return v, nil
}

func (it *Interpreter) evalSet(e *ast.Set) (Value, error) {
	obj, err := it.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, &RuntimeError{Tok: e.Name, Message: "Only instances have fields."}
	}
	value, err := it.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	inst.Set(e.Name.Lexeme, value)
	return value, nil
}

// evalSuper finds `super`'s resolution and recovers `this` from the
// scope immediately enclosing it — the instance/static "this" scope is
// always the one resolveClass pushed right after the super scope, so
// it's always exactly one level shallower (see resolver.go).
func (it *Interpreter) evalSuper(e *ast.Super) (Value, error) {
	res, ok := it.locals[e]
	if !ok {
		return nil, &RuntimeError{Tok: e.Keyword, Message: "Can't resolve 'super' here."}
	}
	superclass, ok := it.env.GetAt(res.Depth, res.Slot).(*Class)
	if !ok {
		return nil, &RuntimeError{Tok: e.Keyword, Message: "Can't resolve 'super' here."}
	}
	receiver := it.env.GetAt(res.Depth-1, 0)

	method := superclass.FindMethod(e.Method.Lexeme)
	if method == nil {
		return nil, &RuntimeError{Tok: e.Method, Message: "Undefined property '" + e.Method.Lexeme + "'."}
	}
	return method.bind(receiver), nil
}

func (it *Interpreter) lookupVariable(name token.Token, expr ast.Expr) (Value, error) {
	if res, ok := it.locals[expr]; ok {
		return it.env.GetAt(res.Depth, res.Slot), nil
	}
	if v, ok := it.globals.GetGlobal(name.Lexeme); ok {
		return v, nil
	}
	return nil, &RuntimeError{Tok: name, Message: "Undefined variable '" + name.Lexeme + "'."}
}

func (it *Interpreter) assignVariable(name token.Token, expr ast.Expr, value Value) error {
	if res, ok := it.locals[expr]; ok {
		it.env.AssignAt(res.Depth, res.Slot, value)
		return nil
	}
	if it.globals.AssignGlobal(name.Lexeme, value) {
		return nil
	}
	return &RuntimeError{Tok: name, Message: "Undefined variable '" + name.Lexeme + "'."}
}
