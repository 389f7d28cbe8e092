// Package parser implements Lox's recursive-descent grammar, including
// the for→while, lambda/getter, static-method, and super(...)
// desugarings the resolver and interpreter depend on.
package parser

import (
	"github.com/sdecook/golox/internal/ast"
	"github.com/sdecook/golox/internal/report"
	"github.com/sdecook/golox/internal/token"
)

const maxArgs = 255

// parseError unwinds a single declaration back to Parser.declSync, which
// calls synchronize; the error itself was already reported by errorAt
// before the panic. It never escapes the package.
type parseError struct{}

// Parser turns a token sequence into statements (file mode) or, in REPL
// mode, statements plus an optional trailing bare expression.
type Parser struct {
	toks     []token.Token
	pos      int
	reporter *report.Reporter

	replMode     bool
	trailingExpr ast.Expr
}

// New returns a Parser over toks that reports grammar violations to r.
func New(toks []token.Token, r *report.Reporter) *Parser {
	return &Parser{toks: toks, reporter: r}
}

// Parse returns the program as a list of statements (file mode).
func (p *Parser) Parse() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.atEnd() {
		if s := p.declSync(); s != nil {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// ParseRepl parses one REPL line. If the input ends in an expression
// statement whose terminating ';' was omitted, that expression is returned
// separately via trailing with ok true, and stmts holds the statements
// before it; otherwise stmts holds everything and ok is false.
func (p *Parser) ParseRepl() (stmts []ast.Stmt, trailing ast.Expr, ok bool) {
	p.replMode = true
	for !p.atEnd() {
		if s := p.declSync(); s != nil {
			stmts = append(stmts, s)
		}
	}
	if p.trailingExpr != nil {
		return stmts, p.trailingExpr, true
	}
	return stmts, nil, false
}

func (p *Parser) declSync() (stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); ok {
				p.synchronize()
				stmt = nil
				return
			}
			panic(r)
		}
	}()
	return p.declaration()
}

func (p *Parser) declaration() ast.Stmt {
	switch {
	case p.match(token.CLASS):
		return p.classDecl()
	case p.check(token.FUN) && !p.checkNext(token.LEFT_PAREN):
		p.advance()
		return p.funDecl("function")
	case p.match(token.VAR):
		return p.varDecl()
	default:
		return p.statement()
	}
}

func (p *Parser) classDecl() ast.Stmt {
	name := p.consume(token.IDENTIFIER, "Expect class name.")

	var superclass *ast.Variable
	if p.match(token.LESS) {
		p.consume(token.IDENTIFIER, "Expect superclass name.")
		superclass = &ast.Variable{Name: p.previous()}
	}

	p.consume(token.LEFT_BRACE, "Expect '{' before class body.")

	var methods, classMethods []*ast.FunctionStmt
	for !p.check(token.RIGHT_BRACE) && !p.atEnd() {
		if p.match(token.STATIC) {
			classMethods = append(classMethods, p.methodDecl())
		} else {
			methods = append(methods, p.methodDecl())
		}
	}

	p.consume(token.RIGHT_BRACE, "Expect '}' after class body.")

	return &ast.ClassStmt{Name: name, Superclass: superclass, Methods: methods, ClassMethods: classMethods}
}

// methodDecl parses one class member: either `name(params) { body }` or
// the getter form `name -> expr;` (no parameter list, body desugars to a
// single return statement).
func (p *Parser) methodDecl() *ast.FunctionStmt {
	name := p.consume(token.IDENTIFIER, "Expect method name.")

	if p.match(token.ARROW) {
		expr := p.expression()
		p.consumeSemicolon("Expect ';' after getter body.")
		body := []ast.Stmt{&ast.Return{Keyword: name, Value: expr}}
		return &ast.FunctionStmt{Name: name, Fn: &ast.Function{Params: nil, Body: body}}
	}

	p.consume(token.LEFT_PAREN, "Expect '(' after method name.")
	params := p.paramList()
	p.consume(token.LEFT_BRACE, "Expect '{' before method body.")
	body := p.blockStmts()

	return &ast.FunctionStmt{Name: name, Fn: &ast.Function{Params: params, Body: body}}
}

func (p *Parser) funDecl(kind string) ast.Stmt {
	name := p.consume(token.IDENTIFIER, "Expect "+kind+" name.")
	p.consume(token.LEFT_PAREN, "Expect '(' after "+kind+" name.")
	params := p.paramList()
	p.consume(token.LEFT_BRACE, "Expect '{' before "+kind+" body.")
	body := p.blockStmts()
	return &ast.FunctionStmt{Name: name, Fn: &ast.Function{Params: params, Body: body}}
}

func (p *Parser) paramList() []token.Token {
	params := []token.Token{}
	if !p.check(token.RIGHT_PAREN) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.peek(), "Can't have more than 255 parameters.")
			}
			params = append(params, p.consume(token.IDENTIFIER, "Expect parameter name."))
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	return params
}

func (p *Parser) varDecl() ast.Stmt {
	name := p.consume(token.IDENTIFIER, "Expect variable name.")

	var initializer ast.Expr
	if p.match(token.EQUAL) {
		initializer = p.expression()
	}
	p.consumeSemicolon("Expect ';' after variable declaration.")
	return &ast.Var{Name: name, Initializer: initializer}
}

func (p *Parser) statement() ast.Stmt {
	if p.check(token.SUPER) && p.checkNext(token.LEFT_PAREN) {
		return p.initSuperStmt()
	}

	switch {
	case p.match(token.BREAK):
		return p.breakStmt()
	case p.match(token.CONTINUE):
		return p.continueStmt()
	case p.match(token.FOR):
		return p.forStmt()
	case p.match(token.IF):
		return p.ifStmt()
	case p.match(token.WHILE):
		p.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
		cond := p.expression()
		p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")
		return &ast.While{Cond: cond, Body: p.statement()}
	case p.match(token.PRINT):
		return p.printStmt()
	case p.match(token.RETURN):
		return p.returnStmt()
	case p.match(token.LEFT_BRACE):
		return &ast.Block{Stmts: p.blockStmts()}
	default:
		return p.exprStmt()
	}
}

// initSuperStmt parses a bare `super(...)` call at statement position,
// which only ever means "invoke the superclass initializer" and never
// produces a value — InitSuper, not a Call expression.
func (p *Parser) initSuperStmt() ast.Stmt {
	keyword := p.advance() // 'super'
	p.consume(token.LEFT_PAREN, "Expect '(' after 'super'.")
	call := p.finishCall(&ast.Super{Keyword: keyword})
	p.consumeSemicolon("Expect ';' after value.")
	return &ast.InitSuper{Keyword: keyword, Call: call.(*ast.Call)}
}

func (p *Parser) breakStmt() ast.Stmt {
	kw := p.previous()
	p.consumeSemicolon("Expect ';' after 'break'.")
	return &ast.Break{Keyword: kw}
}

func (p *Parser) continueStmt() ast.Stmt {
	kw := p.previous()
	p.consumeSemicolon("Expect ';' after 'continue'.")
	return &ast.Continue{Keyword: kw}
}

func (p *Parser) printStmt() ast.Stmt {
	expr := p.expression()
	p.consumeSemicolon("Expect ';' after value.")
	return &ast.Print{E: expr}
}

func (p *Parser) returnStmt() ast.Stmt {
	keyword := p.previous()
	var value ast.Expr
	if !p.check(token.SEMICOLON) {
		value = p.expression()
	}
	p.consumeSemicolon("Expect ';' after return value.")
	return &ast.Return{Keyword: keyword, Value: value}
}

func (p *Parser) ifStmt() ast.Stmt {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	cond := p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after if condition.")
	thenBranch := p.statement()
	var elseBranch ast.Stmt
	if p.match(token.ELSE) {
		elseBranch = p.statement()
	}
	return &ast.If{Cond: cond, Then: thenBranch, Else: elseBranch}
}

// forStmt desugars `for (init; cond; inc) body` into a while loop whose
// ForIncrement field carries inc, so continue can run it once per
// iteration without appending it to the body.
func (p *Parser) forStmt() ast.Stmt {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	var initializer ast.Stmt
	switch {
	case p.match(token.SEMICOLON):
		initializer = nil
	case p.match(token.VAR):
		initializer = p.varDecl()
	default:
		initializer = p.exprStmt()
	}

	var condition ast.Expr
	if !p.check(token.SEMICOLON) {
		condition = p.expression()
	}
	p.consume(token.SEMICOLON, "Expect ';' after loop condition.")

	var increment ast.Expr
	if !p.check(token.RIGHT_PAREN) {
		increment = p.expression()
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

	body := p.statement()

	if condition == nil {
		condition = &ast.Literal{Value: true}
	}
	whileStmt := &ast.While{Cond: condition, Body: body, ForIncrement: increment}

	var result ast.Stmt = whileStmt
	if initializer != nil {
		result = &ast.Block{Stmts: []ast.Stmt{initializer, whileStmt}}
	}
	return result
}

func (p *Parser) blockStmts() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(token.RIGHT_BRACE) && !p.atEnd() {
		if s := p.declSync(); s != nil {
			stmts = append(stmts, s)
		}
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after block.")
	return stmts
}

// exprStmt parses an expression statement. In REPL mode, a trailing
// expression at end-of-input with no ';' is stashed as the REPL's bare
// expression result instead of being reported as an error.
func (p *Parser) exprStmt() ast.Stmt {
	expr := p.expression()

	if p.match(token.SEMICOLON) {
		return &ast.Expression{E: expr}
	}

	if p.replMode && p.atEnd() {
		p.trailingExpr = expr
		return nil
	}

	p.errorAt(p.peek(), "Expect ';' after expression.")
	return &ast.Expression{E: expr}
}

// ---------------------------------------------------------------- //
// Expressions, precedence ascending: assignment, conditional, or, and,
// equality, comparison, term, factor, unary, call, primary. (No distinct
// comma-operator level is implemented: the AST defines no Comma node, and
// ',' is only ever a list separator in this grammar.)
// ---------------------------------------------------------------- //

func (p *Parser) expression() ast.Expr {
	return p.assignment()
}

func (p *Parser) assignment() ast.Expr {
	expr := p.conditional()

	if p.match(token.EQUAL) {
		equals := p.previous()
		value := p.assignment()

		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assign{Name: target.Name, Value: value}
		case *ast.Get:
			return &ast.Set{Object: target.Object, Name: target.Name, Value: value}
		default:
			p.errorAt(equals, "Invalid assignment target.")
		}
	}

	return expr
}

func (p *Parser) conditional() ast.Expr {
	expr := p.logicOr()

	if p.match(token.QUESTION) {
		then := p.expression()
		p.consume(token.COLON, "Expect ':' after then-branch of conditional.")
		elseExpr := p.conditional()
		return &ast.Conditional{Cond: expr, Then: then, Else: elseExpr}
	}

	return expr
}

func (p *Parser) logicOr() ast.Expr {
	expr := p.logicAnd()
	for p.match(token.OR) {
		op := p.previous()
		right := p.logicAnd()
		expr = &ast.Logical{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) logicAnd() ast.Expr {
	expr := p.equality()
	for p.match(token.AND) {
		op := p.previous()
		right := p.equality()
		expr = &ast.Logical{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.match(token.BANG_EQUAL, token.EQUAL_EQUAL) {
		op := p.previous()
		right := p.comparison()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.term()
	for p.match(token.GREATER, token.GREATER_EQUAL, token.LESS, token.LESS_EQUAL) {
		op := p.previous()
		right := p.term()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.match(token.MINUS, token.PLUS) {
		op := p.previous()
		right := p.factor()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.match(token.SLASH, token.STAR, token.PERCENT) {
		op := p.previous()
		right := p.unary()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) unary() ast.Expr {
	if p.match(token.BANG, token.MINUS) {
		op := p.previous()
		right := p.unary()
		return &ast.Unary{Op: op, Right: right}
	}
	return p.call()
}

func (p *Parser) call() ast.Expr {
	expr := p.primary()

	for {
		switch {
		case p.match(token.LEFT_PAREN):
			expr = p.finishCall(expr)
		case p.match(token.DOT):
			name := p.consume(token.IDENTIFIER, "Expect property name after '.'.")
			expr = &ast.Get{Object: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if !p.check(token.RIGHT_PAREN) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), "Can't have more than 255 arguments.")
			}
			args = append(args, p.expression())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	paren := p.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return &ast.Call{Callee: callee, Paren: paren, Args: args}
}

func (p *Parser) primary() ast.Expr {
	switch {
	case p.match(token.FALSE):
		return &ast.Literal{Value: false}
	case p.match(token.TRUE):
		return &ast.Literal{Value: true}
	case p.match(token.NIL):
		return &ast.Literal{Value: nil}
	case p.match(token.NUMBER, token.STRING):
		return &ast.Literal{Value: p.previous().Literal}
	case p.match(token.THIS):
		return &ast.This{Keyword: p.previous()}
	case p.match(token.SUPER):
		keyword := p.previous()
		p.consume(token.DOT, "Expect '.' after 'super'.")
		method := p.consume(token.IDENTIFIER, "Expect superclass method name.")
		return &ast.Super{Keyword: keyword, Method: method}
	case p.match(token.IDENTIFIER):
		return &ast.Variable{Name: p.previous()}
	case p.match(token.LEFT_PAREN):
		expr := p.expression()
		p.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
		return &ast.Grouping{Inner: expr}
	case p.match(token.FUN):
		return p.lambda()
	}

	p.errorAt(p.peek(), "Expect expression.")
	panic(parseError{})
}

// lambda parses `fun (params) { body }` as an expression (no name).
func (p *Parser) lambda() ast.Expr {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'fun'.")
	params := p.paramList()
	p.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	body := p.blockStmts()
	return &ast.Function{Params: params, Body: body}
}

// ---------------------------------------------------------------- //
// Helpers
// ---------------------------------------------------------------- //

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) check(k token.Kind) bool {
	return !p.atEnd() && p.peek().Kind == k
}

func (p *Parser) checkNext(k token.Kind) bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Kind == k
}

func (p *Parser) advance() token.Token {
	if !p.atEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) atEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) peek() token.Token { return p.toks[p.pos] }

func (p *Parser) previous() token.Token { return p.toks[p.pos-1] }

func (p *Parser) consume(k token.Kind, message string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.errorAt(p.peek(), message)
	panic(parseError{})
}

// consumeSemicolon reports a missing ';' without panicking, so a single
// forgotten terminator doesn't trigger full-statement synchronization.
func (p *Parser) consumeSemicolon(message string) {
	if !p.match(token.SEMICOLON) {
		p.errorAt(p.peek(), message)
	}
}

func (p *Parser) errorAt(tok token.Token, message string) {
	p.reporter.ParseError(tok, message)
}

// synchronize discards tokens until just after a ';' or the next token
// starts a new statement, so one parse error doesn't hide the rest.
func (p *Parser) synchronize() {
	p.advance()

	for !p.atEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}

		switch p.peek().Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN:
			return
		}

		p.advance()
	}
}
