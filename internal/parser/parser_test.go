package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdecook/golox/internal/ast"
	"github.com/sdecook/golox/internal/report"
	"github.com/sdecook/golox/internal/scanner"
	"github.com/sdecook/golox/internal/token"
)

func parse(t *testing.T, src string) ([]ast.Stmt, *report.Reporter) {
	t.Helper()
	buf := &bytes.Buffer{}
	r := report.New(buf)
	toks := scanner.New(src, r).Scan()
	stmts := New(toks, r).Parse()
	return stmts, r
}

func TestParseVarAndExpr(t *testing.T) {
	stmts, r := parse(t, `var x = 1 + 2 * 3; print x;`)
	require.False(t, r.HadError())
	require.Len(t, stmts, 2)
	v, ok := stmts[0].(*ast.Var)
	require.True(t, ok)
	assert.Equal(t, "x", v.Name.Lexeme)
	bin, ok := v.Initializer.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, bin.Op.Kind)
}

func TestParseAssignmentTargets(t *testing.T) {
	stmts, r := parse(t, `x = 1; a.b = 2;`)
	require.False(t, r.HadError())
	require.Len(t, stmts, 2)
	_, ok := stmts[0].(*ast.Expression).E.(*ast.Assign)
	assert.True(t, ok)
	_, ok = stmts[1].(*ast.Expression).E.(*ast.Set)
	assert.True(t, ok)
}

func TestParseInvalidAssignmentTargetErrors(t *testing.T) {
	_, r := parse(t, `1 + 2 = 3;`)
	assert.True(t, r.HadError())
}

func TestParseConditionalRightAssociative(t *testing.T) {
	stmts, r := parse(t, `print a ? b : c ? d : e;`)
	require.False(t, r.HadError())
	pr := stmts[0].(*ast.Print)
	cond, ok := pr.E.(*ast.Conditional)
	require.True(t, ok)
	_, elseIsCond := cond.Else.(*ast.Conditional)
	assert.True(t, elseIsCond, "else branch of a ? b : c ? d : e should itself be a Conditional")
}

func TestParseConditionalAsAssignmentValue(t *testing.T) {
	stmts, r := parse(t, `x = cond ? 1 : 2;`)
	require.False(t, r.HadError())
	assign := stmts[0].(*ast.Expression).E.(*ast.Assign)
	_, ok := assign.Value.(*ast.Conditional)
	assert.True(t, ok)
}

func TestParseForDesugarsToWhileWithForIncrement(t *testing.T) {
	stmts, r := parse(t, `for (var i = 0; i < 10; i = i + 1) print i;`)
	require.False(t, r.HadError())
	require.Len(t, stmts, 1)
	block, ok := stmts[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Stmts, 2)

	_, isVar := block.Stmts[0].(*ast.Var)
	assert.True(t, isVar)

	while, ok := block.Stmts[1].(*ast.While)
	require.True(t, ok)
	require.NotNil(t, while.ForIncrement)

	// The increment must not be duplicated inside the loop body.
	body, ok := while.Body.(*ast.Print)
	require.True(t, ok, "body should be exactly the source print statement, not wrapped with the increment")
	_, bodyIsVariable := body.E.(*ast.Variable)
	assert.True(t, bodyIsVariable)
}

func TestParseForWithoutConditionDefaultsTrue(t *testing.T) {
	stmts, r := parse(t, `for (;;) break;`)
	require.False(t, r.HadError())
	while := stmts[0].(*ast.While)
	lit, ok := while.Cond.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, true, lit.Value)
}

func TestParseGetterDesugarsToReturn(t *testing.T) {
	stmts, r := parse(t, `class C { area -> 1 + 2; }`)
	require.False(t, r.HadError())
	cls := stmts[0].(*ast.ClassStmt)
	require.Len(t, cls.Methods, 1)
	m := cls.Methods[0]
	assert.Nil(t, m.Fn.Params, "getter must have nil Params to distinguish it from a zero-arg method")
	require.Len(t, m.Fn.Body, 1)
	_, ok := m.Fn.Body[0].(*ast.Return)
	assert.True(t, ok)
}

func TestParseStaticMethodGoesToClassMethods(t *testing.T) {
	stmts, r := parse(t, `class C { static make() { return 1; } instanceMethod() { return 2; } }`)
	require.False(t, r.HadError())
	cls := stmts[0].(*ast.ClassStmt)
	require.Len(t, cls.ClassMethods, 1)
	require.Len(t, cls.Methods, 1)
	assert.Equal(t, "make", cls.ClassMethods[0].Name.Lexeme)
	assert.Equal(t, "instanceMethod", cls.Methods[0].Name.Lexeme)
}

func TestParseClassWithSuperclass(t *testing.T) {
	stmts, r := parse(t, `class B < A { init() { super(); } }`)
	require.False(t, r.HadError())
	cls := stmts[0].(*ast.ClassStmt)
	require.NotNil(t, cls.Superclass)
	assert.Equal(t, "A", cls.Superclass.Name.Lexeme)

	init := cls.Methods[0]
	require.Len(t, init.Fn.Body, 1)
	_, ok := init.Fn.Body[0].(*ast.InitSuper)
	assert.True(t, ok, "bare super(...) at statement position must parse as InitSuper")
}

func TestParseSuperMethodCallIsExpression(t *testing.T) {
	stmts, r := parse(t, `class B < A { m() { return super.m(); } } `)
	require.False(t, r.HadError())
	cls := stmts[0].(*ast.ClassStmt)
	ret := cls.Methods[0].Fn.Body[0].(*ast.Return)
	call, ok := ret.Value.(*ast.Call)
	require.True(t, ok)
	_, ok = call.Callee.(*ast.Super)
	assert.True(t, ok)
}

func TestParseLambdaExpression(t *testing.T) {
	stmts, r := parse(t, `var f = fun (a, b) { return a + b; };`)
	require.False(t, r.HadError())
	v := stmts[0].(*ast.Var)
	fn, ok := v.Initializer.(*ast.Function)
	require.True(t, ok)
	assert.Len(t, fn.Params, 2)
}

func TestParseTooManyArgumentsReportsButContinues(t *testing.T) {
	src := "f("
	for i := 0; i < 256; i++ {
		if i > 0 {
			src += ", "
		}
		src += "1"
	}
	src += ");"
	_, r := parse(t, src)
	assert.True(t, r.HadError())
}

func TestParseSynchronizeRecoversAfterError(t *testing.T) {
	stmts, r := parse(t, `var = ; var y = 1;`)
	assert.True(t, r.HadError())
	require.Len(t, stmts, 1)
	v := stmts[0].(*ast.Var)
	assert.Equal(t, "y", v.Name.Lexeme)
}

func TestParseReplTrailingExpressionWithoutSemicolon(t *testing.T) {
	buf := &bytes.Buffer{}
	r := report.New(buf)
	toks := scanner.New(`1 + 2`, r).Scan()
	stmts, trailing, ok := New(toks, r).ParseRepl()
	require.False(t, r.HadError())
	assert.Empty(t, stmts)
	require.True(t, ok)
	_, isBinary := trailing.(*ast.Binary)
	assert.True(t, isBinary)
}

func TestParseReplStatementsThenNoTrailing(t *testing.T) {
	buf := &bytes.Buffer{}
	r := report.New(buf)
	toks := scanner.New(`var x = 1;`, r).Scan()
	stmts, trailing, ok := New(toks, r).ParseRepl()
	require.False(t, r.HadError())
	assert.False(t, ok)
	assert.Nil(t, trailing)
	assert.Len(t, stmts, 1)
}

func TestParseBreakAndContinueOutsideLoopStillParse(t *testing.T) {
	// The parser itself doesn't enforce loop context; that's the resolver's job.
	stmts, r := parse(t, `break; continue;`)
	require.False(t, r.HadError())
	require.Len(t, stmts, 2)
	_, ok := stmts[0].(*ast.Break)
	assert.True(t, ok)
	_, ok = stmts[1].(*ast.Continue)
	assert.True(t, ok)
}
