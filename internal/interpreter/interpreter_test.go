package interpreter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdecook/golox/internal/parser"
	"github.com/sdecook/golox/internal/report"
	"github.com/sdecook/golox/internal/resolver"
	"github.com/sdecook/golox/internal/scanner"
)

// run scans, parses, resolves, and interprets src, returning everything
// written to stdout and the shared reporter so tests can assert on
// either output or diagnostics.
func run(t *testing.T, src string) (string, *report.Reporter) {
	t.Helper()
	var out bytes.Buffer
	r := report.New(&bytes.Buffer{})

	toks := scanner.New(src, r).Scan()
	stmts := parser.New(toks, r).Parse()
	require.False(t, r.HadError(), "unexpected static error")

	res := resolver.New(r)
	res.StrictUnused = false
	locals := res.Resolve(stmts)
	require.False(t, r.HadError(), "unexpected resolve error")

	it := New(&out, r, nil)
	it.SetLocals(locals)
	it.Interpret(stmts)
	return out.String(), r
}

func TestArithmeticAndStringConcat(t *testing.T) {
	out, r := run(t, `print 1 + 2 * 3; print "a" + "b"; print 7 % 2;`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "7\nab\n1\n", out)
}

func TestNumberStringificationDropsTrailingZero(t *testing.T) {
	out, _ := run(t, `print 10 / 2; print 1.5;`)
	assert.Equal(t, "5\n1.5\n", out)
}

func TestClosureCounter(t *testing.T) {
	out, r := run(t, `
fun makeCounter() {
  var count = 0;
  fun counter() {
    count = count + 1;
    return count;
  }
  return counter;
}
var c = makeCounter();
print c();
print c();
print c();
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestForLoopContinueRunsIncrementExactlyOnce(t *testing.T) {
	out, r := run(t, `
var s = "";
for (var i = 0; i < 5; i = i + 1) {
  if (i == 2) continue;
  s = s + i;
}
print s;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "0134\n", out)
}

func TestBreakExitsLoop(t *testing.T) {
	out, r := run(t, `
var s = "";
for (var i = 0; i < 10; i = i + 1) {
  if (i == 3) break;
  s = s + i;
}
print s;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "012\n", out)
}

func TestClassesInheritanceAndSuperInit(t *testing.T) {
	out, r := run(t, `
class Animal {
  init(name) {
    this.name = name;
  }
  speak() {
    return this.name + " makes a sound.";
  }
}
class Dog < Animal {
  init(name) {
    super(name);
  }
  speak() {
    return this.name + " barks.";
  }
}
var d = Dog("Rex");
print d.speak();
print d.name;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "Rex barks.\nRex\n", out)
}

func TestSuperMethodCall(t *testing.T) {
	out, r := run(t, `
class A {
  greet() { return "hi from A"; }
}
class B < A {
  greet() { return super.greet() + " and B"; }
}
print B().greet();
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "hi from A and B\n", out)
}

func TestStaticMethodAndMetaclassIdentity(t *testing.T) {
	out, r := run(t, `
class Math {
  static square(n) { return n * n; }
  static cube(n) { return this.square(n) * n; }
}
print Math.square(5);
print Math.cube(3);
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "25\n27\n", out)
}

func TestGetterInvokedOnPropertyAccess(t *testing.T) {
	out, r := run(t, `
class Circle {
  init(radius) { this.radius = radius; }
  area -> 3 * this.radius * this.radius;
}
var c = Circle(2);
print c.area;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "12\n", out)
}

func TestInheritedGetterAndSuperInit(t *testing.T) {
	out, r := run(t, `
class A { init(x) { this.x = x; } show -> this.x; }
class B < A { init(x, y) { super(x); this.y = y; } }
var b = B(1, 2);
print b.show;
print b.y;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "1\n2\n", out)
}

func TestStaticMethodReturningClassIsIdentical(t *testing.T) {
	out, r := run(t, `
class M { static id() { return M; } }
print M.id() == M;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "true\n", out)
}

func TestTernaryConditional(t *testing.T) {
	out, _ := run(t, `print 1 < 2 ? "yes" : "no";`)
	assert.Equal(t, "yes\n", out)
}

func TestLambdaExpression(t *testing.T) {
	out, r := run(t, `
var add = fun (a, b) { return a + b; };
print add(2, 3);
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "5\n", out)
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	out, r := run(t, `print undefinedThing;`)
	assert.True(t, r.HadRuntimeError())
	assert.Empty(t, out)
}

func TestRuntimeErrorCallArityMismatch(t *testing.T) {
	_, r := run(t, `
fun f(a, b) { return a + b; }
f(1);
`)
	assert.True(t, r.HadRuntimeError())
}

func TestRuntimeErrorCallingNonFunction(t *testing.T) {
	_, r := run(t, `
var notAFunction = 1;
notAFunction();
`)
	assert.True(t, r.HadRuntimeError())
}

func TestPlusWithAStringOperandConcatenates(t *testing.T) {
	out, r := run(t, `print 1 + "a"; print "n=" + 2; print "x" + nil; print true + "!";`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "1a\nn=2\nxnil\ntrue!\n", out)
}

func TestRuntimeErrorAddingNumberAndBoolean(t *testing.T) {
	_, r := run(t, `print 1 + true;`)
	assert.True(t, r.HadRuntimeError())
}

func TestDivisionByZeroYieldsInfinity(t *testing.T) {
	out, r := run(t, `print 1 / 0;`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "Infinity\n", out)
}

func TestMixedNumberStringComparisonIsLexicographic(t *testing.T) {
	// Both sides stringify before comparing, so this is string order
	// ("10" < "9"), not numeric order (10 > 9).
	out, r := run(t, `print 10 < "9"; print "2" < 10;`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "true\nfalse\n", out)
}

func TestNaNComparisonsAreAllFalse(t *testing.T) {
	out, r := run(t, `
var nan = 0 / 0;
print nan < 1;
print nan <= 1;
print nan > 1;
print nan >= 1;
print nan <= nan;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "false\nfalse\nfalse\nfalse\nfalse\n", out)
}

func TestNumberBuiltin(t *testing.T) {
	out, r := run(t, `
print number("42");
print number("1.5");
print number("not a number");
print number(7);
print number(nil);
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "42\n1.5\nnil\nnil\nnil\n", out)
}

func TestStringComparisonIsLexicographic(t *testing.T) {
	out, r := run(t, `print "apple" < "banana";`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "true\n", out)
}

func TestExitBuiltinStopsInterpretation(t *testing.T) {
	var out bytes.Buffer
	r := report.New(&bytes.Buffer{})
	src := `print "before"; exit(); print "after";`
	toks := scanner.New(src, r).Scan()
	stmts := parser.New(toks, r).Parse()
	require.False(t, r.HadError())
	res := resolver.New(r)
	locals := res.Resolve(stmts)
	it := New(&out, r, nil)
	it.SetLocals(locals)

	code, exited := it.Interpret(stmts)
	assert.True(t, exited)
	assert.Equal(t, 0, code)
	assert.Equal(t, "before\n", out.String())
}

func TestFieldsShadowMethods(t *testing.T) {
	out, r := run(t, `
class C {
  m() { return "method"; }
}
var c = C();
c.m = "field";
print c.m;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "field\n", out)
}

func TestInputBuiltinUsesInjectedLineReader(t *testing.T) {
	var out bytes.Buffer
	r := report.New(&bytes.Buffer{})
	src := `print input();`
	toks := scanner.New(src, r).Scan()
	stmts := parser.New(toks, r).Parse()
	res := resolver.New(r)
	locals := res.Resolve(stmts)

	it := New(&out, r, stubLineReader{line: "hello"})
	it.SetLocals(locals)
	it.Interpret(stmts)
	assert.Equal(t, "hello\n", out.String())
}

type stubLineReader struct{ line string }

func (s stubLineReader) ReadLine() (string, error) { return s.line, nil }

func TestReplTrailingExpressionIsEchoedNotPrinted(t *testing.T) {
	var out bytes.Buffer
	r := report.New(&bytes.Buffer{})
	src := `1 + 2`
	toks := scanner.New(src, r).Scan()
	stmts, trailing, ok := parser.New(toks, r).ParseRepl()
	require.False(t, r.HadError())
	require.True(t, ok)

	res := resolver.New(r)
	locals := res.Resolve(stmts)
	it := New(&out, r, nil)
	it.SetLocals(locals)

	v, hasResult, _, exited := it.InterpretRepl(stmts, trailing)
	assert.False(t, exited)
	require.True(t, hasResult)
	assert.Equal(t, 3.0, v)
	assert.Empty(t, out.String(), "bare expression result is returned to the caller, not printed via print")
}

func TestInstanceStringificationDumpsFieldsSorted(t *testing.T) {
	out, r := run(t, `
class Point {
  init(x, y) { this.x = x; this.y = y; }
}
print Point(1, 2);
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "<Point> { x: 1, y: 2 }\n", out)
}

func TestClassAndFunctionStringification(t *testing.T) {
	out, r := run(t, `
class Empty {}
fun f() {}
print Empty;
print Empty();
print f;
print fun (x) { return x; };
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "<class Empty>\n<Empty> {}\n<fn f>\n<lambda>\n", out)
}

func TestInstanceStringificationBreaksCycles(t *testing.T) {
	out, r := run(t, `
class Node {}
var a = Node();
var b = Node();
a.next = b;
b.prev = a;
print a;
`)
	assert.False(t, r.HadRuntimeError())
	assert.True(t, strings.Contains(out, "{...}"), "a field cycle must not recurse forever: %q", out)
}

func TestInstanceStringificationSharedNonCycleRendersInFull(t *testing.T) {
	// A diamond: the same instance hangs off two sibling fields but is
	// never its own ancestor, so both occurrences print in full.
	out, r := run(t, `
class Leaf {}
class Pair {}
var shared = Leaf();
shared.v = 1;
var p = Pair();
p.left = shared;
p.right = shared;
print p;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "<Pair> { left: <Leaf> { v: 1 }, right: <Leaf> { v: 1 } }\n", out)
}

func TestEqualityBoundaries(t *testing.T) {
	out, r := run(t, `
print nil == nil;
print nil == false;
print "" == false;
print 1 == 1;
print "a" == "a";
print 0 / 0 == 0 / 0;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "true\nfalse\nfalse\ntrue\ntrue\nfalse\n", out)
}

func TestLogicalOperatorsReturnOperandValues(t *testing.T) {
	out, r := run(t, `
print nil or "fallback";
print "first" or "second";
print nil and "never";
print 1 and 2;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "fallback\nfirst\nnil\n2\n", out)
}

func TestShortCircuitSkipsSideEffects(t *testing.T) {
	out, r := run(t, `
var called = false;
fun sideEffect() { called = true; return true; }
var a = false and sideEffect();
var b = true or sideEffect();
print a;
print b;
print called;
`)
	assert.False(t, r.HadRuntimeError())
	assert.Equal(t, "false\ntrue\nfalse\n", out)
}

func TestSuperInitArityMismatchIsRuntimeError(t *testing.T) {
	buf := &bytes.Buffer{}
	r := report.New(buf)
	src := `
class A { init(x) { this.x = x; } }
class B < A { init() { super(); } }
var b = B();
`
	toks := scanner.New(src, r).Scan()
	stmts := parser.New(toks, r).Parse()
	require.False(t, r.HadError())
	res := resolver.New(r)
	locals := res.Resolve(stmts)
	require.False(t, r.HadError())

	var out bytes.Buffer
	it := New(&out, r, nil)
	it.SetLocals(locals)
	it.Interpret(stmts)
	assert.True(t, r.HadRuntimeError())
	assert.Contains(t, buf.String(), "Expected 1 arguments but got0.")
}

func TestArityMismatchMessageFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	r := report.New(buf)
	src := `fun f(a, b) {} f(1);`
	toks := scanner.New(src, r).Scan()
	stmts := parser.New(toks, r).Parse()
	require.False(t, r.HadError())
	res := resolver.New(r)
	locals := res.Resolve(stmts)

	var out bytes.Buffer
	it := New(&out, r, nil)
	it.SetLocals(locals)
	it.Interpret(stmts)
	assert.True(t, r.HadRuntimeError())
	assert.Contains(t, buf.String(), "Expected 2 arguments but got1.")
}

func TestReplTrailingLambdaCallResolvesItsLocals(t *testing.T) {
	var out bytes.Buffer
	r := report.New(&bytes.Buffer{})
	src := `fun (x) { return x + 1; }(41)`
	toks := scanner.New(src, r).Scan()
	stmts, trailing, ok := parser.New(toks, r).ParseRepl()
	require.False(t, r.HadError())
	require.True(t, ok)

	res := resolver.New(r)
	locals := res.Resolve(stmts)
	locals = res.ResolveExpr(trailing)
	require.False(t, r.HadError())

	it := New(&out, r, nil)
	it.SetLocals(locals)
	v, hasResult, _, exited := it.InterpretRepl(stmts, trailing)
	assert.False(t, exited)
	require.True(t, hasResult)
	assert.Equal(t, 42.0, v)
}
