package interpreter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Stringify renders v the way `print` and the REPL's echo do:
// numbers drop a trailing ".0" for integral values, nil prints "nil", and
// instances dump their fields in a stable (sorted) order so output is
// reproducible across runs. Exported so cmd/golox's REPL can echo a bare
// trailing expression's value with the exact same formatting `print` uses.
func Stringify(v Value) string {
	return stringify(v)
}

func stringify(v Value) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return stringifyNumber(val)
	case string:
		return val
	case *Function:
		return val.String()
	case *NativeFunction:
		return "<native fn " + val.Name + ">"
	case *Class:
		return val.String()
	case *Instance:
		return stringifyInstance(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func stringifyNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	// 'f' with minimal precision drops a trailing ".0" for integral
	// values (5 rather than 5.0) without ever switching to scientific
	// notation, matching Lox's plain-decimal print convention.
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// stringifyInstance dumps "<ClassName>" plus field name/value pairs;
// a field that points back to an ancestor on the current print path
// renders as "<ClassName> {...}" instead of recursing forever. Only
// ancestors count: the same instance reachable through two sibling
// fields prints in full both times.
func stringifyInstance(i *Instance) string {
	return stringifyInstanceVisited(i, make(map[*Instance]bool))
}

func stringifyInstanceVisited(i *Instance, onPath map[*Instance]bool) string {
	if onPath[i] {
		return "<" + i.class.Name + "> {...}"
	}
	onPath[i] = true
	defer delete(onPath, i)

	names := make([]string, 0, len(i.fields))
	for name := range i.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(i.class.Name)
	b.WriteString(">")
	if len(names) == 0 {
		b.WriteString(" {}")
		return b.String()
	}
	b.WriteString(" { ")
	for idx, name := range names {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		if nested, ok := i.fields[name].(*Instance); ok {
			b.WriteString(stringifyInstanceVisited(nested, onPath))
		} else {
			b.WriteString(stringify(i.fields[name]))
		}
	}
	b.WriteString(" }")
	return b.String()
}
