package interpreter

import "github.com/sdecook/golox/internal/ast"

// Callable is implemented by every value that can appear as a Call
// expression's callee: user functions, native functions, and classes
// (calling a class constructs an instance).
type Callable interface {
	Arity() int
	Call(it *Interpreter, args []Value) (Value, error)
}

// funcKind distinguishes how a Function prints ("<fn NAME>" /
// "<lambda>" / "<method NAME>"), independent of its calling behavior.
type funcKind int

const (
	kindFunction funcKind = iota
	kindLambda
	kindMethod
)

// Function is a user-defined function, method, or lambda closing over the
// environment active at its declaration.
type Function struct {
	name          string
	kind          funcKind
	decl          *ast.Function
	closure       *Environment
	isGetter      bool
	isInitializer bool
}

func (f *Function) Arity() int {
	if f.decl.Params == nil {
		return 0
	}
	return len(f.decl.Params)
}

func (f *Function) Call(it *Interpreter, args []Value) (Value, error) {
	env := NewChild(f.closure)
	for _, a := range args {
		env.Define(a)
	}

	err := it.execBlock(f.decl.Body, env)
	if u, ok := asUnwind(err); ok {
		if ret, ok := u.(returnUnwind); ok {
			if f.isInitializer {
				return f.closure.GetAt(0, 0), nil
			}
			return ret.Value, nil
		}
		// break/continue escaping a function body is a resolver bug, not
		// a runtime possibility; let it propagate rather than swallow it.
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if f.isInitializer {
		return f.closure.GetAt(0, 0), nil
	}
	return nil, nil
}

// bind returns a copy of f whose closure has `this` bound to receiver, at
// slot 0 of a fresh frame — the same frame shape resolveClass's instance
// (or static) scope assumed when it resolved the method body. receiver is
// an *Instance for ordinary methods and a *Class for static methods,
// where `this` refers to the class object itself.
func (f *Function) bind(receiver Value) *Function {
	env := NewChild(f.closure)
	env.Define(receiver)
	return &Function{name: f.name, kind: f.kind, decl: f.decl, closure: env, isGetter: f.isGetter, isInitializer: f.isInitializer}
}

func (f *Function) String() string {
	switch f.kind {
	case kindLambda:
		return "<lambda>"
	case kindMethod:
		return "<method " + f.name + ">"
	default:
		return "<fn " + f.name + ">"
	}
}

// Class is both the instance-constructing callable and the value bound
// to the class's own name; its static (ClassMethods) lookups act through
// a metaclass so `ClassName.staticMethod` and `ClassName` as a `this`
// receiver inside a static method behave consistently.
type Class struct {
	Name       string
	Superclass *Class
	Methods    map[string]*Function
	meta       *metaclass
}

// metaclass holds a class's static methods, looked up when `this` inside
// a static method refers to the class object itself rather than an
// instance.
type metaclass struct {
	methods map[string]*Function
}

func NewClass(name string, superclass *Class, methods map[string]*Function, classMethods map[string]*Function) *Class {
	c := &Class{Name: name, Superclass: superclass, Methods: methods, meta: &metaclass{methods: classMethods}}
	return c
}

func (c *Class) FindMethod(name string) *Function {
	if m, ok := c.Methods[name]; ok {
		return m
	}
	if c.Superclass != nil {
		return c.Superclass.FindMethod(name)
	}
	return nil
}

func (c *Class) findStaticMethod(name string) *Function {
	if c.meta != nil {
		if m, ok := c.meta.methods[name]; ok {
			return m
		}
	}
	if c.Superclass != nil {
		return c.Superclass.findStaticMethod(name)
	}
	return nil
}

func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

func (c *Class) Call(it *Interpreter, args []Value) (Value, error) {
	instance := &Instance{class: c, fields: make(map[string]Value)}
	if init := c.FindMethod("init"); init != nil {
		if _, err := init.bind(instance).Call(it, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// GetStatic looks up a static method, binding `this` to the class object
// itself so a static method can reference its own other static methods
// through `this`.
func (c *Class) GetStatic(name string) (Value, bool) {
	if m := c.findStaticMethod(name); m != nil {
		return m.bind(c), true
	}
	return nil, false
}

func (c *Class) String() string { return "<class " + c.Name + ">" }

// Instance is a runtime object: a bag of fields plus a class to look
// methods up on when a field isn't found: fields shadow methods.
type Instance struct {
	class  *Class
	fields map[string]Value
}

func (i *Instance) Get(name string) (Value, bool) {
	if v, ok := i.fields[name]; ok {
		return v, true
	}
	if m := i.class.FindMethod(name); m != nil {
		return m.bind(i), true
	}
	return nil, false
}

func (i *Instance) Set(name string, value Value) {
	i.fields[name] = value
}

func (i *Instance) String() string { return "<" + i.class.Name + ">" }
