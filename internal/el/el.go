// Package el compiles and evaluates the expressions embedded in templates:
// the conditions of @if directives and the bodies of #{...} and ${...}.
package el

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expression is a compiled expression.
type Expression interface {
	// Eval evaluates the expression against vars.
	Eval(vars map[string]any) (any, error)
	String() string
}

// Compiler turns expression text into an Expression.
type Compiler interface {
	Compile(text string) (Expression, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(text string) (Expression, error)

func (f CompilerFunc) Compile(text string) (Expression, error) {
	return f(text)
}

// NewCompiler returns a Compiler backed by expr-lang. Names that are not
// defined when an expression runs evaluate to nil.
func NewCompiler() Compiler {
	return CompilerFunc(compile)
}

func compile(text string) (Expression, error) {
	program, err := expr.Compile(text, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return &expression{text: text, program: program}, nil
}

type expression struct {
	text    string
	program *vm.Program
}

func (e *expression) Eval(vars map[string]any) (any, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	v, err := expr.Run(e.program, vars)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot evaluate %q", e.text)
	}
	return v, nil
}

func (e *expression) String() string {
	return e.text
}

// EvalBool evaluates e and converts the result with Truthy.
func EvalBool(e Expression, vars map[string]any) (bool, error) {
	v, err := e.Eval(vars)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy reports whether v counts as true in a condition. nil, false, zero
// numbers and empty strings, slices and maps are false.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
