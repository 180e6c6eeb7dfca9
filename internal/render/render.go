// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package render turns a parsed statement and a set of variables into SQL
// text with ordered query arguments.
package render

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/el"
	"github.com/canonical/dynsql/internal/parse"
	"github.com/canonical/dynsql/internal/typeinfo"
)

// MaxIncludeDepth bounds the nesting of @include directives.
const MaxIncludeDepth = 16

// TagFunc renders the content of a @name(content) directive.
type TagFunc func(content string, vars map[string]any) (string, error)

// Input holds everything a statement is rendered with.
type Input struct {
	// Vars holds the named variables. Dotted names are resolved through
	// maps and db-tagged structs.
	Vars map[string]any
	// Args holds the values of ? placeholders in order.
	Args []any
	// Fragments holds the templates available to @include.
	Fragments map[string]string
	Tags      map[string]TagFunc
	// Placeholder returns the bind marker of the n-th argument, counting
	// from 1. When nil every argument is bound with "?".
	Placeholder func(n int) string
	// Parser parses fragments. When nil a parser with default settings is
	// used.
	Parser *parse.Parser
}

// Output is a rendered statement.
type Output struct {
	SQL  string
	Args []any
}

// clause records the parameters bound inside a dynamic clause.
type clause struct {
	nullable bool
	bound    int
	missing  bool
}

type renderer struct {
	in     Input
	sb     *strings.Builder
	args   []any
	clause *clause
	depth  int
	// positions maps every ? of the statement and of the fragments it
	// includes to its index in Input.Args, in text order.
	positions map[*ast.JdbcPlaceholder]int
	fragments map[*ast.Include]*ast.Statement
}

// Render renders stmt with in.
func Render(stmt *ast.Statement, in Input) (Output, error) {
	if in.Parser == nil {
		in.Parser = parse.New(parse.Config{})
	}
	r := &renderer{
		in:        in,
		sb:        &strings.Builder{},
		positions: map[*ast.JdbcPlaceholder]int{},
		fragments: map[*ast.Include]*ast.Statement{},
	}
	r.number(stmt.Nodes, 0, 0)
	if err := r.nodes(stmt.Nodes); err != nil {
		return Output{}, errors.Wrap(err, "cannot render statement")
	}
	return Output{SQL: strings.TrimSpace(r.sb.String()), Args: r.args}, nil
}

func (r *renderer) nodes(nodes []ast.Node) error {
	for _, n := range nodes {
		if err := r.node(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) node(n ast.Node) error {
	switch n := n.(type) {
	case *ast.QuotedText:
		r.sb.WriteString(n.Text)
	case *ast.ParamPlaceholder:
		v, ok := r.lookup(n.Name)
		return r.bind(n.String(), v, ok)
	case *ast.ExprParamPlaceholder:
		v, ok, err := r.eval(n.Compiled)
		if err != nil {
			return err
		}
		return r.bind(n.String(), v, ok)
	case *ast.JdbcPlaceholder:
		i, ok := r.positions[n]
		if !ok {
			i = n.Index
		}
		if i >= len(r.in.Args) {
			return errors.Newf("missing argument for placeholder %d", i+1)
		}
		if r.clause != nil {
			r.clause.bound++
		}
		r.arg(r.in.Args[i])
	case *ast.ParamReplacement:
		v, ok := r.lookup(n.Name)
		return r.replace(n.String(), n.Scope, v, ok)
	case *ast.ExprParamReplacement:
		v, ok, err := r.eval(n.Compiled)
		if err != nil {
			return err
		}
		return r.replace(n.String(), n.Scope, v, ok)
	case *ast.DynamicClause:
		return r.dynamicClause(n)
	case *ast.IfClause:
		return r.ifClause(n)
	case *ast.Include:
		return r.include(n)
	case *ast.Tag:
		f, ok := r.in.Tags[n.Name]
		if !ok {
			return errors.Newf("no handler for tag @%s", n.Name)
		}
		s, err := f(n.Content, r.in.Vars)
		if err != nil {
			return errors.Wrapf(err, "tag @%s", n.Name)
		}
		r.sb.WriteString(s)
	case ast.Parent:
		return r.nodes(n.Children())
	default:
		r.sb.WriteString(n.String())
	}
	return nil
}

func (r *renderer) lookup(name string) (any, bool) {
	return typeinfo.Resolve(r.in.Vars, name)
}

func (r *renderer) eval(e el.Expression) (any, bool, error) {
	v, err := e.Eval(r.in.Vars)
	if err != nil {
		if r.clause != nil {
			// Inside a dynamic clause a failing expression drops the clause.
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// usable reports whether a value may be bound. Inside a dynamic clause an
// unusable value drops the clause, outside it is an error.
func (r *renderer) usable(what string, v any, ok bool) (bool, error) {
	if r.clause != nil {
		r.clause.bound++
		if !ok || (isEmpty(v) && !(r.clause.nullable && isNil(v))) {
			r.clause.missing = true
			return false, nil
		}
		return true, nil
	}
	if !ok {
		return false, errors.Newf("no value for %s", what)
	}
	return true, nil
}

func (r *renderer) bind(what string, v any, ok bool) error {
	use, err := r.usable(what, v, ok)
	if err != nil || !use {
		return err
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8) || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return errors.Newf("empty list for %s", what)
		}
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				r.sb.WriteString(", ")
			}
			r.arg(rv.Index(i).Interface())
		}
		return nil
	}
	r.arg(v)
	return nil
}

// arg writes a bind marker for v and appends v to the arguments.
func (r *renderer) arg(v any) {
	r.args = append(r.args, v)
	if r.in.Placeholder == nil {
		r.sb.WriteString("?")
		return
	}
	r.sb.WriteString(r.in.Placeholder(len(r.args)))
}

// orderByItemRx matches one item of an ORDER BY list: a possibly qualified
// column name and an optional direction.
var orderByItemRx = regexp.MustCompile(`(?i)^\s*[a-z_]\w*(\.[a-z_]\w*)*(\s+(asc|desc))?\s*$`)

// validOrderBy reports whether s is a comma separated list of ORDER BY items.
func validOrderBy(s string) bool {
	for _, item := range strings.Split(s, ",") {
		if !orderByItemRx.MatchString(item) {
			return false
		}
	}
	return true
}

func (r *renderer) replace(what string, scope ast.Scope, v any, ok bool) error {
	use, err := r.usable(what, v, ok)
	if err != nil || !use {
		return err
	}
	s := fmt.Sprint(v)
	switch scope {
	case ast.ScopeString:
		s = strings.ReplaceAll(s, "'", "''")
	case ast.ScopeOrderBy:
		if !validOrderBy(s) {
			return errors.Newf("invalid order by value %q for %s", s, what)
		}
	}
	r.sb.WriteString(s)
	return nil
}

// dynamicClause renders the body of d into a scratch buffer and keeps it only
// when the body binds something and every value it binds is present.
func (r *renderer) dynamicClause(d *ast.DynamicClause) error {
	outer, sb, nargs := r.clause, r.sb, len(r.args)
	r.clause = &clause{nullable: d.Nullable()}
	r.sb = &strings.Builder{}
	err := r.nodes(d.Body)
	inner, body := r.clause, r.sb.String()
	r.clause, r.sb = outer, sb
	if err != nil {
		return err
	}
	if inner.bound == 0 || inner.missing {
		r.args = r.args[:nargs]
		return nil
	}
	if outer != nil {
		outer.bound += inner.bound
	}
	r.sb.WriteString(body)
	return nil
}

func (r *renderer) ifClause(c *ast.IfClause) error {
	for _, st := range c.Statements {
		ok, err := el.EvalBool(st.Condition.Compiled, r.in.Vars)
		if err != nil {
			return errors.Wrapf(err, "condition %q", st.Condition.Text)
		}
		if ok {
			return r.nodes(st.Body)
		}
	}
	if c.Else != nil {
		return r.nodes(c.Else.Body)
	}
	return nil
}

func (r *renderer) include(inc *ast.Include) error {
	stmt, ok := r.fragments[inc]
	if !ok {
		var err error
		if stmt, err = r.fragment(inc, r.depth); err != nil {
			return err
		}
	}
	r.depth++
	defer func() { r.depth-- }()
	return r.nodes(stmt.Nodes)
}

// fragment parses the fragment inc names, which is included depth levels
// below the statement.
func (r *renderer) fragment(inc *ast.Include, depth int) (*ast.Statement, error) {
	text, ok := r.in.Fragments[inc.Name]
	if !ok {
		return nil, errors.Newf("unknown fragment %q", inc.Name)
	}
	if depth >= MaxIncludeDepth {
		return nil, errors.Newf("fragment %q included more than %d levels deep", inc.Name, MaxIncludeDepth)
	}
	stmt, err := r.in.Parser.Statement(text)
	if err != nil {
		return nil, errors.Wrapf(err, "fragment %q", inc.Name)
	}
	return stmt, nil
}

// number gives every ? under nodes, including those of included fragments,
// its index into Input.Args, starting at next. Fragments that can not be
// included are skipped here and reported if they are rendered. It returns
// the index following the last ?.
func (r *renderer) number(nodes []ast.Node, next, depth int) int {
	ast.Inspect(nodes, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.JdbcPlaceholder:
			r.positions[n] = next
			next++
		case *ast.Include:
			stmt, err := r.fragment(n, depth)
			if err != nil {
				return true
			}
			r.fragments[n] = stmt
			next = r.number(stmt.Nodes, next, depth+1)
		}
		return true
	})
	return next
}

// isEmpty reports whether v is nil, an empty string or an empty list.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
