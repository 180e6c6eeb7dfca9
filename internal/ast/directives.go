package ast

import (
	"github.com/canonical/dynsql/internal/el"
)

// DynamicClause is a {? ... } fragment. It is rendered as a unit, and only
// when the parameters it references have values.
type DynamicClause struct {
	Body []Node
	// Params holds the key:value pairs written after a ';' in the clause.
	Params map[string]string
	// RawParams is the text after the ';', kept to rebuild the template.
	RawParams string
	HasParams bool
}

func (d *DynamicClause) String() string {
	s := "{?" + nodesString(d.Body)
	if d.HasParams {
		s += ";" + d.RawParams
	}
	return s + "}"
}

func (d *DynamicClause) Children() []Node { return d.Body }
func (*DynamicClause) node()              {}

// Nullable reports whether the clause accepts nil parameter values.
func (d *DynamicClause) Nullable() bool {
	return d.Params["nullable"] == "true"
}

// IfClause is an @if ... @endif block. It always has at least one
// statement.
type IfClause struct {
	Statements []*IfStatement
	Else       *ElseStatement
	// End is the closing directive as written.
	End string
}

func (c *IfClause) String() string {
	var s string
	for _, st := range c.Statements {
		s += st.String()
	}
	if c.Else != nil {
		s += c.Else.String()
	}
	return s + c.End
}

func (c *IfClause) Children() []Node {
	nodes := make([]Node, 0, len(c.Statements)+1)
	for _, st := range c.Statements {
		nodes = append(nodes, st)
	}
	if c.Else != nil {
		nodes = append(nodes, c.Else)
	}
	return nodes
}

func (*IfClause) node() {}

// IfStatement is one @if or @elseif branch.
type IfStatement struct {
	// Head is the directive and its condition as written, e.g. "@if(a)".
	Head      string
	Condition *IfCondition
	Body      []Node
}

func (s *IfStatement) String() string   { return s.Head + nodesString(s.Body) }
func (s *IfStatement) Children() []Node { return s.Body }
func (*IfStatement) node()              {}

type IfCondition struct {
	Text     string
	Compiled el.Expression
}

// ElseStatement is the @else branch of an IfClause.
type ElseStatement struct {
	Head string
	Body []Node
}

func (s *ElseStatement) String() string   { return s.Head + nodesString(s.Body) }
func (s *ElseStatement) Children() []Node { return s.Body }
func (*ElseStatement) node()              {}

// Include is @include(name), replaced at render time by a named fragment.
type Include struct {
	Raw  string
	Name string
}

func (i *Include) String() string { return i.Raw }
func (*Include) node()            {}

// Tag is a generic @name(content) directive handled by a renderer hook.
type Tag struct {
	Raw     string
	Name    string
	Content string
}

func (t *Tag) String() string { return t.Raw }
func (*Tag) node()            {}
