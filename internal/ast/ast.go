// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package ast declares the nodes produced by parsing a dynamic SQL template.
//
// The String method of every node returns the template text it was parsed
// from, so concatenating the nodes of a statement rebuilds the template.
package ast

import (
	"strings"

	"github.com/canonical/dynsql/internal/el"
	"github.com/canonical/dynsql/internal/token"
)

// Node is implemented by all the node types in this package.
type Node interface {
	String() string
	node()
}

// Parent is a node that holds other nodes.
type Parent interface {
	Node
	Children() []Node
}

// Type is the kind of statement a template holds.
type Type int

const (
	TypeUnresolved Type = iota
	TypeSelect
	TypeInsert
	TypeUpdate
	TypeDelete
)

func (t Type) String() string {
	switch t {
	case TypeSelect:
		return "SELECT"
	case TypeInsert:
		return "INSERT"
	case TypeUpdate:
		return "UPDATE"
	case TypeDelete:
		return "DELETE"
	}
	return "UNRESOLVED"
}

// Scope records where in a statement a name or replacement was found. The
// renderer uses it to decide how replaced text must be escaped.
type Scope int

const (
	ScopeUnknown Scope = iota
	ScopeSelectList
	ScopeOrderBy
	ScopeString
	ScopeWhere
)

func (s Scope) String() string {
	switch s {
	case ScopeSelectList:
		return "SELECT_LIST"
	case ScopeOrderBy:
		return "ORDER_BY"
	case ScopeString:
		return "STRING"
	case ScopeWhere:
		return "WHERE"
	}
	return "UNKNOWN"
}

func nodesString(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.String())
	}
	return sb.String()
}

// Statement is the root of a parsed template statement.
type Statement struct {
	Type  Type
	Nodes []Node
	// Empty is set when the statement holds nothing but comments.
	Empty bool
}

func (s *Statement) String() string   { return nodesString(s.Nodes) }
func (s *Statement) Children() []Node { return s.Nodes }
func (*Statement) node()              {}

// Text is a run of template text with no meaning to the renderer.
type Text struct {
	text string
}

func NewText(text string) *Text {
	return &Text{text: text}
}

// Append adds text to the end of t. Only the parser calls it, while the node
// is still being built.
func (t *Text) Append(text string) {
	t.text += text
}

func (t *Text) String() string { return t.text }
func (*Text) node()            {}

// ParamPlaceholder is a named bound parameter, :name or #name#.
type ParamPlaceholder struct {
	Token token.Token
	Name  string
}

func (p *ParamPlaceholder) String() string {
	if p.Token == token.SHARP_PLACEHOLDER {
		return "#" + p.Name + "#"
	}
	return ":" + p.Name
}

func (*ParamPlaceholder) node() {}

// ParamReplacement is a named value written into the SQL text, $name$.
type ParamReplacement struct {
	Name  string
	Scope Scope
}

func (p *ParamReplacement) String() string { return "$" + p.Name + "$" }
func (*ParamReplacement) node()            {}

// ExprParamPlaceholder is an expression bound as a parameter, #{expr}.
type ExprParamPlaceholder struct {
	Expr     string
	Compiled el.Expression
}

func (p *ExprParamPlaceholder) String() string { return "#{" + p.Expr + "}" }
func (*ExprParamPlaceholder) node()            {}

// ExprParamReplacement is an expression written into the SQL text, ${expr}.
type ExprParamReplacement struct {
	Expr     string
	Compiled el.Expression
	Scope    Scope
}

func (p *ExprParamReplacement) String() string { return "${" + p.Expr + "}" }
func (*ExprParamReplacement) node()            {}

// JdbcPlaceholder is a positional parameter. Index counts the positional
// parameters of the statement from zero.
type JdbcPlaceholder struct {
	Index int
}

func (*JdbcPlaceholder) String() string { return "?" }
func (*JdbcPlaceholder) node()          {}

// Literal is a string or number literal.
type Literal struct {
	Token token.Token
	Text  string
}

func (l *Literal) String() string { return l.Text }
func (*Literal) node()            {}

// Keyword is a single structural token kept as its own node.
type Keyword struct {
	Token token.Token
	Text  string
}

func (k *Keyword) String() string { return k.Text }
func (*Keyword) node()            {}

// QuotedText is text between triple backticks, passed to the database
// without the backticks.
type QuotedText struct {
	Text string
}

func (q *QuotedText) String() string { return "```" + q.Text + "```" }
func (*QuotedText) node()            {}

// Container groups nodes that have no structure of their own.
type Container struct {
	Nodes []Node
}

func (c *Container) String() string   { return nodesString(c.Nodes) }
func (c *Container) Children() []Node { return c.Nodes }
func (*Container) node()              {}
