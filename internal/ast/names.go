package ast

import (
	"strings"
)

// ObjectName is a possibly dotted name of a column, table or schema object.
// Each part keeps its quotes, if any.
type ObjectName struct {
	Scope         Scope
	Quoted        bool
	FirstName     string
	SecondaryName string
	LastName      string
}

// Name returns the dotted name.
func (n *ObjectName) Name() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.FirstName, n.SecondaryName, n.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

func (n *ObjectName) String() string { return n.Name() }
func (*ObjectName) node()            {}

// TableName is the name of a table in a FROM, JOIN, INSERT, UPDATE or DELETE
// clause. The alias, when present, follows the node as text.
type TableName struct {
	ObjectName
	Alias string
}

func (*TableName) node() {}

// AllColumns is * or alias.*.
type AllColumns struct {
	TableAlias string
}

func (a *AllColumns) String() string {
	if a.TableAlias == "" {
		return "*"
	}
	return a.TableAlias + ".*"
}

func (*AllColumns) node() {}
