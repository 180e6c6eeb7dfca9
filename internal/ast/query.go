package ast

// Select is a SELECT query, possibly nested in another statement.
type Select struct {
	Nodes      []Node
	Distinct   bool
	Top        *Top
	SelectList *SelectList
	// ItemAliases lists the aliases of the select items in order.
	ItemAliases []string
	// Tables are the table sources of the FROM clause and its joins.
	Tables []Node
	Where  *Where
	// Alias is set on a sub-select used as a table source.
	Alias string
}

func (s *Select) String() string   { return nodesString(s.Nodes) }
func (s *Select) Children() []Node { return s.Nodes }
func (*Select) node()              {}

type SelectList struct {
	Nodes []Node
}

func (s *SelectList) String() string   { return nodesString(s.Nodes) }
func (s *SelectList) Children() []Node { return s.Nodes }
func (*SelectList) node()              {}

// Top is the "TOP n" prefix of a select list.
type Top struct {
	Text    string
	N       int
	Percent bool
}

func (t *Top) String() string { return t.Text }
func (*Top) node()            {}

// Where holds a WHERE clause. A query without one still gets an empty Where
// so that predicates can be added at that point.
type Where struct {
	Nodes []Node
}

func (w *Where) String() string   { return nodesString(w.Nodes) }
func (w *Where) Children() []Node { return w.Nodes }
func (*Where) node()              {}

// IsEmpty reports whether the query had no WHERE clause.
func (w *Where) IsEmpty() bool {
	return len(w.Nodes) == 0
}

type Insert struct {
	Nodes   []Node
	Table   *TableName
	Columns []*ObjectName
	Values  []Node
}

func (i *Insert) String() string   { return nodesString(i.Nodes) }
func (i *Insert) Children() []Node { return i.Nodes }
func (*Insert) node()              {}

type Update struct {
	Nodes []Node
	Table *TableName
	Sets  []*SetItem
	Where *Where
}

func (u *Update) String() string   { return nodesString(u.Nodes) }
func (u *Update) Children() []Node { return u.Nodes }
func (*Update) node()              {}

// SetItem is one "column = value" of an UPDATE. Both nodes also appear in
// the Update node list.
type SetItem struct {
	Column *ObjectName
	Value  Node
}

type Delete struct {
	Nodes []Node
	Table *TableName
	Where *Where
}

func (d *Delete) String() string   { return nodesString(d.Nodes) }
func (d *Delete) Children() []Node { return d.Nodes }
func (*Delete) node()              {}

type SortOrder int

const (
	SortDefault SortOrder = iota
	SortAsc
	SortDesc
)

type NullOrder int

const (
	NullsDefault NullOrder = iota
	NullsFirst
	NullsLast
)

// OrderBy is an ORDER BY clause. Nodes holds the whole clause, including the
// keywords, Items the sort items in order.
type OrderBy struct {
	Nodes []Node
	Items []*OrderByItem
}

func (o *OrderBy) String() string   { return nodesString(o.Nodes) }
func (o *OrderBy) Children() []Node { return o.Nodes }
func (*OrderBy) node()              {}

type OrderByItem struct {
	Nodes []Node
	Order SortOrder
	Nulls NullOrder
}

func (o *OrderByItem) String() string   { return nodesString(o.Nodes) }
func (o *OrderByItem) Children() []Node { return o.Nodes }
func (*OrderByItem) node()              {}
