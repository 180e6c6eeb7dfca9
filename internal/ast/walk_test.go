package ast_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/token"
)

func TestPackage(t *testing.T) { TestingT(t) }

type WalkSuite struct{}

var _ = Suite(&WalkSuite{})

func testStatement() *ast.Statement {
	return &ast.Statement{
		Type: ast.TypeSelect,
		Nodes: []ast.Node{
			ast.NewText("select * from t where 1 = 1 "),
			&ast.DynamicClause{
				Body: []ast.Node{
					ast.NewText(" and a = "),
					&ast.ParamPlaceholder{Token: token.COLON_PLACEHOLDER, Name: "a"},
				},
				Params:    map[string]string{"nullable": "true"},
				RawParams: " nullable:true",
				HasParams: true,
			},
			&ast.Container{Nodes: []ast.Node{
				ast.NewText(" and b = "),
				&ast.ParamPlaceholder{Token: token.SHARP_PLACEHOLDER, Name: "b"},
			}},
		},
	}
}

func (s *WalkSuite) TestString(c *C) {
	stmt := testStatement()
	c.Check(stmt.String(), Equals, "select * from t where 1 = 1 {? and a = :a; nullable:true} and b = #b#")
	c.Check(stmt.Nodes[1].(*ast.DynamicClause).Nullable(), Equals, true)
}

func (s *WalkSuite) TestFindAll(c *C) {
	params := ast.FindAll[*ast.ParamPlaceholder](testStatement().Nodes)
	c.Assert(params, HasLen, 2)
	c.Check(params[0].Name, Equals, "a")
	c.Check(params[1].Name, Equals, "b")

	c.Check(ast.FindAll[*ast.Include](testStatement().Nodes), HasLen, 0)
}

func (s *WalkSuite) TestFindFirst(c *C) {
	clause, ok := ast.FindFirst[*ast.DynamicClause](testStatement().Nodes)
	c.Assert(ok, Equals, true)
	c.Check(clause.Body, HasLen, 2)

	_, ok = ast.FindFirst[*ast.Tag](testStatement().Nodes)
	c.Check(ok, Equals, false)
}

func (s *WalkSuite) TestInspectSkipsChildren(c *C) {
	var seen []string
	ast.Inspect(testStatement().Nodes, func(n ast.Node) bool {
		if _, ok := n.(*ast.DynamicClause); ok {
			seen = append(seen, "clause")
			return false
		}
		if p, ok := n.(*ast.ParamPlaceholder); ok {
			seen = append(seen, p.Name)
		}
		return true
	})
	c.Check(seen, DeepEquals, []string{"clause", "b"})
}
