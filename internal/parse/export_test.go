package parse

import (
	"github.com/cockroachdb/errors"

	"github.com/canonical/dynsql/internal/ast"
)

// ParseAfterRollback parses the whole of input inside a save point, rolls
// it back and then parses the statement for real.
func ParseAfterRollback(p *Parser, input string) (*ast.Statement, error) {
	c := p.newCore(input)
	if err := c.lx.NextToken(); err != nil {
		return nil, err
	}
	start := c.lx.Pos()
	c.createSavePoint()
	if err := c.parseRest(); err != nil {
		return nil, err
	}
	c.restoreSavePoint()
	if len(c.nodes) != 0 || len(c.suspended) != 0 || c.jdbcIndex != 0 || c.lx.Pos() != start {
		return nil, errors.New("rolled back parse left state behind")
	}
	return c.parseStatement()
}
