package parse

import (
	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/token"
)

type deleteParser struct {
	c *core
}

// parse parses DELETE [FROM] table [alias] [WHERE ...].
func (p deleteParser) parse() error {
	c := p.c
	q := queryParser{c}
	del := &ast.Delete{}
	c.suspendNodes()
	if err := c.accept(token.DELETE); err != nil {
		return err
	}
	if c.token() == token.FROM {
		if err := c.acceptText(); err != nil {
			return err
		}
	}
	if isName(c.token()) {
		t, err := q.parseTableName()
		if err != nil {
			return err
		}
		if t.Alias, err = q.parseTableAlias(); err != nil {
			return err
		}
		del.Table = t
	}
	w, err := q.parseWhere()
	if err != nil {
		return err
	}
	del.Where = w
	if err := q.parseQueryBodyRest(); err != nil {
		return err
	}
	del.Nodes = c.restoreNodes()
	c.addNode(del)
	return nil
}
