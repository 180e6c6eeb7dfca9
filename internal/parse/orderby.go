package parse

import (
	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/token"
)

type orderByParser struct {
	c *core
}

// parse parses an ORDER BY clause at the current ORDER token and adds it to
// the current buffer. It reports false, consuming nothing, if ORDER is not
// followed by BY.
func (p orderByParser) parse() (*ast.OrderBy, bool, error) {
	c := p.c
	c.createSavePoint()
	if err := c.accept(token.ORDER); err != nil {
		return nil, false, err
	}
	if c.token() != token.BY {
		c.restoreSavePoint()
		return nil, false, nil
	}
	if err := c.acceptText(); err != nil {
		return nil, false, err
	}
	ob := &ast.OrderBy{}
	c.pushScope(ast.ScopeOrderBy)
	for {
		item, err := p.parseItem()
		if err != nil {
			return nil, false, err
		}
		ob.Items = append(ob.Items, item)
		if c.token() != token.COMMA {
			break
		}
		if err := c.acceptText(); err != nil {
			return nil, false, err
		}
	}
	c.popScope()
	ob.Nodes = c.removeSavePoint()
	c.addNode(ob)
	return ob, true, nil
}

func (p orderByParser) parseItem() (*ast.OrderByItem, error) {
	c := p.c
	c.suspendNodes()
	item := &ast.OrderByItem{}
	if err := p.parseSortKey(); err != nil {
		return nil, err
	}
	switch c.token() {
	case token.ASC:
		item.Order = ast.SortAsc
		if err := c.acceptText(); err != nil {
			return nil, err
		}
	case token.DESC:
		item.Order = ast.SortDesc
		if err := c.acceptText(); err != nil {
			return nil, err
		}
	}
	if c.token() == token.NULLS {
		c.createSavePoint()
		if err := c.acceptText(); err != nil {
			return nil, err
		}
		switch c.token() {
		case token.FIRST:
			item.Nulls = ast.NullsFirst
		case token.LAST:
			item.Nulls = ast.NullsLast
		}
		if item.Nulls == ast.NullsDefault {
			c.restoreSavePoint()
		} else {
			if err := c.acceptText(); err != nil {
				return nil, err
			}
			c.acceptSavePoint()
		}
	}
	item.Nodes = c.restoreNodes()
	c.addNode(item)
	return item, nil
}

// parseSortKey parses the expression an item sorts by. A plain column name
// becomes an ObjectName; anything more is parsed as an expression.
func (p orderByParser) parseSortKey() error {
	c := p.c
	if isName(c.token()) {
		c.createSavePoint()
		if _, err := c.parseObjectName(); err != nil {
			return err
		}
		if c.token() != token.LPAREN && !c.token().IsOperator() {
			c.acceptSavePoint()
			return nil
		}
		c.restoreSavePoint()
	}
	ok, err := exprParser{c}.parseExpr()
	if err != nil {
		return err
	}
	if !ok {
		return c.syntaxErrorf("expect order by item, but got %s", c.describeToken())
	}
	return nil
}
