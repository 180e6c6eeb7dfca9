package parse

import (
	"go.uber.org/zap"

	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/token"
)

type updateParser struct {
	c *core
}

// parse parses UPDATE table [alias] SET column = value, ... [WHERE ...].
// A statement that does not have this shape is left unparsed, to be kept
// as text.
func (p updateParser) parse() error {
	c := p.c
	c.createSavePoint()
	upd, err := p.parseUpdate()
	if err != nil {
		return err
	}
	if upd == nil {
		c.restoreSavePoint()
		c.log.Debug("update statement not recognised, keeping it as text",
			zap.String("sql", c.lx.Input()))
		return nil
	}
	upd.Nodes = c.removeSavePoint()
	c.addNode(upd)
	return nil
}

// parseUpdate returns nil, with no error, if the statement is not a plain
// UPDATE ... SET.
func (p updateParser) parseUpdate() (*ast.Update, error) {
	c := p.c
	q := queryParser{c}
	if err := c.accept(token.UPDATE); err != nil {
		return nil, err
	}
	if !isName(c.token()) {
		return nil, nil
	}
	upd := &ast.Update{}
	t, err := q.parseTableName()
	if err != nil {
		return nil, err
	}
	if t.Alias, err = q.parseTableAlias(); err != nil {
		return nil, err
	}
	upd.Table = t
	if c.token() != token.SET {
		return nil, nil
	}
	if err := c.acceptText(); err != nil {
		return nil, err
	}
	for {
		dynamic, err := p.parseDynamicSets()
		if err != nil {
			return nil, err
		}
		if !isName(c.token()) {
			if dynamic && (c.token() == token.WHERE || c.lx.IsEOS()) {
				break
			}
			return nil, nil
		}
		n, err := c.parseObjectName()
		if err != nil {
			return nil, err
		}
		col, ok := n.(*ast.ObjectName)
		if !ok || c.token() != token.EQ {
			return nil, nil
		}
		if err := c.acceptText(); err != nil {
			return nil, err
		}
		value, ok, err := exprParser{c}.parseExprNode()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		upd.Sets = append(upd.Sets, &ast.SetItem{Column: col, Value: value})
		if _, err := p.parseDynamicSets(); err != nil {
			return nil, err
		}
		if c.token() != token.COMMA {
			break
		}
		if err := c.acceptText(); err != nil {
			return nil, err
		}
	}
	if upd.Where, err = q.parseWhere(); err != nil {
		return nil, err
	}
	if err := q.parseQueryBodyRest(); err != nil {
		return nil, err
	}
	return upd, nil
}

// parseDynamicSets parses the dynamic clauses found between SET items, such
// as the {?, b = :b} of "set a = :a {?, b = :b}". It reports whether there
// were any.
func (p updateParser) parseDynamicSets() (bool, error) {
	c := p.c
	found := false
	for c.token() == token.DYNAMIC {
		if err := c.parseDynamicClause(); err != nil {
			return found, err
		}
		found = true
	}
	return found, nil
}
