package parse

import (
	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/token"
)

type insertParser struct {
	c *core
}

// parse parses INSERT [INTO] table [(columns)] VALUES (values) or an
// INSERT ... SELECT. Column and value lists that can not be parsed are kept
// as text.
func (p insertParser) parse() error {
	c := p.c
	ins := &ast.Insert{}
	c.suspendNodes()
	if err := c.accept(token.INSERT); err != nil {
		return err
	}
	if c.token() == token.INTO {
		if err := c.acceptText(); err != nil {
			return err
		}
	}
	if isName(c.token()) {
		t, err := queryParser{c}.parseTableName()
		if err != nil {
			return err
		}
		ins.Table = t
		if err := p.parseColumns(ins); err != nil {
			return err
		}
	}
	switch c.token() {
	case token.VALUES:
		if err := p.parseValues(ins); err != nil {
			return err
		}
	case token.SELECT, token.LPAREN:
		if err := (selectParser{c}).parseStatement(); err != nil {
			return err
		}
	}
	if err := c.parseRest(); err != nil {
		return err
	}
	ins.Nodes = c.restoreNodes()
	c.addNode(ins)
	return nil
}

func (p insertParser) parseColumns(ins *ast.Insert) error {
	c := p.c
	if c.token() != token.LPAREN {
		return nil
	}
	c.createSavePoint()
	if err := c.acceptText(); err != nil {
		return err
	}
	var cols []*ast.ObjectName
	for {
		if !isName(c.token()) {
			c.restoreSavePoint()
			return nil
		}
		n, err := c.parseObjectName()
		if err != nil {
			return err
		}
		col, ok := n.(*ast.ObjectName)
		if !ok {
			c.restoreSavePoint()
			return nil
		}
		cols = append(cols, col)
		if c.token() == token.RPAREN {
			break
		}
		if c.token() != token.COMMA {
			c.restoreSavePoint()
			return nil
		}
		if err := c.acceptText(); err != nil {
			return err
		}
	}
	if err := c.acceptText(); err != nil {
		return err
	}
	c.acceptSavePoint()
	ins.Columns = cols
	return nil
}

func (p insertParser) parseValues(ins *ast.Insert) error {
	c := p.c
	c.createSavePoint()
	if err := c.accept(token.VALUES); err != nil {
		return err
	}
	if c.token() != token.LPAREN {
		c.restoreSavePoint()
		return nil
	}
	if err := c.acceptText(); err != nil {
		return err
	}
	var values []ast.Node
	for {
		v, ok, err := exprParser{c}.parseExprNode()
		if err != nil {
			return err
		}
		if !ok {
			c.restoreSavePoint()
			return nil
		}
		values = append(values, v)
		if c.token() == token.RPAREN {
			break
		}
		if c.token() != token.COMMA {
			c.restoreSavePoint()
			return nil
		}
		if err := c.acceptText(); err != nil {
			return err
		}
	}
	if err := c.acceptText(); err != nil {
		return err
	}
	c.acceptSavePoint()
	ins.Values = values
	return nil
}
