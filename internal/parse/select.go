package parse

import (
	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/token"
)

type selectParser struct {
	c *core
}

// parseStatement parses a SELECT statement together with any UNION or
// MINUS queries following it.
func (p selectParser) parseStatement() error {
	if _, err := p.parseSelect(); err != nil {
		return err
	}
	return p.parseUnion()
}

// parseUnion parses the queries combined with the one just parsed.
func (p selectParser) parseUnion() error {
	c := p.c
	for {
		switch c.token() {
		case token.UNION:
			if err := c.acceptText(); err != nil {
				return err
			}
			if c.token() == token.ALL || c.token() == token.DISTINCT {
				if err := c.acceptText(); err != nil {
					return err
				}
			}
		case token.MINUS:
			if err := c.acceptText(); err != nil {
				return err
			}
		default:
			return nil
		}
		if _, err := p.parseSelect(); err != nil {
			return err
		}
	}
}

// parseSelect parses one query, possibly in parentheses, and adds it to
// the current buffer.
func (p selectParser) parseSelect() (*ast.Select, error) {
	c := p.c
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	if c.token() == token.LPAREN {
		if err := c.acceptText(); err != nil {
			return nil, err
		}
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if err := p.parseUnion(); err != nil {
			return nil, err
		}
		return sel, c.accept(token.RPAREN)
	}

	c.selects++
	defer func() { c.selects-- }()
	sel := &ast.Select{}
	c.suspendNodes()
	if err := c.accept(token.SELECT); err != nil {
		return nil, err
	}
	if err := p.parseSelectHead(sel); err != nil {
		return nil, err
	}
	if err := p.parseSelectList(sel); err != nil {
		return nil, err
	}
	q := queryParser{c}
	if c.token() == token.FROM {
		if err := c.acceptText(); err != nil {
			return nil, err
		}
		if err := q.parseTableSource(sel); err != nil {
			return nil, err
		}
		if err := q.parseJoins(sel); err != nil {
			return nil, err
		}
		w, err := q.parseWhere()
		if err != nil {
			return nil, err
		}
		sel.Where = w
	}
	if err := q.parseQueryBodyRest(); err != nil {
		return nil, err
	}
	sel.Nodes = c.restoreNodes()
	c.addNode(sel)
	return sel, nil
}

// parseSelectHead parses DISTINCT, ALL and TOP n [PERCENT].
func (p selectParser) parseSelectHead(sel *ast.Select) error {
	c := p.c
	switch c.token() {
	case token.DISTINCT:
		sel.Distinct = true
		if err := c.acceptText(); err != nil {
			return err
		}
	case token.ALL:
		if err := c.acceptText(); err != nil {
			return err
		}
	}
	if c.token() != token.TOP {
		return nil
	}
	start := c.lx.TokenStart()
	c.createSavePoint()
	if err := c.nextToken(); err != nil {
		return err
	}
	if c.token() != token.LITERAL_INT {
		// A column named top.
		c.restoreSavePoint()
		return nil
	}
	n, err := c.lx.IntValue()
	if err != nil {
		return err
	}
	c.removeSavePoint()
	top := &ast.Top{Text: c.lx.Slice(start, c.lx.Pos()), N: n}
	sel.Top = top
	if err := c.acceptNode(top); err != nil {
		return err
	}
	if c.isWord("percent") {
		top.Percent = true
		return c.acceptText()
	}
	return nil
}

func (p selectParser) parseSelectList(sel *ast.Select) error {
	c := p.c
	c.suspendNodes()
	c.pushScope(ast.ScopeSelectList)
	for {
		if err := p.parseSelectItem(sel); err != nil {
			return err
		}
		if c.token() != token.COMMA {
			break
		}
		if err := c.acceptText(); err != nil {
			return err
		}
	}
	c.popScope()
	sel.SelectList = &ast.SelectList{Nodes: c.restoreNodes()}
	c.addNode(sel.SelectList)
	return nil
}

func (p selectParser) parseSelectItem(sel *ast.Select) error {
	c := p.c
	if c.token() == token.STAR {
		return c.acceptNode(&ast.AllColumns{})
	}
	ok, err := exprParser{c}.parseExpr()
	if err != nil {
		return err
	}
	if !ok {
		switch tok := c.token(); {
		case tok == token.FROM, tok == token.COMMA, tok == token.RPAREN, c.lx.IsEOS():
			return nil
		case tok == token.DYNAMIC:
			if _, err := c.parseSpecialToken(); err != nil {
				return err
			}
		default:
			if err := c.acceptText(); err != nil {
				return err
			}
		}
	}
	return p.parseItemAlias(sel)
}

// selectListEnd holds the keywords that can not be the alias of a select
// item.
var selectListEnd = map[token.Token]bool{
	token.FROM: true, token.INTO: true, token.WHERE: true, token.UNION: true,
	token.MINUS: true, token.ORDER: true, token.GROUP: true, token.LIMIT: true,
	token.HAVING: true, token.FOR: true, token.OFFSET: true, token.AND: true,
	token.OR: true, token.END: true,
}

func (p selectParser) parseItemAlias(sel *ast.Select) error {
	c := p.c
	tok := c.token()
	if tok == token.AS {
		if err := c.acceptText(); err != nil {
			return err
		}
		if !c.token().IsKeywordOrIdentifier() && c.token() != token.LITERAL_CHARS {
			return c.syntaxErrorf("expect alias, but got %s", c.describeToken())
		}
		sel.ItemAliases = append(sel.ItemAliases, c.lx.Literal())
		return c.acceptText()
	}
	if tok.IsIdentifier() || tok == token.LITERAL_CHARS || (tok.IsKeyword() && !reserved[tok] && !selectListEnd[tok]) {
		sel.ItemAliases = append(sel.ItemAliases, c.lx.Literal())
		return c.acceptText()
	}
	return nil
}
