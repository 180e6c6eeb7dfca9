package parse

import (
	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/token"
)

// queryParser parses the clauses shared by SELECT, UPDATE and DELETE: table
// sources, WHERE and whatever follows it.
type queryParser struct {
	c *core
}

// whereNames are keywords taken as column names in a WHERE clause.
var whereNames = map[token.Token]bool{
	token.WHEN:   true,
	token.TOP:    true,
	token.DELETE: true,
	token.END:    true,
}

// parseTableName parses a possibly dotted table name. The alias is not
// parsed.
func (q queryParser) parseTableName() (*ast.TableName, error) {
	c := q.c
	parts, quoted, all, err := c.scanDottedName()
	if err != nil {
		return nil, err
	}
	if all {
		return nil, c.syntaxErrorf("expect table name, but got '*'")
	}
	n := &ast.TableName{ObjectName: *newObjectName(c.scope(), quoted, parts)}
	return n, c.acceptNode(n)
}

// parseTableAlias parses [AS] alias after a table source.
func (q queryParser) parseTableAlias() (string, error) {
	c := q.c
	if c.token() == token.AS {
		if err := c.acceptText(); err != nil {
			return "", err
		}
		if !c.token().IsKeywordOrIdentifier() {
			return "", c.syntaxErrorf("expect alias, but got %s", c.describeToken())
		}
		alias := c.lx.TokenText()
		return alias, c.acceptText()
	}
	if !c.token().IsIdentifier() || c.isJoinWord() {
		return "", nil
	}
	alias := c.lx.TokenText()
	return alias, c.acceptText()
}

// isJoinWord reports whether the current token is a join keyword that the
// token table does not know.
func (c *core) isJoinWord() bool {
	return c.isWord("cross") || c.isWord("natural") || c.isWord("straight_join") || c.isWord("using")
}

// parseTableSource parses one table, sub-query or parenthesised join and
// adds it to the tables of sel.
func (q queryParser) parseTableSource(sel *ast.Select) error {
	c := q.c
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	switch tok := c.token(); {
	case tok == token.LPAREN:
		sub, err := c.lookahead(token.LPAREN, token.SELECT)
		if err != nil {
			return err
		}
		if !sub {
			return q.parseJoinedTables(sel)
		}
		if err := c.acceptText(); err != nil {
			return err
		}
		sp := selectParser{c}
		s, err := sp.parseSelect()
		if err != nil {
			return err
		}
		if err := sp.parseUnion(); err != nil {
			return err
		}
		if err := c.accept(token.RPAREN); err != nil {
			return err
		}
		if s.Alias, err = q.parseTableAlias(); err != nil {
			return err
		}
		sel.Tables = append(sel.Tables, s)
	case tok == token.QUOTED_TEXT:
		n := &ast.QuotedText{Text: c.lx.Literal()}
		if err := c.acceptNode(n); err != nil {
			return err
		}
		if _, err := q.parseTableAlias(); err != nil {
			return err
		}
		sel.Tables = append(sel.Tables, n)
	case tok.IsSpecial() && tok != token.DYNAMIC:
		if _, err := c.parseSpecialToken(); err != nil {
			return err
		}
		if _, err := q.parseTableAlias(); err != nil {
			return err
		}
	case isName(tok):
		t, err := q.parseTableName()
		if err != nil {
			return err
		}
		if t.Alias, err = q.parseTableAlias(); err != nil {
			return err
		}
		sel.Tables = append(sel.Tables, t)
	default:
		return c.syntaxErrorf("expect table source, but got %s", c.describeToken())
	}
	return nil
}

// parseJoinedTables parses ( table-source joins ).
func (q queryParser) parseJoinedTables(sel *ast.Select) error {
	c := q.c
	if err := c.accept(token.LPAREN); err != nil {
		return err
	}
	if err := q.parseTableSource(sel); err != nil {
		return err
	}
	if err := q.parseJoins(sel); err != nil {
		return err
	}
	if err := c.accept(token.RPAREN); err != nil {
		return err
	}
	_, err := q.parseTableAlias()
	return err
}

// parseJoins parses the comma and JOIN separated table sources following
// the first one.
func (q queryParser) parseJoins(sel *ast.Select) error {
	c := q.c
	for {
		switch tok := c.token(); {
		case tok == token.COMMA, tok == token.JOIN, c.isWord("straight_join"):
			if err := c.acceptText(); err != nil {
				return err
			}
		case tok == token.LEFT, tok == token.RIGHT, tok == token.FULL, tok == token.INNER,
			c.isWord("cross"), c.isWord("natural"):
			if err := c.acceptText(); err != nil {
				return err
			}
			for c.token() == token.OUTER || c.token() == token.LEFT || c.token() == token.RIGHT ||
				c.token() == token.INNER {
				if err := c.acceptText(); err != nil {
					return err
				}
			}
			if err := c.accept(token.JOIN); err != nil {
				return err
			}
		default:
			return nil
		}
		if err := q.parseTableSource(sel); err != nil {
			return err
		}
		if err := q.parseJoinCondition(); err != nil {
			return err
		}
	}
}

// parseJoinCondition parses ON condition or USING (columns).
func (q queryParser) parseJoinCondition() error {
	c := q.c
	switch {
	case c.token() == token.ON:
		if err := c.acceptText(); err != nil {
			return err
		}
		return exprParser{c}.parseCondition()
	case c.isWord("using"):
		if err := c.acceptText(); err != nil {
			return err
		}
		_, err := exprParser{c}.parsePrimary()
		return err
	}
	return nil
}

// parseWhere parses a WHERE clause. A query with no WHERE gets an empty one.
func (q queryParser) parseWhere() (*ast.Where, error) {
	c := q.c
	if c.token() != token.WHERE {
		w := &ast.Where{}
		c.addNode(w)
		return w, nil
	}
	c.pushScope(ast.ScopeWhere)
	c.suspendNodes()
	if err := c.acceptText(); err != nil {
		return nil, err
	}
	lparens := 0
loop:
	for !c.lx.IsEOS() {
		switch c.token() {
		case token.UNION, token.MINUS, token.LIMIT, token.HAVING, token.FOR:
			break loop
		case token.ORDER, token.GROUP:
			by, err := c.lookahead(c.token(), token.BY)
			if err != nil {
				return nil, err
			}
			if by {
				break loop
			}
		}
		ok, err := q.parseWhereToken(&lparens)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	w := &ast.Where{Nodes: c.restoreNodes()}
	c.popScope()
	c.addNode(w)
	return w, nil
}

// parseWhereToken parses one token of a WHERE clause or of the clauses
// after it. It reports false, consuming nothing, at a closing parenthesis
// that was not opened in the clause.
func (q queryParser) parseWhereToken(lparens *int) (bool, error) {
	c := q.c
	switch tok := c.token(); {
	case tok == token.LPAREN:
		*lparens++
		return true, c.acceptText()
	case tok == token.RPAREN:
		if *lparens == 0 {
			return false, nil
		}
		*lparens--
		return true, c.acceptText()
	case tok == token.IN, tok == token.EXISTS:
		return true, q.parseSubQueryPredicate()
	case tok == token.AND, tok == token.EQ:
		return true, c.acceptNode(&ast.Keyword{Token: tok, Text: c.lx.TokenText()})
	case tok == token.CASE:
		_, err := exprParser{c}.parsePrimary()
		return true, err
	case tok == token.SELECT && c.lx.PrevToken() == token.LPAREN:
		sp := selectParser{c}
		if _, err := sp.parseSelect(); err != nil {
			return true, err
		}
		return true, sp.parseUnion()
	case tok.IsIdentifier() || whereNames[tok]:
		if tok == token.IDENTIFIER && c.lx.PeekCharSkipWhitespace() == '(' {
			return true, c.acceptText()
		}
		_, err := c.parseObjectName()
		return true, err
	case tok == token.LITERAL_CHARS:
		return true, c.parseSqlString(true)
	case tok == token.LITERAL_INT, tok == token.LITERAL_FLOAT, tok == token.LITERAL_HEX:
		return true, c.acceptNode(&ast.Literal{Token: tok, Text: c.lx.TokenText()})
	}
	return true, c.parseToken()
}

// parseSubQueryPredicate parses IN or EXISTS, followed by a sub-query if
// there is one.
func (q queryParser) parseSubQueryPredicate() error {
	c := q.c
	if err := c.acceptText(); err != nil {
		return err
	}
	sub, err := c.lookahead(token.LPAREN, token.SELECT)
	if err != nil || !sub {
		return err
	}
	if err := c.acceptText(); err != nil {
		return err
	}
	sp := selectParser{c}
	if _, err := sp.parseSelect(); err != nil {
		return err
	}
	if err := sp.parseUnion(); err != nil {
		return err
	}
	return c.accept(token.RPAREN)
}

// parseQueryBodyRest parses the clauses following WHERE, such as GROUP BY
// and LIMIT, up to the end of the query.
func (q queryParser) parseQueryBodyRest() error {
	c := q.c
	lparens := 0
	for !c.lx.IsEOS() {
		if c.token() == token.UNION || c.token() == token.MINUS {
			return nil
		}
		ok, err := q.parseWhereToken(&lparens)
		if err != nil || !ok {
			return err
		}
	}
	return nil
}
