package parse

import (
	"strings"

	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/lexer"
	"github.com/canonical/dynsql/internal/token"
)

// reserved holds the keywords that can not be used as a name without
// quoting. Other keywords, such as WHEN or LIMIT, are names where a name is
// expected.
var reserved = map[token.Token]bool{
	token.SELECT: true, token.FROM: true, token.WHERE: true, token.AS: true,
	token.ALL: true, token.DISTINCT: true, token.JOIN: true, token.LEFT: true,
	token.RIGHT: true, token.FULL: true, token.INNER: true, token.OUTER: true,
	token.ON: true, token.AND: true, token.OR: true, token.NOT: true,
	token.IS: true, token.IN: true, token.EXISTS: true, token.LIKE: true,
	token.BETWEEN: true, token.CASE: true, token.THEN: true, token.ELSE: true,
	token.BY: true, token.HAVING: true, token.UNION: true, token.MINUS: true,
	token.INTO: true, token.VALUES: true, token.SET: true, token.ASC: true,
	token.DESC: true, token.NULLS: true, token.FOR: true,
}

// isName reports whether tok may start an object name.
func isName(tok token.Token) bool {
	return tok.IsIdentifier() || (tok.IsKeyword() && !reserved[tok])
}

// isWord reports whether tok is the plain identifier word, in any case.
func (c *core) isWord(word string) bool {
	return c.token() == token.IDENTIFIER && strings.EqualFold(c.lx.TokenText(), word)
}

// exprParser parses SQL value expressions. It is tolerant: it stops at the
// first token it does not understand and leaves it to the caller.
type exprParser struct {
	c *core
}

// parseExpr parses operands joined by operators. It reports whether
// anything was consumed.
func (p exprParser) parseExpr() (bool, error) {
	c := p.c
	if err := c.enter(); err != nil {
		return false, err
	}
	defer c.leave()
	progressed := false
	for {
		ok, err := p.parsePrimary()
		if err != nil || !ok {
			return progressed, err
		}
		progressed = true
		if err := p.parsePredicateRest(); err != nil {
			return true, err
		}
		if !c.token().IsOperator() {
			return true, nil
		}
		if err := c.acceptText(); err != nil {
			return true, err
		}
	}
}

// parsePredicateRest parses IS [NOT] x, [NOT] IN (...) and
// [NOT] BETWEEN x AND y following an operand.
func (p exprParser) parsePredicateRest() error {
	c := p.c
	for {
		switch c.token() {
		case token.IS:
			if err := c.acceptText(); err != nil {
				return err
			}
			if c.token() == token.NOT {
				if err := c.acceptText(); err != nil {
					return err
				}
			}
			if _, err := p.parsePrimary(); err != nil {
				return err
			}
		case token.NOT:
			if err := c.acceptText(); err != nil {
				return err
			}
		case token.IN:
			if err := c.acceptText(); err != nil {
				return err
			}
			if _, err := p.parsePrimary(); err != nil {
				return err
			}
		case token.BETWEEN:
			if err := c.acceptText(); err != nil {
				return err
			}
			if _, err := p.parsePrimary(); err != nil {
				return err
			}
			if err := c.accept(token.AND); err != nil {
				return err
			}
			if _, err := p.parsePrimary(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// parsePrimary parses one operand. It reports false, having consumed
// nothing, if the current token can not start one.
func (p exprParser) parsePrimary() (bool, error) {
	c := p.c
	switch tok := c.token(); {
	case tok == token.LPAREN:
		return true, p.parseParens()
	case tok == token.CASE:
		switch c.lx.PeekCharSkipWhitespace() {
		case ')', ',', lexer.EOI:
			_, err := c.parseObjectName()
			return true, err
		}
		return true, p.parseCase()
	case isPrefix(tok):
		// A run of prefix operators is consumed here so that it does not
		// recurse once per operator.
		for isPrefix(c.token()) {
			if err := c.acceptText(); err != nil {
				return true, err
			}
		}
		_, err := p.parsePrimary()
		return true, err
	case tok.IsSpecial() && tok != token.DYNAMIC:
		_, err := c.parseSpecialToken()
		return true, err
	case tok == token.LITERAL_CHARS:
		return true, c.parseSqlString(true)
	case tok == token.QUOTED_TEXT:
		return true, c.acceptNode(&ast.QuotedText{Text: c.lx.Literal()})
	case tok.IsLiteral():
		return true, c.acceptNode(&ast.Literal{Token: tok, Text: c.lx.TokenText()})
	case tok == token.NULL, tok == token.TRUE, tok == token.FALSE, tok == token.STAR:
		return true, c.acceptText()
	case tok == token.LEFT, tok == token.RIGHT:
		// left(s, n) and right(s, n) are functions.
		if c.lx.PeekCharSkipWhitespace() != '(' {
			return false, nil
		}
		return true, p.parseFunction()
	case isName(tok):
		if tok == token.IDENTIFIER && c.lx.PeekCharSkipWhitespace() == '(' {
			return true, p.parseFunction()
		}
		_, err := c.parseObjectName()
		return true, err
	}
	return false, nil
}

func isPrefix(tok token.Token) bool {
	switch tok {
	case token.NOT, token.EXISTS, token.SUB, token.PLUS, token.BANG, token.TILDE:
		return true
	}
	return false
}

// parseFunction parses name(args...).
func (p exprParser) parseFunction() error {
	if err := p.c.acceptText(); err != nil {
		return err
	}
	return p.parseParens()
}

// parseParens parses a parenthesised sub-query or expression list.
func (p exprParser) parseParens() error {
	c := p.c
	if err := c.accept(token.LPAREN); err != nil {
		return err
	}
	if c.token() == token.SELECT {
		sp := selectParser{c}
		if _, err := sp.parseSelect(); err != nil {
			return err
		}
		if err := sp.parseUnion(); err != nil {
			return err
		}
	} else if err := p.parseList(); err != nil {
		return err
	}
	return c.accept(token.RPAREN)
}

// parseList parses the content of parentheses up to the closing one. Tokens
// that are not part of an expression, such as the AS of a cast, are kept as
// they are.
func (p exprParser) parseList() error {
	c := p.c
	for {
		switch c.token() {
		case token.RPAREN:
			return nil
		case token.COMMA:
			if err := c.acceptText(); err != nil {
				return err
			}
			continue
		}
		if c.lx.IsEOS() {
			return nil
		}
		ok, err := p.parseExpr()
		if err != nil {
			return err
		}
		if !ok {
			if err := c.parseToken(); err != nil {
				return err
			}
		}
	}
}

// parseCondition parses expressions joined by AND and OR.
func (p exprParser) parseCondition() error {
	c := p.c
	for {
		if _, err := p.parseExpr(); err != nil {
			return err
		}
		if c.token() != token.AND && c.token() != token.OR {
			return nil
		}
		if err := c.acceptText(); err != nil {
			return err
		}
	}
}

// parseCase parses CASE [x] WHEN ... THEN ... [ELSE ...] END.
func (p exprParser) parseCase() error {
	c := p.c
	if err := c.accept(token.CASE); err != nil {
		return err
	}
	if c.token() != token.WHEN {
		if _, err := p.parseExpr(); err != nil {
			return err
		}
	}
	if err := c.expect(token.WHEN); err != nil {
		return err
	}
	for c.token() == token.WHEN {
		if err := c.acceptText(); err != nil {
			return err
		}
		if err := p.parseCondition(); err != nil {
			return err
		}
		if err := c.accept(token.THEN); err != nil {
			return err
		}
		if _, err := p.parseExpr(); err != nil {
			return err
		}
	}
	if c.token() == token.ELSE {
		if err := c.acceptText(); err != nil {
			return err
		}
		if _, err := p.parseExpr(); err != nil {
			return err
		}
	}
	return c.accept(token.END)
}

// parseExprNode parses an expression into a single node, which is also
// added to the current buffer. Space following the expression is left
// outside the node.
func (p exprParser) parseExprNode() (ast.Node, bool, error) {
	c := p.c
	c.suspendNodes()
	ok, err := p.parseExpr()
	nodes := c.restoreNodes()
	if err != nil || !ok {
		for _, n := range nodes {
			c.addNode(n)
		}
		return nil, false, err
	}
	var trailing ast.Node
	if last, isText := nodes[len(nodes)-1].(*ast.Text); isText {
		text := last.String()
		body := strings.TrimRight(text, " \t\r\n")
		switch {
		case body == text:
		case body == "":
			if len(nodes) > 1 {
				nodes, trailing = nodes[:len(nodes)-1], last
			}
		default:
			nodes[len(nodes)-1] = ast.NewText(body)
			trailing = ast.NewText(text[len(body):])
		}
	}
	var n ast.Node = &ast.Container{Nodes: nodes}
	if _, isText := nodes[0].(*ast.Text); len(nodes) == 1 && !isText {
		n = nodes[0]
	}
	c.addNode(n)
	if trailing != nil {
		c.addNode(trailing)
	}
	return n, true, nil
}
