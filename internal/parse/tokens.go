package parse

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/lexer"
	"github.com/canonical/dynsql/internal/token"
)

// parseRest parses the remaining tokens of the statement without looking
// for any structure beyond single tokens.
func (c *core) parseRest() error {
	for !c.lx.IsEOS() {
		if err := c.parseToken(); err != nil {
			return err
		}
	}
	return nil
}

// parseRestStopAt is parseRest ending at any of stops. It reports whether
// one of them was found before the end of the statement.
func (c *core) parseRestStopAt(stops ...token.Token) (bool, error) {
	for {
		if slices.Contains(stops, c.token()) {
			return true, nil
		}
		if c.lx.IsEOS() {
			return false, nil
		}
		if err := c.parseToken(); err != nil {
			return false, err
		}
	}
}

func (c *core) parseToken() error {
	ok, err := c.parseSpecialToken()
	if err != nil || ok {
		return err
	}
	return c.parseSqlToken()
}

// parseSpecialToken parses a placeholder, replacement or directive at the
// current token. It reports false if the token is none of those.
func (c *core) parseSpecialToken() (bool, error) {
	switch tok := c.token(); tok {
	case token.DYNAMIC:
		return true, c.parseDynamicClause()
	case token.COLON_PLACEHOLDER, token.SHARP_PLACEHOLDER:
		return true, c.acceptNode(&ast.ParamPlaceholder{Token: tok, Name: c.lx.Literal()})
	case token.JDBC_PLACEHOLDER:
		n := &ast.JdbcPlaceholder{Index: c.jdbcIndex}
		c.jdbcIndex++
		return true, c.acceptNode(n)
	case token.DOLLAR_REPLACEMENT:
		return true, c.acceptNode(&ast.ParamReplacement{Name: c.lx.Literal(), Scope: c.replacementScope()})
	case token.EXPR_PLACEHOLDER:
		e, err := c.compile(c.lx.TokenStart(), c.lx.Literal())
		if err != nil {
			return true, err
		}
		return true, c.acceptNode(&ast.ExprParamPlaceholder{Expr: c.lx.Literal(), Compiled: e})
	case token.EXPR_REPLACEMENT:
		e, err := c.compile(c.lx.TokenStart(), c.lx.Literal())
		if err != nil {
			return true, err
		}
		return true, c.acceptNode(&ast.ExprParamReplacement{Expr: c.lx.Literal(), Compiled: e, Scope: c.replacementScope()})
	case token.AT_IF:
		return true, c.parseIfClause()
	case token.AT_INCLUDE:
		return true, c.parseInclude()
	case token.TAG:
		return true, c.parseTag()
	}
	return false, nil
}

func (c *core) replacementScope() ast.Scope {
	if c.scope() == ast.ScopeOrderBy {
		return ast.ScopeOrderBy
	}
	return ast.ScopeUnknown
}

// parseSqlToken parses a token with no template meaning.
func (c *core) parseSqlToken() error {
	switch tok := c.token(); {
	case tok == token.LITERAL_CHARS:
		return c.parseSqlString(false)
	case tok == token.QUOTED_TEXT:
		return c.acceptNode(&ast.QuotedText{Text: c.lx.Literal()})
	case tok == token.ORDER && (c.typ == ast.TypeSelect || c.selects > 0):
		_, ok, err := orderByParser{c}.parse()
		if err != nil || ok {
			return err
		}
	case c.more() && tok.IsKeywordOrIdentifier() && c.lx.Char() == '.':
		_, err := c.parseObjectName()
		return err
	}
	return c.acceptText()
}

// parseSqlString parses a string literal. Replacements written inside the
// quotes become nodes of their own; when there are none the string is kept
// as text, or as a Literal if asLiteral is set.
func (c *core) parseSqlString(asLiteral bool) error {
	content := c.lx.Literal()
	if !strings.ContainsRune(content, '$') {
		if asLiteral {
			return c.acceptNode(&ast.Literal{Token: token.LITERAL_CHARS, Text: c.lx.TokenText()})
		}
		return c.acceptText()
	}
	base := c.lx.TokenStart() + 1
	c.content = true
	c.appendText("'")
	sl := lexer.NewString(content, c.lx.Table())
	for {
		if err := sl.NextToken(); err != nil {
			return err
		}
		c.appendText(sl.AcceptText())
		switch sl.Token() {
		case token.EOF:
			c.appendText("'")
			return c.nextToken()
		case token.DOLLAR_REPLACEMENT:
			c.addNode(&ast.ParamReplacement{Name: sl.Literal(), Scope: ast.ScopeString})
		case token.EXPR_REPLACEMENT:
			e, err := c.compile(base+sl.TokenStart(), sl.Literal())
			if err != nil {
				return err
			}
			c.addNode(&ast.ExprParamReplacement{Expr: sl.Literal(), Compiled: e, Scope: ast.ScopeString})
		}
	}
}

// scanDottedName reads a name of up to three dotted parts starting at the
// current keyword or identifier. The last part is left as the current
// token. allColumns is set for a name ending in ".*", in which case the
// cursor is left after the star.
func (c *core) scanDottedName() (parts []string, quoted, allColumns bool, err error) {
	parts = []string{c.lx.TokenText()}
	quoted = c.token() == token.QUOTED_IDENTIFIER
	for len(parts) < 3 && c.lx.Char() == '.' {
		next := c.lx.PeekChar(1)
		if next == '*' {
			c.lx.NextChars(2)
			return parts, quoted, true, nil
		}
		if !lexer.IsIdentifierStart(next) && next != '"' && next != '`' {
			break
		}
		c.lx.NextChar()
		if err := c.lx.NextToken(); err != nil {
			return nil, false, false, err
		}
		if !c.token().IsKeywordOrIdentifier() {
			return nil, false, false, c.syntaxErrorf("expect identifier after '.', but got %s", c.describeToken())
		}
		if c.token() == token.QUOTED_IDENTIFIER {
			quoted = true
		}
		parts = append(parts, c.lx.TokenText())
	}
	return parts, quoted, false, nil
}

func newObjectName(scope ast.Scope, quoted bool, parts []string) *ast.ObjectName {
	n := &ast.ObjectName{Scope: scope, Quoted: quoted}
	switch len(parts) {
	case 1:
		n.LastName = parts[0]
	case 2:
		n.FirstName, n.LastName = parts[0], parts[1]
	default:
		n.FirstName, n.SecondaryName, n.LastName = parts[0], parts[1], parts[2]
	}
	return n
}

// parseObjectName parses a possibly dotted name. The result is an
// *ast.ObjectName, or an *ast.AllColumns for alias.*.
func (c *core) parseObjectName() (ast.Node, error) {
	parts, quoted, all, err := c.scanDottedName()
	if err != nil {
		return nil, err
	}
	if all {
		n := &ast.AllColumns{TableAlias: strings.Join(parts, ".")}
		return n, c.acceptNode(n)
	}
	n := newObjectName(c.scope(), quoted, parts)
	return n, c.acceptNode(n)
}

// parseDynamicClause parses {? body [; key:value, ...] }.
func (c *core) parseDynamicClause() error {
	start := c.lx.TokenStart()
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	c.content = true
	c.suspendNodes()
	if err := c.nextToken(); err != nil {
		return err
	}
	clause := &ast.DynamicClause{}
loop:
	for {
		switch c.token() {
		case token.RBRACE:
			break loop
		case token.SEMI:
			if !c.lx.ScanToChar('}') {
				return c.lx.Errorf(lexer.ErrSyntax, start, "unclosed dynamic clause")
			}
			clause.HasParams = true
			clause.RawParams = c.lx.Text()
			params, err := parseClauseParams(clause.RawParams)
			if err != nil {
				return c.lx.Errorf(lexer.ErrSyntax, start, "%s", err)
			}
			clause.Params = params
			if err := c.lx.NextToken(); err != nil {
				return err
			}
			break loop
		case token.EOF:
			return c.lx.Errorf(lexer.ErrSyntax, start, "unclosed dynamic clause")
		}
		if err := c.parseToken(); err != nil {
			return err
		}
	}
	clause.Body = c.restoreNodes()
	return c.acceptNode(clause)
}

// parseClauseParams parses the comma separated key:value pairs of a dynamic
// clause. A key with no value maps to "".
func parseClauseParams(raw string) (map[string]string, error) {
	params := make(map[string]string)
	for _, item := range strings.Split(raw, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		key, value, _ := strings.Cut(item, ":")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.Newf("illegal dynamic clause parameter %q", strings.TrimSpace(item))
		}
		params[key] = strings.TrimSpace(value)
	}
	return params, nil
}

// parseIfClause parses @if(cond) ... [@elseif(cond) ...]* [@else ...] @endif.
func (c *core) parseIfClause() error {
	start := c.lx.TokenStart()
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	c.content = true
	clause := &ast.IfClause{}
	for {
		head, cond, err := c.scanIfHead()
		if err != nil {
			return err
		}
		body, err := c.parseIfBody(start, token.AT_ELSEIF, token.AT_ELSE, token.AT_ENDIF)
		if err != nil {
			return err
		}
		clause.Statements = append(clause.Statements, &ast.IfStatement{Head: head, Condition: cond, Body: body})
		if c.token() != token.AT_ELSEIF {
			break
		}
	}
	if c.token() == token.AT_ELSE {
		head := c.lx.TokenText()
		body, err := c.parseIfBody(start, token.AT_ENDIF)
		if err != nil {
			return err
		}
		clause.Else = &ast.ElseStatement{Head: head, Body: body}
	}
	clause.End = c.lx.TokenText()
	return c.acceptNode(clause)
}

// scanIfHead scans the condition following an @if or @elseif token.
func (c *core) scanIfHead() (string, *ast.IfCondition, error) {
	headStart := c.lx.TokenStart()
	c.lx.SkipWhitespace()
	condPos := c.lx.Pos()
	if err := c.lx.ScanConditionalExpression(); err != nil {
		return "", nil, err
	}
	text := c.lx.Literal()
	compiled, err := c.compile(condPos, text)
	if err != nil {
		return "", nil, err
	}
	return c.lx.Slice(headStart, c.lx.Pos()), &ast.IfCondition{Text: text, Compiled: compiled}, nil
}

// parseIfBody parses the body following a branch head, up to one of stops.
func (c *core) parseIfBody(start int, stops ...token.Token) ([]ast.Node, error) {
	c.suspendNodes()
	if err := c.nextToken(); err != nil {
		return nil, err
	}
	closed, err := c.parseRestStopAt(stops...)
	if err != nil {
		return nil, err
	}
	body := c.restoreNodes()
	if !closed {
		return nil, c.lx.Errorf(lexer.ErrSyntax, start, "unclosed @if statement")
	}
	return body, nil
}

// scanDirectiveArg scans the parenthesised argument of @include or a tag.
// It returns the raw directive text and the argument.
func (c *core) scanDirectiveArg() (string, string, error) {
	start := c.lx.TokenStart()
	c.lx.SkipWhitespace()
	if err := c.lx.ScanConditionalExpression(); err != nil {
		return "", "", err
	}
	return c.lx.Slice(start, c.lx.Pos()), c.lx.Literal(), nil
}

func (c *core) parseInclude() error {
	raw, arg, err := c.scanDirectiveArg()
	if err != nil {
		return err
	}
	return c.acceptNode(&ast.Include{Raw: raw, Name: strings.TrimSpace(arg)})
}

func (c *core) parseTag() error {
	name := c.lx.Literal()
	raw, arg, err := c.scanDirectiveArg()
	if err != nil {
		return err
	}
	return c.acceptNode(&ast.Tag{Raw: raw, Name: name, Content: arg})
}
