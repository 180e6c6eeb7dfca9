package parse

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/el"
	"github.com/canonical/dynsql/internal/lexer"
	"github.com/canonical/dynsql/internal/token"
)

// core is the state shared by the statement parsers while one input is
// parsed. Nodes are appended to the current buffer; parsers that build a
// composite node suspend the buffer, parse into a fresh one and wrap the
// result.
type core struct {
	lx  *lexer.Lexer
	cfg Config
	log *zap.Logger

	level      Level
	typ        ast.Type
	nodes      []ast.Node
	suspended  [][]ast.Node
	savePoints []savePoint
	scopes     []ast.Scope

	depth     int
	selects   int
	jdbcIndex int
	// content is set once a token other than a comment has been accepted.
	content bool
}

// savePoint allows a speculative parse to be undone.
type savePoint struct {
	snapshot  lexer.Snapshot
	jdbcIndex int
	scopes    int
}

// parseStatement parses one statement starting at the current token and
// stops at the end of the statement.
func (c *core) parseStatement() (*ast.Statement, error) {
	start := c.lx.Snapshot()
	c.resetStatement()
	err := c.parseStatementBody(c.cfg.Level)
	if err != nil && c.cfg.Fallback && c.cfg.Level == LevelMore && errors.Is(err, lexer.ErrSyntax) {
		c.log.Debug("statement not understood, parsing it as text",
			zap.Int("pos", start.Pos()), zap.Error(err))
		c.lx.Restore(start)
		c.resetStatement()
		err = c.parseStatementBody(LevelBase)
	}
	if err != nil {
		return nil, err
	}
	return &ast.Statement{Type: c.typ, Nodes: c.nodes, Empty: !c.content}, nil
}

func (c *core) resetStatement() {
	c.typ = ast.TypeUnresolved
	c.nodes = nil
	c.suspended = nil
	c.savePoints = nil
	c.scopes = nil
	c.depth = 0
	c.selects = 0
	c.jdbcIndex = 0
	c.content = false
}

func (c *core) parseStatementBody(level Level) error {
	c.level = level
	for c.token() == token.COMMENT {
		if err := c.acceptText(); err != nil {
			return err
		}
	}
	c.typ = statementType(c.token())
	if c.more() {
		var err error
		switch c.typ {
		case ast.TypeSelect:
			err = selectParser{c}.parseStatement()
		case ast.TypeInsert:
			err = insertParser{c}.parse()
		case ast.TypeUpdate:
			err = updateParser{c}.parse()
		case ast.TypeDelete:
			err = deleteParser{c}.parse()
		}
		if err != nil {
			return err
		}
	}
	return c.parseRest()
}

func statementType(tok token.Token) ast.Type {
	switch tok {
	case token.SELECT:
		return ast.TypeSelect
	case token.INSERT:
		return ast.TypeInsert
	case token.UPDATE:
		return ast.TypeUpdate
	case token.DELETE:
		return ast.TypeDelete
	}
	return ast.TypeUnresolved
}

func (c *core) more() bool {
	return c.level == LevelMore
}

func (c *core) token() token.Token {
	return c.lx.Token()
}

// nextToken moves to the next token and keeps the text skipped on the way.
func (c *core) nextToken() error {
	if err := c.lx.NextToken(); err != nil {
		return err
	}
	c.appendText(c.lx.AcceptText())
	return nil
}

// acceptText keeps the current token as text and moves on.
func (c *core) acceptText() error {
	if c.token() != token.COMMENT {
		c.content = true
	}
	c.appendText(c.lx.TokenText())
	return c.nextToken()
}

// acceptNode adds n in place of the current token and moves on.
func (c *core) acceptNode(n ast.Node) error {
	c.content = true
	c.addNode(n)
	return c.nextToken()
}

// addNode adds n to the current buffer. Adjacent text is merged into one
// node.
func (c *core) addNode(n ast.Node) {
	if t, ok := n.(*ast.Text); ok {
		c.appendText(t.String())
		return
	}
	c.nodes = append(c.nodes, n)
}

func (c *core) appendText(text string) {
	if text == "" {
		return
	}
	if n := len(c.nodes); n > 0 {
		if t, ok := c.nodes[n-1].(*ast.Text); ok {
			t.Append(text)
			return
		}
	}
	c.nodes = append(c.nodes, ast.NewText(text))
}

func (c *core) suspendNodes() {
	c.suspended = append(c.suspended, c.nodes)
	c.nodes = nil
}

// restoreNodes returns the current buffer and makes the last suspended one
// current again.
func (c *core) restoreNodes() []ast.Node {
	nodes := c.nodes
	last := len(c.suspended) - 1
	c.nodes = c.suspended[last]
	c.suspended = c.suspended[:last]
	return nodes
}

// createSavePoint starts a speculative parse. It must be ended by exactly
// one of restoreSavePoint, acceptSavePoint or removeSavePoint.
func (c *core) createSavePoint() {
	c.savePoints = append(c.savePoints, savePoint{
		snapshot:  c.lx.Snapshot(),
		jdbcIndex: c.jdbcIndex,
		scopes:    len(c.scopes),
	})
	c.suspendNodes()
}

func (c *core) popSavePoint() savePoint {
	last := len(c.savePoints) - 1
	sp := c.savePoints[last]
	c.savePoints = c.savePoints[:last]
	return sp
}

// restoreSavePoint undoes everything parsed since the save point.
func (c *core) restoreSavePoint() {
	sp := c.popSavePoint()
	c.lx.Restore(sp.snapshot)
	c.jdbcIndex = sp.jdbcIndex
	c.scopes = c.scopes[:sp.scopes]
	c.restoreNodes()
}

// acceptSavePoint keeps what was parsed since the save point.
func (c *core) acceptSavePoint() {
	c.popSavePoint()
	for _, n := range c.restoreNodes() {
		c.addNode(n)
	}
}

// removeSavePoint keeps the position reached since the save point but
// returns the nodes parsed meanwhile instead of adding them.
func (c *core) removeSavePoint() []ast.Node {
	c.popSavePoint()
	return c.restoreNodes()
}

// lookahead reports whether the next tokens are toks. The position is left
// unchanged.
func (c *core) lookahead(toks ...token.Token) (bool, error) {
	c.createSavePoint()
	defer c.restoreSavePoint()
	for _, tok := range toks {
		if c.lx.IsEOS() || c.token() != tok {
			return false, nil
		}
		if err := c.nextToken(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (c *core) pushScope(s ast.Scope) {
	c.scopes = append(c.scopes, s)
}

func (c *core) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *core) scope() ast.Scope {
	if len(c.scopes) == 0 {
		return ast.ScopeUnknown
	}
	return c.scopes[len(c.scopes)-1]
}

// enter guards against inputs nested deeply enough to exhaust the stack.
// Each successful call must be paired with leave.
func (c *core) enter() error {
	if c.depth >= c.cfg.MaxDepth {
		return c.syntaxErrorf("nesting deeper than %d levels", c.cfg.MaxDepth)
	}
	c.depth++
	return nil
}

func (c *core) leave() {
	c.depth--
}

func (c *core) errorPos() int {
	if pos := c.lx.TokenStart(); pos >= 0 {
		return pos
	}
	return c.lx.Pos()
}

func (c *core) syntaxErrorf(format string, args ...any) error {
	return c.lx.Errorf(lexer.ErrSyntax, c.errorPos(), format, args...)
}

func (c *core) describeToken() string {
	if c.lx.IsEOF() {
		return "EOF"
	}
	return "'" + c.lx.TokenText() + "'"
}

func (c *core) expect(tok token.Token) error {
	if c.token() != tok {
		return c.syntaxErrorf("expect %s, but got %s", tok, c.describeToken())
	}
	return nil
}

// accept expects tok and keeps it as text.
func (c *core) accept(tok token.Token) error {
	if err := c.expect(tok); err != nil {
		return err
	}
	return c.acceptText()
}

func (c *core) compile(pos int, text string) (el.Expression, error) {
	e, err := c.cfg.Compiler.Compile(strings.TrimSpace(text))
	if err != nil {
		err = errors.Wrapf(err, "cannot compile expression %q at %s", text, c.lx.DescribePosition(pos))
		return nil, errors.Mark(err, lexer.ErrExpression)
	}
	return e, nil
}
