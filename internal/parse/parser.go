// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package parse turns dynamic SQL templates into ast statements.
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

// Level selects how much SQL structure the parser recognises.
type Level int

const (
	// LevelBase only recognises template constructs. Everything else is
	// kept as text.
	LevelBase Level = iota
	// LevelMore also recognises the structure of SELECT, INSERT, UPDATE and
	// DELETE statements.
	LevelMore
)

func (l Level) String() string {
	if l == LevelMore {
		return "more"
	}
	return "base"
}

// ParseLevel returns the level named by s.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "base", "":
		return LevelBase, nil
	case "more":
		return LevelMore, nil
	}
	return 0, errors.Newf("unknown parse level %q", s)
}

// DefaultMaxDepth bounds the nesting of sub-queries, parentheses and
// directives when Config.MaxDepth is not set.
const DefaultMaxDepth = 200

// Config holds the parser settings.
type Config struct {
	Level Level
	// Fallback makes a statement that fails to parse at LevelMore be parsed
	// again at LevelBase instead of returning the syntax error.
	Fallback bool
	MaxDepth int
	Compiler el.Compiler
	Table    *token.Table
	Logger   *zap.Logger
}

// Parser parses templates. It holds no state between calls and is safe for
// concurrent use.
type Parser struct {
	cfg Config
}

// New returns a parser using cfg. Zero fields of cfg take their defaults.
func New(cfg Config) *Parser {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Compiler == nil {
		cfg.Compiler = el.NewCompiler()
	}
	if cfg.Table == nil {
		cfg.Table = token.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Parser{cfg: cfg}
}

func (p *Parser) newCore(input string) *core {
	return &core{
		lx:    lexer.New(strings.TrimSpace(input), p.cfg.Table),
		cfg:   p.cfg,
		log:   p.cfg.Logger,
		level: p.cfg.Level,
	}
}

// Statement parses a template holding exactly one statement. A single
// trailing semicolon is allowed.
func (p *Parser) Statement(input string) (*ast.Statement, error) {
	c := p.newCore(input)
	if err := c.lx.NextToken(); err != nil {
		return nil, err
	}
	if c.token() == token.SEMI {
		return nil, c.syntaxErrorf("the given sql is empty")
	}
	stmt, err := c.parseStatement()
	if err != nil {
		return nil, err
	}
	if c.token() == token.SEMI {
		if err := c.lx.NextToken(); err != nil {
			return nil, err
		}
	}
	if !c.lx.IsEOF() {
		return nil, c.syntaxErrorf("only one sql statement is allowed")
	}
	if stmt.Empty {
		return nil, c.lx.Errorf(lexer.ErrSyntax, 0, "the given sql contains comments only")
	}
	return stmt, nil
}

// Statements parses a template holding any number of statements separated
// by semicolons. Statements holding only comments are dropped.
func (p *Parser) Statements(input string) ([]*ast.Statement, error) {
	c := p.newCore(input)
	if err := c.lx.NextToken(); err != nil {
		return nil, err
	}
	var stmts []*ast.Statement
	for {
		for c.token() == token.SEMI {
			if err := c.lx.NextToken(); err != nil {
				return nil, err
			}
		}
		if c.lx.IsEOF() {
			return stmts, nil
		}
		stmt, err := c.parseStatement()
		if err != nil {
			return nil, err
		}
		if !stmt.Empty {
			stmts = append(stmts, stmt)
		}
	}
}

// OrderBy parses a stand-alone ORDER BY clause, such as one supplied by a
// caller to replace the ordering of a query.
func (p *Parser) OrderBy(input string) (*ast.OrderBy, error) {
	c := p.newCore(input)
	c.typ = ast.TypeSelect
	if err := c.lx.NextToken(); err != nil {
		return nil, err
	}
	if err := c.expect(token.ORDER); err != nil {
		return nil, err
	}
	ob, ok, err := orderByParser{c}.parse()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, c.syntaxErrorf("expect BY, but got %s", c.describeToken())
	}
	if !c.lx.IsEOS() {
		return nil, c.syntaxErrorf("unexpected %s after order by", c.describeToken())
	}
	return ob, nil
}
