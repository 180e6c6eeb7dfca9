// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lexer_test

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	. "gopkg.in/check.v1"

	"github.com/canonical/dynsql/internal/lexer"
	"github.com/canonical/dynsql/internal/token"
)

// Hook up gocheck into the "go test" runner.
func TestPackage(t *testing.T) { TestingT(t) }

type LexerSuite struct{}

var _ = Suite(&LexerSuite{})

type scanned struct {
	tok     token.Token
	literal string
}

// scanAll returns every token of input up to EOF and checks that the
// accepted text and the token text rebuild the input.
func scanAll(c *C, l *lexer.Lexer) []scanned {
	var out []scanned
	var sb strings.Builder
	for {
		err := l.NextToken()
		c.Assert(err, IsNil)
		sb.WriteString(l.AcceptText())
		if l.IsEOF() {
			break
		}
		sb.WriteString(l.TokenText())
		out = append(out, scanned{l.Token(), l.Literal()})
	}
	c.Assert(sb.String(), Equals, l.Input())
	return out
}

var scanTests = []struct {
	summary  string
	input    string
	expected []scanned
}{{
	summary: "simple select with colon placeholder",
	input:   "select * from t where id = :id",
	expected: []scanned{
		{token.SELECT, "select"}, {token.STAR, "*"}, {token.FROM, "from"},
		{token.IDENTIFIER, "t"}, {token.WHERE, "where"}, {token.IDENTIFIER, "id"},
		{token.EQ, "="}, {token.COLON_PLACEHOLDER, "id"},
	},
}, {
	summary: "dotted parameter name",
	input:   "name like :a.b",
	expected: []scanned{
		{token.IDENTIFIER, "name"}, {token.LIKE, "like"}, {token.COLON_PLACEHOLDER, "a.b"},
	},
}, {
	summary: "longest operator match",
	input:   "a<=>b<=c<d->>e->f<>g!=h||i",
	expected: []scanned{
		{token.IDENTIFIER, "a"}, {token.LTEQGT, "<=>"}, {token.IDENTIFIER, "b"},
		{token.LTEQ, "<="}, {token.IDENTIFIER, "c"}, {token.LT, "<"},
		{token.IDENTIFIER, "d"}, {token.SUBGTGT, "->>"}, {token.IDENTIFIER, "e"},
		{token.SUBGT, "->"}, {token.IDENTIFIER, "f"}, {token.LTGT, "<>"},
		{token.IDENTIFIER, "g"}, {token.BANGEQ, "!="}, {token.IDENTIFIER, "h"},
		{token.BARBAR, "||"}, {token.IDENTIFIER, "i"},
	},
}, {
	summary: "casts and assignment are operators",
	input:   "a::int b := 1",
	expected: []scanned{
		{token.IDENTIFIER, "a"}, {token.COLONCOLON, "::"}, {token.IDENTIFIER, "int"},
		{token.IDENTIFIER, "b"}, {token.COLONEQ, ":="}, {token.LITERAL_INT, "1"},
	},
}, {
	summary: "placeholders and replacements",
	input:   "$a$ ${a + 1} #b# #{b.c} ? {? x }",
	expected: []scanned{
		{token.DOLLAR_REPLACEMENT, "a"}, {token.EXPR_REPLACEMENT, "a + 1"},
		{token.SHARP_PLACEHOLDER, "b"}, {token.EXPR_PLACEHOLDER, "b.c"},
		{token.JDBC_PLACEHOLDER, "?"}, {token.DYNAMIC, "{?"},
		{token.IDENTIFIER, "x"}, {token.RBRACE, "}"},
	},
}, {
	summary: "directives and tags",
	input:   "@if(a) @ELSEIF (b) @else @endif @include(f) @tag (x) @@version @var",
	expected: []scanned{
		{token.AT_IF, "if"}, {token.LPAREN, "("}, {token.IDENTIFIER, "a"}, {token.RPAREN, ")"},
		{token.AT_ELSEIF, "ELSEIF"}, {token.LPAREN, "("}, {token.IDENTIFIER, "b"}, {token.RPAREN, ")"},
		{token.AT_ELSE, "else"}, {token.AT_ENDIF, "endif"},
		{token.AT_INCLUDE, "include"}, {token.LPAREN, "("}, {token.IDENTIFIER, "f"}, {token.RPAREN, ")"},
		{token.TAG, "tag"}, {token.LPAREN, "("}, {token.IDENTIFIER, "x"}, {token.RPAREN, ")"},
	},
}, {
	summary: "strings, quoted identifiers and quoted text",
	input:   "'it''s' \"my col\" `t` ```raw ; text```",
	expected: []scanned{
		{token.LITERAL_CHARS, "it''s"}, {token.QUOTED_IDENTIFIER, "my col"},
		{token.QUOTED_IDENTIFIER, "t"}, {token.QUOTED_TEXT, "raw ; text"},
	},
}, {
	summary: "numbers",
	input:   "10 1.5 2e10 3.0E-2 0x1F",
	expected: []scanned{
		{token.LITERAL_INT, "10"}, {token.LITERAL_FLOAT, "1.5"}, {token.LITERAL_FLOAT, "2e10"},
		{token.LITERAL_FLOAT, "3.0E-2"}, {token.LITERAL_HEX, "1F"},
	},
}, {
	summary: "comments",
	input:   "a -- one\n/* two\n */ b // three",
	expected: []scanned{
		{token.IDENTIFIER, "a"}, {token.COMMENT, "-- one"}, {token.COMMENT, "/* two\n */"},
		{token.IDENTIFIER, "b"}, {token.COMMENT, "// three"},
	},
}, {
	summary: "separators and punctuation",
	input:   "f(a, b);g",
	expected: []scanned{
		{token.IDENTIFIER, "f"}, {token.LPAREN, "("}, {token.IDENTIFIER, "a"},
		{token.COMMA, ","}, {token.IDENTIFIER, "b"}, {token.RPAREN, ")"},
		{token.SEMI, ";"}, {token.IDENTIFIER, "g"},
	},
}, {
	summary: "dots, brackets and lone colons are text",
	input:   "t.id [x] a : b",
	expected: []scanned{
		{token.IDENTIFIER, "t"}, {token.IDENTIFIER, "id"}, {token.IDENTIFIER, "x"},
		{token.IDENTIFIER, "a"}, {token.IDENTIFIER, "b"},
	},
}, {
	summary: "unicode identifiers",
	input:   "select naïve from ß",
	expected: []scanned{
		{token.SELECT, "select"}, {token.IDENTIFIER, "naïve"}, {token.FROM, "from"},
		{token.IDENTIFIER, "ß"},
	},
}}

func (s *LexerSuite) TestScan(c *C) {
	for i, t := range scanTests {
		c.Logf("test %d: %s", i, t.summary)
		got := scanAll(c, lexer.New(t.input, nil))
		c.Check(got, DeepEquals, t.expected)
	}
}

var errorTests = []struct {
	input string
	err   string
}{
	{"select 'abc", `unclosed string at position 7, "select 'abc"`},
	{"a /* b", `unclosed comment at position 2, "a /\* b"`},
	{`select "a`, `unclosed quoted identifier at position 7, "select \\"a"`},
	{"x ```y", "unclosed quoted text at position 2, .*"},
	{"where a = $b", `unclosed parameter, expect '\$' at position 10, .*`},
	{"where a = $$", "parameter name can not be empty at position 10, .*"},
	{"where a = $b c$", "illegal parameter character ' ' at position 12, .*"},
	{"where a = ${b", `unclosed expression, expect '}' at position 10, .*`},
	{"where a = #{ }", "expression can not be empty at position 10, .*"},
	{"where a = :(", `illegal parameter character '\(' at position 11, .*`},
	{"select 12ab", "illegal number literal at position 7, .*"},
	{"select 0xZ", "illegal hex literal at position 7, .*"},
}

func (s *LexerSuite) TestScanErrors(c *C) {
	for _, t := range errorTests {
		l := lexer.New(t.input, nil)
		var err error
		for err == nil && !l.IsEOF() {
			err = l.NextToken()
		}
		c.Assert(err, ErrorMatches, t.err, Commentf("input %q", t.input))
		c.Assert(errors.Is(err, lexer.ErrLexical), Equals, true)
	}
}

func (s *LexerSuite) TestNextTokenAfterEOF(c *C) {
	l := lexer.New("a", nil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.IsEOF(), Equals, true)
	err := l.NextToken()
	c.Assert(err, ErrorMatches, "next token requested after end of input.*")
	c.Assert(errors.HasAssertionFailure(err), Equals, true)
}

func (s *LexerSuite) TestSnapshotRestore(c *C) {
	l := lexer.New("select a, b from t", nil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.AcceptText(), Equals, " ")

	before := l.Snapshot()
	nested := before
	for i := 0; i < 3; i++ {
		c.Assert(l.NextToken(), IsNil)
		if i == 0 {
			nested = l.Snapshot()
		}
	}
	c.Assert(l.Token(), Equals, token.FROM)

	l.Restore(nested)
	c.Assert(l.Token(), Equals, token.COMMA)
	l.Restore(before)
	c.Assert(l.Snapshot(), Equals, before)
	c.Assert(l.Token(), Equals, token.IDENTIFIER)
	c.Assert(l.TokenText(), Equals, "a")
	c.Assert(l.PrevToken(), Equals, token.SELECT)
}

func (s *LexerSuite) TestScanConditionalExpression(c *C) {
	l := lexer.New("@if(f(a) == ')' ) x", nil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.Token(), Equals, token.AT_IF)
	c.Assert(l.ScanConditionalExpression(), IsNil)
	c.Assert(l.Literal(), Equals, "f(a) == ')' ")
	c.Assert(l.Char(), Equals, ' ')

	l = lexer.New("@if(a", nil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.ScanConditionalExpression(), ErrorMatches, `unclosed condition, expect '\)' at position 3, .*`)

	l = lexer.New("@if( )", nil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.ScanConditionalExpression(), ErrorMatches, "expression can not be empty at position 3, .*")
}

func (s *LexerSuite) TestScanToChar(c *C) {
	l := lexer.New("{? a ; k:v } tail", nil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.Token(), Equals, token.SEMI)
	c.Assert(l.ScanToChar('}'), Equals, true)
	c.Assert(l.Text(), Equals, " k:v ")
	c.Assert(l.NextToken(), IsNil)
	c.Assert(l.Token(), Equals, token.RBRACE)
	c.Assert(l.ScanToChar('}'), Equals, false)
}

func (s *LexerSuite) TestPeek(c *C) {
	l := lexer.New("ab  (", nil)
	c.Assert(l.Char(), Equals, 'a')
	c.Assert(l.PeekChar(1), Equals, 'b')
	c.Assert(l.PeekChar(4), Equals, '(')
	c.Assert(l.PeekChar(5), Equals, lexer.EOI)
	l.NextChars(2)
	c.Assert(l.PeekCharSkipWhitespace(), Equals, '(')
	l.NextChars(10)
	c.Assert(l.Char(), Equals, lexer.EOI)
	c.Assert(l.PeekCharSkipWhitespace(), Equals, lexer.EOI)
}

func (s *LexerSuite) TestDescribePosition(c *C) {
	input := "select a, b, c from some_table where x = 1"
	c.Assert(lexer.DescribePosition(input, 20), Equals, `position 20, "t a, b, c from some_table where x ="`)
	c.Assert(lexer.DescribePosition("a\nb", 1), Equals, `position 1, "a b"`)
}

func (s *LexerSuite) TestStringLexer(c *C) {
	tests := []struct {
		content  string
		expected []scanned
	}{
		{"%$col3$%", []scanned{{token.DOLLAR_REPLACEMENT, "col3"}}},
		{"a${name}$b", []scanned{{token.EXPR_REPLACEMENT, "name"}}},
		{"$$a", nil},
		{"a$$", nil},
		{"$$$a$", []scanned{{token.DOLLAR_REPLACEMENT, "a"}}},
		{"${", nil},
		{"$${", nil},
		{"$$$${a}", []scanned{{token.EXPR_REPLACEMENT, "a"}}},
		{"cost $ 5 and $ 6", nil},
		{"it''s :x #y#", nil},
	}
	for _, t := range tests {
		got := scanAll(c, lexer.NewString(t.content, nil))
		c.Check(got, DeepEquals, t.expected, Commentf("content %q", t.content))
	}
}
