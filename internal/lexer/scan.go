// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lexer

import (
	"strings"
	"unicode"

	"github.com/canonical/dynsql/internal/token"
)

func (l *Lexer) scanToken() error {
	for {
		if l.atEnd() {
			l.setEOF()
			return nil
		}
		ch := l.ch
		switch {
		case unicode.IsSpace(ch):
			l.NextChar()
		case ch == '\'':
			l.startToken(token.LITERAL_CHARS)
			return l.scanString()
		case ch == '-' && l.PeekChar(1) == '-', ch == '/' && l.PeekChar(1) == '/':
			l.startToken(token.COMMENT)
			l.scanLineComment()
			return nil
		case ch == '/' && l.PeekChar(1) == '*':
			l.startToken(token.COMMENT)
			return l.scanBlockComment()
		case ch == ';':
			l.singleCharToken(token.SEMI)
			return nil
		case ch == ',':
			l.singleCharToken(token.COMMA)
			return nil
		case ch == '(':
			l.singleCharToken(token.LPAREN)
			return nil
		case ch == ')':
			l.singleCharToken(token.RPAREN)
			return nil
		case ch == '$':
			return l.scanSigil('$', token.DOLLAR_REPLACEMENT, token.EXPR_REPLACEMENT)
		case ch == '#':
			return l.scanSigil('#', token.SHARP_PLACEHOLDER, token.EXPR_PLACEHOLDER)
		case ch == '?':
			l.singleCharToken(token.JDBC_PLACEHOLDER)
			return nil
		case ch == '{':
			if l.PeekChar(1) == '?' {
				l.startToken(token.DYNAMIC)
				l.NextChars(2)
				return nil
			}
			l.singleCharToken(token.LBRACE)
			return nil
		case ch == '}':
			l.singleCharToken(token.RBRACE)
			return nil
		case ch == '@':
			if l.scanAtToken() {
				return nil
			}
		case ch == '`':
			if l.PeekChar(1) == '`' && l.PeekChar(2) == '`' {
				l.startToken(token.QUOTED_TEXT)
				return l.scanQuotedText()
			}
			l.startToken(token.QUOTED_IDENTIFIER)
			return l.scanQuotedIdentifier('`')
		case ch == '"':
			l.startToken(token.QUOTED_IDENTIFIER)
			return l.scanQuotedIdentifier('"')
		case ch == ':':
			next := l.PeekChar(1)
			switch {
			case (next == ':' || next == '=') && l.scanOperator():
				return nil
			case next == EOI || unicode.IsSpace(next):
				// A lone colon is plain text.
				l.NextChar()
			default:
				l.startToken(token.COLON_PLACEHOLDER)
				l.NextChar()
				return l.scanParameter()
			}
		case isDigit(ch):
			return l.scanNumber()
		case isFirstIdentifierChar(ch):
			l.startToken(token.IDENTIFIER)
			l.scanIdentifier()
			return nil
		case isOperatorChar(ch) && l.scanOperator():
			return nil
		default:
			l.NextChar()
		}
	}
}

// scanSigil scans $name$, ${expr}, #name# and #{expr}.
func (l *Lexer) scanSigil(sigil rune, param, expr token.Token) error {
	l.startToken(param)
	l.NextChar()
	if l.ch == '{' {
		l.tok = expr
		l.NextChar()
		return l.scanValueExpression()
	}
	return l.scanParameterWithSuffix(sigil)
}

// scanString scans a quoted string. Two single quotes stand for one quote
// inside the string; the literal keeps them as written.
func (l *Lexer) scanString() error {
	start := l.pos
	l.NextChar()
	l.litStart = l.pos
	for {
		if l.atEnd() {
			return l.Errorf(ErrLexical, start, "unclosed string")
		}
		if l.ch == '\'' {
			if l.PeekChar(1) == '\'' {
				l.NextChars(2)
				continue
			}
			l.litEnd = l.pos
			l.NextChar()
			return nil
		}
		l.NextChar()
	}
}

func (l *Lexer) scanLineComment() {
	for !l.atEnd() && l.ch != '\n' {
		l.NextChar()
	}
}

func (l *Lexer) scanBlockComment() error {
	start := l.pos
	l.NextChars(2)
	for {
		if l.atEnd() {
			return l.Errorf(ErrLexical, start, "unclosed comment")
		}
		if l.ch == '*' && l.PeekChar(1) == '/' {
			l.NextChars(2)
			return nil
		}
		l.NextChar()
	}
}

func (l *Lexer) scanQuotedIdentifier(quote rune) error {
	start := l.pos
	l.NextChar()
	l.litStart = l.pos
	for {
		if l.atEnd() {
			return l.Errorf(ErrLexical, start, "unclosed quoted identifier")
		}
		if l.ch == quote {
			if l.PeekChar(1) == quote {
				l.NextChars(2)
				continue
			}
			l.litEnd = l.pos
			l.NextChar()
			return nil
		}
		l.NextChar()
	}
}

// scanQuotedText scans text between two runs of three backticks.
func (l *Lexer) scanQuotedText() error {
	start := l.pos
	l.NextChars(3)
	l.litStart = l.pos
	for {
		if l.atEnd() {
			return l.Errorf(ErrLexical, start, "unclosed quoted text")
		}
		if l.ch == '`' && l.PeekChar(1) == '`' && l.PeekChar(2) == '`' {
			l.litEnd = l.pos
			l.NextChars(3)
			return nil
		}
		l.NextChar()
	}
}

// scanParameter scans the name following a colon.
func (l *Lexer) scanParameter() error {
	l.litStart = l.pos
	for !l.atEnd() && isParameterChar(l.ch) {
		l.NextChar()
	}
	l.litEnd = l.pos
	if l.litStart == l.litEnd {
		return l.Errorf(ErrLexical, l.pos, "illegal parameter character %q", l.ch)
	}
	return nil
}

// scanParameterWithSuffix scans a name closed by sigil, as in $name$.
func (l *Lexer) scanParameterWithSuffix(sigil rune) error {
	start := l.tokStart
	l.litStart = l.pos
	for {
		if l.atEnd() {
			return l.Errorf(ErrLexical, start, "unclosed parameter, expect %q", sigil)
		}
		if l.ch == sigil {
			break
		}
		if !isParameterChar(l.ch) {
			return l.Errorf(ErrLexical, l.pos, "illegal parameter character %q", l.ch)
		}
		l.NextChar()
	}
	l.litEnd = l.pos
	if l.litStart == l.litEnd {
		return l.Errorf(ErrLexical, start, "parameter name can not be empty")
	}
	l.NextChar()
	return nil
}

// tryScanParameterWithSuffix is scanParameterWithSuffix reporting failure
// instead of an error. The cursor is left wherever scanning stopped.
func (l *Lexer) tryScanParameterWithSuffix(sigil rune) bool {
	l.litStart = l.pos
	for !l.atEnd() && l.ch != sigil {
		if !isParameterChar(l.ch) {
			return false
		}
		l.NextChar()
	}
	if l.atEnd() || l.pos == l.litStart {
		return false
	}
	l.litEnd = l.pos
	l.NextChar()
	return true
}

// scanValueExpression scans the expression of ${...} or #{...}. The cursor
// is just after the opening brace.
func (l *Lexer) scanValueExpression() error {
	start := l.tokStart
	switch l.tryScanValueExpression() {
	case exprUnclosed:
		return l.Errorf(ErrLexical, start, "unclosed expression, expect '}'")
	case exprEmpty:
		return l.Errorf(ErrLexical, start, "expression can not be empty")
	}
	return nil
}

type exprScan int

const (
	exprOK exprScan = iota
	exprUnclosed
	exprEmpty
)

func (l *Lexer) tryScanValueExpression() exprScan {
	l.litStart = l.pos
	depth := 0
	for {
		if l.atEnd() {
			return exprUnclosed
		}
		switch l.ch {
		case '\'', '"':
			if !l.skipQuoted(l.ch) {
				return exprUnclosed
			}
			continue
		case '{':
			depth++
		case '}':
			if depth == 0 {
				l.litEnd = l.pos
				l.NextChar()
				if strings.TrimSpace(l.Literal()) == "" {
					return exprEmpty
				}
				return exprOK
			}
			depth--
		}
		l.NextChar()
	}
}

// ScanConditionalExpression scans a parenthesised directive condition. The
// cursor must be on the opening parenthesis; on return it is just after the
// closing one and the literal holds the condition.
func (l *Lexer) ScanConditionalExpression() error {
	start := l.pos
	if l.ch != '(' {
		return l.Errorf(ErrSyntax, l.pos, "expect '('")
	}
	l.NextChar()
	l.litStart = l.pos
	depth := 0
	for {
		if l.atEnd() {
			return l.Errorf(ErrLexical, start, "unclosed condition, expect ')'")
		}
		switch l.ch {
		case '\'', '"':
			if !l.skipQuoted(l.ch) {
				return l.Errorf(ErrLexical, start, "unclosed string in condition")
			}
			continue
		case '(':
			depth++
		case ')':
			if depth == 0 {
				l.litEnd = l.pos
				l.NextChar()
				if strings.TrimSpace(l.Literal()) == "" {
					return l.Errorf(ErrSyntax, start, "expression can not be empty")
				}
				return nil
			}
			depth--
		}
		l.NextChar()
	}
}

// skipQuoted moves the cursor past a quoted run starting at the cursor.
func (l *Lexer) skipQuoted(quote rune) bool {
	l.NextChar()
	for !l.atEnd() {
		if l.ch == quote {
			l.NextChar()
			return true
		}
		l.NextChar()
	}
	return false
}

// scanAtToken scans a directive or a tag. It returns false when the '@' only
// starts plain text, such as a vendor variable.
func (l *Lexer) scanAtToken() bool {
	start := l.pos
	l.NextChar()
	if l.ch == '@' {
		l.NextChar()
		l.skipIdentifier()
		return false
	}
	if !isFirstIdentifierChar(l.ch) {
		return false
	}
	nameStart := l.pos
	l.skipIdentifier()
	name := l.input[nameStart:l.pos]
	if tok, ok := l.table.LookupDirective(name); ok {
		l.tok = tok
	} else if l.PeekCharSkipWhitespace() == '(' {
		l.tok = token.TAG
	} else {
		return false
	}
	l.tokStart = start
	l.litStart, l.litEnd = nameStart, l.pos
	return true
}

func (l *Lexer) scanNumber() error {
	l.startToken(token.LITERAL_INT)
	if l.ch == '0' && (l.PeekChar(1) == 'x' || l.PeekChar(1) == 'X') {
		l.tok = token.LITERAL_HEX
		l.NextChars(2)
		l.litStart = l.pos
		for !l.atEnd() && isHexDigit(l.ch) {
			l.NextChar()
		}
		l.litEnd = l.pos
		if l.litStart == l.litEnd || isIdentifierChar(l.ch) {
			return l.Errorf(ErrLexical, l.tokStart, "illegal hex literal")
		}
		return nil
	}
	l.litStart = l.pos
	l.skipDigits()
	if l.ch == '.' && isDigit(l.PeekChar(1)) {
		l.tok = token.LITERAL_FLOAT
		l.NextChar()
		l.skipDigits()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.PeekChar(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.PeekChar(2))) {
			l.tok = token.LITERAL_FLOAT
			l.NextChars(2)
			l.skipDigits()
		}
	}
	l.litEnd = l.pos
	if isIdentifierChar(l.ch) {
		return l.Errorf(ErrLexical, l.tokStart, "illegal number literal")
	}
	return nil
}

func (l *Lexer) skipDigits() {
	for !l.atEnd() && isDigit(l.ch) {
		l.NextChar()
	}
}

func (l *Lexer) skipIdentifier() {
	for !l.atEnd() && isIdentifierChar(l.ch) {
		l.NextChar()
	}
}

// scanIdentifier scans a word and classifies it as a keyword or a plain
// identifier.
func (l *Lexer) scanIdentifier() {
	l.skipIdentifier()
	l.litStart, l.litEnd = l.tokStart, l.pos
	if tok, ok := l.table.Lookup(l.input[l.tokStart:l.pos]); ok {
		l.tok = tok
		return
	}
	l.tok = token.IDENTIFIER
}

// scanOperator takes the longest operator spelled at the cursor.
func (l *Lexer) scanOperator() bool {
	for n := 3; n > 0; n-- {
		if l.pos+n > len(l.input) {
			continue
		}
		if tok, ok := l.table.LookupOperator(l.input[l.pos : l.pos+n]); ok {
			l.startToken(tok)
			l.NextChars(n)
			return true
		}
	}
	return false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// IsIdentifierStart reports whether r may start an unquoted identifier.
func IsIdentifierStart(r rune) bool {
	return isFirstIdentifierChar(r)
}

func isFirstIdentifierChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentifierChar(r rune) bool {
	return isFirstIdentifierChar(r) || unicode.IsDigit(r)
}

// isParameterChar also accepts dots so that :a.b names a nested value.
func isParameterChar(r rune) bool {
	return isIdentifierChar(r) || r == '.'
}

func isOperatorChar(r rune) bool {
	return strings.ContainsRune("+-*/%&|^~!=<>", r)
}
