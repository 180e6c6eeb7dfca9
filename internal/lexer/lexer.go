// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package lexer splits a dynamic SQL template into tokens on demand.
//
// The input is never modified. Text that is not part of any token (spaces,
// punctuation the grammar does not care about) is returned by AcceptText so
// that a parser can rebuild the template exactly.
package lexer

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/canonical/dynsql/internal/token"
)

// EOI is returned by NextChar and PeekChar past the end of the input.
const EOI rune = 0x1A

// state is everything a Snapshot captures.
type state struct {
	pos int
	// nextPos is start of the next char.
	nextPos int
	// ch is the rune starting at pos, EOI past the end of input.
	ch       rune
	tok      token.Token
	prevTok  token.Token
	tokStart int
	// textPos is the start of the text not yet handed out by AcceptText or
	// Text.
	textPos  int
	litStart int
	litEnd   int
	eof      bool
}

// Snapshot is a copy of the lexer position and current token. Any number of
// snapshots may be held at once.
type Snapshot struct {
	s state
}

// Pos returns the cursor offset held by the snapshot.
func (s Snapshot) Pos() int {
	return s.s.pos
}

// Lexer splits a template into tokens. It is not safe for concurrent use.
type Lexer struct {
	input string
	table *token.Table
	// inString is set for lexers created by NewString, which only recognise
	// replacements.
	inString bool
	state
}

// New returns a lexer over input using the given token table. A nil table
// selects token.Default.
func New(input string, table *token.Table) *Lexer {
	if table == nil {
		table = token.Default()
	}
	l := &Lexer{input: input, table: table}
	l.tokStart = -1
	l.litStart, l.litEnd = -1, -1
	l.NextChar()
	return l
}

// Snapshot returns the current state of the lexer.
func (l *Lexer) Snapshot() Snapshot {
	return Snapshot{s: l.state}
}

// Restore moves the lexer back to the state held by s.
func (l *Lexer) Restore(s Snapshot) {
	l.state = s.s
}

func (l *Lexer) Input() string {
	return l.input
}

func (l *Lexer) Table() *token.Table {
	return l.table
}

func (l *Lexer) Pos() int {
	return l.pos
}

func (l *Lexer) Char() rune {
	return l.ch
}

func (l *Lexer) Token() token.Token {
	return l.tok
}

func (l *Lexer) PrevToken() token.Token {
	return l.prevTok
}

// TokenStart returns the offset of the current token, or -1 if the current
// token has no text.
func (l *Lexer) TokenStart() int {
	return l.tokStart
}

// TokenText returns the source text of the current token.
func (l *Lexer) TokenText() string {
	if l.tokStart < 0 {
		return ""
	}
	return l.input[l.tokStart:l.pos]
}

// Literal returns the value part of the current token: the content of a
// string or quoted identifier, the name of a parameter, the text of an
// expression or the digits of a number.
func (l *Lexer) Literal() string {
	if l.litStart < 0 {
		return l.TokenText()
	}
	return l.input[l.litStart:l.litEnd]
}

// IntValue parses the literal of the current token as an integer.
func (l *Lexer) IntValue() (int, error) {
	n, err := strconv.Atoi(l.Literal())
	if err != nil {
		return 0, l.Errorf(ErrLexical, l.tokStart, "illegal integer %q", l.Literal())
	}
	return n, nil
}

// IsEOF reports whether the end of the input has been reached.
func (l *Lexer) IsEOF() bool {
	return l.tok == token.EOF
}

// IsEOS reports whether the current token ends a statement.
func (l *Lexer) IsEOS() bool {
	return l.tok == token.EOF || l.tok == token.SEMI
}

// Slice returns the input between two offsets.
func (l *Lexer) Slice(start, end int) string {
	return l.input[start:end]
}

// AcceptText returns the text between the end of the previously accepted
// text and the start of the current token, and marks it as accepted.
func (l *Lexer) AcceptText() string {
	end := l.tokStart
	if end < 0 {
		end = l.pos
	}
	if l.textPos >= end {
		return ""
	}
	text := l.input[l.textPos:end]
	l.textPos = end
	return text
}

// Text returns the text from the end of the previously accepted text up to
// the cursor, and marks it as accepted.
func (l *Lexer) Text() string {
	if l.textPos >= l.pos {
		return ""
	}
	text := l.input[l.textPos:l.pos]
	l.textPos = l.pos
	return text
}

// NextChar advances the cursor by one character and returns it.
func (l *Lexer) NextChar() rune {
	if l.nextPos >= len(l.input) {
		l.pos = len(l.input)
		l.ch = EOI
		return l.ch
	}
	r, size := utf8.DecodeRuneInString(l.input[l.nextPos:])
	l.pos = l.nextPos
	l.nextPos += size
	l.ch = r
	return r
}

// NextChars advances the cursor by n characters.
func (l *Lexer) NextChars(n int) {
	for i := 0; i < n; i++ {
		l.NextChar()
	}
}

// PeekChar returns the n-th character after the cursor without moving it.
func (l *Lexer) PeekChar(n int) rune {
	p := l.nextPos
	r := EOI
	for i := 0; i < n; i++ {
		if p >= len(l.input) {
			return EOI
		}
		var size int
		r, size = utf8.DecodeRuneInString(l.input[p:])
		p += size
	}
	return r
}

// PeekCharSkipWhitespace returns the first character at or after the cursor
// that is not white space.
func (l *Lexer) PeekCharSkipWhitespace() rune {
	for _, r := range l.input[l.pos:] {
		if !unicode.IsSpace(r) {
			return r
		}
	}
	return EOI
}

// SkipWhitespace moves the cursor past any white space.
func (l *Lexer) SkipWhitespace() {
	for !l.atEnd() && unicode.IsSpace(l.ch) {
		l.NextChar()
	}
}

// ScanToChar drops the current token and moves the cursor to the next
// occurrence of c. It returns false if c does not occur before the end of
// the input.
func (l *Lexer) ScanToChar(c rune) bool {
	l.reset()
	for !l.atEnd() {
		if l.ch == c {
			return true
		}
		l.NextChar()
	}
	return false
}

// Errorf returns an error of the given kind annotated with pos.
func (l *Lexer) Errorf(kind error, pos int, format string, args ...any) error {
	return Errorf(kind, l.input, pos, format, args...)
}

// DescribePosition describes pos within the input of the lexer.
func (l *Lexer) DescribePosition(pos int) string {
	return DescribePosition(l.input, pos)
}

// NextToken scans the next token. Calling it once EOF has been returned is a
// programming error.
func (l *Lexer) NextToken() error {
	if l.eof {
		return errors.AssertionFailedf("next token requested after end of input at %s", l.DescribePosition(l.pos))
	}
	l.prevTok = l.tok
	l.reset()
	if l.inString {
		l.scanStringToken()
		return nil
	}
	return l.scanToken()
}

func (l *Lexer) reset() {
	l.tok = token.ILLEGAL
	l.tokStart = -1
	l.textPos = l.pos
	l.litStart, l.litEnd = -1, -1
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) startToken(tok token.Token) {
	l.tok = tok
	l.tokStart = l.pos
}

func (l *Lexer) singleCharToken(tok token.Token) {
	l.startToken(tok)
	l.NextChar()
}

func (l *Lexer) setEOF() {
	l.tok = token.EOF
	l.eof = true
}
