// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lexer

import (
	"github.com/canonical/dynsql/internal/token"
)

// NewString returns a lexer over the content of a single SQL string literal,
// without its quotes. It only reports DOLLAR_REPLACEMENT, EXPR_REPLACEMENT and
// EOF; everything else is text. A '$' that does not start a well formed
// replacement is kept as text rather than reported as an error.
func NewString(content string, table *token.Table) *Lexer {
	l := New(content, table)
	l.inString = true
	return l
}

func (l *Lexer) scanStringToken() {
	for !l.atEnd() {
		if l.ch == '$' {
			saved := l.state
			start := l.pos
			l.NextChar()
			if l.ch == '{' {
				l.NextChar()
				if l.tryScanValueExpression() == exprOK {
					l.tok = token.EXPR_REPLACEMENT
					l.tokStart = start
					return
				}
			} else if l.tryScanParameterWithSuffix('$') {
				l.tok = token.DOLLAR_REPLACEMENT
				l.tokStart = start
				return
			}
			l.state = saved
		}
		l.NextChar()
	}
	l.setEOF()
}
