// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package token

import (
	"strings"
	"sync"
)

// Table maps raw text onto tokens. It is immutable once built and safe for
// concurrent use.
type Table struct {
	keywords   map[string]Token
	operators  map[string]Token
	directives map[string]Token
}

var directiveWords = map[string]Token{
	"if":      AT_IF,
	"elseif":  AT_ELSEIF,
	"else":    AT_ELSE,
	"endif":   AT_ENDIF,
	"include": AT_INCLUDE,
}

// NewTable builds the lookup tables from the token catalogue.
func NewTable() *Table {
	t := &Table{
		keywords:   make(map[string]Token, keywordEnd-keywordBeg),
		operators:  make(map[string]Token, operatorEnd-operatorBeg),
		directives: make(map[string]Token, len(directiveWords)),
	}
	for tok := keywordBeg + 1; tok < keywordEnd; tok++ {
		t.keywords[spellings[tok]] = tok
	}
	for tok := operatorBeg + 1; tok < operatorEnd; tok++ {
		t.operators[spellings[tok]] = tok
	}
	for word, tok := range directiveWords {
		t.directives[word] = tok
	}
	return t
}

var defaultTable = sync.OnceValue(NewTable)

// Default returns the shared table built on first use.
func Default() *Table {
	return defaultTable()
}

// Lookup returns the keyword spelled by word, ignoring case.
func (t *Table) Lookup(word string) (Token, bool) {
	tok, ok := t.keywords[strings.ToUpper(word)]
	return tok, ok
}

// LookupOperator returns the operator spelled exactly by op.
func (t *Table) LookupOperator(op string) (Token, bool) {
	tok, ok := t.operators[op]
	return tok, ok
}

// LookupDirective returns the directive named by word, without the leading
// '@', ignoring case.
func (t *Table) LookupDirective(word string) (Token, bool) {
	tok, ok := t.directives[strings.ToLower(word)]
	return tok, ok
}
