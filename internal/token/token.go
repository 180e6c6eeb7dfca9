// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package token defines the lexical categories of a dynamic SQL template and
// the lookup tables that map raw text onto them.
package token

// Token is the lexical category of a scanned span of template text.
type Token uint8

const (
	// ILLEGAL is the zero Token. The lexer reports it before the first
	// token has been scanned.
	ILLEGAL Token = iota
	EOF
	COMMENT

	literalBeg
	IDENTIFIER
	QUOTED_IDENTIFIER
	LITERAL_CHARS
	LITERAL_INT
	LITERAL_FLOAT
	LITERAL_HEX
	QUOTED_TEXT
	literalEnd

	specialBeg
	COLON_PLACEHOLDER  // :name
	SHARP_PLACEHOLDER  // #name#
	DOLLAR_REPLACEMENT // $name$
	EXPR_PLACEHOLDER   // #{expr}
	EXPR_REPLACEMENT   // ${expr}
	JDBC_PLACEHOLDER   // ?
	DYNAMIC            // {?
	AT_IF
	AT_ELSEIF
	AT_ELSE
	AT_ENDIF
	AT_INCLUDE
	TAG // @name(...)
	specialEnd

	LPAREN
	RPAREN
	COMMA
	SEMI
	LBRACE
	RBRACE

	operatorBeg
	PLUS
	SUB
	STAR
	SLASH
	PERCENT
	AMP
	AMPAMP
	BAR
	BARBAR
	CARET
	TILDE
	BANG
	BANGEQ
	BANGGT
	BANGLT
	EQ
	EQEQ
	GT
	GTEQ
	GTGT
	LT
	LTEQ
	LTEQGT
	LTGT
	LTLT
	SUBGT
	SUBGTGT
	COLONCOLON
	COLONEQ
	operatorEnd

	keywordBeg
	SELECT
	FROM
	WHERE
	AS
	ALL
	DISTINCT
	TOP
	JOIN
	LEFT
	RIGHT
	FULL
	INNER
	OUTER
	ON
	AND
	OR
	NOT
	IS
	NULL
	TRUE
	FALSE
	IN
	EXISTS
	LIKE
	BETWEEN
	CASE
	WHEN
	THEN
	ELSE
	END
	ORDER
	BY
	GROUP
	HAVING
	LIMIT
	OFFSET
	UNION
	MINUS
	INSERT
	INTO
	VALUES
	UPDATE
	SET
	DELETE
	ASC
	DESC
	NULLS
	FIRST
	LAST
	FOR
	keywordEnd

	numTokens
)

var names = [numTokens]string{
	ILLEGAL:            "ILLEGAL",
	EOF:                "EOF",
	COMMENT:            "COMMENT",
	IDENTIFIER:         "IDENTIFIER",
	QUOTED_IDENTIFIER:  "QUOTED_IDENTIFIER",
	LITERAL_CHARS:      "LITERAL_CHARS",
	LITERAL_INT:        "LITERAL_INT",
	LITERAL_FLOAT:      "LITERAL_FLOAT",
	LITERAL_HEX:        "LITERAL_HEX",
	QUOTED_TEXT:        "QUOTED_TEXT",
	COLON_PLACEHOLDER:  "COLON_PLACEHOLDER",
	SHARP_PLACEHOLDER:  "SHARP_PLACEHOLDER",
	DOLLAR_REPLACEMENT: "DOLLAR_REPLACEMENT",
	EXPR_PLACEHOLDER:   "EXPR_PLACEHOLDER",
	EXPR_REPLACEMENT:   "EXPR_REPLACEMENT",
	JDBC_PLACEHOLDER:   "JDBC_PLACEHOLDER",
	DYNAMIC:            "DYNAMIC",
	AT_IF:              "@if",
	AT_ELSEIF:          "@elseif",
	AT_ELSE:            "@else",
	AT_ENDIF:           "@endif",
	AT_INCLUDE:         "@include",
	TAG:                "TAG",
}

// spellings holds the fixed source text of punctuation, operators and
// keywords. Keywords are stored upper case.
var spellings = [numTokens]string{
	LPAREN: "(",
	RPAREN: ")",
	COMMA:  ",",
	SEMI:   ";",
	LBRACE: "{",
	RBRACE: "}",

	PLUS:       "+",
	SUB:        "-",
	STAR:       "*",
	SLASH:      "/",
	PERCENT:    "%",
	AMP:        "&",
	AMPAMP:     "&&",
	BAR:        "|",
	BARBAR:     "||",
	CARET:      "^",
	TILDE:      "~",
	BANG:       "!",
	BANGEQ:     "!=",
	BANGGT:     "!>",
	BANGLT:     "!<",
	EQ:         "=",
	EQEQ:       "==",
	GT:         ">",
	GTEQ:       ">=",
	GTGT:       ">>",
	LT:         "<",
	LTEQ:       "<=",
	LTEQGT:     "<=>",
	LTGT:       "<>",
	LTLT:       "<<",
	SUBGT:      "->",
	SUBGTGT:    "->>",
	COLONCOLON: "::",
	COLONEQ:    ":=",

	SELECT:   "SELECT",
	FROM:     "FROM",
	WHERE:    "WHERE",
	AS:       "AS",
	ALL:      "ALL",
	DISTINCT: "DISTINCT",
	TOP:      "TOP",
	JOIN:     "JOIN",
	LEFT:     "LEFT",
	RIGHT:    "RIGHT",
	FULL:     "FULL",
	INNER:    "INNER",
	OUTER:    "OUTER",
	ON:       "ON",
	AND:      "AND",
	OR:       "OR",
	NOT:      "NOT",
	IS:       "IS",
	NULL:     "NULL",
	TRUE:     "TRUE",
	FALSE:    "FALSE",
	IN:       "IN",
	EXISTS:   "EXISTS",
	LIKE:     "LIKE",
	BETWEEN:  "BETWEEN",
	CASE:     "CASE",
	WHEN:     "WHEN",
	THEN:     "THEN",
	ELSE:     "ELSE",
	END:      "END",
	ORDER:    "ORDER",
	BY:       "BY",
	GROUP:    "GROUP",
	HAVING:   "HAVING",
	LIMIT:    "LIMIT",
	OFFSET:   "OFFSET",
	UNION:    "UNION",
	MINUS:    "MINUS",
	INSERT:   "INSERT",
	INTO:     "INTO",
	VALUES:   "VALUES",
	UPDATE:   "UPDATE",
	SET:      "SET",
	DELETE:   "DELETE",
	ASC:      "ASC",
	DESC:     "DESC",
	NULLS:    "NULLS",
	FIRST:    "FIRST",
	LAST:     "LAST",
	FOR:      "FOR",
}

// String returns the name of the token, or its spelling for punctuation,
// operators and keywords.
func (t Token) String() string {
	if t >= numTokens {
		return "Token(?)"
	}
	if s := spellings[t]; s != "" {
		return s
	}
	return names[t]
}

// Spelling returns the fixed source text of t, or "" if t has none.
func (t Token) Spelling() string {
	if t >= numTokens {
		return ""
	}
	return spellings[t]
}

// IsKeyword is true for tokens whose spelling is made of letters only.
func (t Token) IsKeyword() bool {
	return t > keywordBeg && t < keywordEnd
}

// IsOperator is true for operator tokens. LIKE is the only keyword that is
// also an operator.
func (t Token) IsOperator() bool {
	return (t > operatorBeg && t < operatorEnd) || t == LIKE
}

func (t Token) IsIdentifier() bool {
	return t == IDENTIFIER || t == QUOTED_IDENTIFIER
}

func (t Token) IsKeywordOrIdentifier() bool {
	return t.IsKeyword() || t.IsIdentifier()
}

func (t Token) IsLiteral() bool {
	return t > literalBeg && t < literalEnd && !t.IsIdentifier()
}

// IsSpecial is true for placeholders, replacements and directives.
func (t Token) IsSpecial() bool {
	return t > specialBeg && t < specialEnd
}
