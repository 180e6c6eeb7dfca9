// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Error kinds. Every error reported while parsing a template is marked with
// exactly one of them.
var (
	ErrLexical    = errors.New("lexical error")
	ErrSyntax     = errors.New("syntax error")
	ErrExpression = errors.New("expression error")
)

const (
	excerptBefore = 15
	excerptAfter  = 20
)

// DescribePosition returns the offset pos together with an excerpt of the
// input surrounding it.
func DescribePosition(input string, pos int) string {
	if pos > len(input) {
		pos = len(input)
	}
	start := max(pos-excerptBefore, 0)
	end := min(pos+excerptAfter, len(input))
	for start > 0 && !utf8.RuneStart(input[start]) {
		start--
	}
	for end < len(input) && !utf8.RuneStart(input[end]) {
		end++
	}
	excerpt := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(input[start:end])
	return fmt.Sprintf("position %d, %q", pos, excerpt)
}

// Errorf returns an error of the given kind whose message is followed by the
// description of pos.
func Errorf(kind error, input string, pos int, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return errors.Mark(errors.Newf("%s at %s", msg, DescribePosition(input, pos)), kind)
}
