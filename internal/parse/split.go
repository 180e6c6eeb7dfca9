package parse

import (
	"strings"

	"go.uber.org/zap"

	"github.com/canonical/dynsql/internal/lexer"
	"github.com/canonical/dynsql/internal/token"
)

// Split splits a script into statements at the semicolons that end them.
// Semicolons inside strings, comments and dynamic clauses do not end a
// statement. Statements holding only comments are dropped, and comments
// after the last token of a statement are not part of it, so that joining
// the statements with ";" and splitting again gives the same statements.
func (p *Parser) Split(input string) ([]string, error) {
	lx := lexer.New(input, p.cfg.Table)
	var (
		stmts   []string
		start   int
		end     int
		dynamic []int
		content bool
	)
	emit := func(stop int) {
		if s := strings.TrimSpace(input[start:stop]); s != "" && content {
			stmts = append(stmts, s)
		}
		content = false
	}
	for {
		if err := lx.NextToken(); err != nil {
			return nil, err
		}
		switch lx.Token() {
		case token.EOF:
			if len(dynamic) > 0 {
				return nil, lx.Errorf(lexer.ErrSyntax, dynamic[len(dynamic)-1], "unclosed dynamic clause")
			}
			emit(end)
			p.cfg.Logger.Debug("split script", zap.Int("statements", len(stmts)))
			return stmts, nil
		case token.COMMENT:
			continue
		case token.DYNAMIC:
			dynamic = append(dynamic, lx.TokenStart())
		case token.RBRACE:
			if len(dynamic) > 0 {
				dynamic = dynamic[:len(dynamic)-1]
			}
		case token.SEMI:
			if len(dynamic) == 0 {
				emit(end)
				start = lx.Pos()
				continue
			}
			// The rest of the clause holds its parameters.
			if !lx.ScanToChar('}') {
				return nil, lx.Errorf(lexer.ErrSyntax, dynamic[len(dynamic)-1], "unclosed dynamic clause")
			}
			lx.NextChar()
			dynamic = dynamic[:len(dynamic)-1]
		}
		content = true
		end = lx.Pos()
	}
}
