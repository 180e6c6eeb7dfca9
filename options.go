package dynsql

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/canonical/dynsql/internal/el"
	"github.com/canonical/dynsql/internal/parse"
	"github.com/canonical/dynsql/internal/render"
)

// Level selects how much SQL structure is recognised when parsing.
type Level = parse.Level

const (
	// LevelBase only recognises template constructs.
	LevelBase = parse.LevelBase
	// LevelMore also recognises SELECT, INSERT, UPDATE and DELETE structure.
	LevelMore = parse.LevelMore
)

// Compiler compiles the expressions of #{...}, ${...} and @if(...).
type Compiler = el.Compiler

// Expression is a compiled expression.
type Expression = el.Expression

// TagFunc renders the content of a @name(content) directive.
type TagFunc = render.TagFunc

type options struct {
	parse       parse.Config
	fragments   map[string]string
	tags        map[string]TagFunc
	placeholder func(int) string
}

// Option configures parsing and rendering.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{parse: parse.Config{Level: LevelMore}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) parser() *parse.Parser {
	return parse.New(o.parse)
}

// WithLevel sets the parse level. The default is LevelMore.
func WithLevel(level Level) Option {
	return func(o *options) { o.parse.Level = level }
}

// WithMaxDepth bounds the nesting of sub-queries, parentheses and directives.
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.parse.MaxDepth = depth }
}

// WithFallback makes statements that fail to parse at LevelMore be parsed
// again at LevelBase.
func WithFallback() Option {
	return func(o *options) { o.parse.Fallback = true }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.parse.Logger = log }
}

// WithCompiler replaces the expression compiler.
func WithCompiler(c Compiler) Option {
	return func(o *options) { o.parse.Compiler = c }
}

// WithFragments sets the templates available to @include.
func WithFragments(fragments map[string]string) Option {
	return func(o *options) { o.fragments = fragments }
}

// WithTag registers the handler of @name(...) directives.
func WithTag(name string, f TagFunc) Option {
	return func(o *options) {
		if o.tags == nil {
			o.tags = map[string]TagFunc{}
		}
		o.tags[name] = f
	}
}

// WithDollarPlaceholders binds arguments as $1, $2, ... instead of ?, as
// PostgreSQL expects.
func WithDollarPlaceholders() Option {
	return func(o *options) {
		o.placeholder = func(n int) string { return fmt.Sprintf("$%d", n) }
	}
}
