// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dynsql

import (
	"context"
	"database/sql"
	"reflect"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/canonical/dynsql/internal/ast"
	"github.com/canonical/dynsql/internal/lexer"
	"github.com/canonical/dynsql/internal/render"
	"github.com/canonical/dynsql/internal/typeinfo"
)

// M is a convenience type for passing variables by name. Any map type with
// string keys can be used in its place.
//
//	stmt := dynsql.MustPrepare("UPDATE people SET name = :name WHERE id = :id")
//	err := db.Query(ctx, stmt, dynsql.M{"id": 10, "name": "Fred"}).Run()
type M map[string]any

// Positional holds the values of ? placeholders in order.
type Positional []any

// AST is a parsed template.
type AST = ast.Statement

// OrderBy is a parsed ORDER BY clause.
type OrderBy = ast.OrderBy

var ErrNoRows = sql.ErrNoRows
var ErrTXDone = sql.ErrTxDone

// Parse errors are marked with exactly one of these, so they can be told
// apart with errors.Is.
var (
	ErrLexical    = lexer.ErrLexical
	ErrSyntax     = lexer.ErrSyntax
	ErrExpression = lexer.ErrExpression
)

// stmtCache stores the driver prepared statements of the Statement objects.
var stmtCache = newStatementCache()

// Parse parses a template holding exactly one statement.
func Parse(text string, opts ...Option) (*AST, error) {
	stmt, err := newOptions(opts).parser().Statement(text)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse statement")
	}
	return stmt, nil
}

// ParseAll parses a script of statements separated by semicolons.
func ParseAll(text string, opts ...Option) ([]*AST, error) {
	stmts, err := newOptions(opts).parser().Statements(text)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse statement")
	}
	return stmts, nil
}

// Split splits a script into the text of its statements without parsing
// them further.
func Split(text string, opts ...Option) ([]string, error) {
	parts, err := newOptions(opts).parser().Split(text)
	if err != nil {
		return nil, errors.Wrap(err, "cannot split script")
	}
	return parts, nil
}

// ParseOrderBy parses a stand-alone ORDER BY clause.
func ParseOrderBy(text string, opts ...Option) (*OrderBy, error) {
	ob, err := newOptions(opts).parser().OrderBy(text)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse order by")
	}
	return ob, nil
}

// Statement is a parsed template ready to be rendered and run on a database.
// A statement can be used with any [DB].
type Statement struct {
	// cacheID is used to look up the driver prepared statements of this
	// statement.
	cacheID uint64
	parsed  *ast.Statement
	opts    options
}

// Prepare parses query into a [Statement].
func Prepare(query string, opts ...Option) (*Statement, error) {
	o := newOptions(opts)
	parsed, err := o.parser().Statement(query)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse statement")
	}
	return stmtCache.newStatement(parsed, o), nil
}

// MustPrepare is the same as [Prepare] except that it panics on error.
func MustPrepare(query string, opts ...Option) *Statement {
	s, err := Prepare(query, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// AST returns the parsed template.
func (s *Statement) AST() *AST {
	return s.parsed
}

// String returns the template text.
func (s *Statement) String() string {
	return s.parsed.String()
}

// Render renders the statement into SQL and its query arguments. Each
// argument is a map with string keys, a struct with db tags, a pointer to
// either, or a [Positional] holding the values of ? placeholders.
func (s *Statement) Render(args ...any) (string, []any, error) {
	in := render.Input{
		Vars:        map[string]any{},
		Fragments:   s.opts.fragments,
		Tags:        s.opts.tags,
		Placeholder: s.opts.placeholder,
		Parser:      s.opts.parser(),
	}
	for _, arg := range args {
		if p, ok := arg.(Positional); ok {
			in.Args = append(in.Args, p...)
			continue
		}
		vars, err := typeinfo.Vars(arg)
		if err != nil {
			return "", nil, errors.Wrap(err, "cannot render statement")
		}
		for k, v := range vars {
			if _, ok := in.Vars[k]; ok {
				return "", nil, errors.Newf("cannot render statement: variable %q provided more than once", k)
			}
			in.Vars[k] = v
		}
	}
	out, err := render.Render(s.parsed, in)
	if err != nil {
		return "", nil, err
	}
	return out.SQL, out.Args, nil
}

type DB struct {
	// cacheID is used to look up the driver prepared statements prepared on
	// this database.
	cacheID uint64
	sqldb   *sql.DB
}

// NewDB creates a new [DB] from a [sql.DB].
func NewDB(sqldb *sql.DB) *DB {
	if sqldb == nil {
		return nil
	}
	return stmtCache.newDB(sqldb)
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Query represents a rendered statement on a database. It is designed to be
// run once.
type Query struct {
	ctx  context.Context
	err  error
	sql  string
	args []any
	// prepare returns the statement the query runs with.
	prepare func(context.Context) (queryer, error)
}

// queryer is satisfied by sql.Stmt and by the wrapper for transactions
// without a cached statement.
type queryer interface {
	QueryContext(ctx context.Context, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
}

// Query renders s with args and builds a query on the database. The query
// runs when one of [Query.Rows], [Query.Exec], [Query.Run], [Query.Get] or
// [Query.GetAll] is called.
func (db *DB) Query(ctx context.Context, s *Statement, args ...any) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	query, params, err := s.renderFor(db, args)
	if err != nil {
		return &Query{ctx: ctx, err: err}
	}
	prepare := func(ctx context.Context) (queryer, error) {
		if sqlstmt, ok := stmtCache.lookupStmt(db, s, query); ok {
			return sqlstmt, nil
		}
		return stmtCache.driverPrepareStmt(ctx, db, s, query)
	}
	return &Query{ctx: ctx, sql: query, args: params, prepare: prepare}
}

func (s *Statement) renderFor(db *DB, args []any) (string, []any, error) {
	if db == nil {
		return "", nil, errors.New("cannot run query on a nil DB")
	}
	return s.Render(args...)
}

// SQL returns the rendered SQL of the query.
func (q *Query) SQL() string {
	return q.sql
}

// Args returns the query arguments in order.
func (q *Query) Args() []any {
	return q.args
}

// Rows runs the query and returns its result rows. The caller must close
// them.
func (q *Query) Rows() (*sql.Rows, error) {
	if q.err != nil {
		return nil, q.err
	}
	stmt, err := q.prepare(q.ctx)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(q.ctx, q.args...)
}

// Exec runs a query that returns no rows.
func (q *Query) Exec() (sql.Result, error) {
	if q.err != nil {
		return nil, q.err
	}
	stmt, err := q.prepare(q.ctx)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(q.ctx, q.args...)
}

// Run runs the query and discards any results.
func (q *Query) Run() error {
	_, err := q.Exec()
	return err
}

// Get runs the query and decodes its first row into out, which is a pointer
// to a struct with db tags or a map with string keys. Columns are matched to
// struct fields by tag. It returns [ErrNoRows] if there are no rows.
func (q *Query) Get(out any) error {
	rows, err := q.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrNoRows
	}
	if err := scanRow(rows, out); err != nil {
		return err
	}
	return rows.Close()
}

// GetAll runs the query and appends every row to the slice sliceArg points
// to. The slice elements are structs, pointers to structs or maps with
// string keys.
func (q *Query) GetAll(sliceArg any) error {
	ptrVal := reflect.ValueOf(sliceArg)
	if ptrVal.Kind() != reflect.Pointer || ptrVal.IsNil() {
		return errors.Newf("cannot get results: need pointer to slice, got %T", sliceArg)
	}
	sliceVal := ptrVal.Elem()
	if sliceVal.Kind() != reflect.Slice {
		return errors.Newf("cannot get results: need pointer to slice, got pointer to %s", sliceVal.Kind())
	}
	elemType := sliceVal.Type().Elem()
	switch elemType.Kind() {
	case reflect.Struct, reflect.Map:
	case reflect.Pointer:
		if elemType.Elem().Kind() != reflect.Struct {
			return errors.Newf("cannot get results: need slice of structs or maps, got slice of pointer to %s", elemType.Elem().Kind())
		}
	default:
		return errors.Newf("cannot get results: need slice of structs or maps, got slice of %s", elemType.Kind())
	}

	rows, err := q.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var out reflect.Value
		switch elemType.Kind() {
		case reflect.Pointer:
			out = reflect.New(elemType.Elem())
		case reflect.Struct:
			out = reflect.New(elemType)
		case reflect.Map:
			out = reflect.MakeMap(elemType)
		}
		if err := scanRow(rows, out.Interface()); err != nil {
			return err
		}
		if elemType.Kind() == reflect.Struct {
			out = out.Elem()
		}
		sliceVal = reflect.Append(sliceVal, out)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	ptrVal.Elem().Set(sliceVal)
	return rows.Close()
}

func scanRow(rows *sql.Rows, out any) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	ptrs, onSuccess, err := typeinfo.ScanArgs(out, cols)
	if err != nil {
		return errors.Wrap(err, "cannot get result")
	}
	if err := rows.Scan(ptrs...); err != nil {
		return errors.Wrap(err, "cannot get result")
	}
	onSuccess()
	return nil
}

// TX represents a transaction on the database.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended with a
// [TX.Commit] or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// txQuery runs SQL text directly on a transaction.
type txQuery struct {
	sqltx *sql.Tx
	sql   string
}

func (q txQuery) QueryContext(ctx context.Context, args ...any) (*sql.Rows, error) {
	return q.sqltx.QueryContext(ctx, q.sql, args...)
}

func (q txQuery) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	return q.sqltx.ExecContext(ctx, q.sql, args...)
}

// Query renders s with args and builds a query on the transaction. It runs
// like [DB.Query].
func (tx *TX) Query(ctx context.Context, s *Statement, args ...any) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx.isDone() {
		return &Query{ctx: ctx, err: ErrTXDone}
	}
	query, params, err := s.renderFor(tx.db, args)
	if err != nil {
		return &Query{ctx: ctx, err: err}
	}
	prepare := func(ctx context.Context) (queryer, error) {
		if sqlstmt, ok := stmtCache.lookupStmt(tx.db, s, query); ok {
			// Register the prepared statement on the transaction. This does
			// not re-prepare it on the driver. The transaction statement is
			// closed by database/sql when the transaction ends.
			return tx.sqltx.StmtContext(ctx, sqlstmt), nil
		}
		return txQuery{sqltx: tx.sqltx, sql: query}, nil
	}
	return &Query{ctx: ctx, sql: query, args: params, prepare: prepare}
}
