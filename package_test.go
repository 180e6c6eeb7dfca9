package dynsql_test

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	. "gopkg.in/check.v1"

	"github.com/canonical/dynsql"
)

type PackageSuite struct{}

var _ = Suite(&PackageSuite{})

type Person struct {
	ID         int    `db:"id"`
	Fullname   string `db:"name"`
	PostalCode int    `db:"address_id"`
	Email      string `db:"email,omitempty"`
}

func personDB(c *C) *dynsql.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	c.Assert(err, IsNil)
	// Every connection to :memory: is a new database.
	sqldb.SetMaxOpenConns(1)
	_, err = sqldb.Exec(`
CREATE TABLE person (
	name text,
	id integer,
	address_id integer,
	email text
);
INSERT INTO person VALUES ('Fred', 30, 1000, 'fred@email.com');
INSERT INTO person VALUES ('Mark', 20, 1500, 'mark@email.com');
INSERT INTO person VALUES ('Mary', 40, 3500, 'mary@email.com');
INSERT INTO person VALUES ('James', 35, 4500, 'james@email.com');
`)
	c.Assert(err, IsNil)
	return dynsql.NewDB(sqldb)
}

// squash collapses runs of whitespace, which removed clauses leave behind.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (s *PackageSuite) TestParse(c *C) {
	stmt, err := dynsql.Parse("select * from t where a = :a")
	c.Assert(err, IsNil)
	c.Check(stmt.String(), Equals, "select * from t where a = :a")

	stmts, err := dynsql.ParseAll("select 1; -- only a comment\n; update t set a = 1")
	c.Assert(err, IsNil)
	c.Check(stmts, HasLen, 2)

	parts, err := dynsql.Split("select 1; select ';' {? and a = :a; nullable:true}")
	c.Assert(err, IsNil)
	c.Check(parts, DeepEquals, []string{"select 1", "select ';' {? and a = :a; nullable:true}"})

	ob, err := dynsql.ParseOrderBy("order by a desc, b")
	c.Assert(err, IsNil)
	c.Check(ob.Items, HasLen, 2)
}

func (s *PackageSuite) TestParseErrors(c *C) {
	_, err := dynsql.Parse("select * from t where a = 'open")
	c.Assert(err, NotNil)
	c.Check(strings.HasPrefix(err.Error(), "cannot parse statement: "), Equals, true)
	c.Check(errors.Is(err, dynsql.ErrLexical), Equals, true)

	_, err = dynsql.Parse("select 1; select 2")
	c.Check(errors.Is(err, dynsql.ErrSyntax), Equals, true)
	c.Check(err, ErrorMatches, "cannot parse statement: only one sql statement is allowed .*")

	_, err = dynsql.Parse("select #{a +} from t")
	c.Check(errors.Is(err, dynsql.ErrExpression), Equals, true)

	_, err = dynsql.Prepare("select {? a = :a")
	c.Check(err, ErrorMatches, "cannot parse statement: unclosed dynamic clause .*")

	c.Check(func() { dynsql.MustPrepare("") }, PanicMatches, "cannot parse statement: .*")
}

func (s *PackageSuite) TestParseOptions(c *C) {
	const text = "select a from t where a = :a order by a"

	stmt, err := dynsql.Parse(text, dynsql.WithLevel(dynsql.LevelBase))
	c.Assert(err, IsNil)
	c.Check(stmt.Type.String(), Equals, "SELECT")

	_, err = dynsql.Parse("select (((a))) from t", dynsql.WithMaxDepth(2))
	c.Check(err, ErrorMatches, "cannot parse statement: nesting deeper than 2 levels .*")

	_, err = dynsql.Parse("select a from t where (a = 1", dynsql.WithFallback())
	c.Check(err, IsNil)
}

func (s *PackageSuite) TestRender(c *C) {
	stmt := dynsql.MustPrepare(`
SELECT name FROM person
WHERE 1 = 1
{? AND id = :id}
{? AND name = :name}
{? AND address_id IN (:codes)}
{? AND email = :email}`)

	sql, args, err := stmt.Render(Person{ID: 30}, dynsql.M{"codes": []int{1000, 3500}})
	c.Assert(err, IsNil)
	// name is not omitempty so an empty name is bound and drops its clause,
	// email is omitempty so it is not a variable at all.
	c.Check(squash(sql), Equals, "SELECT name FROM person WHERE 1 = 1 AND id = ? AND address_id IN (?, ?)")
	c.Check(args, DeepEquals, []any{30, 1000, 3500})
}

func (s *PackageSuite) TestRenderPositional(c *C) {
	stmt := dynsql.MustPrepare("UPDATE person SET name = ? WHERE id = :id")
	sql, args, err := stmt.Render(dynsql.M{"id": 7}, dynsql.Positional{"Jim"})
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "UPDATE person SET name = ? WHERE id = ?")
	c.Check(args, DeepEquals, []any{"Jim", 7})
}

func (s *PackageSuite) TestRenderOptions(c *C) {
	stmt := dynsql.MustPrepare("SELECT @include(cols) FROM person @where(id > 1) AND id < :max",
		dynsql.WithFragments(map[string]string{"cols": "name, :max AS max"}),
		dynsql.WithTag("where", func(content string, vars map[string]any) (string, error) {
			return "WHERE " + content, nil
		}),
		dynsql.WithDollarPlaceholders(),
	)
	sql, args, err := stmt.Render(dynsql.M{"max": 10})
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "SELECT name, $1 AS max FROM person WHERE id > 1 AND id < $2")
	c.Check(args, DeepEquals, []any{10, 10})
}

func (s *PackageSuite) TestRenderErrors(c *C) {
	stmt := dynsql.MustPrepare("SELECT * FROM person WHERE id = :id")

	_, _, err := stmt.Render(dynsql.M{"id": 1}, Person{ID: 2})
	c.Check(err, ErrorMatches, `cannot render statement: variable "id" provided more than once`)

	_, _, err = stmt.Render(42)
	c.Check(err, ErrorMatches, "cannot render statement: unsupported argument type int")

	_, _, err = stmt.Render()
	c.Check(err, ErrorMatches, "cannot render statement: no value for :id")
}

func (s *PackageSuite) TestGet(c *C) {
	db := personDB(c)
	stmt := dynsql.MustPrepare("SELECT id, name, address_id FROM person WHERE 1 = 1 {? AND name = :name} ORDER BY id")

	var p Person
	c.Assert(db.Query(nil, stmt, dynsql.M{"name": "Mary"}).Get(&p), IsNil)
	c.Check(p, Equals, Person{ID: 40, Fullname: "Mary", PostalCode: 3500})

	// Without the name the clause is dropped and the first row is returned.
	c.Assert(db.Query(nil, stmt).Get(&p), IsNil)
	c.Check(p.Fullname, Equals, "Mark")

	err := db.Query(nil, stmt, dynsql.M{"name": "Nobody"}).Get(&p)
	c.Check(err, Equals, dynsql.ErrNoRows)

	m := dynsql.M{}
	c.Assert(db.Query(nil, stmt, dynsql.M{"name": "Fred"}).Get(m), IsNil)
	c.Check(m["id"], Equals, int64(30))
}

func (s *PackageSuite) TestGetAll(c *C) {
	db := personDB(c)
	stmt := dynsql.MustPrepare("SELECT id, name FROM person WHERE id IN (:ids) ORDER BY id")

	var people []Person
	c.Assert(db.Query(nil, stmt, dynsql.M{"ids": []int{20, 35, 99}}).GetAll(&people), IsNil)
	c.Check(people, DeepEquals, []Person{{ID: 20, Fullname: "Mark"}, {ID: 35, Fullname: "James"}})

	var ptrs []*Person
	c.Assert(db.Query(nil, stmt, dynsql.M{"ids": []int{40}}).GetAll(&ptrs), IsNil)
	c.Check(ptrs, DeepEquals, []*Person{{ID: 40, Fullname: "Mary"}})

	var none []dynsql.M
	c.Assert(db.Query(nil, stmt, dynsql.M{"ids": []int{1}}).GetAll(&none), IsNil)
	c.Check(none, HasLen, 0)

	err := db.Query(nil, stmt, dynsql.M{"ids": []int{20}}).GetAll(people)
	c.Check(err, ErrorMatches, "cannot get results: need pointer to slice, got .*")

	var ints []int
	err = db.Query(nil, stmt, dynsql.M{"ids": []int{20}}).GetAll(&ints)
	c.Check(err, ErrorMatches, "cannot get results: need slice of structs or maps, got slice of int")

	var bad []struct {
		ID int `db:"id"`
	}
	err = db.Query(nil, stmt, dynsql.M{"ids": []int{20}}).GetAll(&bad)
	c.Check(err, ErrorMatches, `cannot get result: column "name" has no matching db tag in .*`)
}

func (s *PackageSuite) TestRunAndExec(c *C) {
	db := personDB(c)
	insert := dynsql.MustPrepare("INSERT INTO person (name, id, address_id, email) VALUES (:name, :id, :address_id, #{ email == nil ? 'none' : email })")

	jim := Person{ID: 70, Fullname: "Jim", PostalCode: 500}
	q := db.Query(nil, insert, &jim)
	c.Check(q.SQL(), Equals, "INSERT INTO person (name, id, address_id, email) VALUES (?, ?, ?, ?)")
	c.Check(q.Args(), DeepEquals, []any{"Jim", 70, 500, "none"})
	res, err := q.Exec()
	c.Assert(err, IsNil)
	n, err := res.RowsAffected()
	c.Assert(err, IsNil)
	c.Check(n, Equals, int64(1))

	update := dynsql.MustPrepare("UPDATE person SET email = :email WHERE id = :id")
	c.Assert(db.Query(context.Background(), update, dynsql.M{"id": 70, "email": "jim@email.com"}).Run(), IsNil)

	var email string
	row := db.PlainDB().QueryRow("SELECT email FROM person WHERE id = 70")
	c.Assert(row.Scan(&email), IsNil)
	c.Check(email, Equals, "jim@email.com")

	c.Check(db.Query(nil, update).Run(), ErrorMatches, "cannot render statement: no value for :email")
}

func (s *PackageSuite) TestTransactions(c *C) {
	db := personDB(c)
	ctx := context.Background()
	insert := dynsql.MustPrepare("INSERT INTO person (name, id, address_id) VALUES (:name, :id, :address_id)")
	sel := dynsql.MustPrepare("SELECT id, name, address_id FROM person WHERE id = :id")
	derek := Person{ID: 85, Fullname: "Derek", PostalCode: 8000}

	// Insert derek then roll back.
	tx, err := db.Begin(ctx, nil)
	c.Assert(err, IsNil)
	c.Assert(tx.Query(ctx, insert, &derek).Run(), IsNil)
	c.Assert(tx.Rollback(), IsNil)

	// Derek is not there; insert him and commit.
	tx, err = db.Begin(ctx, nil)
	c.Assert(err, IsNil)
	var check Person
	c.Assert(tx.Query(ctx, sel, dynsql.M{"id": 85}).Get(&check), Equals, dynsql.ErrNoRows)
	c.Assert(tx.Query(ctx, insert, &derek).Run(), IsNil)
	c.Assert(tx.Commit(), IsNil)

	c.Assert(db.Query(ctx, sel, dynsql.M{"id": 85}).Get(&check), IsNil)
	c.Check(check, Equals, derek)

	// Queries built before the end of a transaction fail when run.
	tx, err = db.Begin(ctx, &dynsql.TXOptions{})
	c.Assert(err, IsNil)
	q := tx.Query(ctx, insert, &derek)
	c.Assert(tx.Rollback(), IsNil)
	c.Check(q.Run(), ErrorMatches, "sql: transaction has already been committed or rolled back")
	c.Check(tx.Commit(), Equals, dynsql.ErrTXDone)
	c.Check(tx.Query(ctx, insert, &derek).Run(), Equals, dynsql.ErrTXDone)
}
