// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dynsql

import (
	"context"
	"database/sql"
	"runtime"
	"testing"
	"time"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func TestPackage(t *testing.T) { TestingT(t) }

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

func (s *CacheSuite) TearDownTest(c *C) {
	// Check every test finishes cleanly.
	s.triggerFinalizers()
	s.checkDriverStmtsAllClosed(c)
}

func (s *CacheSuite) TestPreparedStatementReuse(c *C) {
	db := s.openDB(c)

	var stmtID uint64
	// For a Statement or DB to be removed from the cache it needs to go out of
	// scope and be garbage collected. A function is used to "forget" the
	// statement.
	func() {
		stmt, err := Prepare(`SELECT 'test'`)
		c.Assert(err, IsNil)
		stmtID = stmt.cacheID

		err = db.Query(nil, stmt).Run()
		c.Assert(err, IsNil)

		s.checkStmtInCache(c, db.cacheID, stmt.cacheID)
		s.checkNumDBStmts(c, db.cacheID, 1)
		s.checkDriverStmtsOpened(c, 1)

		// Running a second time does not prepare a second statement.
		err = db.Query(nil, stmt).Run()
		c.Assert(err, IsNil)
		s.checkNumDBStmts(c, db.cacheID, 1)
		s.checkDriverStmtsOpened(c, 1)
		s.checkQueriesRunOnStmt(c, 2)
	}()

	s.triggerFinalizers()

	s.checkStmtNotInCache(c, stmtID)
	s.checkDriverStmtsAllClosed(c)
}

func (s *CacheSuite) TestRenderedVariantsPreparedSeparately(c *C) {
	db := s.openDB(c)
	stmt, err := Prepare(`SELECT 1 WHERE 1 = 1 {? AND 2 = :two}`)
	c.Assert(err, IsNil)

	c.Assert(db.Query(nil, stmt).Run(), IsNil)
	c.Assert(db.Query(nil, stmt, M{"two": 2}).Run(), IsNil)
	c.Assert(db.Query(nil, stmt, M{"two": 3}).Run(), IsNil)

	// One statement per distinct rendered SQL.
	s.checkStmtInCache(c, db.cacheID, stmt.cacheID)
	s.checkNumSQLForStmt(c, db.cacheID, stmt.cacheID, 2)
	s.checkDriverStmtsOpened(c, 2)
	s.checkQueriesRunOnStmt(c, 3)
}

func (s *CacheSuite) TestClosingDB(c *C) {
	stmt, err := Prepare(`SELECT 'test'`)
	c.Assert(err, IsNil)

	var dbID uint64
	func() {
		db := s.openDB(c)
		dbID = db.cacheID

		err = db.Query(nil, stmt).Run()
		c.Assert(err, IsNil)

		s.checkStmtInCache(c, db.cacheID, stmt.cacheID)
		s.checkNumDBStmts(c, db.cacheID, 1)
		s.checkDriverStmtsOpened(c, 1)
	}()

	s.triggerFinalizers()
	s.checkDBNotInCache(c, dbID)
	s.checkDriverStmtsAllClosed(c)

	// The statement runs fine on a new DB.
	db := s.openDB(c)
	err = db.Query(nil, stmt).Run()
	c.Assert(err, IsNil)

	s.checkStmtInCache(c, db.cacheID, stmt.cacheID)
	s.checkNumDBStmts(c, db.cacheID, 1)
	s.checkDriverStmtsOpened(c, 2)
}

func (s *CacheSuite) TestPreparedStatementsInTX(c *C) {
	db := s.openDB(c)
	stmt, err := Prepare(`SELECT :x`)
	c.Assert(err, IsNil)

	// Not prepared on the DB yet, so the transaction runs the SQL directly.
	tx, err := db.Begin(nil, nil)
	c.Assert(err, IsNil)
	c.Assert(tx.Query(nil, stmt, M{"x": 1}).Run(), IsNil)
	c.Assert(tx.Commit(), IsNil)
	s.checkQueriesRunOnDB(c, 1)
	s.checkDriverStmtsOpened(c, 0)

	// Once prepared on the DB the transaction reuses the statement.
	c.Assert(db.Query(nil, stmt, M{"x": 1}).Run(), IsNil)
	s.checkDriverStmtsOpened(c, 1)

	tx, err = db.Begin(nil, nil)
	c.Assert(err, IsNil)
	c.Assert(tx.Query(nil, stmt, M{"x": 2}).Run(), IsNil)
	c.Assert(tx.Commit(), IsNil)
	s.checkQueriesRunOnStmt(c, 2)
}

func (s *CacheSuite) TestLateQueryTX(c *C) {
	db := s.openDB(c)
	stmt, err := Prepare(`SELECT 1`)
	c.Assert(err, IsNil)

	tx, err := db.Begin(nil, nil)
	c.Assert(err, IsNil)
	q := tx.Query(nil, stmt)
	c.Assert(tx.Commit(), IsNil)

	err = q.Run()
	c.Assert(err, ErrorMatches, "sql: transaction has already been committed or rolled back")

	err = tx.Query(nil, stmt).Run()
	c.Assert(err, Equals, ErrTXDone)
}

func (s *CacheSuite) openDB(c *C) *DB {
	db, err := sql.Open("sqlite3_tracked", "file:test.db?cache=shared&mode=memory&"+testNameTag+"="+c.TestName())
	c.Assert(err, IsNil)
	return NewDB(db)
}

func (s *CacheSuite) triggerFinalizers() {
	// Try to run finalizers by calling GC several times.
	for i := 0; i <= 10; i++ {
		runtime.GC()
		time.Sleep(0)
	}
}

func (s *CacheSuite) checkStmtInCache(c *C, dbID, stmtID uint64) {
	stmtCache.mutex.RLock()
	defer stmtCache.mutex.RUnlock()
	_, ok := stmtCache.stmtDBCache[stmtID][dbID]
	c.Check(ok, Equals, true)
	_, ok = stmtCache.dbStmtCache[dbID][stmtID]
	c.Check(ok, Equals, true)
}

func (s *CacheSuite) checkStmtNotInCache(c *C, stmtID uint64) {
	stmtCache.mutex.RLock()
	defer stmtCache.mutex.RUnlock()
	_, ok := stmtCache.stmtDBCache[stmtID]
	c.Check(ok, Equals, false)
	for _, dbc := range stmtCache.dbStmtCache {
		_, ok := dbc[stmtID]
		c.Check(ok, Equals, false)
	}
}

func (s *CacheSuite) checkDBNotInCache(c *C, dbID uint64) {
	stmtCache.mutex.RLock()
	defer stmtCache.mutex.RUnlock()
	_, ok := stmtCache.dbStmtCache[dbID]
	c.Check(ok, Equals, false)
	for _, sc := range stmtCache.stmtDBCache {
		_, ok := sc[dbID]
		c.Check(ok, Equals, false)
	}
}

func (s *CacheSuite) checkNumDBStmts(c *C, dbID uint64, n int) {
	stmtCache.mutex.RLock()
	defer stmtCache.mutex.RUnlock()
	sc, ok := stmtCache.dbStmtCache[dbID]
	c.Check(ok, Equals, true)
	c.Check(sc, HasLen, n)
}

func (s *CacheSuite) checkNumSQLForStmt(c *C, dbID, stmtID uint64, n int) {
	stmtCache.mutex.RLock()
	defer stmtCache.mutex.RUnlock()
	c.Check(stmtCache.stmtDBCache[stmtID][dbID], HasLen, n)
}

func (s *CacheSuite) checkDriverStmtsAllClosed(c *C) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(len(openedStmts[c.TestName()]), Equals, len(closedStmts[c.TestName()]))
}

func (s *CacheSuite) checkDriverStmtsOpened(c *C, n int) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(openedStmts[c.TestName()], HasLen, n)
}

func (s *CacheSuite) checkQueriesRunOnDB(c *C, n int) {
	queriesRunMutex.RLock()
	defer queriesRunMutex.RUnlock()
	c.Check(dbQueriesRun[c.TestName()], Equals, n)
}

func (s *CacheSuite) checkQueriesRunOnStmt(c *C, n int) {
	queriesRunMutex.RLock()
	defer queriesRunMutex.RUnlock()
	c.Check(stmtQueriesRun[c.TestName()], Equals, n)
}

// Context is accepted as nil everywhere above, so make sure a real one works
// too.
func (s *CacheSuite) TestQueryWithContext(c *C) {
	db := s.openDB(c)
	stmt, err := Prepare(`SELECT :a`)
	c.Assert(err, IsNil)
	rows, err := db.Query(context.Background(), stmt, M{"a": "x"}).Rows()
	c.Assert(err, IsNil)
	c.Assert(rows.Next(), Equals, true)
	var got string
	c.Assert(rows.Scan(&got), IsNil)
	c.Assert(rows.Close(), IsNil)
	c.Check(got, Equals, "x")
}
