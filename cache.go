// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dynsql

import (
	"context"
	"database/sql"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/canonical/dynsql/internal/ast"
)

// stmtIDCount and dbIDCount are used to generate unique IDs.
var stmtIDCount uint64
var dbIDCount uint64

type dbID = uint64
type stmtID = uint64

// statementCache caches the sql.Stmt objects prepared for each Statement. The
// SQL of a Statement depends on the variables it is rendered with, so a
// Statement can hold several sql.Stmt values on the same database, one per
// distinct rendered SQL string.
//
// The cache closes sql.Stmt objects with a finalizer on the Statement.
// Similarly a finalizer on a DB closes all statements prepared on it, closes
// the sql.DB and removes references to it from the cache.
//
// The mutex must be locked when accessing either stmtDBCache or dbStmtCache.
type statementCache struct {
	stmtDBCache map[stmtID]map[dbID]map[string]*sql.Stmt
	dbStmtCache map[dbID]map[stmtID]bool
	mutex       sync.RWMutex
}

var once sync.Once
var singleStmtCache *statementCache

// newStatementCache returns the single instance of the statement cache.
func newStatementCache() *statementCache {
	once.Do(func() {
		singleStmtCache = &statementCache{
			stmtDBCache: map[stmtID]map[dbID]map[string]*sql.Stmt{},
			dbStmtCache: map[dbID]map[stmtID]bool{},
		}
	})
	return singleStmtCache
}

// newStatement returns a new Statement and allocates it in the cache. The
// finalizer set on the Statement closes every sql.Stmt prepared for it.
func (sc *statementCache) newStatement(parsed *ast.Statement, opts options) *Statement {
	cacheID := atomic.AddUint64(&stmtIDCount, 1)
	s := &Statement{parsed: parsed, opts: opts, cacheID: cacheID}
	sc.mutex.Lock()
	sc.stmtDBCache[cacheID] = map[dbID]map[string]*sql.Stmt{}
	sc.mutex.Unlock()
	runtime.SetFinalizer(s, sc.removeAndCloseStmtFunc)
	return s
}

// newDB returns a new DB and allocates it in the cache. The finalizer set on
// the DB closes every sql.Stmt prepared on it and then closes the sql.DB.
func (sc *statementCache) newDB(sqldb *sql.DB) *DB {
	cacheID := atomic.AddUint64(&dbIDCount, 1)
	sc.mutex.Lock()
	sc.dbStmtCache[cacheID] = map[stmtID]bool{}
	sc.mutex.Unlock()
	db := &DB{sqldb: sqldb, cacheID: cacheID}
	runtime.SetFinalizer(db, sc.removeAndCloseDBFunc)
	return db
}

// lookupStmt returns the sql.Stmt prepared for s on db with the given query.
func (sc *statementCache) lookupStmt(db *DB, s *Statement, query string) (*sql.Stmt, bool) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	// The statement ID is only removed from the cache when the finalizer is
	// run, so it is always in stmtDBCache.
	sqlstmt, ok := sc.stmtDBCache[s.cacheID][db.cacheID][query]
	return sqlstmt, ok
}

// driverPrepareStmt prepares query on db and adds it to the cache as a
// statement of s.
func (sc *statementCache) driverPrepareStmt(ctx context.Context, db *DB, s *Statement, query string) (*sql.Stmt, error) {
	sqlstmt, err := db.sqldb.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	dbCache := sc.stmtDBCache[s.cacheID]
	if dbCache[db.cacheID] == nil {
		dbCache[db.cacheID] = map[string]*sql.Stmt{}
	}
	// Another query may have prepared the same SQL since the lookup.
	if alt, ok := dbCache[db.cacheID][query]; ok {
		sqlstmt.Close()
		return alt, nil
	}
	dbCache[db.cacheID][query] = sqlstmt
	sc.dbStmtCache[db.cacheID][s.cacheID] = true
	return sqlstmt, nil
}

// removeAndCloseStmtFunc removes a Statement from the cache and closes the
// sql.Stmt values prepared for it.
func (sc *statementCache) removeAndCloseStmtFunc(s *Statement) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	for dbCacheID, stmts := range sc.stmtDBCache[s.cacheID] {
		for _, sqlstmt := range stmts {
			sqlstmt.Close()
		}
		delete(sc.dbStmtCache[dbCacheID], s.cacheID)
	}
	delete(sc.stmtDBCache, s.cacheID)
}

// removeAndCloseDBFunc closes and removes from the cache all sql.Stmt values
// prepared on db, removes db from the cache and closes the sql.DB.
func (sc *statementCache) removeAndCloseDBFunc(db *DB) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	for sID := range sc.dbStmtCache[db.cacheID] {
		dbCache := sc.stmtDBCache[sID]
		for _, sqlstmt := range dbCache[db.cacheID] {
			sqlstmt.Close()
		}
		delete(dbCache, db.cacheID)
	}
	delete(sc.dbStmtCache, db.cacheID)
	db.sqldb.Close()
}
