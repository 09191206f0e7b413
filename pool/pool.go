// Copyright 2024 Litewarden Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pool provides a connection pool and transaction manager
// for a single SQLite database file.
//
// The pool owns N physical connections so that N independent blocking calls
// can be in flight at once; it does not parallelize SQLite's single writer.
// All explicit and implicit writes are serialized by a process-wide write
// mutex shared by every pool against the same file path (see [LockRegistry]),
// so a long exclusive lock wait happens cooperatively in the mutex
// instead of inside the native call.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register database/sql driver

	"github.com/litewarden/litewarden/internal/util/fsql"
	"github.com/litewarden/litewarden/internal/util/lazyerrors"
	"github.com/litewarden/litewarden/internal/util/observability"
	"github.com/litewarden/litewarden/internal/util/resource"
	"github.com/litewarden/litewarden/internal/util/state"
)

// memoryPath is the resolved path for databases that have no backing file.
const memoryPath = ":memory:"

// setupPragmas are applied to every new connection, in order.
var setupPragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA journal_size_limit = 67108864",
	"PRAGMA temp_store = MEMORY",
}

// ErrClosed is returned by pool operations before initialization or after Close.
var ErrClosed = fmt.Errorf("pool is not initialized or already destroyed")

// Config represents pool configuration.
type Config struct {
	// SQLite URI, for example `file:data/app.sqlite` or `file:test?mode=memory`.
	URI string

	// The number of physical connections to open.
	// Default is 1; in-memory databases are always limited to 1,
	// as each new connection to them would be a separate database.
	Size int

	// Registry of process-wide write mutexes. Required.
	// All pools against the same file must share one registry.
	Registry *LockRegistry

	// Logger. Required.
	Logger *zap.Logger

	// If set, the discovered engine version is recorded there.
	StateProvider *state.Provider

	// If set, it is run on every connection after the setup PRAGMAs.
	ConnHook func(context.Context, *Conn) error
}

// Pool owns physical connections to one database file
// and serializes write access to it.
//
//nolint:vet // for readability
type Pool struct {
	uri  string
	path string
	l    *zap.Logger

	db        *fsql.DB
	writeLock *Mutex
	registry  *LockRegistry

	rw      sync.Mutex
	conns   []*Conn
	free    []*Conn
	waiters []chan *Conn
	closed  bool

	token *resource.Token
}

// New opens the configured number of connections, applies setup PRAGMAs on each,
// and attaches to the process-wide write mutex for the database file path.
//
// A PRAGMA or hook failure on any connection aborts initialization.
func New(ctx context.Context, config *Config) (*Pool, error) {
	if config.Registry == nil {
		return nil, lazyerrors.New("config.Registry is required")
	}

	size := config.Size
	if size < 1 {
		size = 1
	}

	// Each connection to an in-memory database without a shared cache
	// is a separate database, so only one may exist.
	// File-backed databases get one spare connection on top of the pool
	// for the tooling handle (see Tooling).
	mem := memory(config.URI)

	open := size + 1
	if mem {
		size = 1
		open = 1
	}

	sqlDB, err := sql.Open("sqlite", config.URI)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	sqlDB.SetConnMaxIdleTime(0)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetMaxIdleConns(open)
	sqlDB.SetMaxOpenConns(open)

	p := &Pool{
		uri:      config.URI,
		l:        config.Logger.Named("pool"),
		db:       fsql.WrapDB(sqlDB, "pool", config.Logger),
		registry: config.Registry,
		token:    resource.NewToken(),
	}

	for i := 0; i < size; i++ {
		c, err := p.db.Conn(ctx)
		if err != nil {
			p.closeConns()
			_ = p.db.Close()

			return nil, lazyerrors.Error(err)
		}

		conn := &Conn{c: c}

		for _, q := range setupPragmas {
			if _, err = conn.ExecContext(ctx, q); err != nil {
				_ = c.Close()
				p.closeConns()
				_ = p.db.Close()

				return nil, lazyerrors.Errorf("%s: %w", q, err)
			}
		}

		if config.ConnHook != nil {
			if err = config.ConnHook(ctx, conn); err != nil {
				_ = c.Close()
				p.closeConns()
				_ = p.db.Close()

				return nil, lazyerrors.Error(err)
			}
		}

		p.conns = append(p.conns, conn)
		p.free = append(p.free, conn)
	}

	// Configure the spare connection too.
	// The pooled connections are never returned to database/sql,
	// so every statement on the db handle runs on the spare one.
	if !mem {
		for _, q := range setupPragmas {
			if _, err = p.db.ExecContext(ctx, q); err != nil {
				p.closeConns()
				_ = p.db.Close()

				return nil, lazyerrors.Errorf("%s: %w", q, err)
			}
		}
	}

	p.path = p.resolvePath(ctx)
	p.writeLock = p.registry.acquire(p.path)

	p.recordEngineVersion(ctx, config.StateProvider)

	resource.Track(p, p.token)

	p.l.Debug("Pool opened.", zap.String("path", p.path), zap.Int("size", size))

	return p, nil
}

// memory returns true if the URI points to an in-memory database.
func memory(uri string) bool {
	return strings.Contains(uri, ":memory:") || strings.Contains(uri, "mode=memory")
}

// resolvePath returns the file path of the main database,
// or [memoryPath] when it is unavailable.
func (p *Pool) resolvePath(ctx context.Context) string {
	var path string

	err := p.conns[0].QueryRowContext(ctx, "SELECT file FROM pragma_database_list() WHERE name = 'main'").Scan(&path)
	if err != nil || path == "" {
		return memoryPath
	}

	return path
}

// recordEngineVersion stores the engine version in the state provider, if any.
func (p *Pool) recordEngineVersion(ctx context.Context, sp *state.Provider) {
	if sp == nil {
		return
	}

	if err := sp.Update(func(s *state.State) {
		if s.EngineVersion != "" {
			return
		}

		row := p.conns[0].QueryRowContext(ctx, "SELECT sqlite_version()")
		if err := row.Scan(&s.EngineVersion); err != nil {
			p.l.Error("Failed to query SQLite version.", zap.Error(err))
		}
	}); err != nil {
		p.l.Error("Failed to update state.", zap.Error(err))
	}
}

// Tooling returns a handle for schema introspection and PRAGMA-level tooling.
//
// For file-backed databases it is the shared database handle with its own
// spare connection, so tooling statements do not compete with pooled
// connections. An in-memory database has exactly one connection, which is
// shared with the pool; tooling statements are then serialized with pooled
// work by database/sql.
//
// Statements run through it are not serialized by the write mutex;
// it must not be used for data writes.
func (p *Pool) Tooling() fsql.Querier {
	if p.path == memoryPath {
		return p.conns[0].c
	}

	return p.db
}

// Path returns the resolved file path of the database, or [memoryPath].
func (p *Pool) Path() string {
	return p.path
}

// Acquire returns a free connection,
// or suspends the caller in strict FIFO order until one is released.
//
// It returns [ErrClosed] if the pool is not initialized or already destroyed.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	defer observability.FuncCall(ctx)()

	p.rw.Lock()

	if p.closed {
		p.rw.Unlock()
		return nil, ErrClosed
	}

	if len(p.free) > 0 {
		conn := p.free[0]
		p.free = p.free[1:]
		p.rw.Unlock()

		return conn, nil
	}

	ch := make(chan *Conn, 1)
	p.waiters = append(p.waiters, ch)

	p.rw.Unlock()

	select {
	case conn := <-ch:
		if conn == nil {
			return nil, ErrClosed
		}

		return conn, nil

	case <-ctx.Done():
		p.rw.Lock()

		for i, w := range p.waiters {
			if w == ch {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				p.rw.Unlock()

				return nil, ctx.Err()
			}
		}

		p.rw.Unlock()

		// Release delivered a connection concurrently with cancellation;
		// put it back so it is not lost
		if conn := <-ch; conn != nil {
			p.Release(conn)
		}

		return nil, ctx.Err()
	}
}

// Release returns the connection to the pool,
// handing it to the oldest waiter if there is one.
//
// If the connection still holds the process write mutex
// (abrupt release without a matching commit or rollback),
// the mutex is unlocked first.
func (p *Pool) Release(conn *Conn) {
	p.rw.Lock()

	if conn.holdsWriteLock {
		conn.holdsWriteLock = false
		p.writeLock.Unlock()

		p.l.Warn("Connection released while holding the write lock; releasing the lock.")
	}

	if p.closed {
		p.rw.Unlock()
		return
	}

	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.rw.Unlock()

		ch <- conn

		return
	}

	p.free = append(p.free, conn)
	p.rw.Unlock()
}

// Begin acquires the process write mutex
// (suspending if it is held elsewhere for this file path),
// then starts an immediate transaction on the connection.
func (p *Pool) Begin(ctx context.Context, conn *Conn) error {
	defer observability.FuncCall(ctx)()

	if err := p.writeLock.Lock(ctx); err != nil {
		return lazyerrors.Error(err)
	}

	p.rw.Lock()
	conn.holdsWriteLock = true
	p.rw.Unlock()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		p.rw.Lock()
		conn.holdsWriteLock = false
		p.rw.Unlock()

		p.writeLock.Unlock()

		return lazyerrors.Error(err)
	}

	return nil
}

// Commit commits the transaction and releases the write mutex if the connection holds it.
func (p *Pool) Commit(ctx context.Context, conn *Conn) error {
	defer observability.FuncCall(ctx)()

	_, err := conn.ExecContext(ctx, "COMMIT")

	p.unlockHeld(conn)

	if err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// Rollback rolls back the transaction and releases the write mutex if the connection holds it.
func (p *Pool) Rollback(ctx context.Context, conn *Conn) error {
	defer observability.FuncCall(ctx)()

	_, err := conn.ExecContext(ctx, "ROLLBACK")

	p.unlockHeld(conn)

	if err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// unlockHeld releases the write mutex if the connection holds it.
func (p *Pool) unlockHeld(conn *Conn) {
	p.rw.Lock()
	held := conn.holdsWriteLock
	conn.holdsWriteLock = false
	p.rw.Unlock()

	if held {
		p.writeLock.Unlock()
	}
}

// Savepoint creates a named savepoint on the connection.
//
// Savepoints do not touch the write mutex;
// they are only meaningful inside an already-held transaction.
func (p *Pool) Savepoint(ctx context.Context, conn *Conn, name string) error {
	_, err := conn.ExecContext(ctx, "SAVEPOINT "+quoteIdent(name))
	if err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// RollbackTo rolls back to the named savepoint.
func (p *Pool) RollbackTo(ctx context.Context, conn *Conn, name string) error {
	_, err := conn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+quoteIdent(name))
	if err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// ReleaseSavepoint releases the named savepoint.
func (p *Pool) ReleaseSavepoint(ctx context.Context, conn *Conn, name string) error {
	_, err := conn.ExecContext(ctx, "RELEASE SAVEPOINT "+quoteIdent(name))
	if err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// Execute runs a single statement outside of an explicit transaction.
//
// Writes transiently take the process write mutex around just that statement;
// reads run immediately, as concurrent reads are safe under WAL.
func (p *Pool) Execute(ctx context.Context, conn *Conn, q CompiledQuery) (*fsql.Rows, error) {
	defer observability.FuncCall(ctx)()

	if isWriteStatement(q.SQL) {
		if err := p.writeLock.Lock(ctx); err != nil {
			return nil, lazyerrors.Error(err)
		}
		defer p.writeLock.Unlock()
	}

	rows, err := conn.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return rows, nil
}

// Close closes all physical connections, fails pending waiters,
// and detaches from the process-wide write mutex.
func (p *Pool) Close() {
	p.rw.Lock()

	if p.closed {
		p.rw.Unlock()
		return
	}

	p.closed = true

	for _, ch := range p.waiters {
		ch <- nil
	}
	p.waiters = nil

	p.closeConns()

	p.rw.Unlock()

	_ = p.db.Close()

	p.registry.release(p.path)

	resource.Untrack(p, p.token)

	p.l.Debug("Pool closed.", zap.String("path", p.path))
}

// closeConns closes all physical connections.
//
// It does not lock p.rw.
func (p *Pool) closeConns() {
	for _, conn := range p.conns {
		_ = conn.c.Close()
	}

	p.conns = nil
	p.free = nil
}

// quoteIdent returns a double-quoted SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
