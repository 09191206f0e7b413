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

package pool

import (
	"context"
	"database/sql"

	"github.com/litewarden/litewarden/internal/util/fsql"
)

// Conn is a single physical connection to the database file.
//
// A Conn is owned by the pool while free and exclusively by its holder
// between Acquire and Release; it must not be shared concurrently.
type Conn struct {
	c *fsql.Conn

	// holdsWriteLock is set while this connection is inside an explicit
	// transaction that holds the process write mutex.
	// Guarded by the pool's mutex.
	holdsWriteLock bool
}

// QueryContext executes a query that returns rows on this connection.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*fsql.Rows, error) {
	return c.c.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row on this connection.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.c.QueryRowContext(ctx, query, args...)
}

// ExecContext executes a query that does not return rows on this connection.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.c.ExecContext(ctx, query, args...)
}

// check interfaces
var (
	_ fsql.Querier = (*Conn)(nil)
)
