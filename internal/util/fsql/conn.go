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

package fsql

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/litewarden/litewarden/internal/util/observability"
	"github.com/litewarden/litewarden/internal/util/resource"
)

// Conn wraps a dedicated [*database/sql.Conn] with logging and resource tracking.
//
// Unlike *sql.DB, a Conn is pinned to a single physical connection,
// so per-connection state (PRAGMAs, open transactions, savepoints) is stable.
type Conn struct {
	sqlConn *sql.Conn
	l       *zap.Logger
	token   *resource.Token
}

// wrapConn creates a new Conn.
func wrapConn(c *sql.Conn, l *zap.Logger) *Conn {
	if c == nil {
		return nil
	}

	res := &Conn{
		sqlConn: c,
		l:       l,
		token:   resource.NewToken(),
	}

	resource.Track(res, res.token)

	return res
}

// Close calls [*sql.Conn.Close], returning the underlying connection to its owner.
func (c *Conn) Close() error {
	resource.Untrack(c, c.token)
	return c.sqlConn.Close()
}

// QueryContext calls [*sql.Conn.QueryContext].
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*Rows, error) {
	defer observability.FuncCall(ctx)()

	start := time.Now()

	fields := []any{zap.Any("args", args)}
	c.l.Sugar().With(fields...).Debugf(">>> %s", query)

	rows, err := c.sqlConn.QueryContext(ctx, query, args...)

	fields = append(fields, zap.Duration("time", time.Since(start)), zap.Error(err))
	c.l.Sugar().With(fields...).Debugf("<<< %s", query)

	return wrapRows(rows), err
}

// QueryRowContext calls [*sql.Conn.QueryRowContext].
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer observability.FuncCall(ctx)()

	start := time.Now()

	fields := []any{zap.Any("args", args)}
	c.l.Sugar().With(fields...).Debugf(">>> %s", query)

	row := c.sqlConn.QueryRowContext(ctx, query, args...)

	fields = append(fields, zap.Duration("time", time.Since(start)), zap.Error(row.Err()))
	c.l.Sugar().With(fields...).Debugf("<<< %s", query)

	return row
}

// ExecContext calls [*sql.Conn.ExecContext].
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer observability.FuncCall(ctx)()

	start := time.Now()

	fields := []any{zap.Any("args", args)}
	c.l.Sugar().With(fields...).Debugf(">>> %s", query)

	res, err := c.sqlConn.ExecContext(ctx, query, args...)

	// to differentiate between 0 and nil
	var ra *int64

	if res != nil {
		rav, _ := res.RowsAffected()
		ra = &rav
	}

	fields = append(fields, zap.Int64p("rows", ra), zap.Duration("time", time.Since(start)), zap.Error(err))
	c.l.Sugar().With(fields...).Debugf("<<< %s", query)

	return res, err
}

// check interfaces
var (
	_ Querier = (*Conn)(nil)
)
