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

// Package catalog provides read-only access to the live database schema:
// tables and their existing indexes.
package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/litewarden/litewarden/internal/util/fsql"
	"github.com/litewarden/litewarden/internal/util/lazyerrors"
	"github.com/litewarden/litewarden/internal/util/observability"
)

// This prefix is reserved by SQLite for internal use,
// see https://www.sqlite.org/lang_createtable.html.
const reservedTablePrefix = "sqlite_"

// Index describes an existing index.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// Catalog reads schema information from one database.
type Catalog struct {
	q fsql.Querier
	l *zap.Logger
}

// New creates a catalog over the given database handle.
func New(q fsql.Querier, l *zap.Logger) *Catalog {
	return &Catalog{
		q: q,
		l: l.Named("catalog"),
	}
}

// Tables returns a sorted list of user table names,
// excluding SQLite's own internal tables.
func (c *Catalog) Tables(ctx context.Context) ([]string, error) {
	defer observability.FuncCall(ctx)()

	q := "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE ? ORDER BY name"

	rows, err := c.q.QueryContext(ctx, q, reservedTablePrefix+"%")
	if err != nil {
		return nil, lazyerrors.Error(err)
	}
	defer rows.Close()

	var res []string

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, lazyerrors.Error(err)
		}

		res = append(res, name)
	}

	if err = rows.Err(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// Indexes returns existing indexes of the given table in definition order.
//
// A metadata failure for an individual index is logged
// and that index is skipped; it is never fatal.
func (c *Catalog) Indexes(ctx context.Context, table string) ([]Index, error) {
	defer observability.FuncCall(ctx)()

	rows, err := c.q.QueryContext(ctx, `SELECT name, "unique" FROM pragma_index_list(?) ORDER BY seq`, table)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}
	defer rows.Close()

	var res []Index

	for rows.Next() {
		idx := Index{
			Table: table,
		}

		var unique int
		if err = rows.Scan(&idx.Name, &unique); err != nil {
			return nil, lazyerrors.Error(err)
		}

		idx.Unique = unique != 0

		res = append(res, idx)
	}

	if err = rows.Err(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	filtered := res[:0]

	for _, idx := range res {
		columns, err := c.indexColumns(ctx, idx.Name)
		if err != nil {
			c.l.Warn(
				"Failed to read index columns; treating index as absent.",
				zap.String("table", table), zap.String("index", idx.Name), zap.Error(err),
			)

			continue
		}

		idx.Columns = columns
		filtered = append(filtered, idx)
	}

	return filtered, nil
}

// indexColumns returns the ordered column list of the given index.
func (c *Catalog) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT name FROM pragma_index_info(?) ORDER BY seqno", index)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}
	defer rows.Close()

	var res []string

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, lazyerrors.Error(err)
		}

		res = append(res, name)
	}

	if err = rows.Err(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// DatabaseID returns a best-effort identifier of the database
// (the main database file path), or "unknown".
func DatabaseID(ctx context.Context, q fsql.Querier) string {
	var file string

	err := q.QueryRowContext(ctx, "SELECT file FROM pragma_database_list() WHERE name = 'main'").Scan(&file)
	if err != nil || file == "" {
		return "unknown"
	}

	return file
}
