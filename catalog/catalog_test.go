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

package catalog

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/litewarden/litewarden/internal/util/fsql"
	"github.com/litewarden/litewarden/internal/util/testutil"
)

func newTestDB(t *testing.T, uri string) *fsql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", uri)
	require.NoError(t, err)

	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		require.NoError(t, sqlDB.Close())
	})

	return fsql.WrapDB(sqlDB, "catalog", testutil.Logger(t))
}

func TestTables(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	db := newTestDB(t, testutil.DatabaseURI(t))
	c := New(db, testutil.Logger(t))

	tables, err := c.Tables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)

	_, err = db.ExecContext(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT)")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER)")
	require.NoError(t, err)

	// AUTOINCREMENT creates the internal sqlite_sequence table,
	// which must not be listed
	_, err = db.ExecContext(ctx, "CREATE TABLE logs (id INTEGER PRIMARY KEY AUTOINCREMENT)")
	require.NoError(t, err)

	tables, err = c.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"logs", "orders", "users"}, tables)
}

func TestIndexes(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	db := newTestDB(t, testutil.DatabaseURI(t))
	c := New(db, testutil.Logger(t))

	_, err := db.ExecContext(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, status TEXT, created INTEGER)")
	require.NoError(t, err)

	indexes, err := c.Indexes(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, indexes)

	_, err = db.ExecContext(ctx, "CREATE UNIQUE INDEX idx_users_email ON users (email)")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "CREATE INDEX idx_users_status_created ON users (status, created)")
	require.NoError(t, err)

	indexes, err = c.Indexes(ctx, "users")
	require.NoError(t, err)
	require.Len(t, indexes, 2)

	byName := map[string]Index{}
	for _, idx := range indexes {
		assert.Equal(t, "users", idx.Table)
		byName[idx.Name] = idx
	}

	email := byName["idx_users_email"]
	assert.True(t, email.Unique)
	assert.Equal(t, []string{"email"}, email.Columns)

	status := byName["idx_users_status_created"]
	assert.False(t, status.Unique)
	assert.Equal(t, []string{"status", "created"}, status.Columns)
}

func TestIndexesUnknownTable(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	db := newTestDB(t, testutil.DatabaseURI(t))
	c := New(db, testutil.Logger(t))

	indexes, err := c.Indexes(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, indexes)
}

func TestDatabaseID(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	db := newTestDB(t, testutil.DatabaseURI(t))
	id := DatabaseID(ctx, db)
	assert.NotEqual(t, "unknown", id)
	assert.Contains(t, id, "test.sqlite")

	mem := newTestDB(t, testutil.MemoryURI(t))
	assert.Equal(t, "unknown", DatabaseID(ctx, mem))

	assert.Equal(t, "unknown", DatabaseID(context.Background(), closedQuerier(t)))
}

// closedQuerier returns a database handle whose queries always fail.
func closedQuerier(t *testing.T) *fsql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", "file:"+t.TempDir()+"/closed.sqlite")
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	return fsql.WrapDB(sqlDB, "closed", testutil.Logger(t))
}
