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

package optimizer

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/litewarden/litewarden/catalog"
	"github.com/litewarden/litewarden/internal/util/fsql"
	"github.com/litewarden/litewarden/internal/util/testutil"
)

func newTestOptimizer(t *testing.T, uri string) (*Optimizer, *fsql.DB) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", uri)
	require.NoError(t, err)

	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		require.NoError(t, sqlDB.Close())
	})

	l := testutil.Logger(t)
	db := fsql.WrapDB(sqlDB, "optimizer", l)

	return New(db, catalog.New(db, l), nil, l), db
}

func TestAnalyzeDatabase(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	o, db := newTestOptimizer(t, testutil.DatabaseURI(t))

	_, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	m, err := o.AnalyzeDatabase(ctx)
	require.NoError(t, err)

	assert.True(t, m.IntegrityOK)

	require.NotNil(t, m.PageCount)
	assert.Positive(t, *m.PageCount)

	require.NotNil(t, m.PageSize)
	assert.Positive(t, *m.PageSize)

	require.NotNil(t, m.JournalMode)
	assert.Equal(t, "delete", *m.JournalMode)

	require.NotNil(t, m.ForeignKeys)
	assert.Zero(t, *m.ForeignKeys)
}

func TestOptimizeDatabase(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	o, db := newTestOptimizer(t, testutil.DatabaseURI(t))

	_, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	res := o.OptimizeDatabase(ctx, nil)

	assert.Empty(t, res.Warnings)
	assert.NotEmpty(t, res.Applied)
	assert.NotEmpty(t, res.Impact)

	// a fresh database starts without WAL and without foreign key enforcement
	assert.Contains(t, res.Applied, "enabled WAL journal mode")
	assert.Contains(t, res.Applied, "enabled foreign key enforcement")

	var journalMode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestOptimizeDatabaseIdempotent(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	o, db := newTestOptimizer(t, testutil.DatabaseURI(t))

	_, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	first := o.OptimizeDatabase(ctx, nil)
	require.Empty(t, first.Warnings)
	require.NotEmpty(t, first.Applied)

	// everything already matches the configuration
	second := o.OptimizeDatabase(ctx, nil)
	assert.Empty(t, second.Warnings)
	assert.Empty(t, second.Applied)
	assert.Empty(t, second.Impact)
}

func TestOptimizeRecommendations(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	o, db := newTestOptimizer(t, testutil.DatabaseURI(t))

	_, err := db.ExecContext(ctx, "CREATE TABLE unindexed (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	res := o.OptimizeDatabase(ctx, &Config{
		EnableBackupRecommendations: true,
	})

	var found bool
	for _, rec := range res.Recommendations {
		if rec == `table "unindexed" has no indexes; queries against it always scan` {
			found = true
		}
	}
	assert.True(t, found, "recommendations: %v", res.Recommendations)

	// auto-pragma disabled: nothing is applied
	assert.Empty(t, res.Applied)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	o, db := newTestOptimizer(t, testutil.DatabaseURI(t))

	dbID := catalog.DatabaseID(ctx, db)
	assert.Empty(t, o.History(dbID))

	res := o.OptimizeDatabase(ctx, nil)

	history := o.History(dbID)
	require.Len(t, history, 1)
	assert.Equal(t, res, history[0])

	o.OptimizeDatabase(ctx, nil)
	assert.Len(t, o.History(dbID), 2)

	o.ClearHistory()
	assert.Empty(t, o.History(dbID))
}

func TestVacuumAndCheckpoint(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	o, db := newTestOptimizer(t, testutil.DatabaseURI(t))

	_, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode))
	require.Equal(t, "wal", mode)

	_, err = db.ExecContext(ctx, "INSERT INTO t (v) VALUES ('x')")
	require.NoError(t, err)

	require.NoError(t, o.Checkpoint(ctx))
	require.NoError(t, o.Vacuum(ctx))
}

func TestBackupRecommendations(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	o, db := newTestOptimizer(t, testutil.DatabaseURI(t))

	recs, err := o.BackupRecommendations(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode))
	require.Equal(t, "wal", mode)

	recs, err = o.BackupRecommendations(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0], "-wal")
}

func TestSuggestIndexOptimizations(t *testing.T) {
	t.Parallel()

	o, _ := newTestOptimizer(t, testutil.MemoryURI(t))

	suggestions := o.SuggestIndexOptimizations([]string{
		"SELECT * FROM users WHERE email = 'a@example.com'",
		"SELECT id FROM users WHERE email = 'b@example.com' AND status = 'active'",
		"SELECT count(*) FROM users WHERE email LIKE '%@example.com'",
		"SELECT * FROM orders WHERE total > 100",
	})

	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0], "users.email")
	assert.Contains(t, suggestions[0], "CREATE INDEX idx_users_email ON users (email)")
}

func TestSuggestIndexOptimizationsBelowThreshold(t *testing.T) {
	t.Parallel()

	o, _ := newTestOptimizer(t, testutil.MemoryURI(t))

	assert.Empty(t, o.SuggestIndexOptimizations([]string{
		"SELECT * FROM users WHERE email = ?",
		"SELECT * FROM users WHERE email = ?",
	}))
}
