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

package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "users", TableName("SELECT * FROM users WHERE id = 1"))
	assert.Equal(t, "users", TableName(`SELECT * FROM "users" u JOIN orders o ON o.user_id = u.id`))
	assert.Equal(t, "orders", TableName("select count(*) from ORDERS"))
	assert.Equal(t, "", TableName("PRAGMA journal_mode"))
}

func TestWhereColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"status", "created_at"},
		WhereColumns("SELECT * FROM users WHERE status = 'active' AND created_at > 1000"),
	)

	// table qualifiers are stripped, duplicates are collapsed
	assert.Equal(t,
		[]string{"status"},
		WhereColumns("SELECT * FROM users u WHERE u.status = ? OR u.status = ?"),
	)

	// IS, LIKE, and IN conditions contribute their columns
	assert.Equal(t,
		[]string{"email", "name", "id"},
		WhereColumns("SELECT * FROM users WHERE email IS NOT NULL AND name LIKE 'a%' AND id IN (1, 2)"),
	)

	// the ORDER BY clause is not part of the WHERE columns
	assert.Equal(t,
		[]string{"status"},
		WhereColumns("SELECT * FROM users WHERE status = ? ORDER BY created_at DESC"),
	)

	assert.Empty(t, WhereColumns("SELECT * FROM users"))
}

func TestExtractOrderByColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"created_at", "id"},
		extractOrderByColumns("SELECT * FROM users ORDER BY created_at DESC, id ASC LIMIT 10"),
	)

	assert.Equal(t,
		[]string{"name"},
		extractOrderByColumns("SELECT * FROM users ORDER BY u.name"),
	)

	assert.Empty(t, extractOrderByColumns("SELECT * FROM users WHERE id = 1"))
}

func TestExtractJoinColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"user_id"},
		extractJoinColumns("SELECT * FROM users u JOIN orders o ON o.user_id = u.id WHERE o.total > 100"),
	)

	assert.Equal(t,
		[]string{"user_id", "order_id"},
		extractJoinColumns(
			"SELECT * FROM users u JOIN orders o ON o.user_id = u.id JOIN items i ON i.order_id = o.id",
		),
	)

	assert.Empty(t, extractJoinColumns("SELECT * FROM users"))
}

func TestAppendColumn(t *testing.T) {
	t.Parallel()

	// keywords and numeric literals captured by the comparison heuristic are dropped
	assert.Empty(t, appendColumn(nil, "AND"))
	assert.Empty(t, appendColumn(nil, "1"))
	assert.Empty(t, appendColumn(nil, "2.5"))
	assert.Equal(t, []string{"id"}, appendColumn(nil, "Users.ID"))
}
