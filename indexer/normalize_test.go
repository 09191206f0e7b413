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

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"select * from users where id = ?",
		Normalize("SELECT * FROM users WHERE id = 42"),
	)

	// literal, positional, and named parameters all fold to the same key
	for _, q := range []string{
		"SELECT * FROM users WHERE status = 'active'",
		"SELECT * FROM users WHERE status = ?",
		"SELECT * FROM users WHERE status = $1",
		"SELECT * FROM users WHERE status = :status",
		"SELECT * FROM users WHERE status = @status",
		"select  *  from users\n\twhere status = 'pending'",
	} {
		assert.Equal(t, "select * from users where status = ?", Normalize(q), "query: %q", q)
	}
}

func TestNormalizeLiterals(t *testing.T) {
	t.Parallel()

	// escaped quote inside a string literal
	assert.Equal(t,
		"select * from users where name = ?",
		Normalize("SELECT * FROM users WHERE name = 'O''Brien'"),
	)

	// numbers inside identifiers are kept
	assert.Equal(t,
		"select col1 from t2 where x = ?",
		Normalize("SELECT col1 FROM t2 WHERE x = 10"),
	)
}
