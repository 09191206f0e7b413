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

package litewarden_test

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litewarden/litewarden/internal/util/testutil"
	"github.com/litewarden/litewarden/litewarden"
)

func TestNew(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	_, err := litewarden.New(ctx, &litewarden.Config{})
	require.Error(t, err)

	lw, err := litewarden.New(ctx, &litewarden.Config{
		URI:      testutil.DatabaseURI(t),
		PoolSize: 2,
		Logger:   testutil.Logger(t),
	})
	require.NoError(t, err)
	defer lw.Close()

	conn, err := lw.Pool().Acquire(ctx)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, status TEXT)")
	require.NoError(t, err)

	lw.Pool().Release(conn)

	tables, err := lw.Catalog().Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)

	for i := 0; i < 5; i++ {
		lw.Recorder().Record("SELECT * FROM users WHERE status = ?", 10*time.Millisecond, "")
	}

	res, err := lw.Recorder().AnalyzeAndRecommend(ctx, nil)
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)

	opt := lw.Optimizer().OptimizeDatabase(ctx, nil)
	assert.Empty(t, opt.Warnings)
}

func Example() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lw, err := litewarden.New(ctx, &litewarden.Config{
		URI: "file:example?mode=memory",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer lw.Close()

	conn, err := lw.Pool().Acquire(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer lw.Pool().Release(conn)

	if _, err = conn.ExecContext(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY)"); err != nil {
		log.Fatal(err)
	}

	tables, err := lw.Catalog().Tables(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(tables)
	// Output: [items]
}
