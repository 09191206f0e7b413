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

// Package testutil provides testing helpers.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
)

// Ctx returns test context that is canceled when the test finishes.
func Ctx(tb testing.TB) context.Context {
	tb.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	tb.Cleanup(cancel)

	return ctx
}

// DatabaseURI returns a SQLite URI for a file-backed database in a per-test temporary directory.
func DatabaseURI(tb testing.TB) string {
	tb.Helper()

	return "file:" + filepath.Join(tb.TempDir(), "test.sqlite")
}

// MemoryURI returns a SQLite URI for a shared in-memory database unique to the test.
func MemoryURI(tb testing.TB) string {
	tb.Helper()

	return "file:" + tb.Name() + "?mode=memory"
}
