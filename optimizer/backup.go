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
	"context"
	"fmt"
	"strings"

	"github.com/litewarden/litewarden/internal/util/lazyerrors"
	"github.com/litewarden/litewarden/internal/util/observability"
)

// largeDatabaseBytes is the size above which a plain file copy becomes
// impractical for backups.
const largeDatabaseBytes = 100 * 1024 * 1024

// BackupRecommendations returns advice on how to back up the database safely
// given its current journal mode and size.
func (o *Optimizer) BackupRecommendations(ctx context.Context) ([]string, error) {
	defer observability.FuncCall(ctx)()

	var recs []string

	var mode string
	if err := o.q.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return nil, lazyerrors.Error(err)
	}

	if strings.EqualFold(mode, "wal") {
		recs = append(recs,
			"database uses WAL; a file copy must include the -wal and -shm companion files, "+
				"or run PRAGMA wal_checkpoint(TRUNCATE) first")
	}

	var pageCount, pageSize int64

	if err := o.q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, lazyerrors.Error(err)
	}

	if err := o.q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, lazyerrors.Error(err)
	}

	if size := pageCount * pageSize; size > largeDatabaseBytes {
		recs = append(recs, fmt.Sprintf(
			"database is %d bytes; use the online backup API or VACUUM INTO instead of copying the file",
			size,
		))
	}

	return recs, nil
}
