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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/litewarden/litewarden/internal/util/lazyerrors"
	"github.com/litewarden/litewarden/internal/util/observability"
)

// Metrics is a point-in-time snapshot of engine configuration and health.
//
// A nil field means the corresponding value could not be read.
type Metrics struct {
	PageCount     *int64
	PageSize      *int64
	FreelistCount *int64
	SchemaVersion *int64
	UserVersion   *int64
	ApplicationID *int64
	CacheSize     *int64
	Synchronous   *int64
	JournalMode   *string
	AutoVacuum    *int64
	TempStore     *int64
	ForeignKeys   *int64
	IntegrityOK   bool
}

// AnalyzeDatabase reads engine configuration and runs an integrity check,
// returning a fresh metrics snapshot.
//
// Individual configuration reads that fail are logged at debug level and
// left nil; a failure of the integrity check query itself is returned
// as an error, since a wrong-but-successful snapshot could mislead.
func (o *Optimizer) AnalyzeDatabase(ctx context.Context) (*Metrics, error) {
	defer observability.FuncCall(ctx)()

	var m Metrics

	var eg errgroup.Group

	for _, r := range []struct {
		pragma string
		dst    **int64
	}{
		{"page_count", &m.PageCount},
		{"page_size", &m.PageSize},
		{"freelist_count", &m.FreelistCount},
		{"schema_version", &m.SchemaVersion},
		{"user_version", &m.UserVersion},
		{"application_id", &m.ApplicationID},
		{"cache_size", &m.CacheSize},
		{"synchronous", &m.Synchronous},
		{"auto_vacuum", &m.AutoVacuum},
		{"temp_store", &m.TempStore},
		{"foreign_keys", &m.ForeignKeys},
	} {
		r := r

		eg.Go(func() error {
			v, err := o.readInt(ctx, r.pragma)
			if err != nil {
				o.l.Debug("Failed to read PRAGMA.", zap.String("pragma", r.pragma), zap.Error(err))
				return nil
			}

			*r.dst = &v

			return nil
		})
	}

	eg.Go(func() error {
		var v string

		if err := o.q.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&v); err != nil {
			o.l.Debug("Failed to read PRAGMA.", zap.String("pragma", "journal_mode"), zap.Error(err))
			return nil
		}

		m.JournalMode = &v

		return nil
	})

	eg.Go(func() error {
		var v string

		if err := o.q.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&v); err != nil {
			return lazyerrors.Error(err)
		}

		m.IntegrityOK = v == "ok"

		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &m, nil
}

// readInt reads a single integer-valued PRAGMA.
func (o *Optimizer) readInt(ctx context.Context, pragma string) (int64, error) {
	var v int64

	if err := o.q.QueryRowContext(ctx, "PRAGMA "+pragma).Scan(&v); err != nil {
		return 0, lazyerrors.Error(err)
	}

	return v, nil
}
