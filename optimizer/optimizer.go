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

// Package optimizer inspects and tunes engine-level SQLite configuration.
//
// Configuration changes are idempotent: a setting is only adjusted when the
// current value differs from the configured target, so a second run with the
// same configuration applies nothing.
package optimizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/litewarden/litewarden/catalog"
	"github.com/litewarden/litewarden/internal/util/fsql"
	"github.com/litewarden/litewarden/internal/util/observability"
	"github.com/litewarden/litewarden/internal/util/state"
)

// Config represents optimization configuration.
type Config struct {
	EnableAutoPragma            bool
	EnableAutoIndexing          bool // reserved for index recommendation integration
	EnablePerformanceTuning     bool
	EnableBackupRecommendations bool

	SlowQueryThreshold int64 // milliseconds

	AutoVacuum  AutoVacuumMode
	JournalMode JournalMode
	Synchronous SynchronousMode
	CacheSize   int64 // negative for KiB, positive for pages
	TempStore   TempStoreMode
}

// DefaultConfig returns optimization configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		EnableAutoPragma:            true,
		EnableAutoIndexing:          false,
		EnablePerformanceTuning:     true,
		EnableBackupRecommendations: true,
		SlowQueryThreshold:          1000,
		AutoVacuum:                  AutoVacuumNone,
		JournalMode:                 JournalWAL,
		Synchronous:                 SynchronousNormal,
		CacheSize:                   -64000,
		TempStore:                   TempStoreMemory,
	}
}

// Result is the outcome of one optimization run.
type Result struct {
	Applied         []string // descriptions of applied changes
	Recommendations []string // advisory-only suggestions, never auto-applied
	Impact          string   // overall performance impact of applied changes
	Warnings        []string
}

// Optimizer inspects and tunes one database.
//
// One Optimizer is constructed per database handle and passed to
// collaborators; there is no process-wide instance.
type Optimizer struct {
	q   fsql.Querier
	cat *catalog.Catalog
	sp  *state.Provider
	l   *zap.Logger

	rw      sync.RWMutex
	history map[string][]*Result
}

// New creates an optimizer over the given database handle and schema catalog.
//
// The state provider is used to gate engine-version-dependent statements;
// it may be nil.
func New(q fsql.Querier, cat *catalog.Catalog, sp *state.Provider, l *zap.Logger) *Optimizer {
	return &Optimizer{
		q:       q,
		cat:     cat,
		sp:      sp,
		l:       l.Named("optimizer"),
		history: map[string][]*Result{},
	}
}

// OptimizeDatabase applies and recommends configuration changes.
//
// It never returns an error: any unexpected failure is recorded in the
// result's warnings and the partial result is returned.
// Callers needing failure visibility must inspect Warnings.
func (o *Optimizer) OptimizeDatabase(ctx context.Context, config *Config) *Result {
	defer observability.FuncCall(ctx)()

	if config == nil {
		config = DefaultConfig()
	}

	res := new(Result)

	metrics, err := o.AnalyzeDatabase(ctx)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("analysis failed: %s", err))

		o.record(ctx, res)

		return res
	}

	if config.EnableAutoPragma {
		o.applyPragmas(ctx, config, metrics, res)
	}

	if config.EnablePerformanceTuning {
		o.tune(ctx, config, metrics, res)
	}

	o.recommend(ctx, config, metrics, res)

	o.record(ctx, res)

	return res
}

// applyPragmas applies configuration PRAGMAs that differ from their targets.
//
// A failure of a single PRAGMA is recorded as a warning and
// does not stop the remaining adjustments.
// The impact field is overwritten by each successful change,
// so it reflects the last adjustment only.
func (o *Optimizer) applyPragmas(ctx context.Context, config *Config, metrics *Metrics, res *Result) {
	if config.JournalMode == JournalWAL && metrics.JournalMode != nil && !strings.EqualFold(*metrics.JournalMode, "wal") {
		var mode string
		if err := o.q.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to enable WAL: %s", err))
		} else {
			res.Applied = append(res.Applied, "enabled WAL journal mode")
			res.Impact = "high"
		}
	}

	if metrics.CacheSize != nil && magnitude(*metrics.CacheSize) < magnitude(config.CacheSize) {
		if _, err := o.q.ExecContext(ctx, fmt.Sprintf("PRAGMA cache_size = %d", config.CacheSize)); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to raise cache size: %s", err))
		} else {
			res.Applied = append(res.Applied, fmt.Sprintf("raised cache size to %d", config.CacheSize))
			res.Impact = "medium"
		}
	}

	if metrics.ForeignKeys != nil && *metrics.ForeignKeys == 0 {
		if _, err := o.q.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to enable foreign keys: %s", err))
		} else {
			res.Applied = append(res.Applied, "enabled foreign key enforcement")
			res.Impact = "low"
		}
	}

	if metrics.Synchronous != nil && *metrics.Synchronous != config.Synchronous.ordinal() {
		if _, err := o.q.ExecContext(ctx, "PRAGMA synchronous = "+string(config.Synchronous)); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to set synchronous mode: %s", err))
		} else {
			res.Applied = append(res.Applied, fmt.Sprintf("set synchronous mode to %s", config.Synchronous))
			res.Impact = "medium"
		}
	}

	if metrics.TempStore != nil && *metrics.TempStore != config.TempStore.ordinal() {
		if _, err := o.q.ExecContext(ctx, "PRAGMA temp_store = "+string(config.TempStore)); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to set temp store: %s", err))
		} else {
			res.Applied = append(res.Applied, fmt.Sprintf("set temp store to %s", config.TempStore))
			res.Impact = "low"
		}
	}
}

// tune refreshes planner statistics and corrects the auto-vacuum mode.
func (o *Optimizer) tune(ctx context.Context, config *Config, metrics *Metrics, res *Result) {
	if _, err := o.q.ExecContext(ctx, "ANALYZE"); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("ANALYZE failed: %s", err))
	}

	// PRAGMA optimize is unavailable on engines before 3.18;
	// its failure is expected there and is not a warning
	if o.engineSupportsOptimize() {
		if _, err := o.q.ExecContext(ctx, "PRAGMA optimize"); err != nil {
			o.l.Debug("PRAGMA optimize failed.", zap.Error(err))
		}
	}

	if metrics.AutoVacuum != nil && *metrics.AutoVacuum != config.AutoVacuum.ordinal() {
		if _, err := o.q.ExecContext(ctx, "PRAGMA auto_vacuum = "+string(config.AutoVacuum)); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to set auto vacuum: %s", err))
		} else {
			res.Applied = append(res.Applied, fmt.Sprintf("set auto vacuum to %s", config.AutoVacuum))
			res.Impact = "low"
		}
	}
}

// recommend generates advisory-only suggestions; nothing here is auto-applied.
func (o *Optimizer) recommend(ctx context.Context, config *Config, metrics *Metrics, res *Result) {
	if metrics.FreelistCount != nil && *metrics.FreelistCount > 100 {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("database has %d free pages; consider VACUUM to reduce fragmentation", *metrics.FreelistCount))
	}

	if !metrics.IntegrityOK {
		res.Recommendations = append(res.Recommendations,
			"integrity check failed; investigate before further optimization")
	}

	tables, err := o.cat.Tables(ctx)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("failed to list tables: %s", err))
	}

	for _, table := range tables {
		indexes, err := o.cat.Indexes(ctx, table)
		if err != nil {
			o.l.Debug("Failed to list indexes.", zap.String("table", table), zap.Error(err))
			continue
		}

		if len(indexes) == 0 {
			res.Recommendations = append(res.Recommendations,
				fmt.Sprintf("table %q has no indexes; queries against it always scan", table))
		}
	}

	if metrics.CacheSize != nil && magnitude(*metrics.CacheSize) < 32000 {
		res.Recommendations = append(res.Recommendations,
			"cache size is small; consider raising it for read-heavy workloads")
	}

	if metrics.JournalMode != nil && !strings.EqualFold(*metrics.JournalMode, "wal") {
		res.Recommendations = append(res.Recommendations,
			"journal mode is not WAL; WAL allows concurrent readers alongside the writer")
	}

	if config.EnableBackupRecommendations {
		backup, err := o.BackupRecommendations(ctx)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("failed to build backup recommendations: %s", err))
		} else {
			res.Recommendations = append(res.Recommendations, backup...)
		}
	}
}

// record stores the result in the optimization history.
func (o *Optimizer) record(ctx context.Context, res *Result) {
	dbID := catalog.DatabaseID(ctx, o.q)

	o.rw.Lock()
	o.history[dbID] = append(o.history[dbID], res)
	o.rw.Unlock()
}

// History returns past optimization results for the given database identifier.
func (o *Optimizer) History(dbID string) []*Result {
	o.rw.RLock()
	defer o.rw.RUnlock()

	return slices.Clone(o.history[dbID])
}

// ClearHistory removes all recorded optimization results.
func (o *Optimizer) ClearHistory() {
	o.rw.Lock()
	defer o.rw.Unlock()

	o.history = map[string][]*Result{}
}

// Vacuum rebuilds the database file to reclaim unused space.
func (o *Optimizer) Vacuum(ctx context.Context) error {
	defer observability.FuncCall(ctx)()

	_, err := o.q.ExecContext(ctx, "VACUUM")

	return err
}

// Checkpoint truncates the WAL file after copying its content into the database.
func (o *Optimizer) Checkpoint(ctx context.Context) error {
	defer observability.FuncCall(ctx)()

	return o.q.QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").Err()
}

// engineSupportsOptimize reports whether the engine is known to support
// PRAGMA optimize (3.18 or later).
// Without a recorded engine version, support is assumed.
func (o *Optimizer) engineSupportsOptimize() bool {
	if o.sp == nil {
		return true
	}

	version := o.sp.Get().EngineVersion
	if version == "" {
		return true
	}

	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return true
	}

	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return true
	}

	return major > 3 || (major == 3 && minor >= 18)
}

// magnitude returns the absolute value of a cache size
// (negative values mean KiB, positive mean pages).
func magnitude(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
