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

// Package litewarden provides an embeddable administration layer
// for a SQLite database: a write-serializing connection pool,
// a query pattern recorder with index recommendations,
// and a PRAGMA-based optimizer.
package litewarden

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/litewarden/litewarden/catalog"
	"github.com/litewarden/litewarden/indexer"
	"github.com/litewarden/litewarden/internal/util/logging"
	"github.com/litewarden/litewarden/internal/util/state"
	"github.com/litewarden/litewarden/optimizer"
	"github.com/litewarden/litewarden/pool"
)

// registry is shared by all instances in the process,
// so that two instances over the same database file
// serialize their writes against each other.
var registry = pool.NewLockRegistry()

// Config represents Litewarden configuration.
type Config struct {
	// SQLite URI, for example `file:data/app.sqlite`.
	URI string

	// The number of physical connections to open.
	// Default is 1.
	PoolSize int

	// Path of the state file.
	// If empty, state is not persisted.
	StateFilePath string

	// Logger. If nil, the global zap logger is used.
	Logger *zap.Logger
}

// Litewarden wraps one administered SQLite database.
type Litewarden struct {
	config *Config

	sp  *state.Provider
	p   *pool.Pool
	cat *catalog.Catalog
	rec *indexer.Recorder
	opt *optimizer.Optimizer
}

// New opens the database and constructs the administration components around it.
func New(ctx context.Context, config *Config) (*Litewarden, error) {
	if config.URI == "" {
		return nil, errors.New("config.URI is empty")
	}

	l := config.Logger
	if l == nil {
		l = zap.L()
	}

	sp, err := state.NewProvider(config.StateFilePath)
	if err != nil {
		return nil, err
	}

	p, err := pool.New(ctx, &pool.Config{
		URI:           config.URI,
		Size:          config.PoolSize,
		Registry:      registry,
		Logger:        l,
		StateProvider: sp,
	})
	if err != nil {
		return nil, err
	}

	cat := catalog.New(p.Tooling(), l)

	return &Litewarden{
		config: config,
		sp:     sp,
		p:      p,
		cat:    cat,
		rec:    indexer.NewRecorder(p.Tooling(), cat, l),
		opt:    optimizer.New(p.Tooling(), cat, sp, l),
	}, nil
}

// Pool returns the connection pool.
func (lw *Litewarden) Pool() *pool.Pool {
	return lw.p
}

// Catalog returns the schema catalog.
func (lw *Litewarden) Catalog() *catalog.Catalog {
	return lw.cat
}

// Recorder returns the query pattern recorder.
func (lw *Litewarden) Recorder() *indexer.Recorder {
	return lw.rec
}

// Optimizer returns the database optimizer.
func (lw *Litewarden) Optimizer() *optimizer.Optimizer {
	return lw.opt
}

// Close closes the pool and all its connections.
func (lw *Litewarden) Close() {
	lw.p.Close()
}

// Describe implements prometheus.Collector.
func (lw *Litewarden) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(lw, ch)
}

// Collect implements prometheus.Collector.
func (lw *Litewarden) Collect(ch chan<- prometheus.Metric) {
	lw.p.Collect(ch)
	lw.rec.Collect(ch)
	lw.sp.MetricsCollector(false).Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*Litewarden)(nil)
)

// Initialize the global logger there to avoid surprises for zap users
// that initialize it in their `main()` functions.
func init() {
	logging.Setup(zap.ErrorLevel, "")
}
