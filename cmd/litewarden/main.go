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

// Litewarden inspects and tunes SQLite databases from the command line.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/litewarden/litewarden/indexer"
	"github.com/litewarden/litewarden/internal/util/debug"
	"github.com/litewarden/litewarden/internal/util/logging"
	"github.com/litewarden/litewarden/internal/util/state"
	"github.com/litewarden/litewarden/litewarden"
	"github.com/litewarden/litewarden/optimizer"
)

// The cli struct represents all command-line commands, fields and flags.
// It's used for parsing the user input.
var cli struct {
	DB        string `default:"file:data.sqlite" help:"SQLite URI."`
	PoolSize  int    `default:"1"                help:"The number of connections to open."`
	StateFile string `default:""                 help:"Process state file path. Not persisted if empty."`
	DebugAddr string `default:""                 help:"Listen address for HTTP handlers for metrics, pprof, etc. Disabled if empty."`

	Log struct {
		Level string `default:"warn"  help:"Log level: debug, info, warn, error."`
		UUID  bool   `default:"false" help:"Add instance UUID to all log messages." negatable:""`
	} `embed:"" prefix:"log-"`

	Analyze      analyzeCmd      `cmd:"" help:"Derive index recommendations from a query workload."`
	Optimize     optimizeCmd     `cmd:"" help:"Apply PRAGMA-level optimizations."`
	Stats        statsCmd        `cmd:"" help:"Print schema and engine statistics."`
	BackupAdvice backupAdviceCmd `cmd:"" help:"Print backup recommendations."`
}

type analyzeCmd struct {
	QueriesFile        string        `arg:"" type:"existingfile" help:"File with one SQL query per line."`
	MinFrequency       int           `default:"1"  help:"Patterns seen fewer times are ignored."`
	SlowQueryThreshold time.Duration `default:"1s" help:"Patterns slower on average always qualify."`
	MaxRecommendations int           `default:"20" help:"Limit the number of recommendations."`
}

func (cmd *analyzeCmd) Run(ctx context.Context, lw *litewarden.Litewarden) error {
	f, err := os.Open(cmd.QueriesFile)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read-only file

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := scanner.Text(); q != "" {
			lw.Recorder().Record(q, 0, "")
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	res, err := lw.Recorder().AnalyzeAndRecommend(ctx, &indexer.AnalyzeOptions{
		MinFrequency:       cmd.MinFrequency,
		SlowQueryThreshold: cmd.SlowQueryThreshold,
		MaxRecommendations: cmd.MaxRecommendations,
	})
	if err != nil {
		return err
	}

	fmt.Println(res.Summary)

	for _, rec := range res.Recommendations {
		fmt.Printf("  [%s/%s] %s\n    %s\n", rec.Priority, rec.Impact, rec.Reason, rec.SQL)
	}

	for _, name := range res.RedundantIndexes {
		fmt.Printf("  redundant index: %s\n", name)
	}

	return nil
}

type optimizeCmd struct {
	JournalMode string `default:"WAL"    help:"Target journal mode."            enum:"DELETE,TRUNCATE,PERSIST,MEMORY,WAL,OFF"`
	Synchronous string `default:"NORMAL" help:"Target synchronous mode."        enum:"OFF,NORMAL,FULL,EXTRA"`
	AutoVacuum  string `default:"NONE"   help:"Target auto vacuum mode."        enum:"NONE,FULL,INCREMENTAL"`
	TempStore   string `default:"MEMORY" help:"Target temp store."              enum:"DEFAULT,FILE,MEMORY"`
	CacheSize   int64  `default:"-64000" help:"Target cache size (negative for KiB)."`

	NoPragma  bool `default:"false" help:"Do not apply configuration PRAGMAs."`
	NoTuning  bool `default:"false" help:"Do not refresh planner statistics."`
	DryReport bool `default:"false" help:"Alias of --no-pragma --no-tuning."   hidden:""`
}

func (cmd *optimizeCmd) Run(ctx context.Context, lw *litewarden.Litewarden) error {
	config := optimizer.DefaultConfig()
	config.JournalMode = optimizer.JournalMode(cmd.JournalMode)
	config.Synchronous = optimizer.SynchronousMode(cmd.Synchronous)
	config.AutoVacuum = optimizer.AutoVacuumMode(cmd.AutoVacuum)
	config.TempStore = optimizer.TempStoreMode(cmd.TempStore)
	config.CacheSize = cmd.CacheSize
	config.EnableAutoPragma = !cmd.NoPragma && !cmd.DryReport
	config.EnablePerformanceTuning = !cmd.NoTuning && !cmd.DryReport

	res := lw.Optimizer().OptimizeDatabase(ctx, config)

	for _, s := range res.Applied {
		fmt.Printf("applied: %s\n", s)
	}

	for _, s := range res.Recommendations {
		fmt.Printf("recommendation: %s\n", s)
	}

	for _, s := range res.Warnings {
		fmt.Printf("warning: %s\n", s)
	}

	if res.Impact != "" {
		fmt.Printf("performance impact: %s\n", res.Impact)
	}

	return nil
}

type statsCmd struct{}

func (cmd *statsCmd) Run(ctx context.Context, lw *litewarden.Litewarden) error {
	metrics, err := lw.Optimizer().AnalyzeDatabase(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("database: %s\n", lw.Pool().Path())

	if metrics.PageCount != nil && metrics.PageSize != nil {
		fmt.Printf("size: %d bytes (%d pages)\n", *metrics.PageCount**metrics.PageSize, *metrics.PageCount)
	}

	if metrics.JournalMode != nil {
		fmt.Printf("journal mode: %s\n", *metrics.JournalMode)
	}

	if metrics.FreelistCount != nil {
		fmt.Printf("free pages: %d\n", *metrics.FreelistCount)
	}

	fmt.Printf("integrity: %v\n", metrics.IntegrityOK)

	tables, err := lw.Catalog().Tables(ctx)
	if err != nil {
		return err
	}

	for _, table := range tables {
		indexes, err := lw.Catalog().Indexes(ctx, table)
		if err != nil {
			return err
		}

		fmt.Printf("table %s: %d indexes\n", table, len(indexes))

		for _, idx := range indexes {
			fmt.Printf("  %s (%v)\n", idx.Name, idx.Columns)
		}
	}

	stats := lw.Pool().Stats()
	fmt.Printf("pool: %d connections, %d free, %d waiting\n", stats.Conns, stats.Free, stats.Waiting)

	return nil
}

type backupAdviceCmd struct{}

func (cmd *backupAdviceCmd) Run(ctx context.Context, lw *litewarden.Litewarden) error {
	recs, err := lw.Optimizer().BackupRecommendations(ctx)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("no special precautions needed; the database file can be copied as is")
		return nil
	}

	for _, s := range recs {
		fmt.Println(s)
	}

	return nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("litewarden"),
		kong.Description("SQLite administration toolkit."),
		kong.DefaultEnvars("LITEWARDEN"),
	)

	level, err := zap.ParseAtomicLevel(cli.Log.Level)
	kctx.FatalIfErrorf(err)

	var uuid string

	if cli.Log.UUID {
		sp, err := state.NewProvider(cli.StateFile)
		kctx.FatalIfErrorf(err)

		uuid = sp.Get().UUID
	}

	logging.Setup(level.Level(), uuid)
	logger := zap.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lw, err := litewarden.New(ctx, &litewarden.Config{
		URI:           cli.DB,
		PoolSize:      cli.PoolSize,
		StateFilePath: cli.StateFile,
		Logger:        logger,
	})
	kctx.FatalIfErrorf(err)

	defer lw.Close()

	if cli.DebugAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			lw,
		)

		go debug.RunHandler(ctx, cli.DebugAddr, registry, logger.Named("debug"))
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(lw)

	kctx.FatalIfErrorf(kctx.Run())
}
