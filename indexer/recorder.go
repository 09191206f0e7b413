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

// Package indexer turns observed query traffic into prioritized index
// recommendations.
//
// The recorder aggregates executed queries into patterns keyed by their
// normalized text; the recommendation engine compares those patterns
// against the live schema catalog.
package indexer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/litewarden/litewarden/catalog"
	"github.com/litewarden/litewarden/internal/util/fsql"
)

// QueryPattern aggregates executed queries that normalize to the same text.
type QueryPattern struct {
	Query        string // normalized
	Frequency    int
	AvgTime      time.Duration
	LastSeen     time.Time
	Table        string
	WhereColumns []string
	OrderColumns []string
	JoinColumns  []string
}

// Recorder ingests executed-query telemetry and aggregates it into patterns.
//
// One Recorder is constructed per database handle and passed to collaborators;
// there is no process-wide instance.
type Recorder struct {
	q   fsql.Querier
	cat *catalog.Catalog
	l   *zap.Logger

	rw       sync.RWMutex
	patterns map[string]*QueryPattern
	history  map[string][]*AnalysisResult

	now func() time.Time
}

// NewRecorder creates a recorder over the given database handle and schema catalog.
func NewRecorder(q fsql.Querier, cat *catalog.Catalog, l *zap.Logger) *Recorder {
	return &Recorder{
		q:        q,
		cat:      cat,
		l:        l.Named("indexer"),
		patterns: map[string]*QueryPattern{},
		history:  map[string][]*AnalysisResult{},
		now:      time.Now,
	}
}

// Record ingests one executed query.
//
// The table may be empty; it is then inferred from the first FROM clause.
// Candidate columns are extracted only when the pattern is first seen,
// since the normalized text fully determines them.
func (r *Recorder) Record(query string, execTime time.Duration, table string) {
	key := Normalize(query)

	r.rw.Lock()
	defer r.rw.Unlock()

	if p := r.patterns[key]; p != nil {
		p.Frequency++
		p.AvgTime = (p.AvgTime*time.Duration(p.Frequency-1) + execTime) / time.Duration(p.Frequency)
		p.LastSeen = r.now()

		return
	}

	if table == "" {
		table = extractTable(query)
	}

	r.patterns[key] = &QueryPattern{
		Query:        key,
		Frequency:    1,
		AvgTime:      execTime,
		LastSeen:     r.now(),
		Table:        table,
		WhereColumns: extractWhereColumns(query),
		OrderColumns: extractOrderByColumns(query),
		JoinColumns:  extractJoinColumns(query),
	}
}

// PatternStats returns a copy of all recorded patterns,
// sorted by frequency descending.
func (r *Recorder) PatternStats() []QueryPattern {
	r.rw.RLock()
	defer r.rw.RUnlock()

	res := make([]QueryPattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		res = append(res, *p)
	}

	slices.SortStableFunc(res, func(a, b QueryPattern) int {
		return b.Frequency - a.Frequency
	})

	return res
}

// History returns past analysis results for the given database identifier.
func (r *Recorder) History(dbID string) []*AnalysisResult {
	r.rw.RLock()
	defer r.rw.RUnlock()

	return slices.Clone(r.history[dbID])
}

// Reset removes all recorded patterns and analysis history.
func (r *Recorder) Reset() {
	r.rw.Lock()
	defer r.rw.Unlock()

	r.patterns = map[string]*QueryPattern{}
	r.history = map[string][]*AnalysisResult{}
}

// Parts of Prometheus metric names.
const (
	namespace = "litewarden"
	subsystem = "indexer"
)

// Describe implements prometheus.Collector.
func (r *Recorder) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(r, ch)
}

// Collect implements prometheus.Collector.
func (r *Recorder) Collect(ch chan<- prometheus.Metric) {
	r.rw.RLock()
	n := len(r.patterns)
	r.rw.RUnlock()

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "patterns"),
			"The current number of recorded query patterns.",
			nil, nil,
		),
		prometheus.GaugeValue,
		float64(n),
	)
}

// check interfaces
var (
	_ prometheus.Collector = (*Recorder)(nil)
)
