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
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/litewarden/litewarden/catalog"
	"github.com/litewarden/litewarden/internal/util/lazyerrors"
	"github.com/litewarden/litewarden/internal/util/observability"
)

// Priority of an index recommendation.
type Priority string

// Recommendation priorities.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Impact is an estimated performance impact.
type Impact string

// Impact levels.
const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Kind of a recommended index.
type Kind string

// Index kinds.
const (
	KindSingle    Kind = "single"
	KindComposite Kind = "composite"
	KindUnique    Kind = "unique"
	KindPartial   Kind = "partial"
)

// Recommendation is a single recommended index.
type Recommendation struct {
	Table    string
	Columns  []string
	Kind     Kind
	Priority Priority
	Impact   Impact
	Reason   string
	SQL      string // generated CREATE INDEX statement
}

// AnalysisResult is the outcome of one analysis run.
type AnalysisResult struct {
	Recommendations  []Recommendation
	RedundantIndexes []string // names of existing indexes flagged as redundant
	MissingIndexes   []string // canonical names of recommended indexes not present yet
	Impact           Impact   // overall performance impact
	Summary          string
}

// AnalyzeOptions configures an analysis run.
type AnalyzeOptions struct {
	MinFrequency          int           // default 3
	SlowQueryThreshold    time.Duration // default 1s
	IncludePartialIndexes bool
	MaxRecommendations    int // default 20
}

// DefaultAnalyzeOptions returns analysis options with default values.
func DefaultAnalyzeOptions() *AnalyzeOptions {
	return &AnalyzeOptions{
		MinFrequency:          3,
		SlowQueryThreshold:    time.Second,
		IncludePartialIndexes: true,
		MaxRecommendations:    20,
	}
}

// fill replaces unset values with defaults.
func (opts *AnalyzeOptions) fill() {
	if opts.MinFrequency == 0 {
		opts.MinFrequency = 3
	}

	if opts.SlowQueryThreshold == 0 {
		opts.SlowQueryThreshold = time.Second
	}

	if opts.MaxRecommendations == 0 {
		opts.MaxRecommendations = 20
	}
}

// AnalyzeAndRecommend derives ranked index recommendations from the recorded
// patterns and the live schema catalog, and caches the result in the
// analysis history.
//
// Only the highest-frequency qualifying pattern per table contributes
// recommendations; later patterns for the same table are skipped.
func (r *Recorder) AnalyzeAndRecommend(ctx context.Context, opts *AnalyzeOptions) (*AnalysisResult, error) {
	defer observability.FuncCall(ctx)()

	var o AnalyzeOptions
	if opts == nil {
		o = *DefaultAnalyzeOptions()
	} else {
		o = *opts
		o.fill()
	}

	patterns := r.selectPatterns(&o)

	existing := map[string][]catalog.Index{}

	for _, p := range patterns {
		if p.Table == "" {
			continue
		}

		if _, ok := existing[p.Table]; ok {
			continue
		}

		indexes, err := r.cat.Indexes(ctx, p.Table)
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		existing[p.Table] = indexes
	}

	var recs []Recommendation
	seenTables := map[string]struct{}{}

	for _, p := range patterns {
		if p.Table == "" {
			continue
		}

		if _, ok := seenTables[p.Table]; ok {
			continue
		}
		seenTables[p.Table] = struct{}{}

		recs = append(recs, recommendForPattern(p, existing[p.Table])...)
	}

	recs = dedupe(recs)

	redundant := redundantIndexes(existing)
	missing := missingIndexes(recs, existing)

	rank(recs)

	if len(recs) > o.MaxRecommendations {
		recs = recs[:o.MaxRecommendations]
	}

	res := &AnalysisResult{
		Recommendations:  recs,
		RedundantIndexes: redundant,
		MissingIndexes:   missing,
		Impact:           overallImpact(recs),
	}
	res.Summary = fmt.Sprintf(
		"%d index recommendations across %d tables (%s overall impact, %d redundant, %d missing)",
		len(recs), len(seenTables), res.Impact, len(redundant), len(missing),
	)

	dbID := catalog.DatabaseID(ctx, r.q)

	r.rw.Lock()
	r.history[dbID] = append(r.history[dbID], res)
	r.rw.Unlock()

	return res, nil
}

// selectPatterns returns copies of patterns that are frequent or slow enough
// to analyze, sorted by frequency descending.
//
// Copies are taken under the lock so that recommendation generation
// does not race with Record updating the live patterns.
func (r *Recorder) selectPatterns(opts *AnalyzeOptions) []QueryPattern {
	r.rw.RLock()
	defer r.rw.RUnlock()

	var res []QueryPattern

	for _, p := range r.patterns {
		if p.Frequency >= opts.MinFrequency || p.AvgTime > opts.SlowQueryThreshold {
			res = append(res, *p)
		}
	}

	slices.SortStableFunc(res, func(a, b QueryPattern) int {
		return b.Frequency - a.Frequency
	})

	return res
}

// recommendForPattern produces recommendations for one contributing pattern.
func recommendForPattern(p QueryPattern, existing []catalog.Index) []Recommendation {
	var res []Recommendation

	priority := patternPriority(p)
	impact := patternImpact(p)

	for _, col := range p.WhereColumns {
		if hasSingleColumnIndex(existing, col) {
			continue
		}

		res = append(res, newRecommendation(
			p.Table, []string{col}, KindSingle, priority, impact,
			fmt.Sprintf("column %q is filtered in a query seen %d times (avg %s)", col, p.Frequency, p.AvgTime),
		))
	}

	if len(p.WhereColumns) > 1 {
		composite := p.WhereColumns
		if len(composite) > 3 {
			composite = composite[:3]
		}

		if !hasExactIndex(existing, composite) {
			res = append(res, newRecommendation(
				p.Table, composite, KindComposite, PriorityHigh, ImpactHigh,
				fmt.Sprintf("columns %s are filtered together", strings.Join(composite, ", ")),
			))
		}
	}

	for _, col := range p.OrderColumns {
		if hasSingleColumnIndex(existing, col) {
			continue
		}

		res = append(res, newRecommendation(
			p.Table, []string{col}, KindSingle, PriorityMedium, ImpactMedium,
			fmt.Sprintf("column %q is used for ordering", col),
		))
	}

	for _, col := range p.JoinColumns {
		if hasSingleColumnIndex(existing, col) {
			continue
		}

		res = append(res, newRecommendation(
			p.Table, []string{col}, KindSingle, PriorityHigh, ImpactHigh,
			fmt.Sprintf("column %q is used in a join condition", col),
		))
	}

	return res
}

// patternPriority derives recommendation priority from pattern statistics.
func patternPriority(p QueryPattern) Priority {
	switch {
	case p.AvgTime > 5*time.Second:
		return PriorityCritical
	case p.Frequency > 20:
		return PriorityHigh
	case p.Frequency > 10:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// patternImpact derives estimated impact from pattern statistics.
func patternImpact(p QueryPattern) Impact {
	switch {
	case p.AvgTime > 2*time.Second || p.Frequency > 15:
		return ImpactHigh
	case p.AvgTime > 500*time.Millisecond:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// newRecommendation builds a recommendation with its CREATE INDEX statement.
func newRecommendation(table string, columns []string, kind Kind, priority Priority, impact Impact, reason string) Recommendation {
	return Recommendation{
		Table:    table,
		Columns:  columns,
		Kind:     kind,
		Priority: priority,
		Impact:   impact,
		Reason:   reason,
		SQL: fmt.Sprintf(
			"CREATE INDEX %s ON %s (%s)",
			indexName(table, columns), table, strings.Join(columns, ", "),
		),
	}
}

// indexName returns the canonical name for a recommended index:
// idx_<table>_<column> for a single column, idx_<table>_<n>cols otherwise.
func indexName(table string, columns []string) string {
	if len(columns) == 1 {
		return fmt.Sprintf("idx_%s_%s", table, columns[0])
	}

	return fmt.Sprintf("idx_%s_%dcols", table, len(columns))
}

// hasSingleColumnIndex reports whether an existing index covers exactly the given column.
func hasSingleColumnIndex(existing []catalog.Index, column string) bool {
	for _, idx := range existing {
		if len(idx.Columns) == 1 && strings.EqualFold(idx.Columns[0], column) {
			return true
		}
	}

	return false
}

// hasExactIndex reports whether an existing index covers exactly the given columns in order.
func hasExactIndex(existing []catalog.Index, columns []string) bool {
	for _, idx := range existing {
		if len(idx.Columns) != len(columns) {
			continue
		}

		match := true

		for i := range columns {
			if !strings.EqualFold(idx.Columns[i], columns[i]) {
				match = false
				break
			}
		}

		if match {
			return true
		}
	}

	return false
}

// dedupe removes recommendations sharing the same (table, columns) pair,
// keeping the first occurrence.
func dedupe(recs []Recommendation) []Recommendation {
	seen := map[string]struct{}{}
	res := recs[:0]

	for _, rec := range recs {
		key := rec.Table + "\x00" + strings.Join(rec.Columns, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		res = append(res, rec)
	}

	return res
}

// redundantIndexes returns names of existing indexes whose column list
// starts with another same-table index's full column list.
//
// The longer index of such a pair is the one flagged.
func redundantIndexes(existing map[string][]catalog.Index) []string {
	var res []string

	for _, indexes := range existing {
		for _, a := range indexes {
			for _, b := range indexes {
				if a.Name == b.Name {
					continue
				}

				if len(a.Columns) < len(b.Columns) && isPrefix(a.Columns, b.Columns) {
					if !slices.Contains(res, b.Name) {
						res = append(res, b.Name)
					}
				}
			}
		}
	}

	slices.Sort(res)

	return res
}

// isPrefix reports whether shorter is a strict same-order prefix of longer.
func isPrefix(shorter, longer []string) bool {
	for i := range shorter {
		if !strings.EqualFold(shorter[i], longer[i]) {
			return false
		}
	}

	return true
}

// missingIndexes returns canonical names of recommended indexes
// that are not present among existing index names.
func missingIndexes(recs []Recommendation, existing map[string][]catalog.Index) []string {
	names := map[string]struct{}{}

	for _, indexes := range existing {
		for _, idx := range indexes {
			names[idx.Name] = struct{}{}
		}
	}

	var res []string

	for _, rec := range recs {
		name := indexName(rec.Table, rec.Columns)
		if _, ok := names[name]; !ok {
			res = append(res, name)
		}
	}

	return res
}

// priorityWeight and impactWeight are ranking multipliers.
var (
	priorityWeight = map[Priority]int{
		PriorityCritical: 4,
		PriorityHigh:     3,
		PriorityMedium:   2,
		PriorityLow:      1,
	}

	impactWeight = map[Impact]int{
		ImpactHigh:   3,
		ImpactMedium: 2,
		ImpactLow:    1,
	}
)

// rank sorts recommendations by priority weight times impact weight, descending.
func rank(recs []Recommendation) {
	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		return priorityWeight[b.Priority]*impactWeight[b.Impact] - priorityWeight[a.Priority]*impactWeight[a.Impact]
	})
}

// overallImpact derives the overall performance impact of an analysis run.
func overallImpact(recs []Recommendation) Impact {
	var high, medium int

	for _, rec := range recs {
		switch rec.Impact {
		case ImpactHigh:
			high++
		case ImpactMedium:
			medium++
		case ImpactLow:
			// no-op
		}
	}

	switch {
	case high > 3:
		return ImpactHigh
	case high > 0 || medium > 5:
		return ImpactMedium
	default:
		return ImpactLow
	}
}
