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
	"fmt"

	"github.com/litewarden/litewarden/indexer"
)

// suggestionThreshold is the number of queries that must filter on the same
// column before an index on it is suggested.
const suggestionThreshold = 3

// SuggestIndexOptimizations inspects a batch of query texts and suggests
// indexes for columns that appear repeatedly in WHERE clauses.
//
// Unlike the recorder-driven analysis in package indexer, this is a
// stateless one-shot pass over the given queries; nothing is recorded.
func (o *Optimizer) SuggestIndexOptimizations(queries []string) []string {
	type key struct {
		table  string
		column string
	}

	counts := map[key]int{}

	var order []key

	for _, q := range queries {
		table := indexer.TableName(q)
		if table == "" {
			continue
		}

		for _, column := range indexer.WhereColumns(q) {
			k := key{table: table, column: column}

			if counts[k] == 0 {
				order = append(order, k)
			}

			counts[k]++
		}
	}

	var res []string

	for _, k := range order {
		if counts[k] >= suggestionThreshold {
			res = append(res, fmt.Sprintf(
				"column %s.%s is filtered in %d of %d queries; consider CREATE INDEX idx_%s_%s ON %s (%s)",
				k.table, k.column, counts[k], len(queries), k.table, k.column, k.table, k.column,
			))
		}
	}

	return res
}
