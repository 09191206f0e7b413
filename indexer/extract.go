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
	"regexp"
	"strings"
)

// Column extraction below is a best-effort lexical heuristic, not a SQL parser.
// It may be wrong on exotic SQL; it only has to be deterministic and
// consistent for the common query shapes.

var (
	fromRe = regexp.MustCompile(`(?is)\bfrom\s+["'\x60\[]?(\w+)`)

	whereClauseRe = regexp.MustCompile(`(?is)\bwhere\s+(.*?)(?:\border\s+by\b|\bgroup\s+by\b|\blimit\b|$)`)

	// a column reference immediately preceding a comparison operator
	comparisonRe = regexp.MustCompile(`(?i)([\w.]+)\s*(?:=|<>|!=|<=|>=|<|>|\bis\b|\blike\b|\bin\s*\()`)

	orderByClauseRe = regexp.MustCompile(`(?is)\border\s+by\s+(.*?)(?:\blimit\b|$)`)

	joinOnRe = regexp.MustCompile(`(?is)\bjoin\s+\S+(?:\s+(?:as\s+)?\w+)?\s+on\s+(.*?)(?:\bjoin\b|\bwhere\b|\border\s+by\b|\bgroup\s+by\b|\blimit\b|$)`)

	// the left-hand side of an equality condition
	equalityRe = regexp.MustCompile(`([\w.]+)\s*=`)
)

// TableName returns the table name of the first FROM clause of the query,
// lowercased, or "" if none is found.
func TableName(query string) string {
	return extractTable(query)
}

// WhereColumns returns candidate filter columns of the query's WHERE clause,
// lowercased and deduplicated.
func WhereColumns(query string) []string {
	return extractWhereColumns(query)
}

// extractTable returns the table name of the first FROM clause, or "".
func extractTable(query string) string {
	m := fromRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}

	return strings.ToLower(m[1])
}

// extractWhereColumns returns candidate columns of the WHERE clause:
// tokens immediately preceding a comparison operator.
func extractWhereColumns(query string) []string {
	m := whereClauseRe.FindStringSubmatch(query)
	if m == nil {
		return nil
	}

	var res []string

	for _, c := range comparisonRe.FindAllStringSubmatch(m[1], -1) {
		res = appendColumn(res, c[1])
	}

	return res
}

// extractOrderByColumns returns the columns of the ORDER BY clause,
// with direction keywords and quoting stripped.
func extractOrderByColumns(query string) []string {
	m := orderByClauseRe.FindStringSubmatch(query)
	if m == nil {
		return nil
	}

	var res []string

	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)

		for _, suffix := range []string{"asc", "desc"} {
			if len(part) > len(suffix) && strings.EqualFold(part[len(part)-len(suffix):], suffix) {
				part = strings.TrimSpace(part[:len(part)-len(suffix)])
			}
		}

		part = strings.Trim(part, "\"'`[]")

		res = appendColumn(res, part)
	}

	return res
}

// extractJoinColumns returns the left-hand columns of equality conditions
// inside each JOIN ... ON clause.
func extractJoinColumns(query string) []string {
	var res []string

	for _, m := range joinOnRe.FindAllStringSubmatch(query, -1) {
		for _, c := range equalityRe.FindAllStringSubmatch(m[1], -1) {
			res = appendColumn(res, c[1])
		}
	}

	return res
}

// appendColumn normalizes a column reference (strips the table qualifier,
// lowercases) and appends it if it is a plausible new column name.
func appendColumn(columns []string, ref string) []string {
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		ref = ref[i+1:]
	}

	ref = strings.ToLower(strings.TrimSpace(ref))

	if ref == "" || ref == "?" || isKeyword(ref) || isNumber(ref) {
		return columns
	}

	for _, c := range columns {
		if c == ref {
			return columns
		}
	}

	return append(columns, ref)
}

// isNumber reports whether the token is a numeric literal.
func isNumber(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && s[i] != '.' {
			return false
		}
	}

	return true
}

// isKeyword reports whether the token is a SQL keyword that the
// comparison heuristic may capture by mistake.
func isKeyword(s string) bool {
	switch s {
	case "and", "or", "not", "null", "is", "in", "like", "between", "exists", "case", "when", "then", "else", "end":
		return true
	default:
		return false
	}
}
