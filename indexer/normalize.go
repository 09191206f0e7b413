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

var (
	// numbered and named parameter placeholders: $1, ?2, :name, @name
	placeholderRe = regexp.MustCompile(`\$\d+|\?\d+|[:@]\w+`)

	// single-quoted string literals, including escaped quotes
	stringLiteralRe = regexp.MustCompile(`'(?:[^']|'')*'`)

	// bare integer literals
	integerRe = regexp.MustCompile(`\b\d+\b`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize folds a SQL statement to its pattern key:
// literals and parameters are replaced with a placeholder,
// whitespace is collapsed, and the text is lowercased.
//
// Statements that differ only in literal values normalize to the same key.
func Normalize(query string) string {
	s := stringLiteralRe.ReplaceAllString(query, "?")
	s = placeholderRe.ReplaceAllString(s, "?")
	s = integerRe.ReplaceAllString(s, "?")
	s = whitespaceRe.ReplaceAllString(s, " ")

	return strings.ToLower(strings.TrimSpace(s))
}
