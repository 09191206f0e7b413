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

package pool

import (
	"strings"
)

// CompiledQuery is a single SQL statement with its bound parameters,
// produced by a SQL compilation layer.
type CompiledQuery struct {
	SQL  string
	Args []any
}

// isWriteStatement reports whether the statement modifies the database.
//
// It looks at the first keyword only; this is a best-effort classification
// that errs on the side of treating unknown statements as writes.
func isWriteStatement(query string) bool {
	kw, rest := keywordAndRest(query)

	switch kw {
	// WITH is deliberately absent: a common table expression may front
	// INSERT/UPDATE/DELETE, so it is classified as a write.
	case "select", "explain", "values":
		return false
	case "pragma":
		// a bare PRAGMA reads a setting; PRAGMA name = value and
		// PRAGMA name(value) forms change it
		return strings.ContainsAny(rest, "=(")
	default:
		return true
	}
}

// firstKeyword returns the lowercased first SQL keyword of the statement,
// skipping leading whitespace and comments.
func firstKeyword(query string) string {
	kw, _ := keywordAndRest(query)
	return kw
}

// keywordAndRest returns the lowercased first SQL keyword of the statement,
// skipping leading whitespace and comments, and everything after it.
func keywordAndRest(query string) (string, string) {
	s := query

	for {
		s = strings.TrimLeft(s, " \t\r\n")

		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}

			return "", ""

		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}

			return "", ""
		}

		break
	}

	end := len(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			end = i
			break
		}
	}

	return strings.ToLower(s[:end]), s[end:]
}
