// Package query extracts SQL from model output, screens it against the
// read-only policy, and executes it against the dataset.
package query

import (
	"regexp"
	"strings"
)

var sqlFenceRe = regexp.MustCompile("(?s)```sql\\s*(.*?)```")

// ExtractSQL pulls the SQL statement out of a model answer. When the answer
// contains fenced ```sql blocks the last one wins; otherwise the whole text
// is treated as the statement. The result is whitespace-trimmed and may be
// empty.
func ExtractSQL(text string) string {
	matches := sqlFenceRe.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		return strings.TrimSpace(matches[len(matches)-1][1])
	}
	return strings.TrimSpace(text)
}

// Verdict is the outcome of screening a statement.
type Verdict struct {
	Allowed bool
	// Rule names the policy that rejected the statement.
	Rule string
}

// deniedKeywords are matched case-insensitively as substrings anywhere in
// the statement. Substring matching over-rejects (a column literal
// containing "delete" trips it) and that is the intended trade: the gate
// fails closed.
var deniedKeywords = []string{
	"drop", "delete", "insert", "update", "alter",
	"truncate", "create", "grant", "revoke",
}

// Screen decides whether a statement may run. Only statements starting with
// SELECT or WITH pass, and none may contain a denied keyword.
func Screen(sql string) Verdict {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return Verdict{Rule: "empty statement"}
	}

	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return Verdict{Rule: "only SELECT or WITH statements are allowed"}
	}

	for _, keyword := range deniedKeywords {
		if strings.Contains(lowered, keyword) {
			return Verdict{Rule: "statement contains denied keyword " + strings.ToUpper(keyword)}
		}
	}

	return Verdict{Allowed: true}
}
