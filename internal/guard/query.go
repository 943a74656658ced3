package guard

import (
	"fmt"
	"regexp"
)

// DefaultMaxQueryResults is the maximum estimated result count a single
// query may return.
const DefaultMaxQueryResults = 50

// bulkExportPhrases deny a query on phrasing alone, regardless of its
// estimated result count.
var bulkExportPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bexport\b`),
	regexp.MustCompile(`(?i)\bdump\b`),
	regexp.MustCompile(`(?i)\bentire\s+database\b`),
	regexp.MustCompile(`(?i)\ball\s+(employees|salaries|users|customers|records|accounts|tickets)\b`),
}

// QueryDecision is the outcome of a query limit check.
type QueryDecision struct {
	Allowed bool
	Reason  string
	// Suggestion is a constructive refinement hint surfaced to the user.
	Suggestion string
}

// CheckQueryLimits denies bulk-export phrasing outright, and independently
// denies any query whose estimated result count exceeds the configured
// maximum. Denials carry a refinement suggestion, never a bare error.
func (g *Guard) CheckQueryLimits(estimatedResultCount int, queryText string) QueryDecision {
	for _, phrase := range bulkExportPhrases {
		if phrase.MatchString(queryText) {
			return QueryDecision{
				Allowed:    false,
				Reason:     "bulk export requests are not permitted",
				Suggestion: "ask about specific records, or narrow the request to a department or date range",
			}
		}
	}

	if estimatedResultCount > g.limits.MaxQueryResults {
		return QueryDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("query would return about %d results; the limit is %d", estimatedResultCount, g.limits.MaxQueryResults),
			Suggestion: "filter by department, team, or time period, or ask for an aggregate instead",
		}
	}

	return QueryDecision{Allowed: true}
}
