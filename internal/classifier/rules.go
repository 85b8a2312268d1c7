package classifier

import "strings"

const defaultRouteName = "default"

// Rule is one row of a route-selection table: the first rule whose
// conditions all hold wins. A zero-value field on a condition means
// "don't care" (MinTokens/MaxTokens of 0 means unbounded on that side).
type Rule struct {
	RouteName      string
	MinTokens      int
	MaxTokens      int
	RequiresTools  bool
	RequiresImages bool
	RequiresWeb    bool
	ModelContains  string
}

func (r Rule) matches(s Signals) bool {
	if r.MinTokens > 0 && s.TokenBudget < r.MinTokens {
		return false
	}
	if r.MaxTokens > 0 && s.TokenBudget > r.MaxTokens {
		return false
	}
	if r.RequiresTools && s.ToolCount == 0 {
		return false
	}
	if r.RequiresImages && !s.HasImages {
		return false
	}
	if r.RequiresWeb && !s.WebSearch {
		return false
	}
	if r.ModelContains != "" && !strings.Contains(s.Model, r.ModelContains) {
		return false
	}
	return true
}

// Classify evaluates rules in order against signals and returns the
// first match's RouteName, or "default" if nothing matches.
func Classify(rules []Rule, s Signals) string {
	for _, r := range rules {
		if r.matches(s) {
			return r.RouteName
		}
	}
	return defaultRouteName
}

// ClassifyRequest is the end-to-end entry point: extract signals from
// the raw request body, then classify against the configured rules.
func ClassifyRequest(rules []Rule, endpoint, protocol string, rawJSON []byte) string {
	return Classify(rules, ExtractSignals(endpoint, protocol, rawJSON))
}
