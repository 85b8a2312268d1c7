package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{RouteName: "vision", RequiresImages: true},
		{RouteName: "tools", RequiresTools: true},
	}
	route := Classify(rules, Signals{HasImages: true, ToolCount: 3})
	assert.Equal(t, "vision", route)
}

func TestClassifyDefaultsWhenNoRuleMatches(t *testing.T) {
	route := Classify([]Rule{{RouteName: "vision", RequiresImages: true}}, Signals{})
	assert.Equal(t, "default", route)
}

func TestClassifyTokenBudgetBounds(t *testing.T) {
	rules := []Rule{{RouteName: "small", MaxTokens: 100}}
	assert.Equal(t, "small", Classify(rules, Signals{TokenBudget: 50}))
	assert.Equal(t, "default", Classify(rules, Signals{TokenBudget: 500}))
}

func TestClassifyModelHint(t *testing.T) {
	rules := []Rule{{RouteName: "gpt4", ModelContains: "gpt-4"}}
	assert.Equal(t, "gpt4", Classify(rules, Signals{Model: "gpt-4-turbo"}))
	assert.Equal(t, "default", Classify(rules, Signals{Model: "gpt-3.5"}))
}

func TestClassifyWebSearchFlag(t *testing.T) {
	rules := []Rule{{RouteName: "web", RequiresWeb: true}}
	assert.Equal(t, "web", Classify(rules, Signals{WebSearch: true}))
}

func TestClassifyDeterministic(t *testing.T) {
	rules := []Rule{{RouteName: "small", MaxTokens: 100}}
	s := Signals{TokenBudget: 10}
	assert.Equal(t, Classify(rules, s), Classify(rules, s))
}
