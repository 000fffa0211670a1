package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreinvestigator/investigator/pkg/model"
)

func hyp(statement string) *model.Hypothesis {
	return &model.Hypothesis{ID: "h1", Statement: statement}
}

// TestPlan_MatchesSymptomTemplates asserts a representative statement for
// each symptom template resolves to that template's preferred tool when
// the tool is available.
func TestPlan_MatchesSymptomTemplates(t *testing.T) {
	cases := []struct {
		statement string
		wantTool  string
	}{
		{"checkout-api is experiencing elevated latency", "vendor_metrics"},
		{"checkout-api is returning a high 5xx error rate", "vendor_metrics"},
		{"checkout-api pods are hitting OOM due to memory pressure", "vendor_metrics"},
		{"checkout-api containers are CPU throttled", "vendor_metrics"},
		{"database connection pool exhaustion on checkout-api", "vendor_metrics"},
		{"a recent deployment rollout changed checkout-api's behavior", "cloud_inventory"},
		{"DNS resolution failure for checkout-api upstream", "generic_alarms"},
		{"a downstream dependency is failing checkout-api requests", "vendor_metrics"},
		{"checkout-api is being rate limited, returning 429", "cloud_inventory"},
	}

	p := New([]string{"vendor_metrics", "cloud_inventory", "generic_alarms", "generic_logs"}, "")
	for _, tc := range cases {
		queries := p.Plan(hyp(tc.statement), model.TriageResult{AffectedServices: []string{"checkout-api"}})
		require.NotEmpty(t, queries, "statement %q should match at least one template", tc.statement)
		assert.Equal(t, tc.wantTool, queries[0].ToolName, "statement %q", tc.statement)
	}
}

// TestPlan_NoTemplateMatch_FallsBackToExploratory asserts an
// unrecognized symptom still produces a usable broad query rather than
// an empty plan.
func TestPlan_NoTemplateMatch_FallsBackToExploratory(t *testing.T) {
	p := New([]string{"vendor_metrics"}, "")
	queries := p.Plan(hyp("something is weird with the checkout flow"), model.TriageResult{AffectedServices: []string{"checkout-api"}})
	require.Len(t, queries, 1)
	assert.Equal(t, model.QueryExploratory, queries[0].QueryType)
	assert.Equal(t, "vendor_metrics", queries[0].ToolName)
}

// TestPlan_FallsBackWhenPreferredToolUnavailable covers end-to-end
// scenario 3: when the preferred tool isn't registered, the planner
// substitutes the next tool in the environment fallback chain and
// reduces the relevance score by the fallback penalty, never erroring.
func TestPlan_FallsBackWhenPreferredToolUnavailable(t *testing.T) {
	p := New([]string{"generic_alarms", "generic_logs"}, "")
	queries := p.Plan(hyp("checkout-api is experiencing elevated latency"), model.TriageResult{AffectedServices: []string{"checkout-api"}})
	require.Len(t, queries, 1)

	assert.Equal(t, "generic_alarms", queries[0].ToolName, "vendor_metrics is unavailable; generic_alarms is the first reachable fallback")
	assert.Less(t, queries[0].RelevanceScore, 0.8, "relevance score must be reduced relative to the template's base score")
	assert.GreaterOrEqual(t, queries[0].RelevanceScore, 0.0)
}

// TestPlan_NoToolInChainAvailable_ReturnsPreferredUnchanged asserts that
// when no tool in the fallback chain is reachable either, the planner
// still returns a query (naming the original preferred tool) rather than
// dropping the candidate, leaving the caller's registry lookup to surface
// the unknown-tool error.
func TestPlan_NoToolInChainAvailable_ReturnsPreferredUnchanged(t *testing.T) {
	p := New([]string{"skill"}, "")
	queries := p.Plan(hyp("checkout-api is experiencing elevated latency"), model.TriageResult{AffectedServices: []string{"checkout-api"}})
	require.Len(t, queries, 1)
	assert.Equal(t, "vendor_metrics", queries[0].ToolName)
}

// TestPlan_EnrichesDefaultWindow asserts a query with no triage time
// window gets a default window populated.
func TestPlan_EnrichesDefaultWindow(t *testing.T) {
	p := New([]string{"vendor_metrics"}, "")
	queries := p.Plan(hyp("checkout-api is experiencing elevated latency"), model.TriageResult{AffectedServices: []string{"checkout-api"}})
	require.Len(t, queries, 1)
	window, ok := queries[0].Parameters["window"].(model.TimeWindow)
	require.True(t, ok, "a default window must be populated when triage supplies none")
	assert.True(t, window.End.Sub(window.Start) > 0)
}

// TestPlan_LogGroupEnrichment asserts a query that falls back all the way
// to generic_logs picks up a log group parsed from a "function: name"
// reference in the hypothesis statement, falling back to the planner's
// configured default log group when the statement names no function.
func TestPlan_LogGroupEnrichment(t *testing.T) {
	p := New([]string{"generic_logs"}, "default-log-group")

	withFunction := p.Plan(hyp("elevated latency for function: checkout-worker"), model.TriageResult{AffectedServices: []string{"checkout-api"}})
	require.Len(t, withFunction, 1)
	require.Equal(t, "generic_logs", withFunction[0].ToolName, "vendor_metrics and generic_alarms are both unavailable, forcing fallback to generic_logs")
	assert.Equal(t, "checkout-worker", withFunction[0].Parameters["logGroup"])

	withoutFunction := p.Plan(hyp("elevated latency on checkout-api"), model.TriageResult{AffectedServices: []string{"checkout-api"}})
	require.Len(t, withoutFunction, 1)
	assert.Equal(t, "default-log-group", withoutFunction[0].Parameters["logGroup"])
}
