// Package planner implements CausalQueryPlanner: it turns a hypothesis
// statement into a set of CausalQuery candidates by matching the
// statement against a template library keyed by symptom category, then
// adapting the result to the current environment's tool availability.
package planner

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sreinvestigator/investigator/pkg/model"
)

// Template matches a hypothesis statement against a regexp and, on
// match, yields a preferred tool with default parameters and a
// relevance weight for the resulting query.
type Template struct {
	Name           string
	Category       model.HypothesisCategory
	Pattern        *regexp.Regexp
	PreferredTool  string
	DefaultParams  func(h *model.Hypothesis, t model.TriageResult) map[string]any
	QueryType      model.QueryType
	RelevanceScore float64
}

// DefaultWindow is the query time window (ending now) used when triage
// supplies no valid window of its own.
const DefaultWindow = 60 * time.Minute

var templates = []Template{
	{
		Name:          "latency",
		Category:      model.CategoryApplication,
		Pattern:       regexp.MustCompile(`(?i)latenc|slow|timeout|response time`),
		PreferredTool: "vendor_metrics",
		QueryType:     model.QueryExploratory,
		RelevanceScore: 0.8,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"metric": "p99_latency_ms", "services": t.AffectedServices}
		},
	},
	{
		Name:          "error_rate",
		Category:      model.CategoryApplication,
		Pattern:       regexp.MustCompile(`(?i)error rate|5xx|exceptions?|failing requests`),
		PreferredTool: "vendor_metrics",
		QueryType:     model.QueryExploratory,
		RelevanceScore: 0.85,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"metric": "error_rate", "services": t.AffectedServices}
		},
	},
	{
		Name:          "memory",
		Category:      model.CategoryCapacity,
		Pattern:       regexp.MustCompile(`(?i)memory|oom|heap|gc pressure`),
		PreferredTool: "vendor_metrics",
		QueryType:     model.QueryConfirming,
		RelevanceScore: 0.75,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"metric": "memory_working_set_bytes", "services": t.AffectedServices}
		},
	},
	{
		Name:          "cpu",
		Category:      model.CategoryCapacity,
		Pattern:       regexp.MustCompile(`(?i)\bcpu\b|throttl(e|ing)|saturation`),
		PreferredTool: "vendor_metrics",
		QueryType:     model.QueryConfirming,
		RelevanceScore: 0.75,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"metric": "cpu_utilization", "services": t.AffectedServices}
		},
	},
	{
		Name:          "connection_pool",
		Category:      model.CategoryInfrastructure,
		Pattern:       regexp.MustCompile(`(?i)connection pool|exhaust|too many connections|pool saturation`),
		PreferredTool: "vendor_metrics",
		QueryType:     model.QueryConfirming,
		RelevanceScore: 0.8,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"metric": "db_connection_pool_usage", "services": t.AffectedServices}
		},
	},
	{
		Name:          "deploy",
		Category:      model.CategoryConfiguration,
		Pattern:       regexp.MustCompile(`(?i)deploy(ed|ment)?|rollout|release|version change`),
		PreferredTool: "cloud_inventory",
		QueryType:     model.QueryConfirming,
		RelevanceScore: 0.9,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"resourceType": "deployment_history", "services": t.AffectedServices}
		},
	},
	{
		Name:          "dns",
		Category:      model.CategoryInfrastructure,
		Pattern:       regexp.MustCompile(`(?i)\bdns\b|resolution failure|name resolution`),
		PreferredTool: "generic_alarms",
		QueryType:     model.QueryExploratory,
		RelevanceScore: 0.6,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"alarmType": "dns_resolution", "services": t.AffectedServices}
		},
	},
	{
		Name:          "dependency",
		Category:      model.CategoryDependency,
		Pattern:       regexp.MustCompile(`(?i)downstream|dependency|upstream service|third.?party`),
		PreferredTool: "vendor_metrics",
		QueryType:     model.QueryExploratory,
		RelevanceScore: 0.7,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"metric": "dependency_error_rate", "services": t.AffectedServices}
		},
	},
	{
		Name:          "quota",
		Category:      model.CategoryCapacity,
		Pattern:       regexp.MustCompile(`(?i)quota|rate limit(ed)?|throttled by|429`),
		PreferredTool: "cloud_inventory",
		QueryType:     model.QueryConfirming,
		RelevanceScore: 0.65,
		DefaultParams: func(h *model.Hypothesis, t model.TriageResult) map[string]any {
			return map[string]any{"resourceType": "quota_usage", "services": t.AffectedServices}
		},
	},
}

// environmentFallbackChain is the order in which preferred tools are
// substituted when unavailable in the current environment, per
// SPEC_FULL.md's environment-adaptation section. Each substitution
// carries a relevance penalty.
var environmentFallbackChain = map[string][]string{
	"vendor_metrics":  {"generic_alarms", "generic_logs", "cloud_inventory"},
	"cloud_inventory": {"generic_alarms", "generic_logs"},
	"generic_alarms":  {"generic_logs"},
}

const fallbackPenalty = 0.15

// Planner turns hypotheses into causal queries.
type Planner struct {
	availableTools map[string]bool
	logGroup       string // env-configured demo log group, used for log-query enrichment
}

// New creates a Planner. availableTools names the tools actually
// reachable in this environment (from the tool.Registry); logGroup is
// the fallback log group used when a hypothesis names no function.
func New(availableTools []string, logGroup string) *Planner {
	set := make(map[string]bool, len(availableTools))
	for _, t := range availableTools {
		set[t] = true
	}
	return &Planner{availableTools: set, logGroup: logGroup}
}

// Plan matches h's statement against the template library and returns
// the resulting CausalQuery candidates, adapted to the environment's
// available tools. Every query without a "window" parameter gets
// triage's time window, or the last DefaultWindow when triage has none.
func (p *Planner) Plan(h *model.Hypothesis, triage model.TriageResult) []model.CausalQuery {
	var queries []model.CausalQuery
	seq := 0

	for _, tmpl := range templates {
		if !tmpl.Pattern.MatchString(h.Statement) {
			continue
		}
		seq++
		tool, penalty := p.resolveTool(tmpl.PreferredTool)
		params := tmpl.DefaultParams(h, triage)
		p.enrichParams(params, tool, h, triage)

		queries = append(queries, model.CausalQuery{
			ID:              fmt.Sprintf("%s-q%d", h.ID, seq),
			HypothesisID:    h.ID,
			QueryType:       tmpl.QueryType,
			ToolName:        tool,
			Parameters:      params,
			ExpectedOutcome: fmt.Sprintf("evidence for or against: %s (%s pattern)", h.Statement, tmpl.Name),
			RelevanceScore:  clamp01(tmpl.RelevanceScore - penalty),
		})
	}

	if len(queries) == 0 {
		// No template matched: fall back to a broad exploratory query
		// against whatever observability tool is available, inheriting
		// triage's affected services and time window.
		tool, penalty := p.resolveTool("vendor_metrics")
		params := map[string]any{"services": triage.AffectedServices}
		p.enrichParams(params, tool, h, triage)
		queries = append(queries, model.CausalQuery{
			ID:              h.ID + "-q1",
			HypothesisID:    h.ID,
			QueryType:       model.QueryExploratory,
			ToolName:        tool,
			Parameters:      params,
			ExpectedOutcome: "broad exploratory evidence, no specific symptom template matched",
			RelevanceScore:  clamp01(0.4 - penalty),
		})
	}

	return queries
}

// resolveTool walks the fallback chain for preferred when it's not
// available, returning the first reachable tool and the cumulative
// relevance penalty incurred. If nothing in the chain is available
// either, it returns preferred unchanged (the caller's registry lookup
// then surfaces the "unknown tool" error).
func (p *Planner) resolveTool(preferred string) (string, float64) {
	if p.availableTools[preferred] || len(p.availableTools) == 0 {
		return preferred, 0
	}
	penalty := 0.0
	for _, fallback := range environmentFallbackChain[preferred] {
		penalty += fallbackPenalty
		if p.availableTools[fallback] {
			return fallback, penalty
		}
	}
	return preferred, penalty
}

// enrichParams fills in the default time window when absent, and for
// log-oriented tools, a log group inherited from the hypothesis's
// referenced function name or the env-configured default.
func (p *Planner) enrichParams(params map[string]any, tool string, h *model.Hypothesis, triage model.TriageResult) {
	if _, ok := params["window"]; !ok {
		window := triage.TimeWindow
		if window.Start.IsZero() || window.End.IsZero() || window.End.Sub(window.Start) <= 0 {
			end := time.Now()
			window = model.TimeWindow{Start: end.Add(-DefaultWindow), End: end}
		}
		params["window"] = window
	}

	if tool == "generic_logs" {
		if _, ok := params["logGroup"]; !ok {
			if fn := observedFunctionName(h.Statement); fn != "" {
				params["logGroup"] = fn
			} else {
				params["logGroup"] = p.logGroup
			}
		}
	}
}

var functionRefRegex = regexp.MustCompile(`(?i)function[:\s]+([a-zA-Z0-9_\-]+)`)

func observedFunctionName(statement string) string {
	m := functionRefRegex.FindStringSubmatch(statement)
	if len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
