// Package agentloop implements the free-form query agent: a
// non-incident conversational loop that reuses the scratchpad, cache,
// executor, summarizer, and compactor, but without the hypothesis tree
// the orchestrator drives. Loop shape grounded on the teacher's
// IteratingController (pkg/agent/controller/iterating.go).
package agentloop

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sreinvestigator/investigator/pkg/cache"
	"github.com/sreinvestigator/investigator/pkg/compactor"
	"github.com/sreinvestigator/investigator/pkg/events"
	"github.com/sreinvestigator/investigator/pkg/executor"
	"github.com/sreinvestigator/investigator/pkg/knowledge"
	"github.com/sreinvestigator/investigator/pkg/llm"
	"github.com/sreinvestigator/investigator/pkg/scratchpad"
	"github.com/sreinvestigator/investigator/pkg/summarizer"
	"github.com/sreinvestigator/investigator/pkg/tool"
)

// procedureIntentRegex matches queries that are better served by direct
// runbook/knowledge retrieval than by an iterate-with-tools loop.
var procedureIntentRegex = regexp.MustCompile(`(?i)^\s*(how do i|how to|what's the runbook for|troubleshoot(ing)?|procedure for|steps to fix)\b`)

// Config bounds one agent-loop run.
type Config struct {
	MaxIterations    int
	ContextThreshold int // token count at which compaction triggers
	TokenBudget      int
}

// DefaultConfig returns the loop's default bounds, the same values
// config.Defaults sets for agent_loop and the compaction token budget.
func DefaultConfig() Config {
	return Config{MaxIterations: 15, ContextThreshold: 40_000, TokenBudget: 60_000}
}

// Loop runs free-form tool-assisted queries outside the incident
// investigation flow.
type Loop struct {
	cfg         Config
	llmClient   llm.Client
	tools       *tool.Registry
	knowledge   knowledge.Retriever
	cache       *cache.Cache
	exec        *executor.Executor
	summarizers *summarizer.Registry
}

// New wires a Loop from its collaborator ports.
func New(cfg Config, llmClient llm.Client, tools *tool.Registry, retriever knowledge.Retriever, c *cache.Cache, exec *executor.Executor, summarizers *summarizer.Registry) *Loop {
	return &Loop{cfg: cfg, llmClient: llmClient, tools: tools, knowledge: retriever, cache: c, exec: exec, summarizers: summarizers}
}

// Answer is the final response of a free-form query.
type Answer struct {
	Content       string
	ToolCallCount int
	Procedural    bool
}

// Run answers query, short-circuiting to a knowledge-grounded answer for
// procedural ("how do I...") intents and otherwise iterating with tools
// until the model stops requesting them or the iteration budget is spent.
func (l *Loop) Run(ctx context.Context, query string, sp *scratchpad.Scratchpad, emitter *events.Emitter) (Answer, error) {
	emitter.Emit(events.TypeInit, map[string]any{"query": query})

	if procedureIntentRegex.MatchString(query) {
		answer, err := l.answerProcedural(ctx, query, emitter)
		if err == nil {
			emitter.Emit(events.TypeDone, nil)
			return answer, nil
		}
		// Fall through to the reactive loop if procedural retrieval fails
		// (e.g. the knowledge retriever errored); don't fail the request.
		emitter.Emit(events.TypeError, map[string]any{"phase": "procedural", "error": err.Error()})
	}

	answer, err := l.reactiveLoop(ctx, query, sp, emitter)
	emitter.Emit(events.TypeDone, nil)
	return answer, err
}

func (l *Loop) answerProcedural(ctx context.Context, query string, emitter *events.Emitter) (Answer, error) {
	var knowledgeText string
	if l.knowledge != nil {
		res, err := l.knowledge.Retrieve(ctx, knowledge.Query{Query: query})
		if err != nil {
			return Answer{}, fmt.Errorf("retrieving knowledge: %w", err)
		}
		if !res.IsEmpty() {
			knowledgeText = renderKnowledge(res)
			emitter.Emit(events.TypeKnowledgeRetrieved, map[string]any{"count": len(res.Runbooks) + len(res.Postmortems)})
		}
	}

	system := "Answer the operator's procedural question directly, citing the runbook/knowledge content provided. " +
		"If no relevant knowledge was retrieved, say so plainly rather than inventing steps."
	user := query
	if knowledgeText != "" {
		user += "\n\nRetrieved knowledge:\n" + knowledgeText
	}

	resp, err := l.llmClient.Chat(ctx, system, user, nil)
	if err != nil {
		return Answer{}, fmt.Errorf("procedural chat: %w", err)
	}
	return Answer{Content: resp.Content, Procedural: true}, nil
}

func renderKnowledge(res knowledge.Result) string {
	var b strings.Builder
	for _, doc := range res.Runbooks {
		fmt.Fprintf(&b, "## %s\n%s\n\n", doc.Title, doc.Content)
	}
	for _, doc := range res.KnownIssues {
		fmt.Fprintf(&b, "## known issue: %s\n%s\n\n", doc.Title, doc.Content)
	}
	return b.String()
}

type toolCallIntent struct {
	ToolName string         `json:"toolName"`
	Args     map[string]any `json:"args"`
}

type iterationResponse struct {
	Done      bool             `json:"done"`
	Answer    string           `json:"answer,omitempty"`
	ToolCalls []toolCallIntent `json:"toolCalls,omitempty"`
}

// reactiveLoop iterates: ask the model whether it's done or wants more
// tool calls, run any requested calls, append results, and repeat until
// done or the iteration budget is exhausted. Context is compacted once
// estimated tokens cross cfg.ContextThreshold.
func (l *Loop) reactiveLoop(ctx context.Context, query string, sp *scratchpad.Scratchpad, emitter *events.Emitter) (Answer, error) {
	toolCallCount := 0
	seen := make(map[string]int) // canonical call signature -> repeat count

	for iter := 0; iter < l.cfg.MaxIterations; iter++ {
		contextText := sp.BuildTieredContext()
		if compactor.EstimateTokens(contextText) > l.cfg.ContextThreshold {
			l.compact(sp)
			emitter.Emit(events.TypeContextCleared, map[string]any{"iteration": iter})
			contextText = sp.BuildTieredContext()
		}

		system := "You are answering an operator's ad-hoc question using available tools. " +
			"Respond with a single JSON object: {\"done\": bool, \"answer\": string, " +
			"\"toolCalls\": [{\"toolName\": string, \"args\": object}]}. Set done=true only once you can answer " +
			"fully; otherwise request the tool calls you need next. No text outside the JSON."
		user := fmt.Sprintf("Question: %s\n\nContext so far:\n%s", query, contextText)

		resp, err := l.llmClient.Chat(ctx, system, user, nil)
		if err != nil {
			return Answer{}, fmt.Errorf("iteration %d: %w", iter, err)
		}
		var ir iterationResponse
		if err := llm.ParseStructured(resp.Content, &ir); err != nil {
			return Answer{}, fmt.Errorf("iteration %d: parsing response: %w", iter, err)
		}

		if ir.Done || len(ir.ToolCalls) == 0 {
			return Answer{Content: ir.Answer, ToolCallCount: toolCallCount}, nil
		}

		var pairs []executor.Pair
		for i, tc := range ir.ToolCalls {
			sig := tc.ToolName + "|" + cache.CanonicalArgs(tc.Args)
			seen[sig]++
			if seen[sig] > 2 {
				emitter.Emit(events.TypeToolLimit, map[string]any{
					"tool": tc.ToolName, "warning": "repeated identical call skipped after 2 prior attempts",
				})
				continue
			}
			t, err := l.tools.Get(tc.ToolName)
			if err != nil {
				emitter.Emit(events.TypeToolError, map[string]any{"tool": tc.ToolName, "error": err.Error()})
				continue
			}
			pairs = append(pairs, executor.Pair{
				Call: tool.Call{ID: fmt.Sprintf("iter%d-%d", iter, i), ToolName: tc.ToolName, Args: tc.Args},
				Tool: t,
			})
		}
		if len(pairs) == 0 {
			// Every requested call was a repeat or unknown tool: stop
			// rather than loop forever asking for the same thing.
			return Answer{Content: ir.Answer, ToolCallCount: toolCallCount}, nil
		}

		emitter.Emit(events.TypeToolStart, map[string]any{"iteration": iter, "count": len(pairs)})
		results := l.exec.RunBatch(ctx, pairs)
		calls := make(map[string]tool.Call, len(pairs))
		for _, p := range pairs {
			calls[p.Call.ID] = p.Call
		}
		for _, r := range results {
			toolCallCount++
			call := calls[r.CallID]
			toolName := call.ToolName
			if r.Err != nil {
				emitter.Emit(events.TypeToolError, map[string]any{"tool": toolName, "error": r.Err.Error()})
				continue
			}
			compact := l.summarizers.Summarize(toolName, call.Args, r.Result)
			fullBody := fmt.Sprintf("%v", r.Result.Content)
			resultID, err := sp.AppendToolResult("", cache.CanonicalArgs(call.Args), fullBody, compact)
			if err != nil {
				continue
			}
			emitter.Emit(events.TypeToolEnd, map[string]any{"tool": toolName, "resultId": resultID})
		}
	}

	return Answer{Content: "reached iteration limit without a confident answer", ToolCallCount: toolCallCount}, nil
}

func (l *Loop) compact(sp *scratchpad.Scratchpad) {
	ids := sp.ResultIDsOldestFirst()
	tiered := sp.GetTieredResults()
	inputs := make([]compactor.ResultInput, 0, len(ids))
	for i, id := range ids {
		t, ok := tiered[id]
		if !ok {
			continue
		}
		inputs = append(inputs, compactor.ResultInput{Compact: t.Compact, FullBody: t.FullBody, Position: i, Total: len(ids)})
	}
	plan := compactor.BuildPlan(inputs, compactor.Context{
		KeepToolUses: 5,
		TokenBudget:  l.cfg.TokenBudget,
		Preset:       compactor.PresetResearch,
	})
	decisions := make([]scratchpad.CompactionDecision, 0, len(plan.Tiers))
	for _, t := range plan.Tiers {
		decisions = append(decisions, scratchpad.CompactionDecision{ResultID: t.ResultID, Tier: t.Tier})
	}
	sp.ApplyCompactionPlan(decisions)
}
