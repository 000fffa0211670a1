// Package executor implements ParallelExecutor: a concurrency-limited
// batch runner for tool calls, with per-call timeout, resource-signature
// dependency grouping, and cooperative cancellation. Concurrency and
// reservation bookkeeping mirror the teacher's SubAgentRunner
// (pkg/agent/orchestrator/runner.go), generalized from sub-agent
// dispatch to arbitrary tool-call batches.
package executor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sreinvestigator/investigator/pkg/tool"
)

// Config configures a ParallelExecutor.
type Config struct {
	MaxConcurrent int
	Timeout       time.Duration
}

// DefaultConfig returns spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 5, Timeout: 30 * time.Second}
}

// CallResult is the outcome of one dispatched call, always returned even
// on timeout or error — the batch never silently drops a call.
type CallResult struct {
	BatchID  string
	CallID   string
	ToolName string
	Result   *tool.Result
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Pair couples a tool call with the Tool implementation to run it
// against (resolved by the caller, e.g. from a tool.Registry).
type Pair struct {
	Call tool.Call
	Tool tool.Tool
}

// Executor runs batches of tool calls under bounded concurrency.
type Executor struct {
	cfg       Config
	nextBatch int
}

// New creates an Executor. A zero-value Config is replaced with
// DefaultConfig.
func New(cfg Config) *Executor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Executor{cfg: cfg}
}

// RunBatch dispatches pairs under bounded concurrency, honoring resource
// dependency groups (see GroupByResourceSignature): groups run
// concurrently with each other, but calls within one group run
// sequentially. Each call gets its own cancellable per-call timeout
// derived from ctx; if ctx is cancelled first, in-flight calls receive
// the cooperative cancellation and whatever results have completed are
// returned alongside the remainder marked as cancelled.
func (ex *Executor) RunBatch(ctx context.Context, pairs []Pair) []CallResult {
	return ex.run(ctx, GroupByResourceSignature(pairs))
}

// RunBatchIndependent dispatches pairs under bounded concurrency without
// resource-signature grouping, for callers (e.g. an orchestrator acting
// on an LLM's own independence claim) that want to bypass the heuristic.
func (ex *Executor) RunBatchIndependent(ctx context.Context, pairs []Pair) []CallResult {
	return ex.run(ctx, Ungrouped(pairs))
}

func (ex *Executor) run(ctx context.Context, groups [][]Pair) []CallResult {
	ex.nextBatch++
	batchID := fmt.Sprintf("batch-%d", ex.nextBatch)

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	results := make([]CallResult, 0, total)
	resultsCh := make(chan CallResult, total)

	sem := make(chan struct{}, ex.cfg.MaxConcurrent)
	g, gctx := errgroup.WithContext(context.Background()) // own group ctx: we want partial results even if one group errors

	for _, group := range groups {
		group := group
		g.Go(func() error {
			for _, pair := range group {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					resultsCh <- cancelledResult(batchID, pair, ctx.Err())
					continue
				}
				resultsCh <- ex.runOne(ctx, batchID, pair)
				<-sem
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(resultsCh)
	}()

	for r := range resultsCh {
		results = append(results, r)
	}
	_ = gctx
	return results
}

func cancelledResult(batchID string, pair Pair, err error) CallResult {
	return CallResult{
		BatchID:  batchID,
		CallID:   pair.Call.ID,
		ToolName: pair.Call.ToolName,
		Err:      fmt.Errorf("batch cancelled before dispatch: %w", err),
	}
}

// runOne executes a single call with its own timeout derived from ctx.
func (ex *Executor) runOne(ctx context.Context, batchID string, pair Pair) CallResult {
	callCtx, cancel := context.WithTimeout(ctx, ex.cfg.Timeout)
	defer cancel()

	start := time.Now()
	type outcome struct {
		res *tool.Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := pair.Tool.Execute(callCtx, pair.Call.Args)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return CallResult{
			BatchID:  batchID,
			CallID:   pair.Call.ID,
			ToolName: pair.Call.ToolName,
			Result:   o.res,
			Err:      o.err,
			Duration: time.Since(start),
		}
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return CallResult{
				BatchID:  batchID,
				CallID:   pair.Call.ID,
				ToolName: pair.Call.ToolName,
				Err:      fmt.Errorf("batch cancelled during call: %w", err),
				Duration: time.Since(start),
			}
		}
		return CallResult{
			BatchID:  batchID,
			CallID:   pair.Call.ID,
			ToolName: pair.Call.ToolName,
			Err:      fmt.Errorf("timed out after %s", ex.cfg.Timeout),
			TimedOut: true,
			Duration: time.Since(start),
		}
	}
}
