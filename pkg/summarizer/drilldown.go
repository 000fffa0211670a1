package summarizer

import (
	"context"
	"fmt"

	"github.com/sreinvestigator/investigator/pkg/tool"
)

// FullResultSource is implemented by the scratchpad: a read-only lookup
// from result ID to the full body, while the result has not been cleared.
type FullResultSource interface {
	GetFullResult(resultID string) (string, bool)
}

// GetFullResultTool is a first-class Tool whose Execute is a read against
// the tiered-result arena, letting the LLM drill down into a compacted
// result by its stable ID (SPEC_FULL.md §9 design notes). A cleared
// result no longer holds a body and yields a tool-level error.
type GetFullResultTool struct {
	source FullResultSource
}

// NewGetFullResultTool wraps a FullResultSource (typically a
// *scratchpad.Scratchpad) as a Tool.
func NewGetFullResultTool(source FullResultSource) *GetFullResultTool {
	return &GetFullResultTool{source: source}
}

func (t *GetFullResultTool) Name() string        { return "get_full_result" }
func (t *GetFullResultTool) Description() string { return "Retrieve the full body of a previously summarized (not cleared) tool result by its result ID." }

func (t *GetFullResultTool) ParametersSchema() tool.Schema {
	return tool.Schema{Params: []tool.ParamSpec{
		{Name: "resultId", Type: tool.ParamString, Required: true, Description: "The stable result ID shown alongside a compacted or cleared tool result."},
	}}
}

func (t *GetFullResultTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	resultID, _ := args["resultId"].(string)
	if resultID == "" {
		return &tool.Result{Error: "resultId is required"}, nil
	}
	body, ok := t.source.GetFullResult(resultID)
	if !ok {
		return &tool.Result{Error: fmt.Sprintf("no full body retained for result %q (it may have been cleared without a retained body, or the ID is unknown)", resultID)}, nil
	}
	return &tool.Result{Content: map[string]any{"resultId": resultID, "body": body}}, nil
}
