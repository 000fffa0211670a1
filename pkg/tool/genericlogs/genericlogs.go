// Package genericlogs implements the "generic_logs" tool type: a
// structured log search against a configured log group. The causal query
// planner reaches it as a fallback when a preferred tool is unavailable,
// filling logGroup from a function name in the hypothesis when present.
package genericlogs

import (
	"time"

	"github.com/sreinvestigator/investigator/pkg/tool"
	"github.com/sreinvestigator/investigator/pkg/tool/httptool"
)

// New builds the generic_logs tool.
func New(name, endpoint, apiKey string, timeout time.Duration) tool.Tool {
	return httptool.New(httptool.Config{
		Name:        name,
		Description: "Searches a log group for entries matching a query string within a time window.",
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Timeout:     timeout,
		Schema: tool.Schema{
			Params: []tool.ParamSpec{
				{Name: "logGroup", Type: tool.ParamString, Required: true, Description: "log group or namespace to search"},
				{Name: "query", Type: tool.ParamString, Required: true, Description: "search string or filter expression"},
				{Name: "start", Type: tool.ParamString, Required: true, Description: "RFC3339 window start"},
				{Name: "end", Type: tool.ParamString, Required: true, Description: "RFC3339 window end"},
				{Name: "limit", Type: tool.ParamNumber, Required: false, Description: "maximum entries to return"},
			},
		},
	})
}
