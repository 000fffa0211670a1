// Package genericalarms implements the "generic_alarms" tool type:
// fetching active/recent alert-manager style alarms for a service,
// grouped by state.
package genericalarms

import (
	"time"

	"github.com/sreinvestigator/investigator/pkg/tool"
	"github.com/sreinvestigator/investigator/pkg/tool/httptool"
)

// New builds the generic_alarms tool.
func New(name, endpoint, apiKey string, timeout time.Duration) tool.Tool {
	return httptool.New(httptool.Config{
		Name:        name,
		Description: "Lists firing or recently resolved alarms for a service within a time window.",
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Timeout:     timeout,
		Schema: tool.Schema{
			Params: []tool.ParamSpec{
				{Name: "service", Type: tool.ParamString, Required: true, Description: "service the alarm is scoped to"},
				{Name: "start", Type: tool.ParamString, Required: true, Description: "RFC3339 window start"},
				{Name: "end", Type: tool.ParamString, Required: true, Description: "RFC3339 window end"},
				{Name: "state", Type: tool.ParamString, Required: false, Description: "firing|resolved", Enum: []string{"firing", "resolved"}},
			},
		},
	})
}
