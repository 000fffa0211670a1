// Package vendormetrics implements the "vendor_metrics" tool type: a
// time-series query against an observability vendor's HTTP API (the
// causal query planner's default destination for latency/error-rate/
// resource-saturation hypotheses).
package vendormetrics

import (
	"time"

	"github.com/sreinvestigator/investigator/pkg/tool"
	"github.com/sreinvestigator/investigator/pkg/tool/httptool"
)

// New builds the vendor_metrics tool, backed by an HTTP JSON query API.
func New(name, endpoint, apiKey string, timeout time.Duration) tool.Tool {
	return httptool.New(httptool.Config{
		Name:        name,
		Description: "Queries a time-series metric (latency, error rate, CPU, memory, connection pool saturation) over a time window for one or more services.",
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Timeout:     timeout,
		Schema: tool.Schema{
			Params: []tool.ParamSpec{
				{Name: "metric", Type: tool.ParamString, Required: true, Description: "metric name, e.g. http.request.duration, error.rate, cpu.utilization"},
				{Name: "service", Type: tool.ParamString, Required: true, Description: "service or deployment name to scope the query to"},
				{Name: "start", Type: tool.ParamString, Required: true, Description: "RFC3339 window start"},
				{Name: "end", Type: tool.ParamString, Required: true, Description: "RFC3339 window end"},
				{Name: "aggregation", Type: tool.ParamString, Required: false, Description: "p50|p95|p99|avg|max", Enum: []string{"p50", "p95", "p99", "avg", "max"}},
			},
		},
	})
}
