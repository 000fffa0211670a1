package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreinvestigator/investigator/pkg/model"
	"github.com/sreinvestigator/investigator/pkg/tool"
)

// TestNewResultID_DeterministicForSameCanonicalArgs ties to the
// canonicalization property: identical tool name and args (even with
// different map insertion order) must produce the same result ID.
func TestNewResultID_DeterministicForSameCanonicalArgs(t *testing.T) {
	a := map[string]any{"service": "checkout-api", "window": "15m"}
	b := map[string]any{"window": "15m", "service": "checkout-api"}

	idA := NewResultID("vendor_metrics", a)
	idB := NewResultID("vendor_metrics", b)
	assert.Equal(t, idA, idB)
}

// TestNewResultID_DifferentArgsDifferentID asserts distinct args yield
// distinct result IDs (virtually never colliding).
func TestNewResultID_DifferentArgsDifferentID(t *testing.T) {
	idA := NewResultID("vendor_metrics", map[string]any{"service": "checkout-api"})
	idB := NewResultID("vendor_metrics", map[string]any{"service": "payments-api"})
	assert.NotEqual(t, idA, idB)
}

// TestNewResultID_PrefixFormat asserts the "<toolPrefix>-<8 hex>" shape.
func TestNewResultID_PrefixFormat(t *testing.T) {
	id := NewResultID("vendor_metrics", map[string]any{"service": "checkout-api"})
	assert.Regexp(t, `^vendor-[0-9a-f]{8}$`, id)
}

func TestExtractServices_FromNamedFields(t *testing.T) {
	content := map[string]any{
		"results": []any{
			map[string]any{"service": "checkout-api", "value": 1},
			map[string]any{"serviceName": "payments-api", "value": 2},
		},
	}
	services := ExtractServices(content)
	assert.Contains(t, services, "checkout-api")
	assert.Contains(t, services, "payments-api")
}

func TestExtractServices_DeduplicatesHits(t *testing.T) {
	content := map[string]any{
		"results": []any{
			map[string]any{"service": "checkout-api"},
			map[string]any{"service": "checkout-api"},
		},
	}
	services := ExtractServices(content)
	assert.Len(t, services, 1)
}

func TestClassifyHealth_Critical(t *testing.T) {
	assert.Equal(t, model.HealthCritical, ClassifyHealth(map[string]any{"status": "critical"}))
	assert.Equal(t, model.HealthCritical, ClassifyHealth(map[string]any{"error": true}))
}

func TestClassifyHealth_Degraded(t *testing.T) {
	assert.Equal(t, model.HealthDegraded, ClassifyHealth(map[string]any{"status": "degraded"}))
}

func TestClassifyHealth_Healthy(t *testing.T) {
	assert.Equal(t, model.HealthHealthy, ClassifyHealth(map[string]any{"status": "healthy"}))
}

func TestClassifyHealth_UnknownFallback(t *testing.T) {
	assert.Equal(t, model.HealthUnknown, ClassifyHealth(map[string]any{"foo": "bar"}))
}

func TestDefault_ErrorResult(t *testing.T) {
	compact := Default("vendor_metrics", nil, &tool.Result{Error: "upstream timeout"})
	assert.True(t, compact.IsError)
	assert.Equal(t, model.HealthCritical, compact.HealthStatus)
	assert.Contains(t, compact.Summary, "upstream timeout")
}

func TestDefault_NilResult(t *testing.T) {
	compact := Default("vendor_metrics", nil, nil)
	assert.Equal(t, model.HealthUnknown, compact.HealthStatus)
	assert.Equal(t, "no result", compact.Summary)
}

func TestDefault_SuccessResultCountsItems(t *testing.T) {
	result := &tool.Result{Content: map[string]any{
		"datapoints": []any{1, 2, 3, 4},
		"service":    "checkout-api",
	}}
	compact := Default("vendor_metrics", nil, result)
	assert.False(t, compact.IsError)
	assert.Equal(t, 4, compact.ItemCount)
	assert.Contains(t, compact.Services, "checkout-api")
}

// TestRegistry_FallsBackToDefault asserts an unregistered tool name still
// produces a usable compact result via Default, and gets a stable
// ResultID assigned.
func TestRegistry_FallsBackToDefault(t *testing.T) {
	reg := NewRegistry()
	args := map[string]any{"service": "checkout-api"}
	compact := reg.Summarize("generic_alarms", args, &tool.Result{Content: map[string]any{"service": "checkout-api"}})

	require.NotEmpty(t, compact.ResultID)
	assert.Equal(t, "generic_alarms", compact.ToolName)
	assert.Equal(t, NewResultID("generic_alarms", args), compact.ResultID)
}

// TestRegistry_UsesRegisteredSummarizer asserts a registered summarizer
// takes priority over the default fallback.
func TestRegistry_UsesRegisteredSummarizer(t *testing.T) {
	reg := NewRegistry()
	reg.Register("custom_tool", func(toolName string, args map[string]any, result *tool.Result) model.CompactToolResult {
		return model.CompactToolResult{Summary: "custom summary"}
	})

	compact := reg.Summarize("custom_tool", nil, &tool.Result{})
	assert.Equal(t, "custom summary", compact.Summary)
	assert.Equal(t, "custom_tool", compact.ToolName, "ToolName is backfilled when the registered summarizer leaves it empty")
	assert.NotEmpty(t, compact.ResultID, "ResultID is backfilled when the registered summarizer leaves it empty")
}
