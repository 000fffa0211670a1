// Package summarizer implements ToolSummarizer: per-tool compact-summary
// producers that assign stable result IDs and a best-effort health/
// service-name extraction, plus a registry with a default fallback for
// unregistered tool names.
package summarizer

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sreinvestigator/investigator/pkg/model"
	"github.com/sreinvestigator/investigator/pkg/tool"
)

// Summarizer reduces a raw tool result to a CompactToolResult.
type Summarizer func(toolName string, args map[string]any, result *tool.Result) model.CompactToolResult

// Registry maps tool name -> Summarizer, falling back to Default.
type Registry struct {
	byName map[string]Summarizer
}

// NewRegistry creates an empty registry. Register tool-specific
// summarizers with Register; Summarize always succeeds via the
// fall-back default summarizer for unregistered names.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Summarizer)}
}

// Register installs a summarizer for toolName.
func (r *Registry) Register(toolName string, s Summarizer) {
	r.byName[toolName] = s
}

// Summarize produces a CompactToolResult for a tool's result, assigning
// it a stable result ID of the form "<toolPrefix>-<8 hex chars>".
func (r *Registry) Summarize(toolName string, args map[string]any, result *tool.Result) model.CompactToolResult {
	s, ok := r.byName[toolName]
	if !ok {
		s = Default
	}
	compact := s(toolName, args, result)
	if compact.ResultID == "" {
		compact.ResultID = NewResultID(toolName, args)
	}
	if compact.ToolName == "" {
		compact.ToolName = toolName
	}
	return compact
}

// NewResultID derives a stable id: "<toolPrefix>-<8 hex chars>" where the
// hex suffix is a SHA-1 digest of the tool name and canonical args, so
// identical calls within a session produce identical IDs (useful for
// tests and for citing the same result twice in a transcript) while
// distinct calls virtually never collide.
func NewResultID(toolName string, args map[string]any) string {
	prefix := toolPrefix(toolName)
	payload, _ := json.Marshal(args)
	sum := sha1.Sum(append([]byte(toolName), payload...))
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(sum[:])[:8])
}

func toolPrefix(toolName string) string {
	name := toolName
	if idx := strings.IndexAny(name, ".-_"); idx > 0 {
		name = name[:idx]
	}
	if len(name) > 8 {
		name = name[:8]
	}
	return strings.ToLower(name)
}

// serviceFieldNames are the common field names checked when extracting
// service names from a result, best-effort.
var serviceFieldNames = []string{"service", "serviceName", "service_name", "app", "application"}

// serviceNameRegex is a fallback pattern for service-like tokens embedded
// in free text (lowercase kebab-case identifiers of two to five segments).
var serviceNameRegex = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:-[a-z0-9]+){1,4}\b`)

// ExtractServices best-effort-extracts service names from a result's
// structured content, falling back to regex scanning of its JSON text.
func ExtractServices(content map[string]any) []string {
	seen := make(map[string]bool)
	var services []string

	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			for _, field := range serviceFieldNames {
				if s, ok := val[field].(string); ok && s != "" && !seen[s] {
					seen[s] = true
					services = append(services, s)
				}
			}
			for _, nested := range val {
				walk(nested)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(content)

	if len(services) == 0 {
		raw, _ := json.Marshal(content)
		for _, m := range serviceNameRegex.FindAllString(string(raw), 5) {
			if !seen[m] {
				seen[m] = true
				services = append(services, m)
			}
		}
	}
	return services
}

// ClassifyHealth is a best-effort health classifier over common field
// names and keyword scanning, used by summarizers that don't have a more
// specific signal.
func ClassifyHealth(content map[string]any) model.HealthStatus {
	raw, _ := json.Marshal(content)
	text := strings.ToLower(string(raw))
	switch {
	case strings.Contains(text, "critical") || strings.Contains(text, "\"error\":true") || strings.Contains(text, "down"):
		return model.HealthCritical
	case strings.Contains(text, "degraded") || strings.Contains(text, "warn"):
		return model.HealthDegraded
	case strings.Contains(text, "healthy") || strings.Contains(text, "ok") || strings.Contains(text, "\"status\":\"up\""):
		return model.HealthHealthy
	default:
		return model.HealthUnknown
	}
}

// Default is the fallback summarizer for tools with no dedicated
// Summarizer registered: it reports item count and top-level keys.
func Default(toolName string, _ map[string]any, result *tool.Result) model.CompactToolResult {
	compact := model.CompactToolResult{ToolName: toolName}
	if result == nil {
		compact.Summary = "no result"
		compact.HealthStatus = model.HealthUnknown
		return compact
	}
	compact.IsError = result.IsError()
	if compact.IsError {
		compact.Summary = "error: " + result.Error
		compact.HealthStatus = model.HealthCritical
		return compact
	}

	keys := make([]string, 0, len(result.Content))
	for k := range result.Content {
		keys = append(keys, k)
	}
	compact.ItemCount = countItems(result.Content)
	compact.Services = ExtractServices(result.Content)
	compact.HealthStatus = ClassifyHealth(result.Content)
	compact.Summary = fmt.Sprintf("%s returned %d item(s) across keys: %s", toolName, compact.ItemCount, strings.Join(keys, ", "))
	return compact
}

// countItems gives a rough "how much data is here" count: the length of
// the first array-valued field found, or 1 if the result is a flat object.
func countItems(content map[string]any) int {
	for _, v := range content {
		if arr, ok := v.([]any); ok {
			return len(arr)
		}
	}
	if len(content) == 0 {
		return 0
	}
	return 1
}
