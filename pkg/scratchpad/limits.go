package scratchpad

import (
	"strconv"
	"strings"
)

// retryLoopJaccardThreshold is the token-overlap ratio above which two
// argument strings for the same tool are considered a likely retry loop.
const retryLoopJaccardThreshold = 0.8

// CallCheck is the result of a graceful-limit check: never blocking,
// only ever warning.
type CallCheck struct {
	Allowed bool // always true; kept for call-site readability/spec fidelity
	Warning string
}

// CanCallTool performs the graceful-limit check for a proposed tool
// call: it never disallows the call, but returns a warning when the
// tool's soft cap has been exceeded or when the proposed args look like
// a repeat of a recent call for the same tool (Jaccard token overlap
// ≥ 0.8 against prior calls).
func (sp *Scratchpad) CanCallTool(toolName string, argsText string) CallCheck {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	count := sp.toolCallCount[toolName]
	limit, ok := sp.toolLimits[toolName]
	if !ok {
		limit = defaultToolLimit
	}

	var warnings []string
	if count >= limit {
		warnings = append(warnings, "tool "+toolName+" has been called "+strconv.Itoa(count)+" times, exceeding the suggested limit of "+strconv.Itoa(limit))
	}

	if argsText != "" {
		for _, prior := range sp.toolArgsSeen[toolName] {
			if jaccardOverlap(prior, argsText) >= retryLoopJaccardThreshold {
				warnings = append(warnings, "possible retry loop: arguments closely match a previous call to "+toolName)
				break
			}
		}
	}

	sp.toolCallCount[toolName] = count + 1
	if argsText != "" {
		sp.toolArgsSeen[toolName] = append(sp.toolArgsSeen[toolName], argsText)
	}

	return CallCheck{Allowed: true, Warning: strings.Join(warnings, "; ")}
}

// jaccardOverlap computes the Jaccard similarity of the whitespace-token
// sets of a and b.
func jaccardOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
