package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no JSON object or array could be located in
// the model's output.
var ErrNoJSON = errors.New("llm: no JSON object or array found in content")

// ExtractJSON pulls the outermost JSON value out of free-form model
// output: it strips fenced code blocks (```json ... ``` or ``` ... ```)
// if present, otherwise scans for the first balanced {...} or [...]
// span. It does not validate the JSON beyond balancing braces/brackets
// and respecting string literals — strict parsing is the caller's job.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)

	if fenced, ok := extractFencedBlock(content); ok {
		content = strings.TrimSpace(fenced)
	}

	start := -1
	var openCh, closeCh byte
	for i := 0; i < len(content); i++ {
		if content[i] == '{' || content[i] == '[' {
			start = i
			openCh = content[i]
			if openCh == '{' {
				closeCh = '}'
			} else {
				closeCh = ']'
			}
			break
		}
	}
	if start == -1 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

// extractFencedBlock returns the contents of the first fenced code block
// (```lang\n...\n```), if any.
func extractFencedBlock(content string) (string, bool) {
	const fence = "```"
	start := strings.Index(content, fence)
	if start == -1 {
		return "", false
	}
	rest := content[start+len(fence):]
	// Skip an optional language tag up to the first newline.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, fence)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

// ParseStructured extracts JSON from content and strict-unmarshals it
// into v, then normalizes v via Normalize (if it implements Normalizer).
func ParseStructured(content string, v any) error {
	raw, err := ExtractJSON(content)
	if err != nil {
		return fmt.Errorf("extracting JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding JSON: %w", err)
	}
	if n, ok := v.(Normalizer); ok {
		n.Normalize()
	}
	return nil
}

// Normalizer is implemented by structured-output targets that need to
// normalize nullable-vs-absent or scalar-vs-singleton-list fields after
// decoding. Called by ParseStructured.
type Normalizer interface {
	Normalize()
}

// StringOrSlice unmarshals either a bare JSON string or an array of
// strings into a []string, normalizing the "schema expects a list but
// the model returned a scalar" case spec.md calls out.
type StringOrSlice []string

func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var arr []string
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*s = arr
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*s = nil
		return nil
	}
	*s = []string{single}
	return nil
}
