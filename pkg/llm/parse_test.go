package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	got, err := ExtractJSON(`{"action":"confirm"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"action":"confirm"}`, got)
}

func TestExtractJSON_FencedCodeBlock(t *testing.T) {
	content := "Here is my answer:\n```json\n{\"action\":\"confirm\",\"confidence\":80}\n```\nHope that helps."
	got, err := ExtractJSON(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"confirm","confidence":80}`, got)
}

func TestExtractJSON_FencedBlockWithoutLanguageTag(t *testing.T) {
	content := "```\n{\"x\":1}\n```"
	got, err := ExtractJSON(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, got)
}

func TestExtractJSON_IgnoresBracesInsideStrings(t *testing.T) {
	content := `{"reasoning": "the {service} is degraded", "action": "prune"}`
	got, err := ExtractJSON(content)
	require.NoError(t, err)
	assert.JSONEq(t, content, got)
}

func TestExtractJSON_LeadingAndTrailingProse(t *testing.T) {
	content := "I think the answer is: {\"ok\": true} -- let me know if you need more."
	got, err := ExtractJSON(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, got)
}

func TestExtractJSON_ArrayValue(t *testing.T) {
	got, err := ExtractJSON(`prefix [1, 2, 3] suffix`)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2, 3]`, got)
}

func TestExtractJSON_NoJSONReturnsErrNoJSON(t *testing.T) {
	_, err := ExtractJSON("no structured content here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractJSON_UnbalancedReturnsErrNoJSON(t *testing.T) {
	_, err := ExtractJSON(`{"action": "confirm"`)
	assert.ErrorIs(t, err, ErrNoJSON)
}

type testVerdict struct {
	Action     string `json:"action"`
	normalized bool
}

func (v *testVerdict) Normalize() {
	v.normalized = true
	if v.Action == "" {
		v.Action = "prune"
	}
}

func TestParseStructured_DecodesAndNormalizes(t *testing.T) {
	var v testVerdict
	err := ParseStructured(`{"action": "confirm"}`, &v)
	require.NoError(t, err)
	assert.Equal(t, "confirm", v.Action)
	assert.True(t, v.normalized, "ParseStructured must invoke Normalize when the target implements Normalizer")
}

func TestParseStructured_StrictDecodeFailsOnInvalidJSON(t *testing.T) {
	var v testVerdict
	err := ParseStructured(`{"action": }`, &v)
	assert.Error(t, err)
}

func TestParseStructured_PropagatesExtractionFailure(t *testing.T) {
	var v testVerdict
	err := ParseStructured("no json anywhere", &v)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestStringOrSlice_UnmarshalsBareString(t *testing.T) {
	var s StringOrSlice
	require.NoError(t, json.Unmarshal([]byte(`"checkout-api"`), &s))
	assert.Equal(t, StringOrSlice{"checkout-api"}, s)
}

func TestStringOrSlice_UnmarshalsArray(t *testing.T) {
	var s StringOrSlice
	require.NoError(t, json.Unmarshal([]byte(`["checkout-api","payments-api"]`), &s))
	assert.Equal(t, StringOrSlice{"checkout-api", "payments-api"}, s)
}

func TestStringOrSlice_UnmarshalsNullAsNil(t *testing.T) {
	var s StringOrSlice
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Nil(t, s)
}

func TestStringOrSlice_EmptyStringNormalizesToNil(t *testing.T) {
	var s StringOrSlice
	require.NoError(t, json.Unmarshal([]byte(`""`), &s))
	assert.Nil(t, s)
}
