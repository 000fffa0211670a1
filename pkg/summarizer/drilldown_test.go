package summarizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFullResultSource struct {
	bodies map[string]string
}

func (f *fakeFullResultSource) GetFullResult(resultID string) (string, bool) {
	body, ok := f.bodies[resultID]
	return body, ok
}

func TestGetFullResultTool_ReturnsStoredBody(t *testing.T) {
	src := &fakeFullResultSource{bodies: map[string]string{"vendor-abc12345": "raw metrics payload"}}
	tl := NewGetFullResultTool(src)

	result, err := tl.Execute(context.Background(), map[string]any{"resultId": "vendor-abc12345"})
	require.NoError(t, err)
	require.False(t, result.IsError())
	assert.Equal(t, "raw metrics payload", result.Content["body"])
}

func TestGetFullResultTool_UnknownIDReturnsToolError(t *testing.T) {
	src := &fakeFullResultSource{bodies: map[string]string{}}
	tl := NewGetFullResultTool(src)

	result, err := tl.Execute(context.Background(), map[string]any{"resultId": "does-not-exist"})
	require.NoError(t, err, "a missing result is a tool-level error, not a Go error")
	assert.True(t, result.IsError())
}

func TestGetFullResultTool_MissingArgReturnsToolError(t *testing.T) {
	src := &fakeFullResultSource{bodies: map[string]string{}}
	tl := NewGetFullResultTool(src)

	result, err := tl.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.True(t, result.IsError())
}

func TestGetFullResultTool_NameAndSchema(t *testing.T) {
	tl := NewGetFullResultTool(&fakeFullResultSource{})
	assert.Equal(t, "get_full_result", tl.Name())
	schema := tl.ParametersSchema()
	require.Len(t, schema.Params, 1)
	assert.Equal(t, "resultId", schema.Params[0].Name)
	assert.True(t, schema.Params[0].Required)
}
