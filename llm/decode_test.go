package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_Strict(t *testing.T) {
	var out map[string]any
	err := DecodeJSON(`{"tools": [{"tool_name": "qa_tool"}]}`, &out)
	require.NoError(t, err)
	assert.Contains(t, out, "tools")
}

func TestDecodeJSON_SingleQuoteRepair(t *testing.T) {
	var out map[string]any
	err := DecodeJSON(`{'tools': [{'tool_name': 'summary_tool', 'args': {}}]}`, &out)
	require.NoError(t, err)

	tools, ok := out["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	first := tools[0].(map[string]any)
	assert.Equal(t, "summary_tool", first["tool_name"])
}

func TestDecodeJSON_MarkdownFences(t *testing.T) {
	var out map[string]string
	err := DecodeJSON("```json\n{\"label\": \"Negative\"}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "Negative", out["label"])
}

func TestDecodeJSON_Unparseable(t *testing.T) {
	var out map[string]any
	err := DecodeJSON(`I can't help with that`, &out)
	assert.ErrorIs(t, err, ErrUnparseable)

	err = DecodeJSON("", &out)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`  {"a":1}  `))
}
