package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "pure_object", input: `{"key":"value"}`, want: `{"key":"value"}`},
		{name: "pure_array", input: `[{"a":1}]`, want: `[{"a":1}]`},
		{name: "object_with_preamble", input: `Here: {"key":"value"} done.`, want: `{"key":"value"}`},
		{name: "markdown_wrapped_object", input: "```json\n{\"summary\":\"x\"}\n```", want: `{"summary":"x"}`},
		{name: "bare_fence", input: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fence_with_prose", input: "Sure!\n```json\n{\"a\":[1,2]}\n```\nHope this helps.", want: `{"a":[1,2]}`},
		{name: "nested_brackets_in_strings", input: `{"arr":"[1,2,3]","key":"val"}`, want: `{"arr":"[1,2,3]","key":"val"}`},
		{name: "array_with_preamble", input: `Result: [1,2]`, want: `[1,2]`},
		{name: "empty_object", input: `Result: {}`, want: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	for _, input := range []string{"just some text", "text { not json } more", ""} {
		_, err := ExtractJSON(input)
		assert.ErrorIs(t, err, apperrors.ErrNoJSON, input)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "plain", StripCodeFence("  plain \n"))
	assert.Equal(t, "body", StripCodeFence("```text\nbody\n```"))
}
