package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeModelJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object untouched",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "prose around object",
			in:   "Here is the result:\n{\"a\": 1}\nHope that helps!",
			want: `{"a": 1}`,
		},
		{
			name: "trailing comma",
			in:   `{"a": [1, 2,], "b": 3,}`,
			want: `{"a": [1, 2], "b": 3}`,
		},
		{
			name: "line comment",
			in:   "{\n// the value\n\"a\": 1\n}",
			want: "{\n\n\"a\": 1\n}",
		},
		{
			name: "block comment",
			in:   `{"a": /* inline */ 1}`,
			want: `{"a":  1}`,
		},
		{
			name: "comment after value",
			in:   "{\"a\": 1 // note\n}",
			want: "{\"a\": 1 \n}",
		},
		{
			name: "slashes inside string values kept",
			in:   `{"notes": "see https://example.com/a"}`,
			want: `{"notes": "see https://example.com/a"}`,
		},
		{
			name: "escaped quote before slashes",
			in:   `{"notes": "a \"quoted\" url https://x"}`,
			want: `{"notes": "a \"quoted\" url https://x"}`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, SanitizeModelJSON(c.in))
		})
	}
}

func TestDecodeObject(t *testing.T) {
	meta, err := decodeObject("```json\n{\"media_type\": \"photo\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "photo", meta["media_type"])

	meta, err = decodeObject(`{"media_type": "photo", "notes": "see https://example.com/ref"}`)
	require.NoError(t, err)
	assert.Equal(t, "see https://example.com/ref", meta["notes"])

	_, err = decodeObject("no object here")
	assert.Error(t, err)

	_, err = decodeObject(`{"broken": `)
	assert.Error(t, err)
}

func TestParseAltCaption(t *testing.T) {
	ac, err := parseAltCaption("```json\n{\"alt_text\": \" A cat. \", \"caption\": \"A cat naps.\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "A cat.", ac.AltText)
	assert.Equal(t, "A cat naps.", ac.Caption)

	_, err = parseAltCaption("I describe images in prose only.")
	assert.Error(t, err)
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two three", truncateWords("one two three", 5))
	assert.Equal(t, "one two", truncateWords("one two three", 2))
	assert.Equal(t, "trimmed", truncateWords("  trimmed  ", 3))
	assert.Equal(t, "", truncateWords("", 3))
}
