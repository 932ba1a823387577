package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Run("pure json passes through", func(t *testing.T) {
		in := `{"level": 5}`
		out, err := extractJSON(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("json inside prose", func(t *testing.T) {
		out, err := extractJSON("Here is my assessment:\n{\"level\": 5}\nHope that helps!")
		require.NoError(t, err)
		assert.Equal(t, `{"level": 5}`, out)
	})

	t.Run("json inside code fence", func(t *testing.T) {
		out, err := extractJSON("```json\n{\"level\": 5}\n```")
		require.NoError(t, err)
		assert.Equal(t, `{"level": 5}`, out)
	})

	t.Run("nested objects", func(t *testing.T) {
		out, err := extractJSON(`noise {"a": {"b": {"c": 1}}} trailing`)
		require.NoError(t, err)
		assert.Equal(t, `{"a": {"b": {"c": 1}}}`, out)
	})

	t.Run("braces inside strings", func(t *testing.T) {
		out, err := extractJSON(`{"note": "braces } { inside", "n": 1}`)
		require.NoError(t, err)
		assert.Equal(t, `{"note": "braces } { inside", "n": 1}`, out)
	})

	t.Run("escaped quotes inside strings", func(t *testing.T) {
		out, err := extractJSON(`reply: {"quote": "she said \"hi\"", "n": 2}`)
		require.NoError(t, err)
		assert.Equal(t, `{"quote": "she said \"hi\"", "n": 2}`, out)
	})

	t.Run("skips broken candidate and finds later object", func(t *testing.T) {
		out, err := extractJSON(`{"broken": } then {"ok": true}`)
		require.NoError(t, err)
		assert.Equal(t, `{"ok": true}`, out)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := extractJSON("nothing structured here")
		assert.Error(t, err)
	})

	t.Run("unterminated object", func(t *testing.T) {
		_, err := extractJSON(`{"level": 5`)
		assert.Error(t, err)
	})
}

func TestDecodeStructured(t *testing.T) {
	type reply struct {
		Level int    `json:"level"`
		Title string `json:"title"`
	}

	t.Run("decodes wrapped reply", func(t *testing.T) {
		got, err := decodeStructured[reply]("Sure!\n```json\n{\"level\": 6, \"title\": \"Staff\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, 6, got.Level)
		assert.Equal(t, "Staff", got.Title)
	})

	t.Run("type mismatch fails", func(t *testing.T) {
		_, err := decodeStructured[reply](`{"level": "six"}`)
		assert.Error(t, err)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "0123456789...", truncate("0123456789abcdef", 10))
}
