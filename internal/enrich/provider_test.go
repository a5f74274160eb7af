package enrich

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResponsePlainJSON(t *testing.T) {
	res, err := parseResponse(`{"title":"Go maps","description":"How maps work.","tags":["go","internals"],"category":"programming"}`)
	require.NoError(t, err)
	require.Equal(t, "Go maps", res.Title)
	require.Equal(t, []string{"go", "internals"}, res.Tags)
	require.Equal(t, "programming", res.Category)
}

func TestParseResponseCodeFence(t *testing.T) {
	text := "```json\n{\"title\":\"Fenced\",\"tags\":[]}\n```"
	res, err := parseResponse(text)
	require.NoError(t, err)
	require.Equal(t, "Fenced", res.Title)
}

func TestParseResponseNullMeansInaccessible(t *testing.T) {
	_, err := parseResponse("null")
	require.ErrorIs(t, err, ErrCannotAccess)

	_, err = parseResponse("```json\nnull\n```")
	require.ErrorIs(t, err, ErrCannotAccess)

	_, err = parseResponse("")
	require.ErrorIs(t, err, ErrCannotAccess)
}

func TestParseResponseUnescapesEntities(t *testing.T) {
	res, err := parseResponse(`{"title":"It&#39;s alive","description":"A &amp; B","tags":["c&#43;&#43;"]}`)
	require.NoError(t, err)
	require.Equal(t, "It's alive", res.Title)
	require.Equal(t, "A & B", res.Description)
	require.Equal(t, []string{"c++"}, res.Tags)
}

func TestParseResponseGarbage(t *testing.T) {
	_, err := parseResponse("I could not process that page, sorry!")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCannotAccess)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Provider: "claude"})
	require.Error(t, err)

	_, err = New(Config{Provider: "bard", APIKey: "k"})
	require.Error(t, err)

	p, err := New(Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	require.NotNil(t, p)
}
