package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeenSetMissingFileIsEmpty(t *testing.T) {
	s, err := LoadSeenSet(filepath.Join(t.TempDir(), "seen.txt"))
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
	require.False(t, s.Contains("https://news.example.com/issues/1"))
}

func TestSeenSetPersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.txt")

	s, err := LoadSeenSet(path)
	require.NoError(t, err)
	require.NoError(t, s.Add("https://news.example.com/issues/1"))
	require.NoError(t, s.Add("https://news.example.com/issues/2"))

	reloaded, err := LoadSeenSet(path)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())
	require.True(t, reloaded.Contains("https://news.example.com/issues/1"))
	require.True(t, reloaded.Contains("https://news.example.com/issues/2"))
}

func TestSeenSetMatchesCanonicalVariants(t *testing.T) {
	s, err := LoadSeenSet(filepath.Join(t.TempDir(), "seen.txt"))
	require.NoError(t, err)
	require.NoError(t, s.Add("https://news.example.com/issues/1"))

	require.True(t, s.Contains("http://news.example.com/issues/1/"))
	require.True(t, s.Contains("https://news.example.com/issues/1?utm_source=tw"))
	require.False(t, s.Contains("https://news.example.com/issues/2"))
}

func TestSeenSetAddIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.txt")
	s, err := LoadSeenSet(path)
	require.NoError(t, err)

	require.NoError(t, s.Add("https://news.example.com/issues/1"))
	require.NoError(t, s.Add("http://news.example.com/issues/1/"))
	require.Equal(t, 1, s.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://news.example.com/issues/1\n", string(data))
}

func TestSeenSetSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.txt")
	require.NoError(t, os.WriteFile(path, []byte("\nhttps://news.example.com/issues/1\n\n"), 0o600))

	s, err := LoadSeenSet(path)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
}
