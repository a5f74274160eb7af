package urlnorm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "upgrades insecure scheme",
			raw:  "http://example.com/a",
			want: "https://example.com/a",
		},
		{
			name: "drops fragment",
			raw:  "https://example.com/a#section-2",
			want: "https://example.com/a",
		},
		{
			name: "strips tracking params and keeps the rest in order",
			raw:  "https://example.com/a?utm_source=x&page=2&fbclid=abc&sort=asc",
			want: "https://example.com/a?page=2&sort=asc",
		},
		{
			name: "strips utm prefix params",
			raw:  "https://example.com/a?utm_campaign=spring&utm_id=7",
			want: "https://example.com/a",
		},
		{
			name: "strips single trailing slash",
			raw:  "https://example.com/a/",
			want: "https://example.com/a",
		},
		{
			name: "root path collapses",
			raw:  "https://example.com/",
			want: "https://example.com",
		},
		{
			name: "lowercases host",
			raw:  "https://EXAMPLE.com/A",
			want: "https://example.com/A",
		},
		{
			name: "combined equivalence",
			raw:  "http://EXAMPLE.com/a/?utm_source=x#frag",
			want: "https://example.com/a",
		},
		{
			name: "preserves id-bearing query",
			raw:  "https://www.youtube.com/watch?v=abc123&si=share",
			want: "https://www.youtube.com/watch?v=abc123",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(tc.raw)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	urls := []string{
		"http://example.com/a/?utm_source=x#frag",
		"https://example.com",
		"https://example.com/a?page=2&sort=asc",
		"HTTP://Example.COM/path/",
	}
	for _, raw := range urls {
		once, err := Normalize(raw)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		require.Equal(t, once, twice, "normalize(normalize(%q))", raw)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not a url", "/relative/path", "%%%"} {
		_, err := Normalize(raw)
		var invalid *InvalidURLError
		require.True(t, errors.As(err, &invalid), "want InvalidURLError for %q, got %v", raw, err)
	}
}

func TestFuzzyKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "example.com/a", FuzzyKey("https://example.com/a?ref=2"))
	require.Equal(t, "example.com/a", FuzzyKey("http://EXAMPLE.com/a/"))
	require.Equal(t, "example.com", FuzzyKey("https://example.com/"))
	require.Empty(t, FuzzyKey("not a url"))
	require.Empty(t, FuzzyKey(""))
}

// Exact match implies fuzzy match: URLs with equal canonical forms must
// share a fuzzy key.
func TestFuzzySubsumption(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"http://example.com/a/", "https://example.com/a"},
		{"https://example.com/a?utm_source=x", "https://example.com/a#frag"},
	}
	for _, p := range pairs {
		na, err := Normalize(p[0])
		require.NoError(t, err)
		nb, err := Normalize(p[1])
		require.NoError(t, err)
		require.Equal(t, na, nb)
		require.Equal(t, FuzzyKey(p[0]), FuzzyKey(p[1]))
	}

	// The converse does not hold: same fuzzy key, different canonical forms.
	require.Equal(t, FuzzyKey("https://example.com/a?p=1"), FuzzyKey("https://example.com/a?p=2"))
	na, _ := Normalize("https://example.com/a?p=1")
	nb, _ := Normalize("https://example.com/a?p=2")
	require.NotEqual(t, na, nb)
}
