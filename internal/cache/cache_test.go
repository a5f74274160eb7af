package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock for expiry tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestService(t *testing.T, clk Clock, defaults map[string]time.Duration) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), clk, defaults)
	require.NoError(t, err)
	return svc
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clk, map[string]time.Duration{NamespaceEnrichments: NoExpiry})

	type enrichment struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	in := enrichment{Title: "A Post", Tags: []string{"go", "testing"}}
	require.NoError(t, svc.Set(NamespaceEnrichments, "https://example.com/a", in))

	var out enrichment
	ok, err := svc.Get(NamespaceEnrichments, "https://example.com/a", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, out)
}

func TestGetMissIsNotAnError(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeClock{now: time.Now()}, nil)
	var out string
	ok, err := svc.Get(NamespaceArticles, "absent", &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTTLBoundary(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clk := &fakeClock{now: start}
	svc := newTestService(t, clk, map[string]time.Duration{NamespaceArticles: 7 * 24 * time.Hour})

	require.NoError(t, svc.Set(NamespaceArticles, "k", "v"))

	var out string
	clk.Advance(7*24*time.Hour - time.Second)
	ok, err := svc.Get(NamespaceArticles, "k", &out)
	require.NoError(t, err)
	require.True(t, ok, "one second before expiry must hit")
	require.Equal(t, "v", out)

	clk.Advance(2 * time.Second)
	ok, err = svc.Get(NamespaceArticles, "k", &out)
	require.NoError(t, err)
	require.False(t, ok, "one second past expiry must miss")
}

func TestNoExpiryNeverExpires(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clk, map[string]time.Duration{NamespaceEnrichments: NoExpiry})

	require.NoError(t, svc.Set(NamespaceEnrichments, "k", "v"))
	clk.Advance(10 * 365 * 24 * time.Hour)

	ok, err := svc.Get(NamespaceEnrichments, "k", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEntryTTLOverridesNamespaceDefault(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clk, map[string]time.Duration{NamespaceMeta: time.Hour})

	require.NoError(t, svc.SetTTL(NamespaceMeta, "short", "v", time.Minute))
	require.NoError(t, svc.SetTTL(NamespaceMeta, "pinned", "v", NoExpiry))

	clk.Advance(30 * time.Minute)
	ok, err := svc.Get(NamespaceMeta, "short", nil)
	require.NoError(t, err)
	require.False(t, ok, "per-entry TTL beats the namespace default")

	clk.Advance(100 * time.Hour)
	ok, err = svc.Get(NamespaceMeta, "pinned", nil)
	require.NoError(t, err)
	require.True(t, ok, "explicit NoExpiry pins the entry")
}

func TestExpiryIsLazy(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clk, map[string]time.Duration{NamespaceArticles: time.Hour})

	require.NoError(t, svc.Set(NamespaceArticles, "k", "v"))
	clk.Advance(2 * time.Hour)

	ok, err := svc.Get(NamespaceArticles, "k", nil)
	require.NoError(t, err)
	require.False(t, ok)

	// The backing record survives the expired read.
	n, err := svc.Len(NamespaceArticles)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNamespacesAreIsolated(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeClock{now: time.Now()}, nil)
	require.NoError(t, svc.Set(NamespaceArticles, "k", "article"))
	require.NoError(t, svc.Set(NamespaceEnrichments, "k", "enrichment"))

	var out string
	ok, err := svc.Get(NamespaceArticles, "k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "article", out)

	require.NoError(t, svc.Clear(NamespaceArticles))

	ok, err = svc.Get(NamespaceArticles, "k", nil)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.Get(NamespaceEnrichments, "k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "enrichment", out)
}

func TestPersistsAcrossServiceInstances(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clk := &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	svc, err := NewService(dir, clk, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Set(NamespaceCollections, "data", []int{1, 2, 3}))

	reopened, err := NewService(dir, clk, nil)
	require.NoError(t, err)
	var out []int
	ok, err := reopened.Get(NamespaceCollections, "data", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int{1, 2, 3}, out)

	// One file per namespace, no stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, NamespaceCollections+".json", entries[0].Name())
	require.FileExists(t, filepath.Join(dir, NamespaceCollections+".json"))
}

func TestRemove(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeClock{now: time.Now()}, nil)
	require.NoError(t, svc.Set(NamespaceEnrichments, "k", "v"))
	require.NoError(t, svc.Remove(NamespaceEnrichments, "k"))

	ok, err := svc.Get(NamespaceEnrichments, "k", nil)
	require.NoError(t, err)
	require.False(t, ok)

	// Removing an absent key is a no-op.
	require.NoError(t, svc.Remove(NamespaceEnrichments, "k"))
}
