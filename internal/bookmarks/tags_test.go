package bookmarks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSystemTag(t *testing.T) {
	p := NewTagPolicy("")
	cases := []struct {
		name string
		want bool
	}{
		{"unknow", true},
		{"unread", true},
		{"2026-01-23", true},
		{"golang", false},
		{"2026-1-23", false},
		{"unknown", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, p.IsSystemTag(tc.name), "tag %q", tc.name)
	}
}

func TestTagPolicyCustomMarker(t *testing.T) {
	p := NewTagPolicy("newsletter")
	require.Equal(t, "newsletter", p.Marker())
	require.True(t, p.IsSystemTag("newsletter"))
	require.True(t, p.IsSystemTag("unread"))
	require.True(t, p.IsSystemTag("2026-01-23"))
	// The default marker is just a user tag under a custom policy.
	require.False(t, p.IsSystemTag("unknow"))
}

func TestRealTags(t *testing.T) {
	p := NewTagPolicy("")
	tags := []Tag{{Name: "unknow"}, {Name: "golang"}, {Name: "2026-01-23"}, {Name: "databases"}}
	real := p.RealTags(tags)
	require.Len(t, real, 2)
	require.Equal(t, "golang", real[0].Name)
	require.Equal(t, "databases", real[1].Name)

	require.True(t, p.HasRealTags(tags))
	require.False(t, p.HasRealTags([]Tag{{Name: "unknow"}, {Name: "2026-01-23"}}))
	require.False(t, p.HasRealTags(nil))
}
