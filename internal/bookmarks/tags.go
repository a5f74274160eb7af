package bookmarks

import "regexp"

var dateTagPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DefaultMarkerTag marks links whose metadata came from a newsletter.
// "unknow" is the historical spelling used by existing data; changing the
// default would orphan every tagged link.
const DefaultMarkerTag = "unknow"

// TagPolicy decides which tag names are machine-managed. The marker tag is
// configurable (bookmarks.marker_tag); "unread" and ISO-date tags are always
// system tags. System tags are preserved on update and ignored when deciding
// whether a link still needs tagging.
type TagPolicy struct {
	marker string
}

// NewTagPolicy builds a policy around the configured marker tag. An empty
// marker falls back to DefaultMarkerTag.
func NewTagPolicy(marker string) TagPolicy {
	if marker == "" {
		marker = DefaultMarkerTag
	}
	return TagPolicy{marker: marker}
}

// Marker returns the tag applied to newsletter-sourced links.
func (p TagPolicy) Marker() string { return p.marker }

// IsSystemTag reports whether name is machine-managed: the marker tag, the
// "unread" flag, or an ISO-date tag.
func (p TagPolicy) IsSystemTag(name string) bool {
	if name == p.marker || name == "unread" {
		return true
	}
	return dateTagPattern.MatchString(name)
}

// RealTags returns the user-assigned (non-system) tags.
func (p TagPolicy) RealTags(tags []Tag) []Tag {
	var real []Tag
	for _, t := range tags {
		if !p.IsSystemTag(t.Name) {
			real = append(real, t)
		}
	}
	return real
}

// HasRealTags reports whether any tag is user-assigned.
func (p TagPolicy) HasRealTags(tags []Tag) bool {
	return len(p.RealTags(tags)) > 0
}
