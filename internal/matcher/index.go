// Package matcher builds the dual exact/fuzzy index over the newsletter
// corpus and answers the two identity questions the sync pipeline asks:
// "does this bookmark URL correspond to a newsletter link" and "do these
// bookmarks duplicate each other".
package matcher

import (
	"github.com/mjaros/linksync/internal/newsletter"
	"github.com/mjaros/linksync/internal/urlnorm"
)

// LinkRef points at one newsletter link: the payload a match resolves to.
type LinkRef struct {
	Title       string
	Description string
	Date        string
	OriginalURL string
	SourceURL   string
}

// Index holds the two corpus mappings. The exact index is keyed by
// canonical URL with last-write-wins semantics, since newer issues may
// correct older descriptions. The fuzzy index keeps every colliding
// candidate in corpus order.
type Index struct {
	exact map[string]LinkRef
	fuzzy map[string][]LinkRef
}

// BuildIndex walks every link of every record and populates both mappings.
// Links whose URLs cannot be normalized are skipped; a bad link never
// aborts the build.
func BuildIndex(corpus []newsletter.Record) *Index {
	ix := &Index{
		exact: make(map[string]LinkRef),
		fuzzy: make(map[string][]LinkRef),
	}
	for _, rec := range corpus {
		for _, link := range rec.Links {
			ref := LinkRef{
				Title:       link.Title,
				Description: link.Description,
				Date:        rec.Date,
				OriginalURL: link.URL,
				SourceURL:   rec.SourceURL,
			}
			if canonical, err := urlnorm.Normalize(link.URL); err == nil {
				ix.exact[canonical] = ref
			}
			if key := urlnorm.FuzzyKey(link.URL); key != "" {
				ix.fuzzy[key] = append(ix.fuzzy[key], ref)
			}
		}
	}
	return ix
}

// MatchKind classifies a lookup result.
type MatchKind int

// Lookup outcomes, from strongest to weakest.
const (
	MatchNone MatchKind = iota
	MatchExact
	MatchFuzzy
	MatchAmbiguous
)

// Match is the result of an Index lookup. Ref is set for exact and
// singleton fuzzy hits; Candidates carries every colliding ref when the
// fuzzy lookup is ambiguous, so the caller can surface them for manual
// resolution instead of guessing.
type Match struct {
	Kind       MatchKind
	Ref        LinkRef
	Candidates []LinkRef
}

// Match resolves a bookmark URL against the corpus: exact first, then
// fuzzy. A fuzzy hit is only trusted when there is exactly one candidate;
// multiple candidates are reported as ambiguous, never auto-picked. An
// unparseable URL is simply no match.
func (ix *Index) Match(rawURL string) Match {
	if canonical, err := urlnorm.Normalize(rawURL); err == nil {
		if ref, ok := ix.exact[canonical]; ok {
			return Match{Kind: MatchExact, Ref: ref}
		}
	}
	key := urlnorm.FuzzyKey(rawURL)
	if key == "" {
		return Match{Kind: MatchNone}
	}
	candidates := ix.fuzzy[key]
	switch len(candidates) {
	case 0:
		return Match{Kind: MatchNone}
	case 1:
		return Match{Kind: MatchFuzzy, Ref: candidates[0]}
	default:
		out := make([]LinkRef, len(candidates))
		copy(out, candidates)
		return Match{Kind: MatchAmbiguous, Candidates: out}
	}
}

// ExactLen reports the number of distinct canonical URLs indexed.
func (ix *Index) ExactLen() int { return len(ix.exact) }

// FuzzyLen reports the number of distinct fuzzy keys indexed.
func (ix *Index) FuzzyLen() int { return len(ix.fuzzy) }
