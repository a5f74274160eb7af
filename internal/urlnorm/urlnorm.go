// Package urlnorm derives the canonical and fuzzy identity keys used
// everywhere a URL is compared: the crawl seen-set, the newsletter match
// index, and bookmark duplicate detection.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are always stripped during normalization. Parameters with a
// "utm_" prefix are stripped regardless of this set.
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"mc_cid": {},
	"mc_eid": {},
	"si":     {},
}

// InvalidURLError reports input that cannot be parsed as a URL at all.
// It is fatal for the single item only; batch callers skip and continue.
type InvalidURLError struct {
	Raw    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.Raw, e.Reason)
}

// Normalize standardizes a URL into its canonical identity form.
// Rules, in order: http is rewritten to https; the fragment is dropped;
// tracking query parameters are removed while all other parameters keep
// their original order; exactly one trailing slash is stripped unless the
// path is empty or root. Normalize is idempotent.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", &InvalidURLError{Raw: raw, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &InvalidURLError{Raw: raw, Reason: "no scheme or host"}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" {
		scheme = "https"
	}
	host := strings.ToLower(u.Host)

	path := u.EscapedPath()
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "/" {
		path = ""
	}

	normalized := scheme + "://" + host + path
	if q := filterQuery(u.RawQuery); q != "" {
		normalized += "?" + q
	}
	return normalized, nil
}

// FuzzyKey reduces a URL to its lowercased host plus path, ignoring the
// scheme and all query parameters. It is a lower-confidence identity used
// only as a fallback when the canonical forms do not match; the empty
// string means the input carries no usable identity.
func FuzzyKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	return strings.ToLower(u.Host) + strings.ToLower(path)
}

// filterQuery removes tracking parameters from a raw query string,
// preserving the relative order and encoding of everything else.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		key = strings.ToLower(key)
		if strings.HasPrefix(key, "utm_") {
			continue
		}
		if _, tracking := trackingParams[key]; tracking {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}
