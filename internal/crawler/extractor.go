package crawler

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mjaros/linksync/internal/newsletter"
)

var (
	titlePrefixPattern = regexp.MustCompile(`^\[[^\]]*\]\s*`)
	linkNumberPattern  = regexp.MustCompile(`^\d+\.\s*`)
	infoPattern        = regexp.MustCompile(`INFO:\s*(.+)$`)
	isoDateInText      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	ogImageDatePattern = regexp.MustCompile(`/og/(\d{8})\.\w+$`)
	spaceRun           = regexp.MustCompile(` +`)
)

// IssueExtractor parses one newsletter issue page: the issue record from
// the links list and metadata, plus the ordered previous-issue candidates
// from the dated archive list at the bottom.
type IssueExtractor struct{}

// NewIssueExtractor returns the goquery-backed extractor.
func NewIssueExtractor() *IssueExtractor {
	return &IssueExtractor{}
}

// Extract parses page into a Record and previous-issue candidate URLs. A
// document missing the required structure fails with *newsletter.ParseError.
func (x *IssueExtractor) Extract(page Page) (newsletter.Record, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return newsletter.Record{}, nil, &newsletter.ParseError{URL: page.URL, Reason: err.Error()}
	}

	rec := newsletter.Record{
		Title:     extractTitle(doc),
		Date:      extractDate(doc),
		SourceURL: page.URL,
		Links:     extractLinks(doc),
	}
	rec.Description, rec.Sponsor = extractDescriptionAndSponsor(doc)

	previous := extractPrevious(doc)
	if rec.Date == "" && len(previous) > 0 {
		rec.Date = dateAfterNewest(previous)
	}

	if err := rec.Validate(); err != nil {
		return newsletter.Record{}, nil, err
	}

	urls := make([]string, len(previous))
	for i, p := range previous {
		urls[i] = p.url
	}
	return rec, urls, nil
}

func extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = titlePrefixPattern.ReplaceAllString(title, "")
	return strings.TrimLeft(title, "?  ")
}

// extractDate pulls the ISO date embedded in the og:image URL
// (e.g. .../og/20260123.png).
func extractDate(doc *goquery.Document) string {
	content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	if !ok {
		return ""
	}
	m := ogImageDatePattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	d := m[1]
	return d[:4] + "-" + d[4:6] + "-" + d[6:8]
}

func extractLinks(doc *goquery.Document) []newsletter.LinkEntry {
	var links []newsletter.LinkEntry
	doc.Find("ol li").Each(func(_ int, li *goquery.Selection) {
		titleEl := li.Find("strong").First()
		anchor := li.Find("a").First()
		href, hasHref := anchor.Attr("href")
		if titleEl.Length() == 0 || !hasHref {
			return
		}

		desc := ""
		li.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			text := cleanText(span.Text())
			if strings.HasPrefix(text, "INFO:") {
				desc = strings.TrimSpace(strings.TrimPrefix(text, "INFO:"))
				return false
			}
			return true
		})
		if desc == "" {
			if m := infoPattern.FindStringSubmatch(cleanText(li.Text())); m != nil {
				desc = strings.TrimSpace(m[1])
			}
		}

		links = append(links, newsletter.LinkEntry{
			Title:       linkNumberPattern.ReplaceAllString(cleanText(titleEl.Text()), ""),
			URL:         href,
			Description: desc,
		})
	})
	return links
}

// extractDescriptionAndSponsor collects the intro paragraphs before the
// links list and the sponsor block (marked by its background style).
func extractDescriptionAndSponsor(doc *goquery.Document) (string, string) {
	ol := doc.Find("ol").First()
	if ol.Length() == 0 {
		return "", ""
	}

	sponsor := ""
	var descParts []string
	ol.PrevAll().Each(func(_ int, el *goquery.Selection) {
		// PrevAll iterates closest-first; prepend to restore page order.
		if goquery.NodeName(el) == "div" {
			style, _ := el.Attr("style")
			if strings.Contains(strings.ReplaceAll(style, " ", ""), "background:#eeeeee") {
				sponsor = cleanText(el.Text())
				return
			}
		}
		if goquery.NodeName(el) == "p" {
			if text := cleanText(el.Text()); text != "" {
				descParts = append([]string{text}, descParts...)
			}
		}
	})
	return strings.Join(descParts, "\n\n"), sponsor
}

type previousIssue struct {
	url  string
	date string
}

// extractPrevious reads the archive list: ul items whose bolded text
// carries an ISO date and which link somewhere.
func extractPrevious(doc *goquery.Document) []previousIssue {
	var previous []previousIssue
	doc.Find("ul li").Each(func(_ int, li *goquery.Selection) {
		dateEl := li.Find("strong, b").First()
		anchor := li.Find("a").First()
		href, hasHref := anchor.Attr("href")
		if dateEl.Length() == 0 || !hasHref {
			return
		}
		date := isoDateInText.FindString(dateEl.Text())
		if date == "" {
			return
		}
		previous = append(previous, previousIssue{url: href, date: date})
	})
	return previous
}

// dateAfterNewest falls back to newest previous date plus the weekly
// cadence when the page itself carries no date.
func dateAfterNewest(previous []previousIssue) string {
	newest := ""
	for _, p := range previous {
		if p.date > newest {
			newest = p.date
		}
	}
	t, err := time.Parse("2006-01-02", newest)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 7).Format("2006-01-02")
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
