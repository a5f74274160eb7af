package enrich

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mjaros/linksync/internal/crawler"
)

// maxContentChars bounds what we send to the model; pages longer than this
// carry no extra signal for metadata purposes.
const maxContentChars = 8000

// pageText reduces a fetched page to the plain text the model sees: the
// document title followed by body text with boilerplate elements removed.
func pageText(page crawler.Page) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	var b strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(doc.Find("body").Text()))

	text := strings.Join(strings.Fields(b.String()), " ")
	if len(text) > maxContentChars {
		text = text[:maxContentChars]
	}
	return text
}
