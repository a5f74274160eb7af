package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pagesFetched tracks pages successfully fetched during crawl walks.
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_pages_fetched_total",
		Help: "The total number of newsletter pages successfully fetched.",
	})
	// fetchErrors tracks fetches that ended a crawl step.
	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_fetch_errors_total",
		Help: "The total number of failed page fetches.",
	})
	// parseErrors tracks documents the extractor rejected.
	parseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_parse_errors_total",
		Help: "The total number of pages the extractor could not parse.",
	})
	// recordsAppended tracks issues durably appended to the corpus.
	recordsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_records_appended_total",
		Help: "The total number of newsletter records appended to the corpus.",
	})
	// headlessRenders tracks fetches promoted to a headless render.
	headlessRenders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_headless_renders_total",
		Help: "The total number of pages re-fetched through the headless renderer.",
	})
)
