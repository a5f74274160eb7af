package bookmarks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookmarksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_bookmarks_created_total",
		Help: "Bookmark links created on the server.",
	})
	bookmarksUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_bookmarks_updated_total",
		Help: "Bookmark links updated on the server.",
	})
	bookmarksDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_bookmarks_deleted_total",
		Help: "Bookmark links deleted from the server.",
	})
	apiErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linksync_bookmark_api_errors_total",
		Help: "Failed bookmark server API calls.",
	})
)
