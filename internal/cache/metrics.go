package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// hits counts Get calls served from a live entry, per namespace.
	hits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linksync_cache_hits_total",
		Help: "Cache lookups that returned a live entry.",
	}, []string{"namespace"})
	// misses counts Get calls that found nothing or an expired entry.
	misses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linksync_cache_misses_total",
		Help: "Cache lookups that missed or hit an expired entry.",
	}, []string{"namespace"})
)
