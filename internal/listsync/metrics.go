package listsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hubSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "listsync_hub_subscribers",
		Help: "Number of live change subscriptions",
	})

	hubEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_hub_events_published_total",
		Help: "Changes published to the hub, by table",
	}, []string{"table"})

	hubEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listsync_hub_events_dropped_total",
		Help: "Changes dropped because a subscriber buffer was full",
	})

	syncerReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_reloads_total",
		Help: "Authoritative reloads by outcome (applied, stale, error)",
	}, []string{"result"})

	activeSyncers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "listsync_active_syncers",
		Help: "Number of started, not yet closed syncers",
	})
)
