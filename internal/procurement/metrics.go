package procurement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_evaluations_total",
		Help: "Package evaluations by outcome (recorded, unchanged, rejected).",
	}, []string{"outcome"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tender_evaluation_duration_seconds",
		Help:    "Time spent in the evaluation engine per package.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	bidsExcludedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tender_bids_excluded_total",
		Help: "Bids left out of a ranking, by error kind.",
	}, []string{"kind"})

	bidsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tender_bids_submitted_total",
		Help: "Bids accepted, including corrections.",
	})

	awardsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tender_awards_total",
		Help: "Packages awarded.",
	})
)
