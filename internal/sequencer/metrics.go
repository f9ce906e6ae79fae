/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequencer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchesTotal counts finished searches.
	// Labels: bundle, outcome (found, unsatisfiable, timeout, cancelled, rejected)
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir",
		Subsystem: "sequencer",
		Name:      "searches_total",
		Help:      "Finished sequence searches by outcome",
	}, []string{"bundle", "outcome"})

	// searchNodes tracks how many candidate placements a search evaluated.
	searchNodes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grimnir",
		Subsystem: "sequencer",
		Name:      "search_nodes",
		Help:      "Candidate placements evaluated per search",
		Buckets:   prometheus.ExponentialBuckets(8, 4, 10),
	}, []string{"bundle"})

	// searchDuration measures wall time per search.
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grimnir",
		Subsystem: "sequencer",
		Name:      "search_duration_seconds",
		Help:      "Sequence search wall time in seconds",
		Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"outcome"})
)

func observeSearch(bundle string, stats Stats) {
	if bundle == "" {
		bundle = "unnamed"
	}
	searchesTotal.WithLabelValues(bundle, string(stats.Outcome)).Inc()
	searchNodes.WithLabelValues(bundle).Observe(float64(stats.Nodes))
	searchDuration.WithLabelValues(string(stats.Outcome)).Observe(stats.Elapsed.Seconds())
}
