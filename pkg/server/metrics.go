package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igen_generations_total",
			Help: "Total number of orchestrated generations by outcome.",
		},
		[]string{"status"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igen_exports_total",
			Help: "Total number of export attempts by outcome.",
		},
		[]string{"status"},
	)

	galleryClearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igen_gallery_clears_total",
		Help: "Total number of gallery clear actions.",
	})
)
