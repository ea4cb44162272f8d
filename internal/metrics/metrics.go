package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockcore_reservations_admitted_total",
		Help: "Reservation lines admitted against available stock.",
	})

	ReservationsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockcore_reservations_denied_total",
		Help: "Reservation lines denied (unknown key, insufficient stock or lost race).",
	})

	ReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockcore_releases_total",
		Help: "Release operations that freed at least one reservation.",
	})

	MovementAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockcore_movement_append_failures_total",
		Help: "Best-effort movement log appends that failed.",
	})
)
