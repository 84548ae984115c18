package parking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	occupiedSpacesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parking_occupied_spaces",
		Help: "Number of spaces currently occupied",
	})

	capacityGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parking_capacity_spaces",
		Help: "Total number of spaces in the lot",
	})

	queueLengthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parking_queue_length",
		Help: "Number of vehicles on the waiting list",
	})

	admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_admissions_total",
		Help: "Admission attempts by outcome",
	}, []string{"outcome", "vehicle_type"})

	departuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_departures_total",
		Help: "Completed departures",
	}, []string{"vehicle_type"})

	departureMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_departure_not_found_total",
		Help: "Departure requests for plates that were not parked",
	})

	promotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_promotions_total",
		Help: "Vehicles moved from the waiting list into a freed space",
	})

	revenueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_revenue_total",
		Help: "Fees collected at departure",
	}, []string{"vehicle_type"})

	stayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parking_stay_duration_minutes",
		Help:    "Length of completed stays in minutes",
		Buckets: []float64{15, 30, 60, 120, 180, 240, 480, 720, 1440},
	}, []string{"vehicle_type"})
)

func recordLotState(o Occupancy, queueLength int) {
	capacityGauge.Set(float64(o.Capacity))
	occupiedSpacesGauge.Set(float64(o.Occupied))
	queueLengthGauge.Set(float64(queueLength))
}

func recordAdmission(outcome AdmitOutcome, t VehicleType) {
	admissionsTotal.WithLabelValues(string(outcome), string(t)).Inc()
}

func recordDeparture(rec VehicleRecord, minutes float64) {
	t := string(rec.VehicleType)
	departuresTotal.WithLabelValues(t).Inc()
	revenueTotal.WithLabelValues(t).Add(rec.Fee)
	stayDuration.WithLabelValues(t).Observe(minutes)
}

func recordDepartureMiss() {
	departureMissesTotal.Inc()
}

func recordPromotion() {
	promotionsTotal.Inc()
}
