package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	StepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_step_transitions_total",
			Help: "Wizard navigation attempts by result",
		},
		[]string{"result"},
	)

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_submissions_total",
			Help: "Final payload submissions by result",
		},
		[]string{"result"},
	)

	SubscriptionPurchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_purchases_total",
			Help: "Subscription purchase attempts by payment outcome",
		},
		[]string{"outcome"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		RequestCounter,
		RequestDuration,
		StepTransitions,
		Submissions,
		SubscriptionPurchases,
	} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
