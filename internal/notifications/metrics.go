package notifications

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// deliveriesTotal tracks notification deliveries by provider and outcome.
	deliveriesTotal *prometheus.CounterVec

	// metricsOnce ensures metrics are only registered once.
	metricsOnce sync.Once

	// metricsRegistered indicates if metrics have been registered.
	metricsRegistered bool
)

// InitMetrics initializes the Prometheus metrics for notifications.
// This should be called once at startup if metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollout_messenger_deliveries_total",
			Help: "Total number of notification deliveries by provider and outcome",
		}, []string{"provider", "outcome"})
		metricsRegistered = true
	})
}

// recordDelivery counts a delivery attempt. Safe to call when metrics are
// not initialized.
func recordDelivery(provider string, err error) {
	if !metricsRegistered || deliveriesTotal == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	deliveriesTotal.WithLabelValues(provider, outcome).Inc()
}

// DeliveryCounter returns the delivery counter for testing.
// Returns nil if metrics have not been initialized.
func DeliveryCounter() *prometheus.CounterVec {
	return deliveriesTotal
}
