package bus

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botd",
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Total number of messages published per topic",
		},
		[]string{"topic"},
	)

	handlerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botd",
			Subsystem: "bus",
			Name:      "handler_errors_total",
			Help:      "Total number of publishes aborted by a failing handler",
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(publishedTotal, handlerErrorsTotal)
}
