package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sassgo"

type metrics struct {
	compilations *prometheus.CounterVec
	duration     prometheus.Histogram
	inFlight     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compilations_total",
				Help:      "Total number of finished compilations",
			},
			[]string{"style", "result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compilation_duration_seconds",
				Help:      "Compilation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "compilations_in_flight",
				Help:      "Number of compilations being executed",
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.compilations, m.duration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
