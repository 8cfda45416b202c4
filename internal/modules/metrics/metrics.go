// Package metrics counts how correlation ids are resolved.
package metrics

import (
	"github.com/eskrenkovic/correlation-go/internal/modules/correlation"

	"github.com/prometheus/client_golang/prometheus"
)

var _ correlation.Observer = (*Collector)(nil)

type Collector struct {
	resolutions *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "correlation_id_resolutions_total",
		Help: "Total number of inbound requests by how their correlation id was resolved.",
	}, []string{"outcome"})

	if err := reg.Register(resolutions); err != nil {
		return nil, err
	}

	// Start every series at zero so rates are defined before the first hit.
	for _, outcome := range []correlation.Outcome{
		correlation.OutcomeAdopted,
		correlation.OutcomeGenerated,
		correlation.OutcomeReplaced,
		correlation.OutcomeRejected,
	} {
		resolutions.WithLabelValues(string(outcome))
	}

	return &Collector{resolutions: resolutions}, nil
}

func (c *Collector) Observe(outcome correlation.Outcome) {
	c.resolutions.WithLabelValues(string(outcome)).Inc()
}
