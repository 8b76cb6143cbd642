package entity

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts entity cache lookups.
type Metrics struct {
	lookups *prometheus.CounterVec
}

// NewMetrics registers the entity cache collectors against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_manage_entity_cache_lookups_total",
		Help: "Entity lookups partitioned by entity and cache result.",
	}, []string{"entity", "result"})
	registerer.MustRegister(lookups)
	return &Metrics{lookups: lookups}
}

func (m *Metrics) observe(entity string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(entity, result).Inc()
}
