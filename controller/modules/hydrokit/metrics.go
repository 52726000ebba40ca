package hydrokit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reef-pi/hydrokit/controller/modules/ezo"
)

const namespace = "hydrokit"

// Metrics exposes cycle results and publish outcomes to prometheus.
type Metrics struct {
	registry     *prometheus.Registry
	reading      *prometheus.GaugeVec
	status       *prometheus.GaugeVec
	compensation prometheus.Gauge
	phases       *prometheus.CounterVec
	publishes    *prometheus.CounterVec
}

var _ Observer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reading",
			Help:      "Last valid reading per sensor",
		}, []string{"sensor"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_status",
			Help:      "Last response code per sensor (0 is success)",
		}, []string{"sensor"}),
		compensation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compensation_celsius",
			Help:      "Temperature relayed to the pH and EC circuits",
		}),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phases_total",
			Help:      "Acquisition phases fired",
		}, []string{"phase"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Telemetry publish attempts by result",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.reading, m.status, m.compensation, m.phases, m.publishes)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) PhaseFired(p Phase) {
	m.phases.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) CycleCompleted(r Report) {
	m.compensation.Set(r.Compensation)
	m.observe(ezo.RTD, r.Temperature)
	m.observe(ezo.PH, r.PH)
	m.observe(ezo.EC, r.EC)
}

func (m *Metrics) observe(role ezo.Role, r Reading) {
	m.status.WithLabelValues(role.String()).Set(float64(r.Code))
	if r.Valid {
		m.reading.WithLabelValues(role.String()).Set(r.Value)
	}
}

func (m *Metrics) published(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.publishes.WithLabelValues(result).Inc()
}
