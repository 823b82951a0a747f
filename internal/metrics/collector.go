// Package metrics exposes config edit activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// Save result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Collector counts committed edits and save attempts and tracks the live
// instance count per category.
type Collector struct {
	gatherer  prometheus.Gatherer
	mutations *prometheus.CounterVec
	instances *prometheus.GaugeVec
	saves     *prometheus.CounterVec
	revision  prometheus.Gauge
}

// NewCollector registers the node config metrics with reg. A nil reg uses a
// fresh registry that also carries the Go and process collectors.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeconfig_mutations_total",
			Help: "Committed config edits by operation",
		}, []string{"op"}),
		instances: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nodeconfig_instances",
			Help: "Live instances by category",
		}, []string{"category"}),
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeconfig_saves_total",
			Help: "Config save attempts by result",
		}, []string{"result"}),
		revision: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nodeconfig_edit_sequence",
			Help: "Number of edits committed since start",
		}),
	}
}

// ObserveChange records one committed edit. It matches nodeconfig.Observer.
func (c *Collector) ObserveChange(change nodeconfig.Change) {
	c.mutations.WithLabelValues(change.Op).Inc()
	for _, category := range nodeconfig.AllCategories() {
		c.instances.WithLabelValues(string(category)).Set(float64(change.Counts[category]))
	}
	c.revision.Set(float64(change.Revision))
}

// ObserveSave records a save attempt. It matches nodeconfig.SaveHook.
func (c *Collector) ObserveSave(_ *nodeconfig.Revision, err error) {
	if err != nil {
		c.saves.WithLabelValues(resultError).Inc()
		return
	}
	c.saves.WithLabelValues(resultOK).Inc()
}

// SetInstances sets the instance gauges from a snapshot, for use after a
// config is loaded at startup.
func (c *Collector) SetInstances(cfg *nodeconfig.Config) {
	for _, category := range nodeconfig.AllCategories() {
		c.instances.WithLabelValues(string(category)).Set(float64(cfg.Count(category)))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
