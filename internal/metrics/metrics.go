// Package metrics counts syncs and installs. The CLI is short-lived, so
// the Prometheus implementation keeps a private registry and can dump it
// in the node_exporter textfile format when the process ends.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records registry operations.
type Metrics interface {
	IncSync(status string)
	IncSourceFailure(source string)
	IncInstall(outcome string)
	ObserveInstallDuration(outcome string, d time.Duration)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncSync(string)                               {}
func (Noop) IncSourceFailure(string)                      {}
func (Noop) IncInstall(string)                            {}
func (Noop) ObserveInstallDuration(string, time.Duration) {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	reg             *prometheus.Registry
	syncs           *prometheus.CounterVec
	sourceFailures  *prometheus.CounterVec
	installs        *prometheus.CounterVec
	installDuration *prometheus.HistogramVec
}

// NewProm returns Prom collectors registered on a fresh registry.
func NewProm(namespace string) *Prom {
	p := &Prom{
		reg: prometheus.NewRegistry(),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Catalog syncs by status",
		}, []string{"status"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Registry sources that failed during a sync",
		}, []string{"source"}),
		installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installs_total",
			Help:      "Install attempts by outcome",
		}, []string{"outcome"}),
		installDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "install_duration_seconds",
			Help:      "Install duration by outcome",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	p.reg.MustRegister(p.syncs, p.sourceFailures, p.installs, p.installDuration)
	return p
}

func (p *Prom) IncSync(status string) {
	p.syncs.WithLabelValues(status).Inc()
}

func (p *Prom) IncSourceFailure(source string) {
	p.sourceFailures.WithLabelValues(source).Inc()
}

func (p *Prom) IncInstall(outcome string) {
	p.installs.WithLabelValues(outcome).Inc()
}

func (p *Prom) ObserveInstallDuration(outcome string, d time.Duration) {
	p.installDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (p *Prom) Registry() *prometheus.Registry { return p.reg }

// WriteTextfile writes all collected metrics to path atomically.
func (p *Prom) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
