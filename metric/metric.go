// Package metric exports cache refresh measurements to Prometheus.
package metric

import (
	"errors"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Prometheus implements cache.Metrics with Prometheus collectors labelled by cache name
type Prometheus struct {
	refreshes   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	version     *prometheus.GaugeVec
	failures    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

var _ cache.Metrics = (*Prometheus)(nil)

// NewPrometheus creates the cache collectors and registers them with reg.
// Collectors already registered by another Prometheus instance are reused,
// so several caches in one process can share a registry.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	p := &Prometheus{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refreshes_total",
			Help:      "Refresh cycles by outcome, retries included in a single cycle",
		}, []string{"cache", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh cycles",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"cache"}),
		version: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_version",
			Help:      "Version of the current snapshot",
		}, []string{"cache"}),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "consecutive_failures",
			Help:      "Refresh failures since the last success",
		}, []string{"cache"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh",
		}, []string{"cache"}),
	}

	var err error
	if p.refreshes, err = register(reg, p.refreshes); err != nil {
		return nil, err
	}
	if p.duration, err = register(reg, p.duration); err != nil {
		return nil, err
	}
	if p.version, err = register(reg, p.version); err != nil {
		return nil, err
	}
	if p.failures, err = register(reg, p.failures); err != nil {
		return nil, err
	}
	if p.lastSuccess, err = register(reg, p.lastSuccess); err != nil {
		return nil, err
	}
	return p, nil
}

// register registers c, returning the existing collector if an identical one is already registered
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, ErrRegister(err)
	}
	return c, nil
}

func (p *Prometheus) ObserveRefresh(name string, duration time.Duration, err error) {
	p.duration.WithLabelValues(name).Observe(duration.Seconds())
	if err != nil {
		p.refreshes.WithLabelValues(name, resultFailure).Inc()
		return
	}
	p.refreshes.WithLabelValues(name, resultSuccess).Inc()
	p.lastSuccess.WithLabelValues(name).SetToCurrentTime()
}

func (p *Prometheus) SetVersion(name string, version uint64) {
	p.version.WithLabelValues(name).Set(float64(version))
}

func (p *Prometheus) SetConsecutiveFailures(name string, failures uint64) {
	p.failures.WithLabelValues(name).Set(float64(failures))
}
