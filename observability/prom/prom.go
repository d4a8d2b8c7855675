// Package prom exports a Database's observability.Observer events to
// Prometheus, grounded on the teacher's own prom exporter for its
// tunnel/RPC observers.
package prom

import (
	"net/http"

	"github.com/kdbtools/kdb/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Observer exports Database lifecycle events to Prometheus.
type Observer struct {
	opened          prometheus.Counter
	saved           prometheus.Counter
	decryptFailed   prometheus.Counter
	integrityFailed prometheus.Counter
}

// NewObserver registers database metrics on the registry.
func NewObserver(reg *prometheus.Registry) *Observer {
	o := &Observer{
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdb_database_opened_total",
			Help: "Databases successfully decrypted and parsed.",
		}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdb_database_saved_total",
			Help: "Databases successfully encrypted and written.",
		}),
		decryptFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdb_database_decrypt_failed_total",
			Help: "Opens that failed to decrypt the payload at all.",
		}),
		integrityFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kdb_database_integrity_failed_total",
			Help: "Opens that decrypted but failed the padding or contents hash check.",
		}),
	}
	reg.MustRegister(o.opened, o.saved, o.decryptFailed, o.integrityFailed)
	return o
}

func (o *Observer) Opened()          { o.opened.Inc() }
func (o *Observer) Saved()           { o.saved.Inc() }
func (o *Observer) DecryptFailed()   { o.decryptFailed.Inc() }
func (o *Observer) IntegrityFailed() { o.integrityFailed.Inc() }

var _ observability.Observer = (*Observer)(nil)
