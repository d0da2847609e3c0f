package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry holding c, r and the Go runtime
// collectors.
func NewRegistry(c *Collector, r *Recorder) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c, r)
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

// Handler serves the metric families of g in the exposition format the
// client negotiates. A gather error is logged and whatever was gathered is
// still served.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
