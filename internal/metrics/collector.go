package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hypermind/hypermind-agent/internal/coordinator"
	"github.com/hypermind/hypermind-agent/internal/scraper"
)

const namespace = "hypermind"

// Poll results used as the result label.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Lister enumerates loaded entries. *manager.Manager implements it.
type Lister interface {
	Loaded() []string
	Coordinator(id string) (*coordinator.Coordinator, bool)
}

var entryLabels = []string{"entry_id", "host", "port"}

// Collector is a prometheus.Collector over the loaded entries of a Lister.
type Collector struct {
	lister Lister

	activeNodes       *prometheus.Desc
	directConnections *prometheus.Desc
	scaleRatio        *prometheus.Desc
	lastUpdateSuccess *prometheus.Desc
}

// NewCollector returns a Collector reading entry state from lister.
func NewCollector(lister Lister) *Collector {
	return &Collector{
		lister: lister,
		activeNodes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_nodes"),
			"Active nodes reported by the Hypermind node.",
			entryLabels, nil,
		),
		directConnections: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "direct_connections"),
			"Direct peer connections reported by the Hypermind node.",
			entryLabels, nil,
		),
		scaleRatio: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "scale_ratio"),
			"Active nodes normalized into the configured scale window, 0 to 1.",
			entryLabels, nil,
		),
		lastUpdateSuccess: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_update_success"),
			"1 if the most recent refresh succeeded, 0 otherwise.",
			entryLabels, nil,
		),
	}
}

// Recorder counts poll attempts per entry. It implements
// coordinator.Recorder and prometheus.Collector.
type Recorder struct {
	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_total",
				Help:      "Total stats polls by result.",
			},
			[]string{"entry_id", "result"},
		),
		pollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_duration_seconds",
				Help:      "Duration of stats polls, successful or not.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entry_id"},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeNodes
	ch <- c.directConnections
	ch <- c.scaleRatio
	ch <- c.lastUpdateSuccess
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, id := range c.lister.Loaded() {
		coord, ok := c.lister.Coordinator(id)
		if !ok {
			continue
		}
		ep := coord.Endpoint()
		labels := []string{id, ep.Host, strconv.Itoa(ep.Port)}

		success := 0.0
		if coord.LastUpdateSuccess() {
			success = 1
		}
		ch <- prometheus.MustNewConstMetric(c.lastUpdateSuccess, prometheus.GaugeValue, success, labels...)

		snap := coord.Data()
		if snap == nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.activeNodes, prometheus.GaugeValue, float64(snap.ActiveNodes), labels...)
		ch <- prometheus.MustNewConstMetric(c.directConnections, prometheus.GaugeValue, float64(snap.DirectConnections), labels...)
		ch <- prometheus.MustNewConstMetric(c.scaleRatio, prometheus.GaugeValue, snap.ScaleRatio, labels...)
	}
}

// Describe implements prometheus.Collector.
func (r *Recorder) Describe(ch chan<- *prometheus.Desc) {
	r.polls.Describe(ch)
	r.pollDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (r *Recorder) Collect(ch chan<- prometheus.Metric) {
	r.polls.Collect(ch)
	r.pollDuration.Collect(ch)
}

// ObservePoll implements coordinator.Recorder.
func (r *Recorder) ObservePoll(entryID string, elapsed time.Duration, err error) {
	r.polls.WithLabelValues(entryID, resultOf(err)).Inc()
	r.pollDuration.WithLabelValues(entryID).Observe(elapsed.Seconds())
}

// Forget drops the poll series of an unloaded entry.
func (r *Recorder) Forget(entryID string) {
	r.polls.DeletePartialMatch(prometheus.Labels{"entry_id": entryID})
	r.pollDuration.DeletePartialMatch(prometheus.Labels{"entry_id": entryID})
}

func resultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}
	var fe *scraper.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return ResultError
}
