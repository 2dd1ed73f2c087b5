// Package metrics exposes Prometheus metrics for ingestion runs and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestRecorder receives ingestion events.
type IngestRecorder interface {
	RecordArchive(ok bool)
	RecordEntryParsed()
	RecordParseFailure()
	RecordInserted(count int)
	RecordDuplicates(count int)
}

// HTTPRecorder receives API request events.
type HTTPRecorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
}

type Collector struct {
	archives   *prometheus.CounterVec
	parsed     prometheus.Counter
	parseFail  prometheus.Counter
	inserted   prometheus.Counter
	duplicates prometheus.Counter
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewCollector creates the collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cassation_ingest_archives_total",
			Help: "Archives processed by ingestion, by result.",
		}, []string{"result"}),
		parsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cassation_ingest_documents_parsed_total",
			Help: "Decision documents parsed successfully.",
		}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cassation_ingest_parse_failures_total",
			Help: "Decision documents skipped because they could not be parsed.",
		}),
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cassation_ingest_decisions_inserted_total",
			Help: "Decisions added to the store.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cassation_ingest_duplicates_skipped_total",
			Help: "Parsed decisions skipped because their id was already stored.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cassation_http_requests_total",
			Help: "API requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cassation_http_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.archives,
		c.parsed,
		c.parseFail,
		c.inserted,
		c.duplicates,
		c.requests,
		c.latency,
	)

	return c
}

func (c *Collector) RecordArchive(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	c.archives.WithLabelValues(result).Inc()
}

func (c *Collector) RecordEntryParsed() {
	c.parsed.Inc()
}

func (c *Collector) RecordParseFailure() {
	c.parseFail.Inc()
}

func (c *Collector) RecordInserted(count int) {
	c.inserted.Add(float64(count))
}

func (c *Collector) RecordDuplicates(count int) {
	c.duplicates.Add(float64(count))
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordArchive(bool) {}
func (Nop) RecordEntryParsed() {}
func (Nop) RecordParseFailure() {}
func (Nop) RecordInserted(int) {}
func (Nop) RecordDuplicates(int) {}
func (Nop) RecordRequest(string, string, int, time.Duration) {}

var (
	_ IngestRecorder = (*Collector)(nil)
	_ HTTPRecorder   = (*Collector)(nil)
	_ IngestRecorder = Nop{}
	_ HTTPRecorder   = Nop{}
)
