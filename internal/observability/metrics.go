// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the HTTP surface, the feed and the geo lookup.
package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service's Prometheus metrics. It satisfies
// state.Recorder, feed.FetchRecorder and track.GeoRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	EphemerisRecords prometheus.Gauge
	EphemerisLoaded  prometheus.Gauge

	FeedFetches *prometheus.CounterVec
	GeoLookups  *prometheus.CounterVec
}

// NewCollector registers metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_orbit_http_requests_total",
		Help: "Total number of HTTP requests, labeled by route, method and status code.",
	}, []string{"path", "method", "code"}), "ls_orbit_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ls_orbit_http_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"}), "ls_orbit_http_duration_seconds")
	if err != nil {
		return nil, err
	}

	records, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ls_orbit_ephemeris_records",
		Help: "Number of state vectors in the loaded ephemeris.",
	}), "ls_orbit_ephemeris_records")
	if err != nil {
		return nil, err
	}

	loaded, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ls_orbit_ephemeris_loaded",
		Help: "1 when an ephemeris is loaded, 0 otherwise.",
	}), "ls_orbit_ephemeris_loaded")
	if err != nil {
		return nil, err
	}

	fetches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_orbit_feed_fetches_total",
		Help: "Feed fetch attempts, labeled by source (network, cache) and result.",
	}, []string{"source", "result"}), "ls_orbit_feed_fetches_total")
	if err != nil {
		return nil, err
	}

	geo, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_orbit_geo_lookups_total",
		Help: "Reverse geocoding calls, labeled by result.",
	}, []string{"result"}), "ls_orbit_geo_lookups_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		HTTPRequests:     requests,
		HTTPDurations:    durations,
		EphemerisRecords: records,
		EphemerisLoaded:  loaded,
		FeedFetches:      fetches,
		GeoLookups:       geo,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		if c == nil {
			return
		}
		route := normalizeRoute(r.URL.Path)
		c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		c.HTTPDurations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// SetEphemerisCounts drives the ephemeris gauges from the store.
func (c *Collector) SetEphemerisCounts(records int, loaded bool) {
	if c == nil {
		return
	}
	c.EphemerisRecords.Set(float64(records))
	if loaded {
		c.EphemerisLoaded.Set(1)
	} else {
		c.EphemerisLoaded.Set(0)
	}
}

// ObserveFetch counts a feed fetch attempt.
func (c *Collector) ObserveFetch(source, result string) {
	if c == nil {
		return
	}
	c.FeedFetches.WithLabelValues(source, result).Inc()
}

// ObserveGeoLookup counts a reverse geocoding call.
func (c *Collector) ObserveGeoLookup(result string) {
	if c == nil {
		return
	}
	c.GeoLookups.WithLabelValues(result).Inc()
}

var staticRoutes = map[string]bool{
	"/":            true,
	"/epochs":      true,
	"/now":         true,
	"/comment":     true,
	"/header":      true,
	"/metadata":    true,
	"/post-data":   true,
	"/delete-data": true,
	"/help":        true,
	"/status":      true,
	"/healthz":     true,
	"/readyz":      true,
	"/metrics":     true,
}

// normalizeRoute collapses epoch identifiers so the path label has bounded
// cardinality. Unknown paths share one label.
func normalizeRoute(path string) string {
	if staticRoutes[path] {
		return path
	}
	rest, ok := strings.CutPrefix(path, "/epochs/")
	if !ok || rest == "" {
		return "other"
	}
	epoch, sub, hasSub := strings.Cut(rest, "/")
	if epoch == "" {
		return "other"
	}
	if !hasSub {
		return "/epochs/{epoch}"
	}
	switch sub {
	case "speed", "location":
		return "/epochs/{epoch}/" + sub
	default:
		return "other"
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}
