package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/litescript/ls-orbit/internal/logging"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return c, reg
}

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/epochs", "/epochs"},
		{"/now", "/now"},
		{"/metrics", "/metrics"},
		{"/epochs/2024-058T12:00:00.000Z", "/epochs/{epoch}"},
		{"/epochs/2024-058T12:00:00.000Z/speed", "/epochs/{epoch}/speed"},
		{"/epochs/2024-058T12:00:00.000Z/location", "/epochs/{epoch}/location"},
		{"/epochs/2024-058T12:00:00.000Z/altitude", "other"},
		{"/epochs/", "other"},
		{"/epochs//speed", "other"},
		{"/wp-admin", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizeRoute(tt.path); got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// 100 distinct epochs must produce one path label, not 100.
func TestNormalizeRoute_Cardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute("/epochs/2024-058T12:"+string(rune('0'+i/10))+string(rune('0'+i%10))+":00.000Z/speed")] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 label, got %d: %v", len(seen), seen)
	}
}

func TestMiddlewareRecordsMetrics(t *testing.T) {
	c, reg := newTestCollector(t)

	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/speed") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, p := range []string{"/now", "/now", "/epochs/2024-001T00:00:00.000Z/speed"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/now", "GET", "200")); got != 2 {
		t.Errorf("requests{/now,200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("/epochs/{epoch}/speed", "GET", "404")); got != 1 {
		t.Errorf("requests{speed,404} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.HTTPDurations, "ls_orbit_http_duration_seconds"); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
	if _, err := reg.Gather(); err != nil {
		t.Errorf("Gather: %v", err)
	}
}

func TestRecorders(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SetEphemerisCounts(42, true)
	if got := testutil.ToFloat64(c.EphemerisRecords); got != 42 {
		t.Errorf("records = %v", got)
	}
	if got := testutil.ToFloat64(c.EphemerisLoaded); got != 1 {
		t.Errorf("loaded = %v", got)
	}
	c.SetEphemerisCounts(0, false)
	if got := testutil.ToFloat64(c.EphemerisLoaded); got != 0 {
		t.Errorf("loaded after clear = %v", got)
	}

	c.ObserveFetch("network", "ok")
	c.ObserveFetch("network", "error")
	c.ObserveFetch("cache", "ok")
	if got := testutil.ToFloat64(c.FeedFetches.WithLabelValues("network", "error")); got != 1 {
		t.Errorf("fetches{network,error} = %v", got)
	}

	c.ObserveGeoLookup("match")
	c.ObserveGeoLookup("match")
	if got := testutil.ToFloat64(c.GeoLookups.WithLabelValues("match")); got != 2 {
		t.Errorf("geo{match} = %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.SetEphemerisCounts(1, true)
	c.ObserveFetch("network", "ok")
	c.ObserveGeoLookup("match")

	rr := httptest.NewRecorder()
	c.Middleware(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestNewCollector_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}

	first.ObserveGeoLookup("error")
	if got := testutil.ToFloat64(second.GeoLookups.WithLabelValues("error")); got != 1 {
		t.Errorf("second collector should share the registered vec, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c, _ := newTestCollector(t)
	c.SetEphemerisCounts(7, true)
	c.HTTPRequests.WithLabelValues("/now", "GET", "200").Inc()
	c.HTTPDurations.WithLabelValues("/now", "GET").Observe(0.01)
	c.ObserveFetch("network", "ok")
	c.ObserveGeoLookup("no_match")

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"ls_orbit_http_requests_total",
		"ls_orbit_http_duration_seconds",
		"ls_orbit_ephemeris_records 7",
		"ls_orbit_ephemeris_loaded 1",
		"ls_orbit_feed_fetches_total",
		"ls_orbit_geo_lookups_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected %q in /metrics output", metric)
		}
	}
}

func TestTracingConfigApplyEnv(t *testing.T) {
	env := map[string]string{
		"LS_ORBIT_TRACING_ENABLED":      "true",
		"LS_ORBIT_TRACING_EXPORTER":     "OTLP",
		"LS_ORBIT_OTLP_ENDPOINT":        "collector:4317",
		"LS_ORBIT_TRACING_SAMPLE_RATIO": "0.25",
	}
	cfg := DefaultTracingConfig().ApplyEnv(func(k string) string { return env[k] })

	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" || cfg.SampleRatio != 0.25 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ServiceName != "ls-orbit" {
		t.Errorf("service name = %q, want default", cfg.ServiceName)
	}

	env["LS_ORBIT_TRACING_SAMPLE_RATIO"] = "7"
	cfg = DefaultTracingConfig().ApplyEnv(func(k string) string { return env[k] })
	if cfg.SampleRatio != 1 {
		t.Errorf("out-of-range ratio should be ignored, got %v", cfg.SampleRatio)
	}
}

func TestInitTracing(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitTracing(ctx, TracingConfig{Enabled: false}, logging.Discard())
	if err != nil {
		t.Fatalf("InitTracing(disabled): %v", err)
	}
	ShutdownWithTimeout(ctx, shutdown, nil)

	if _, err := InitTracing(ctx, TracingConfig{Enabled: true, Exporter: "carrier-pigeon"}, nil); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestTracingMiddleware(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var gotReqID string
	var gotSpan trace.SpanContext
	h := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReqID = logging.RequestIDFromContext(r.Context())
		gotSpan = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/epochs/2024-001T00:00:00.000Z", nil))

	if gotReqID == "" {
		t.Error("request id not set on context")
	}
	if !gotSpan.IsValid() {
		t.Error("span not propagated to handler")
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "GET /epochs/{epoch}" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v", spans[0].SpanKind())
	}
	if spans[0].Status().Code.String() != "Error" {
		t.Errorf("status = %v, want Error for 503", spans[0].Status())
	}
}
