package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/litescript/ls-orbit/internal/ephem"
	"github.com/litescript/ls-orbit/internal/state"
)

// Trimmed sample based on the real ISS OEM feed.
const sampleOEM = `<?xml version="1.0" encoding="UTF-8"?>
<ndm xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <oem id="CCSDS_OEM_VERS" version="2.0">
    <header>
      <CREATION_DATE>2024-058T21:47:14.137Z</CREATION_DATE>
      <ORIGINATOR>JSC</ORIGINATOR>
    </header>
    <body>
      <segment>
        <metadata>
          <OBJECT_NAME>ISS</OBJECT_NAME>
          <OBJECT_ID>1998-067-A</OBJECT_ID>
          <CENTER_NAME>EARTH</CENTER_NAME>
          <REF_FRAME>EME2000</REF_FRAME>
          <TIME_SYSTEM>UTC</TIME_SYSTEM>
          <START_TIME>2024-058T12:00:00.000Z</START_TIME>
          <STOP_TIME>2024-073T12:00:00.000Z</STOP_TIME>
        </metadata>
        <data>
          <COMMENT>Units are in kg and m^2</COMMENT>
          <COMMENT>MASS=461026.00</COMMENT>
          <stateVector>
            <EPOCH>2024-058T12:00:00.000Z</EPOCH>
            <X units="km">-5097.5113</X>
            <Y units="km">4021.7706</Y>
            <Z units="km">-1520.0427</Z>
            <X_DOT units="km/s">-2.3447</X_DOT>
            <Y_DOT units="km/s">-5.0914</Y_DOT>
            <Z_DOT units="km/s">-5.5519</Z_DOT>
          </stateVector>
          <stateVector>
            <EPOCH>2024-058T12:04:00.000Z</EPOCH>
            <X units="km">-5564.1917</X>
            <Y units="km">2683.7093</Y>
            <Z units="km">-2775.6149</Z>
            <X_DOT units="km/s">-1.5287</X_DOT>
            <Y_DOT units="km/s">-6.0262</Y_DOT>
            <Z_DOT units="km/s">-4.8407</Z_DOT>
          </stateVector>
          <stateVector>
            <EPOCH>2024-058T12:08:00.000Z</EPOCH>
            <X units="km">-5822.4018</X>
            <Y units="km">1153.2064</Y>
            <Z units="km">-3847.9712</Z>
            <X_DOT units="km/s">-0.6130</X_DOT>
            <Y_DOT units="km/s">-6.6516</Y_DOT>
            <Z_DOT units="km/s">-3.9093</Z_DOT>
          </stateVector>
        </data>
      </segment>
    </body>
  </oem>
</ndm>`

func TestParse_SampleOEM(t *testing.T) {
	e, err := Parse([]byte(sampleOEM))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if e.Len() != 3 {
		t.Fatalf("expected 3 state vectors, got %d", e.Len())
	}
	if e.First() != "2024-058T12:00:00.000Z" || e.Last() != "2024-058T12:08:00.000Z" {
		t.Errorf("epoch bounds = %s..%s", e.First(), e.Last())
	}

	sv := e.At(1)
	if sv.X.Text != "-5564.1917" || sv.X.Units != "km" {
		t.Errorf("X = %+v", sv.X)
	}
	if sv.ZDot.Text != "-4.8407" || sv.ZDot.Units != "km/s" {
		t.Errorf("Z_DOT = %+v", sv.ZDot)
	}

	sec := e.Sections()
	if len(sec.Header) != 2 || sec.Header[0].Name != "CREATION_DATE" || sec.Header[1].Value != "JSC" {
		t.Errorf("header = %+v", sec.Header)
	}
	if len(sec.Metadata) != 7 {
		t.Fatalf("expected 7 metadata fields, got %d", len(sec.Metadata))
	}
	if sec.Metadata[0].Name != "OBJECT_NAME" || sec.Metadata[3].Value != "EME2000" {
		t.Errorf("metadata order wrong: %+v", sec.Metadata)
	}
	if len(sec.Comments) != 2 || sec.Comments[1] != "MASS=461026.00" {
		t.Errorf("comments = %q", sec.Comments)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"not xml", "this is not xml"},
		{"wrong root", "<feed></feed>"},
		{"no segment", "<ndm><oem><header/><body/></oem></ndm>"},
		{"no state vectors", "<ndm><oem><body><segment><data/></segment></body></oem></ndm>"},
		{"bad epoch", `<ndm><oem><body><segment><data>
			<stateVector><EPOCH>yesterday</EPOCH></stateVector>
		</data></segment></body></oem></ndm>`},
		{"non-monotonic", `<ndm><oem><body><segment><data>
			<stateVector><EPOCH>2024-058T12:04:00.000Z</EPOCH></stateVector>
			<stateVector><EPOCH>2024-058T12:00:00.000Z</EPOCH></stateVector>
		</data></segment></body></oem></ndm>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.xml)); !errors.Is(err, ephem.ErrInvalidData) {
				t.Errorf("err = %v, want ErrInvalidData", err)
			}
		})
	}
}

type fetchRecorder struct {
	mu  sync.Mutex
	got []string
}

func (r *fetchRecorder) ObserveFetch(source, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, source+"/"+result)
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("missing User-Agent")
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleOEM))
	}))
	defer srv.Close()

	rec := &fetchRecorder{}
	f := NewFetcher(WithURL(srv.URL), WithTimeout(5*time.Second), WithRecorder(rec))
	if f.URL() != srv.URL {
		t.Errorf("URL() = %s", f.URL())
	}

	res := f.Fetch(context.Background())
	if res.Error != nil {
		t.Fatalf("Fetch: %v", res.Error)
	}
	if res.Source != SourceNetwork {
		t.Errorf("source = %s", res.Source)
	}
	if res.Data == nil || res.Data.Len() != 3 {
		t.Fatalf("data = %v", res.Data)
	}
	if string(res.RawBytes) != sampleOEM {
		t.Error("RawBytes differ from served body")
	}
	if len(rec.got) != 1 || rec.got[0] != "network/ok" {
		t.Errorf("recorded %v", rec.got)
	}
}

func TestFetcher_HTTPErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := NewFetcher(WithURL(srv.URL)).Fetch(context.Background())
	if res.Error == nil {
		t.Fatal("expected error for 503")
	}
	if res.Data != nil {
		t.Error("data should be nil on error")
	}
}

func TestFetcher_FallsBackToCache(t *testing.T) {
	healthy := true
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ok := healthy
		mu.Unlock()
		if !ok {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleOEM))
	}))
	defer srv.Close()

	cache := openTestCache(t)
	rec := &fetchRecorder{}
	f := NewFetcher(WithURL(srv.URL), WithCache(cache), WithRecorder(rec))

	first := f.Fetch(context.Background())
	if first.Error != nil {
		t.Fatalf("first Fetch: %v", first.Error)
	}

	mu.Lock()
	healthy = false
	mu.Unlock()

	second := f.Fetch(context.Background())
	if second.Error != nil {
		t.Fatalf("second Fetch should fall back to cache: %v", second.Error)
	}
	if second.Source != SourceCache {
		t.Errorf("source = %s, want cache", second.Source)
	}
	if second.Data.Len() != 3 {
		t.Errorf("cached data len = %d", second.Data.Len())
	}
	if !second.FetchedAt.Equal(first.FetchedAt.UTC()) {
		t.Errorf("FetchedAt = %v, want original %v", second.FetchedAt, first.FetchedAt)
	}

	want := []string{"network/ok", "network/error", "cache/ok"}
	if len(rec.got) != len(want) {
		t.Fatalf("recorded %v, want %v", rec.got, want)
	}
	for i := range want {
		if rec.got[i] != want[i] {
			t.Errorf("recorded[%d] = %s, want %s", i, rec.got[i], want[i])
		}
	}
}

func TestFetcher_EmptyCacheKeepsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<ndm><oem></oem></ndm>"))
	}))
	defer srv.Close()

	res := NewFetcher(WithURL(srv.URL), WithCache(openTestCache(t))).Fetch(context.Background())
	if !errors.Is(res.Error, ephem.ErrInvalidData) {
		t.Errorf("err = %v, want ErrInvalidData from the network parse", res.Error)
	}
	if res.Source != SourceNetwork {
		t.Errorf("source = %s", res.Source)
	}
}

func TestFetcher_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := NewFetcher(WithURL(srv.URL)).Fetch(ctx)
	if res.Error == nil {
		t.Fatal("expected error when context expires")
	}
}

func TestCache_PutLatest(t *testing.T) {
	c := openTestCache(t)

	if _, err := c.Latest(); !errors.Is(err, ErrCacheEmpty) {
		t.Fatalf("Latest on empty cache err = %v, want ErrCacheEmpty", err)
	}

	at := time.Date(2024, 2, 27, 21, 47, 14, 0, time.UTC)
	if err := c.Put([]byte(sampleOEM), at, "https://example.test/oem.xml"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if string(got.Raw) != sampleOEM {
		t.Error("cached bytes differ")
	}
	if !got.FetchedAt.Equal(at) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, at)
	}
	if got.URL != "https://example.test/oem.xml" {
		t.Errorf("URL = %q", got.URL)
	}

	// A second Put replaces the first.
	if err := c.Put([]byte("<ndm/>"), at.Add(time.Hour), "u2"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ = c.Latest()
	if string(got.Raw) != "<ndm/>" || got.URL != "u2" {
		t.Errorf("Latest after replace = %q from %q", got.Raw, got.URL)
	}
}

func TestCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.db")
	c, err := OpenCache(path)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if err := c.Put([]byte(sampleOEM), time.Now(), "u"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c, err = OpenCache(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()

	got, err := c.Latest()
	if err != nil || string(got.Raw) != sampleOEM {
		t.Errorf("Latest after reopen: %v", err)
	}
}

func TestLoader_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleOEM))
	}))
	defer srv.Close()

	store := state.NewStore(state.DefaultConfig())
	loader := NewLoader(NewFetcher(WithURL(srv.URL)), store, nil)

	res, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Source != SourceNetwork {
		t.Errorf("source = %q", res.Source)
	}
	st := store.Status()
	if !st.Loaded || st.Records != 3 {
		t.Fatalf("status = %+v", st)
	}
	if !strings.HasPrefix(st.Source, SourceNetwork+" ") {
		t.Errorf("store source = %q, want network-prefixed label", st.Source)
	}
}

func TestLoader_FailureKeepsPrevious(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := state.NewStore(state.DefaultConfig())
	prev, err := Parse([]byte(sampleOEM))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := store.Load(prev, "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	loader := NewLoader(NewFetcher(WithURL(srv.URL)), store, nil)
	res, err := loader.Load(context.Background())
	if err == nil || res.Error == nil {
		t.Fatal("expected fetch error")
	}
	if st := store.Status(); !st.Loaded || st.Source != "seed" {
		t.Errorf("previous ephemeris should survive, status = %+v", st)
	}
}

func TestLoader_RunStopsOnCancel(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Write([]byte(sampleOEM))
	}))
	defer srv.Close()

	store := state.NewStore(state.DefaultConfig())
	loader := NewLoader(NewFetcher(WithURL(srv.URL)), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loader.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !store.IsLoaded() {
		select {
		case <-deadline:
			t.Fatal("refresh loop never loaded")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if hits == 0 {
		t.Error("expected at least one fetch")
	}
}
