package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/litescript/ls-orbit/internal/ephem"
	"github.com/litescript/ls-orbit/internal/logging"
	"github.com/litescript/ls-orbit/internal/version"
)

const (
	// DefaultURL is NASA's public ISS trajectory feed in the J2000 frame.
	DefaultURL = "https://nasa-public-data.s3.amazonaws.com/iss-coords/current/ISS_OEM/ISS.OEM_J2K_EPH.xml"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second
)

// Sources reported in FetchResult.Source.
const (
	SourceNetwork = "network"
	SourceCache   = "cache"
)

// Fetch outcomes reported to a FetchRecorder.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// FetchRecorder observes every fetch attempt.
type FetchRecorder interface {
	ObserveFetch(source, result string)
}

// Fetcher handles HTTP fetching of the OEM feed.
type Fetcher struct {
	client   *http.Client
	url      string
	timeout  time.Duration
	cache    *Cache
	recorder FetchRecorder
	log      *logging.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithURL sets a custom URL for the feed.
func WithURL(url string) FetcherOption {
	return func(f *Fetcher) {
		f.url = url
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithCache stores every good fetch in c and falls back to it when the
// network fetch fails.
func WithCache(c *Cache) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
	}
}

// WithRecorder reports fetch outcomes to r.
func WithRecorder(r FetchRecorder) FetcherOption {
	return func(f *Fetcher) {
		f.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.log = l
	}
}

// NewFetcher creates a new feed fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		url:     DefaultURL,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Timeout: f.timeout,
		}
	}
	if f.log == nil {
		f.log = logging.Discard()
	}

	return f
}

// FetchResult contains the result of a fetch operation.
type FetchResult struct {
	Data      *ephem.Ephemeris
	RawBytes  []byte
	FetchedAt time.Time
	Duration  time.Duration
	Source    string
	Error     error
}

// Fetch retrieves and parses the feed. If the network fetch or parse fails and
// a cache is configured, the cached feed is returned instead with Source set
// to SourceCache and FetchedAt set to the original fetch time.
func (f *Fetcher) Fetch(ctx context.Context) FetchResult {
	result := f.fetchNetwork(ctx)
	if result.Error == nil {
		f.observe(SourceNetwork, ResultOK)
		if f.cache != nil {
			if err := f.cache.Put(result.RawBytes, result.FetchedAt, f.url); err != nil {
				f.log.Warn("Feed cache write failed: %v", err)
			}
		}
		return result
	}
	f.observe(SourceNetwork, ResultError)

	if f.cache == nil {
		return result
	}

	f.log.Warn("Feed fetch failed, trying cache: %v", result.Error)
	cached, err := f.fromCache(result.Duration)
	if err != nil {
		f.observe(SourceCache, ResultError)
		f.log.Debug("Feed cache unusable: %v", err)
		return result
	}
	f.observe(SourceCache, ResultOK)
	return cached
}

func (f *Fetcher) fetchNetwork(ctx context.Context) FetchResult {
	start := time.Now()
	result := FetchResult{
		FetchedAt: start,
		Source:    SourceNetwork,
	}

	rawData, err := f.fetchRaw(ctx)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.RawBytes = rawData

	data, err := Parse(rawData)
	if err != nil {
		result.Error = fmt.Errorf("parse OEM feed: %w", err)
		return result
	}
	result.Data = data

	return result
}

func (f *Fetcher) fromCache(elapsed time.Duration) (FetchResult, error) {
	cached, err := f.cache.Latest()
	if err != nil {
		return FetchResult{}, err
	}
	data, err := Parse(cached.Raw)
	if err != nil {
		return FetchResult{}, fmt.Errorf("parse cached feed: %w", err)
	}
	return FetchResult{
		Data:      data,
		RawBytes:  cached.Raw,
		FetchedAt: cached.FetchedAt,
		Duration:  elapsed,
		Source:    SourceCache,
	}, nil
}

// FetchRaw retrieves the raw XML bytes without parsing.
func (f *Fetcher) FetchRaw(ctx context.Context) ([]byte, error) {
	return f.fetchRaw(ctx)
}

func (f *Fetcher) fetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "ls-orbit/"+version.Version+" (ISS Trajectory Tool)")
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch OEM XML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

func (f *Fetcher) observe(source, result string) {
	if f.recorder != nil {
		f.recorder.ObserveFetch(source, result)
	}
}

// URL returns the configured feed URL.
func (f *Fetcher) URL() string {
	return f.url
}
