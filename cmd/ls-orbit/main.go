// Command ls-orbit serves ISS trajectory queries over HTTP, with a terminal
// tracker and headless text modes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/litescript/ls-orbit/internal/api"
	"github.com/litescript/ls-orbit/internal/config"
	"github.com/litescript/ls-orbit/internal/feed"
	"github.com/litescript/ls-orbit/internal/geo"
	"github.com/litescript/ls-orbit/internal/logging"
	"github.com/litescript/ls-orbit/internal/observability"
	"github.com/litescript/ls-orbit/internal/state"
	"github.com/litescript/ls-orbit/internal/track"
	"github.com/litescript/ls-orbit/internal/ui"
	"github.com/litescript/ls-orbit/internal/version"
)

// CLI flags for headless and terminal modes
var (
	nowMode       bool
	summaryMode   bool
	snapshotPath  string
	tuiMode       bool
	watchInterval time.Duration
	showVersion   bool
)

func main() {
	configPath := config.RegisterFlags(flag.CommandLine)
	flag.BoolVar(&nowMode, "now", false, "Print the current position and exit")
	flag.BoolVar(&summaryMode, "summary", false, "Print a dataset summary and exit")
	flag.StringVar(&snapshotPath, "snapshot-path", "", "Export the dataset as JSON to file (use - for stdout)")
	flag.BoolVar(&tuiMode, "tui", false, "Run the terminal tracker instead of the HTTP server")
	flag.DurationVar(&watchInterval, "watch", 0, "Repeat headless output at interval (e.g., 30s)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("ls-orbit %s\n", version.Version)
		return
	}

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		// A missing default config file is normal.
		if *configPath != config.DefaultPath || !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Config: %v\n", err)
		}
	}
	cfg.ApplyFlags(flag.CommandLine)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(2)
	}

	// Set up logging
	logger := logging.NewWithFormat(logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	headless := nowMode || summaryMode || snapshotPath != ""
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if tuiMode && !isTTY {
		logger.Warn("stdout is not a terminal; falling back to -now output")
		tuiMode, nowMode, headless = false, true, true
	}
	if tuiMode && !cfg.Debug {
		// Log lines would tear the alternate screen.
		logger.SetOutput(io.Discard)
	}

	svc, err := newService(ctx, cfg, logger, !headless && !tuiMode)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	defer svc.close()

	switch {
	case headless:
		if err := runHeadless(ctx, svc, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case tuiMode:
		go svc.refreshLoop(ctx)
		if err := ui.Run(svc.tracker, svc.loader); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := runServer(ctx, svc); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
	}
}

// service holds the wired components shared by every mode.
type service struct {
	cfg      config.Config
	log      *logging.Logger
	metrics  *observability.Collector
	store    *state.Store
	tracker  *track.Tracker
	loader   *feed.Loader
	cache    *feed.Cache
	shutdown func(context.Context) error
}

func newService(ctx context.Context, cfg config.Config, logger *logging.Logger, withTelemetry bool) (*service, error) {
	svc := &service{cfg: cfg, log: logger}

	if withTelemetry {
		shutdown, err := observability.InitTracing(ctx, cfg.Tracing, logger)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		svc.shutdown = shutdown

		metrics, err := observability.NewCollector(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		svc.metrics = metrics
	}

	stateCfg := state.DefaultConfig()
	if svc.metrics != nil {
		stateCfg.Recorder = svc.metrics
	}
	svc.store = state.NewStore(stateCfg)

	trackCfg := track.DefaultConfig()
	trackCfg.GeoTimeout = cfg.GeoTimeout
	trackCfg.Geohash = geo.Geohash
	trackCfg.Logger = logger.With("component", "track")
	if svc.metrics != nil {
		trackCfg.Recorder = svc.metrics
	}
	if cfg.GeoEnabled {
		logger.Info("Loading reverse geocoding datasets...")
		g, err := geo.NewRgeo()
		if err != nil {
			logger.Warn("Reverse geocoding disabled: %v", err)
		} else {
			trackCfg.Geo = g
		}
	}
	svc.tracker = track.New(svc.store, trackCfg)

	opts := []feed.FetcherOption{
		feed.WithURL(cfg.FeedURL),
		feed.WithTimeout(cfg.FeedTimeout),
		feed.WithLogger(logger.With("component", "feed")),
	}
	if svc.metrics != nil {
		opts = append(opts, feed.WithRecorder(svc.metrics))
	}
	if cfg.CachePath != "" {
		cache, err := feed.OpenCache(cfg.CachePath)
		if err != nil {
			logger.Warn("Feed cache disabled: %v", err)
		} else {
			svc.cache = cache
			opts = append(opts, feed.WithCache(cache))
		}
	}
	svc.loader = feed.NewLoader(feed.NewFetcher(opts...), svc.store, logger.With("component", "loader"))

	return svc, nil
}

func (s *service) close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.Warn("Close feed cache: %v", err)
		}
	}
	observability.ShutdownWithTimeout(context.Background(), s.shutdown, s.log)
}

// refreshLoop loads the feed at startup if configured and then reloads it
// every RefreshInterval until ctx is done.
func (s *service) refreshLoop(ctx context.Context) {
	if s.cfg.LoadOnStart {
		_, _ = s.loader.Load(ctx)
	}
	if s.cfg.RefreshInterval > 0 {
		s.loader.Run(ctx, s.cfg.RefreshInterval)
	}
}

func runServer(ctx context.Context, svc *service) error {
	srv := api.NewServer(api.Config{
		Addr:    svc.cfg.Addr,
		Tracker: svc.tracker,
		Loader:  svc.loader,
		Metrics: svc.metrics,
		Logger:  svc.log.With("component", "api"),
	})

	go svc.refreshLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		svc.log.Info("ls-orbit %s listening on %s", version.Version, svc.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	svc.log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// runHeadless handles all headless modes without starting the server or TUI.
func runHeadless(ctx context.Context, svc *service, out io.Writer) error {
	outputOnce := func() error {
		if _, err := svc.loader.Load(ctx); err != nil {
			return err
		}

		if nowMode {
			v, err := svc.tracker.Now(ctx)
			if err != nil {
				return err
			}
			track.WriteNow(out, v)
		}

		if snapshotPath != "" {
			ds, err := svc.tracker.Dataset()
			if err != nil {
				return err
			}
			if snapshotPath == "-" {
				if err := track.WriteJSON(out, ds); err != nil {
					return fmt.Errorf("write JSON to stdout: %w", err)
				}
			} else {
				f, err := os.Create(snapshotPath)
				if err != nil {
					return fmt.Errorf("create snapshot file: %w", err)
				}
				defer f.Close()
				if err := track.WriteJSON(f, ds); err != nil {
					return fmt.Errorf("write JSON to file: %w", err)
				}
			}
		}

		if summaryMode {
			track.WriteSummary(out, svc.store.Status(), svc.store.RecentEvents(10))
		}
		return nil
	}

	// Single run
	if watchInterval == 0 {
		return outputOnce()
	}

	// Watch mode: repeat at interval
	if err := outputOnce(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !nowMode {
				fmt.Fprintln(out)
			}
			if err := outputOnce(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
}
