package feed

import (
	"context"
	"time"

	"github.com/litescript/ls-orbit/internal/logging"
	"github.com/litescript/ls-orbit/internal/state"
)

// Loader fetches the feed into a store.
type Loader struct {
	fetcher *Fetcher
	store   *state.Store
	log     *logging.Logger
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(fetcher *Fetcher, store *state.Store, log *logging.Logger) *Loader {
	if log == nil {
		log = logging.Discard()
	}
	return &Loader{fetcher: fetcher, store: store, log: log}
}

// Load fetches the feed once and replaces the store's ephemeris. On failure
// the store keeps its previous ephemeris.
func (l *Loader) Load(ctx context.Context) (FetchResult, error) {
	l.log.Debug("Fetching OEM feed from %s", l.fetcher.URL())

	result := l.fetcher.Fetch(ctx)
	if result.Error != nil {
		l.log.Error("Fetch failed: %v", result.Error)
		return result, result.Error
	}

	source := result.Source + " " + result.FetchedAt.UTC().Format(time.RFC3339)
	if err := l.store.Load(result.Data, source); err != nil {
		l.log.Error("Load rejected: %v", err)
		return result, err
	}

	l.log.Info("Loaded %d state vectors from %s in %v", result.Data.Len(), result.Source, result.Duration)
	return result, nil
}

// Run reloads the feed every interval until ctx is done. It does not load
// immediately; callers do the initial load themselves.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Debug("Refresh loop shutting down")
			return
		case <-ticker.C:
			_, _ = l.Load(ctx)
		}
	}
}
