package track

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/litescript/ls-orbit/internal/astro"
	"github.com/litescript/ls-orbit/internal/ephem"
	"github.com/litescript/ls-orbit/internal/logging"
	"github.com/litescript/ls-orbit/internal/state"
)

const tracerName = "github.com/litescript/ls-orbit/internal/track"

// Config holds tracker configuration.
type Config struct {
	// Geo enriches locations with a place. Nil disables enrichment.
	Geo GeoLookup
	// GeoTimeout bounds each reverse-geocoding call. Zero means no bound
	// beyond the caller's context.
	GeoTimeout time.Duration
	// Geohash encodes a sub-point for the location view. Optional.
	Geohash func(lat, lon float64) string
	// Reference adds the WGS-84 sub-point to location views.
	Reference bool
	// Clock supplies "now".
	Clock    func() time.Time
	Recorder GeoRecorder
	Logger   *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		GeoTimeout: 3 * time.Second,
		Reference:  true,
		Clock:      time.Now,
	}
}

// Tracker answers queries against the ephemeris held by a store. Each query
// takes exactly one snapshot and works on it throughout, so a concurrent load
// or clear is never observed halfway.
type Tracker struct {
	store *state.Store
	cfg   Config
}

// New creates a tracker over store.
func New(store *state.Store, cfg Config) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Tracker{store: store, cfg: cfg}
}

// Store returns the underlying store.
func (t *Tracker) Store() *state.Store {
	return t.store
}

// Dataset returns every state vector with the auxiliary sections.
func (t *Tracker) Dataset() (DatasetView, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return DatasetView{}, err
	}
	sec := snap.Sections()
	return DatasetView{
		Header:       sec.Header,
		Metadata:     sec.Metadata,
		Comments:     sec.Comments,
		StateVectors: snap.Vectors(),
	}, nil
}

// Epochs returns the window of the epoch index starting at offset.
// limit may be ephem.NoLimit.
func (t *Tracker) Epochs(offset, limit int) (EpochList, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return nil, err
	}
	entries, err := snap.List(offset, limit)
	if err != nil {
		return nil, err
	}
	return EpochList(entries), nil
}

// StateVector returns the record for epoch.
func (t *Tracker) StateVector(epoch string) (StateVectorView, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return StateVectorView{}, err
	}
	sv, err := snap.Get(epoch)
	if err != nil {
		return StateVectorView{}, err
	}
	return newStateVectorView(sv), nil
}

// Speed returns the speed at epoch.
func (t *Tracker) Speed(epoch string) (SpeedView, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return SpeedView{}, err
	}
	sv, err := snap.Get(epoch)
	if err != nil {
		return SpeedView{}, err
	}
	speed, err := speedOf(sv)
	if err != nil {
		return SpeedView{}, err
	}
	return SpeedView{Epoch: sv.Epoch, Speed: speed}, nil
}

// Location returns the sub-point at epoch, enriched with a place when a
// GeoLookup is configured.
func (t *Tracker) Location(ctx context.Context, epoch string) (LocationView, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return LocationView{}, err
	}
	sv, err := snap.Get(epoch)
	if err != nil {
		return LocationView{}, err
	}
	return t.locate(ctx, sv)
}

// Now locates the spacecraft at the epoch closest to the tracker clock.
func (t *Tracker) Now(ctx context.Context) (NowView, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return NowView{}, err
	}
	epoch, delta, err := Nearest(snap, t.cfg.Clock())
	if err != nil {
		return NowView{}, err
	}
	sv, err := snap.Get(epoch)
	if err != nil {
		return NowView{}, err
	}
	speed, err := speedOf(sv)
	if err != nil {
		return NowView{}, err
	}
	loc, err := t.locate(ctx, sv)
	if err != nil {
		return NowView{}, err
	}
	return NowView{
		ClosestEpoch:   epoch,
		SecondsFromNow: delta,
		Speed:          speed,
		Location:       loc,
	}, nil
}

// Comments returns the feed comments.
func (t *Tracker) Comments() ([]string, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Sections().Comments, nil
}

// Header returns the feed header fields.
func (t *Tracker) Header() ([]ephem.Field, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Sections().Header, nil
}

// Metadata returns the feed metadata fields.
func (t *Tracker) Metadata() ([]ephem.Field, error) {
	snap, err := t.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Sections().Metadata, nil
}

func speedOf(sv ephem.StateVector) (Measure, error) {
	v, err := astro.Speed(sv)
	if err != nil {
		return Measure{}, err
	}
	return Measure{Value: v, Units: ephem.UnitsKmPS}, nil
}

func (t *Tracker) locate(ctx context.Context, sv ephem.StateVector) (LocationView, error) {
	pt, err := astro.SubPoint(sv)
	if err != nil {
		return LocationView{}, err
	}

	view := LocationView{
		Epoch:     sv.Epoch,
		Latitude:  pt.LatitudeDeg,
		Longitude: pt.LongitudeDeg,
		Altitude:  Measure{Value: pt.AltitudeKm, Units: ephem.UnitsKm},
	}
	if t.cfg.Geohash != nil {
		view.Geohash = t.cfg.Geohash(pt.LatitudeDeg, pt.LongitudeDeg)
	}
	if t.cfg.Reference {
		if ref, err := astro.WGS84SubPoint(sv); err == nil {
			view.Reference = &ref
		}
	}

	view.Place, view.Geo = t.describe(ctx, pt.LatitudeDeg, pt.LongitudeDeg)
	return view, nil
}

// describe reverse-geocodes a sub-point. Failures never propagate: they
// degrade to NoMatchDescription.
func (t *Tracker) describe(ctx context.Context, lat, lon float64) (*Place, string) {
	if t.cfg.Geo == nil {
		t.observe(GeoDisabled)
		return nil, NoMatchDescription
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "track.ReverseGeocode",
		trace.WithAttributes(
			attribute.Float64("geo.latitude", lat),
			attribute.Float64("geo.longitude", lon),
		))
	defer span.End()

	if t.cfg.GeoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.GeoTimeout)
		defer cancel()
	}

	place, err := t.cfg.Geo.Reverse(ctx, lat, lon)
	switch {
	case err == nil && place.Description() != "":
		t.observe(GeoMatch)
		span.SetAttributes(attribute.String("geo.place", place.Description()))
		return &place, place.Description()
	case err == nil || errors.Is(err, ErrNoMatch):
		t.observe(GeoNoMatch)
	default:
		t.observe(GeoError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.FromContext(ctx, t.cfg.Logger).Warn("reverse geocode %.4f,%.4f: %v", lat, lon, err)
	}
	return nil, NoMatchDescription
}

func (t *Tracker) observe(result string) {
	if t.cfg.Recorder != nil {
		t.cfg.Recorder.ObserveGeoLookup(result)
	}
}
