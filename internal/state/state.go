// Package state provides thread-safe ownership of the current ephemeris.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/litescript/ls-orbit/internal/ephem"
)

// EventType represents the type of state change event.
type EventType string

const (
	EventLoaded       EventType = "LOADED"
	EventCleared      EventType = "CLEARED"
	EventLoadRejected EventType = "LOAD_REJECTED"
)

// Event represents a transition of the store.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	Records   int       `json:"records,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Recorder receives the store's size after every transition.
type Recorder interface {
	SetEphemerisCounts(records int, loaded bool)
}

// Status summarizes the current dataset.
type Status struct {
	Loaded     bool      `json:"loaded"`
	Records    int       `json:"records"`
	Source     string    `json:"source,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
	FirstEpoch string    `json:"first_epoch,omitempty"`
	LastEpoch  string    `json:"last_epoch,omitempty"`
}

// Config holds configuration for the store.
type Config struct {
	MaxEvents int
	Recorder  Recorder
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxEvents: 50,
	}
}

// Store owns the current ephemeris. Readers take one Snapshot per query and
// keep using it even if a Load or Clear lands mid-query.
type Store struct {
	mu sync.RWMutex

	current  *ephem.Ephemeris
	source   string
	loadedAt time.Time

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int

	recorder Recorder
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	return &Store{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		recorder:  cfg.Recorder,
		now:       time.Now,
	}
}

// Load atomically replaces the current ephemeris. A nil ephemeris is rejected
// and the previous one stays in place.
func (s *Store) Load(e *ephem.Ephemeris, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e == nil {
		s.addEvent(Event{Type: EventLoadRejected, Timestamp: s.now(), Source: source, Detail: "nil ephemeris"})
		return fmt.Errorf("%w: nil ephemeris", ephem.ErrInvalidData)
	}

	s.current = e
	s.source = source
	s.loadedAt = s.now()
	s.addEvent(Event{Type: EventLoaded, Timestamp: s.loadedAt, Source: source, Records: e.Len()})
	s.record()
	return nil
}

// LoadVectors validates raw vectors and loads them. On validation failure the
// store is left unchanged.
func (s *Store) LoadVectors(vectors []ephem.StateVector, sections ephem.Sections, source string) error {
	e, err := ephem.New(vectors, sections)
	if err != nil {
		s.mu.Lock()
		s.addEvent(Event{Type: EventLoadRejected, Timestamp: s.now(), Source: source, Detail: err.Error()})
		s.mu.Unlock()
		return err
	}
	return s.Load(e, source)
}

// Clear drops the current ephemeris.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := 0
	if s.current != nil {
		records = s.current.Len()
	}
	s.current = nil
	s.source = ""
	s.loadedAt = time.Time{}
	s.addEvent(Event{Type: EventCleared, Timestamp: s.now(), Records: records})
	s.record()
}

// IsLoaded returns true if an ephemeris is present.
func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Snapshot returns the current ephemeris. The value is immutable and safe to
// use without further locking.
func (s *Store) Snapshot() (*ephem.Ephemeris, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ephem.ErrNotLoaded
	}
	return s.current, nil
}

// Status returns a consistent summary of the current dataset.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Status{}
	}
	return Status{
		Loaded:     true,
		Records:    s.current.Len(),
		Source:     s.source,
		LoadedAt:   s.loadedAt,
		FirstEpoch: s.current.First(),
		LastEpoch:  s.current.Last(),
	}
}

// RecentEvents returns the last n events in chronological order.
func (s *Store) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

func (s *Store) record() {
	if s.recorder == nil {
		return
	}
	records := 0
	if s.current != nil {
		records = s.current.Len()
	}
	s.recorder.SetEphemerisCounts(records, s.current != nil)
}

// addEvent adds an event to the ring buffer.
func (s *Store) addEvent(e Event) {
	if len(s.events) < s.maxEvents {
		s.events = append(s.events, e)
	} else {
		s.events[s.eventWriteAt] = e
		s.eventWriteAt = (s.eventWriteAt + 1) % s.maxEvents
	}
}

// getEventsOrdered returns events in chronological order.
func (s *Store) getEventsOrdered() []Event {
	if len(s.events) == 0 {
		return nil
	}

	// If buffer isn't full yet, just copy
	if len(s.events) < s.maxEvents {
		result := make([]Event, len(s.events))
		copy(result, s.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, s.maxEvents)
	for i := 0; i < s.maxEvents; i++ {
		idx := (s.eventWriteAt + i) % s.maxEvents
		result[i] = s.events[idx]
	}
	return result
}
