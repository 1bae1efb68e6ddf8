// Package store holds the authoritative in-memory outfit collection and
// mirrors it, whole, to the local preference store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/imageutil"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/prefs"
)

// DefaultDebounce is the idle window for deferred writes.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrCorrupt is returned by Load when the stored collection can't be read.
	// The store is left with an empty collection.
	ErrCorrupt = errors.New("stored collection is unreadable")

	// ErrPersist is returned when writing the collection fails. The in-memory
	// state is kept.
	ErrPersist = errors.New("saving collection failed")

	// ErrDuplicateID is returned by Add when the id is already taken.
	ErrDuplicateID = errors.New("outfit id already exists")
)

// EventKind classifies a change notification.
type EventKind string

const (
	EventLoaded  EventKind = "loaded"
	EventAdded   EventKind = "added"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
	EventNotice  EventKind = "notice"
)

// Event is delivered to subscribers after every change.
type Event struct {
	Kind     EventKind
	OutfitID string
	Revision uint64
	Notice   *models.Notice
}

// Options configures a Store.
type Options struct {
	Debounce time.Duration
	Location *time.Location
	Clock    func() time.Time
	Image    imageutil.Options
	Logger   *slog.Logger
}

// Snapshot is a deep copy of the collection at a revision.
type Snapshot struct {
	Outfits  []models.Outfit
	Revision uint64
}

// Store is the Record Store. All methods are safe for concurrent use; a single
// mutex guards the collection and subscriber callbacks run outside it.
type Store struct {
	mu       sync.Mutex
	outfits  []models.Outfit
	revision uint64
	timer    *time.Timer
	pending  bool
	degraded bool

	// persistMu orders writes so an older snapshot never overwrites a newer one.
	persistMu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	prefs prefs.Store
	blobs blob.Store
	opts  Options
}

// New creates an empty store. Call Load to read the persisted collection.
func New(p prefs.Store, b blob.Store, opts Options) *Store {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Image.TargetSize <= 0 {
		opts.Image = imageutil.DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		prefs: p,
		blobs: b,
		opts:  opts,
		subs:  make(map[int]func(Event)),
	}
}

// Load replaces the in-memory collection with the persisted one. A missing
// slot yields an empty collection. An unreadable slot also yields an empty
// collection and an error wrapping ErrCorrupt; the store stays usable.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.prefs.Get(ctx, prefs.KeyOutfits)
	if errors.Is(err, prefs.ErrNotFound) {
		s.setDegraded(false)
		s.replaceAll(nil)
		return nil
	}
	if err == nil {
		var outfits []models.Outfit
		if err = json.Unmarshal(data, &outfits); err == nil {
			s.setDegraded(false)
			s.replaceAll(outfits)
			s.opts.Logger.Debug("collection loaded", "outfits", len(outfits))
			return nil
		}
	}

	s.setDegraded(true)
	s.replaceAll(nil)
	s.opts.Logger.Error("stored collection unreadable, starting empty", "error", err)
	s.notify(models.Notice{
		Title:   "Could not load your wardrobe",
		Message: "Saved outfits could not be read. Starting with an empty collection.",
	})
	return fmt.Errorf("%w: %w", ErrCorrupt, err)
}

// Degraded reports whether the last Load fell back to an empty collection
// because the stored one could not be read.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Store) setDegraded(v bool) {
	s.mu.Lock()
	s.degraded = v
	s.mu.Unlock()
}

func (s *Store) replaceAll(outfits []models.Outfit) {
	s.mu.Lock()
	s.outfits = outfits
	s.revision++
	rev := s.revision
	s.mu.Unlock()
	s.emit(Event{Kind: EventLoaded, Revision: rev})
}

// Snapshot returns a deep copy of the collection in insertion order.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Outfit, len(s.outfits))
	for i := range s.outfits {
		out[i] = s.outfits[i].Clone()
	}
	return Snapshot{Outfits: out, Revision: s.revision}
}

// Get returns a copy of the outfit with id.
func (s *Store) Get(id string) (models.Outfit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.outfits[i].Clone(), true
	}
	return models.Outfit{}, false
}

// Len returns the number of outfits.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outfits)
}

// Revision increases on every change to the collection.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Location is the time zone used for calendar-day math.
func (s *Store) Location() *time.Location {
	return s.opts.Location
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.opts.Clock()
}

// Subscribe registers fn for change events and returns a function that
// removes the subscription.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.subsMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) notify(n models.Notice) {
	s.emit(Event{Kind: EventNotice, Revision: s.Revision(), Notice: &n})
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.outfits {
		if s.outfits[i].ID == id {
			return i
		}
	}
	return -1
}
