package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ajitpratap0/closetlog/internal/metrics"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/prefs"
)

// deferredWriteTimeout bounds a debounced write that fires without a caller context.
const deferredWriteTimeout = 10 * time.Second

// Persist serializes the whole collection and writes it to the preference
// store, cancelling any pending deferred write. On failure the in-memory state
// is kept and the error wraps ErrPersist.
func (s *Store) Persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.cancelPendingLocked()
	outfits := s.outfits
	if outfits == nil {
		outfits = []models.Outfit{}
	}
	data, err := json.Marshal(outfits)
	count := len(outfits)
	s.mu.Unlock()

	if err == nil {
		err = s.prefs.Set(ctx, prefs.KeyOutfits, data)
	}
	if err != nil {
		metrics.PersistFailures.Inc()
		s.opts.Logger.Error("saving collection failed", "outfits", count, "error", err)
		s.notify(models.Notice{
			Title:   "Could not save your wardrobe",
			Message: "Your changes are kept for now but were not saved. They will be saved with the next change.",
		})
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	metrics.PersistWrites.Inc()
	s.opts.Logger.Debug("collection saved", "outfits", count, "bytes", len(data))
	return nil
}

// Flush writes a pending deferred change immediately. It is a no-op when
// nothing is pending.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if !pending {
		return nil
	}
	return s.Persist(ctx)
}

// Close flushes pending writes. The preference store is owned by the caller.
func (s *Store) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

// Pending reports whether a deferred write is scheduled.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// scheduleLocked (re)starts the debounce timer. Must be called with mu held.
func (s *Store) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
		metrics.DebounceCoalesced.Inc()
	}
	s.pending = true
	s.timer = time.AfterFunc(s.opts.Debounce, s.deferredWrite)
}

// cancelPendingLocked drops the debounce timer. Must be called with mu held.
func (s *Store) cancelPendingLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

func (s *Store) deferredWrite() {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if !pending {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deferredWriteTimeout)
	defer cancel()
	if err := s.Persist(ctx); err != nil {
		s.opts.Logger.Warn("deferred save failed", "error", err)
	}
}
