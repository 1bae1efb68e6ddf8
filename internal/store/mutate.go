package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ajitpratap0/closetlog/internal/imageutil"
	"github.com/ajitpratap0/closetlog/internal/metrics"
	"github.com/ajitpratap0/closetlog/internal/models"
)

// Add appends o to the collection and persists immediately. A missing id is
// generated and a missing CreatedAt is set from the store clock. The returned
// outfit is the stored copy.
func (s *Store) Add(ctx context.Context, o models.Outfit) (models.Outfit, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.opts.Clock().UTC()
	}
	o.Name = strings.TrimSpace(o.Name)
	o = o.Clone()

	s.mu.Lock()
	if s.indexOf(o.ID) >= 0 {
		s.mu.Unlock()
		return models.Outfit{}, fmt.Errorf("%w: %s", ErrDuplicateID, o.ID)
	}
	s.outfits = append(s.outfits, o)
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	metrics.OutfitsAdded.Inc()
	s.opts.Logger.Info("outfit added", "id", o.ID, "name", o.Name, "category", o.Category)
	s.emit(Event{Kind: EventAdded, OutfitID: o.ID, Revision: rev})
	return o.Clone(), s.Persist(ctx)
}

// Update replaces the outfit with the same id and persists immediately.
// Updating an unknown id is a no-op.
func (s *Store) Update(ctx context.Context, o models.Outfit) error {
	if !s.replace(o) {
		return nil
	}
	return s.Persist(ctx)
}

// UpdateDeferred replaces the outfit with the same id and schedules a
// debounced write. It reports whether the id was found.
func (s *Store) UpdateDeferred(o models.Outfit) bool {
	if !s.replace(o) {
		return false
	}
	s.mu.Lock()
	s.scheduleLocked()
	s.mu.Unlock()
	return true
}

func (s *Store) replace(o models.Outfit) bool {
	o = o.Clone()
	s.mu.Lock()
	i := s.indexOf(o.ID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.outfits[i].CreatedAt
	}
	s.outfits[i] = o
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.emit(Event{Kind: EventUpdated, OutfitID: o.ID, Revision: rev})
	return true
}

// Delete removes the outfit, releases its image blob once and persists.
// Deleting an unknown id is a no-op. A failed blob delete is logged and does
// not fail the operation.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.outfits[i]
	s.outfits = append(s.outfits[:i:i], s.outfits[i+1:]...)
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	if removed.ImageRef != "" {
		s.releaseBlob(ctx, removed.ImageRef)
	}

	metrics.OutfitsDeleted.Inc()
	s.opts.Logger.Info("outfit deleted", "id", id)
	s.emit(Event{Kind: EventDeleted, OutfitID: id, Revision: rev})
	return s.Persist(ctx)
}

func (s *Store) releaseBlob(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		metrics.BlobFailures.Inc()
		s.opts.Logger.Warn("releasing image failed", "ref", ref, "error", err)
	}
}

// apply runs fn on the stored outfit under the lock. fn reports whether it
// changed anything; unchanged records produce no event and no write.
func (s *Store) apply(id string, fn func(o *models.Outfit) bool) (changed, found bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false, false
	}
	if !fn(&s.outfits[i]) {
		s.mu.Unlock()
		return false, true
	}
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.emit(Event{Kind: EventUpdated, OutfitID: id, Revision: rev})
	return true, true
}

func (s *Store) applyNow(ctx context.Context, id string, fn func(o *models.Outfit) bool) (bool, error) {
	changed, _ := s.apply(id, fn)
	if !changed {
		return false, nil
	}
	return true, s.Persist(ctx)
}

// WearToday records a wear for the current calendar day. Repeated calls on the
// same day leave a single entry. It reports whether the history changed.
func (s *Store) WearToday(ctx context.Context, id string) (bool, error) {
	now := s.opts.Clock()
	changed, err := s.applyNow(ctx, id, func(o *models.Outfit) bool {
		return o.WearOn(now, s.opts.Location)
	})
	if changed {
		metrics.WearsLogged.Inc()
		s.opts.Logger.Info("wear logged", "id", id, "day", models.StartOfDay(now, s.opts.Location).Format("2006-01-02"))
	}
	return changed, err
}

// UnwearToday removes every wear entry on the current calendar day.
func (s *Store) UnwearToday(ctx context.Context, id string) (bool, error) {
	now := s.opts.Clock()
	return s.applyNow(ctx, id, func(o *models.Outfit) bool {
		return o.UnwearOn(now, s.opts.Location)
	})
}

// SetFavorite sets the favorite flag.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) (bool, error) {
	return s.applyNow(ctx, id, func(o *models.Outfit) bool {
		if o.IsFavorite == favorite {
			return false
		}
		o.IsFavorite = favorite
		return true
	})
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var now bool
	changed, err := s.applyNow(ctx, id, func(o *models.Outfit) bool {
		o.IsFavorite = !o.IsFavorite
		now = o.IsFavorite
		return true
	})
	if !changed {
		return false, nil
	}
	return now, err
}

// SetImage processes raw image bytes for storage, saves them under the
// outfit's reference and persists. Any legacy inline bytes are dropped. If the
// blob store fails the record is left unchanged.
func (s *Store) SetImage(ctx context.Context, id string, raw []byte) (string, error) {
	if _, ok := s.Get(id); !ok {
		return "", nil
	}
	data, err := imageutil.ProcessForStorage(raw, s.opts.Image)
	if err != nil {
		return "", fmt.Errorf("processing image: %w", err)
	}
	ref, err := s.blobs.Save(ctx, data, id)
	if err != nil {
		metrics.BlobFailures.Inc()
		s.opts.Logger.Warn("saving image failed", "id", id, "error", err)
		return "", fmt.Errorf("saving image: %w", err)
	}

	var old string
	changed, found := s.apply(id, func(o *models.Outfit) bool {
		old = o.ImageRef
		o.ImageRef = ref
		o.ImageData = nil
		return true
	})
	if !found {
		// Deleted while the image was being processed.
		s.releaseBlob(ctx, ref)
		return "", nil
	}
	if old != "" && old != ref {
		s.releaseBlob(ctx, old)
	}
	if changed {
		return ref, s.Persist(ctx)
	}
	return ref, nil
}

// RemoveImage clears the outfit's image and releases its blob.
func (s *Store) RemoveImage(ctx context.Context, id string) (bool, error) {
	var old string
	changed, _ := s.apply(id, func(o *models.Outfit) bool {
		if o.ImageRef == "" && len(o.ImageData) == 0 {
			return false
		}
		old = o.ImageRef
		o.ImageRef = ""
		o.ImageData = nil
		return true
	})
	if !changed {
		return false, nil
	}
	if old != "" {
		s.releaseBlob(ctx, old)
	}
	return true, s.Persist(ctx)
}

// Modify applies fn to the stored outfit and schedules a debounced write when
// fn reports a change. Use it for high-frequency text edits.
func (s *Store) Modify(id string, fn func(o *models.Outfit) bool) bool {
	changed, _ := s.apply(id, fn)
	if changed {
		s.mu.Lock()
		s.scheduleLocked()
		s.mu.Unlock()
	}
	return changed
}

// Rename sets the outfit name (deferred write).
func (s *Store) Rename(id, name string) bool {
	name = strings.TrimSpace(name)
	return s.Modify(id, func(o *models.Outfit) bool {
		if o.Name == name {
			return false
		}
		o.Name = name
		return true
	})
}

// SetMemo sets the free-text memo (deferred write).
func (s *Store) SetMemo(id, memo string) bool {
	return s.Modify(id, func(o *models.Outfit) bool {
		if o.Memo == memo {
			return false
		}
		o.Memo = memo
		return true
	})
}

// SetCategory moves the outfit to category (deferred write).
func (s *Store) SetCategory(id, category string) bool {
	return s.Modify(id, func(o *models.Outfit) bool {
		if o.Category == category {
			return false
		}
		o.Category = category
		return true
	})
}

// SetItemNames replaces the item name list (deferred write). Blank names are
// dropped.
func (s *Store) SetItemNames(id string, names []string) bool {
	clean := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clean = append(clean, n)
		}
	}
	return s.Modify(id, func(o *models.Outfit) bool {
		if slices.Equal(o.ItemNames, clean) {
			return false
		}
		o.ItemNames = clean
		return true
	})
}

// RenameCategory rewrites every outfit in from to to and persists.
func (s *Store) RenameCategory(ctx context.Context, from, to string) (int, error) {
	s.mu.Lock()
	n := 0
	for i := range s.outfits {
		if s.outfits[i].Category == from {
			s.outfits[i].Category = to
			n++
		}
	}
	if n == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.emit(Event{Kind: EventUpdated, Revision: rev})
	return n, s.Persist(ctx)
}
