package models

import (
	"sort"
	"time"
)

// Outfit is the sole persisted wardrobe entity.
//
// WearHistory is semantically a set of calendar days: WearOn enforces at most
// one entry per day in the caller's location. JSON keys follow the shape the
// collection has always been stored under so older blobs keep decoding; fields
// missing from older data decode to their zero value.
type Outfit struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Memo        string      `json:"memo"`
	WearHistory []time.Time `json:"wearHistory"`
	ImageRef    string      `json:"imageFilename,omitempty"`
	ImageData   []byte      `json:"imageData,omitempty"` // legacy inline image bytes
	ItemNames   []string    `json:"itemNames"`
	IsFavorite  bool        `json:"isFavorite"`
	CreatedAt   time.Time   `json:"createdAt,omitzero"`
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// IsWornOn reports whether the outfit has a wear entry on the calendar day of day.
func (o *Outfit) IsWornOn(day time.Time, loc *time.Location) bool {
	for _, w := range o.WearHistory {
		if SameDay(w, day, loc) {
			return true
		}
	}
	return false
}

// WearOn records a wear on the calendar day of day. It is idempotent per day
// and reports whether the history changed.
func (o *Outfit) WearOn(day time.Time, loc *time.Location) bool {
	if o.IsWornOn(day, loc) {
		return false
	}
	o.WearHistory = append(o.WearHistory, StartOfDay(day, loc))
	return true
}

// UnwearOn removes every wear entry on the calendar day of day and reports
// whether the history changed.
func (o *Outfit) UnwearOn(day time.Time, loc *time.Location) bool {
	kept := o.WearHistory[:0:0]
	for _, w := range o.WearHistory {
		if !SameDay(w, day, loc) {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(o.WearHistory) {
		return false
	}
	if len(kept) == 0 {
		kept = nil
	}
	o.WearHistory = kept
	return true
}

// WearCount returns the number of wear events.
func (o *Outfit) WearCount() int {
	return len(o.WearHistory)
}

// LastWorn returns the most recent wear day and false when never worn.
func (o *Outfit) LastWorn() (time.Time, bool) {
	var last time.Time
	for i, w := range o.WearHistory {
		if i == 0 || w.After(last) {
			last = w
		}
	}
	return last, len(o.WearHistory) > 0
}

// LastWornDates returns up to n wear days, most recent first.
func (o *Outfit) LastWornDates(n int) []time.Time {
	dates := make([]time.Time, len(o.WearHistory))
	copy(dates, o.WearHistory)
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if n >= 0 && len(dates) > n {
		dates = dates[:n]
	}
	return dates
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (o Outfit) Clone() Outfit {
	if o.WearHistory != nil {
		wh := make([]time.Time, len(o.WearHistory))
		copy(wh, o.WearHistory)
		o.WearHistory = wh
	}
	if o.ItemNames != nil {
		names := make([]string, len(o.ItemNames))
		copy(names, o.ItemNames)
		o.ItemNames = names
	}
	if o.ImageData != nil {
		data := make([]byte, len(o.ImageData))
		copy(data, o.ImageData)
		o.ImageData = data
	}
	return o
}

// CreatedBefore orders outfits by creation time, falling back to the id for
// equal or missing timestamps. Records without a timestamp sort first.
func CreatedBefore(a, b *Outfit) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Notice is a dismissible, user-visible message about a recoverable failure.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
