// Package names keeps the item-name suggestion index: every distinct item
// name ever entered, a short most-recently-used list, and a use count per name.
//
// Counts are exact-match after trimming whitespace, so "Red Shirt" and
// "red shirt" are different names. Counts never go down when outfits are
// deleted.
package names

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/ajitpratap0/closetlog/internal/metrics"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/prefs"
)

// DefaultRecentCapacity bounds the recently-used list.
const DefaultRecentCapacity = 10

// Ranked is a name with its use count.
type Ranked struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Index is the suggestion index. It is safe for concurrent use.
type Index struct {
	mu        sync.Mutex
	all       map[string]struct{}
	recent    []string
	frequency map[string]int
	capacity  int

	// saveMu orders writes so an older copy never overwrites a newer one.
	saveMu sync.Mutex

	prefs  prefs.Store
	logger *slog.Logger
}

// New creates an empty index. capacity <= 0 uses DefaultRecentCapacity.
func New(p prefs.Store, capacity int, logger *slog.Logger) *Index {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Index{
		all:       make(map[string]struct{}),
		frequency: make(map[string]int),
		capacity:  capacity,
		prefs:     p,
		logger:    logger,
	}
}

// Load reads the three persisted structures. Missing keys leave their part
// empty; unreadable ones are skipped and reported together.
func (x *Index) Load(ctx context.Context) error {
	var all, recent []string
	freq := map[string]int{}
	var errs []error
	for key, dst := range map[string]any{
		prefs.KeyAllItemNames:    &all,
		prefs.KeyRecentItemNames: &recent,
		prefs.KeyItemFrequency:   &freq,
	} {
		data, err := x.prefs.Get(ctx, key)
		if errors.Is(err, prefs.ErrNotFound) {
			continue
		}
		if err == nil {
			err = json.Unmarshal(data, dst)
		}
		if err != nil {
			x.logger.Warn("name index slot unreadable", "key", key, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.all = make(map[string]struct{}, len(all))
	for _, n := range all {
		x.all[n] = struct{}{}
	}
	if len(recent) > x.capacity {
		recent = recent[:x.capacity]
	}
	x.recent = recent
	if freq == nil {
		freq = map[string]int{}
	}
	x.frequency = freq
	return errors.Join(errs...)
}

// Add records one use of name. Blank names are ignored.
func (x *Index) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	x.mu.Lock()
	x.addLocked(name)
	x.mu.Unlock()
	metrics.NamesAdded.Inc()
	return x.save(ctx)
}

// AddAll records one use of each name and saves once.
func (x *Index) AddAll(ctx context.Context, names []string) error {
	added := 0
	x.mu.Lock()
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			x.addLocked(n)
			added++
		}
	}
	x.mu.Unlock()
	if added == 0 {
		return nil
	}
	metrics.NamesAdded.Add(float64(added))
	return x.save(ctx)
}

func (x *Index) addLocked(name string) {
	x.all[name] = struct{}{}
	x.frequency[name]++
	if i := slices.Index(x.recent, name); i >= 0 {
		x.recent = slices.Delete(x.recent, i, i+1)
	}
	x.recent = slices.Insert(x.recent, 0, name)
	if len(x.recent) > x.capacity {
		x.recent = x.recent[:x.capacity]
	}
}

// Search returns names containing query, case-insensitively, in lexical
// order. An empty query returns the recently-used list.
func (x *Index) Search(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return x.Recent()
	}
	fold := cases.Fold()
	q := fold.String(query)

	x.mu.Lock()
	defer x.mu.Unlock()
	var out []string
	for n := range x.all {
		if strings.Contains(fold.String(n), q) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// Recent returns the recently-used names, newest first.
func (x *Index) Recent() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.recent)
}

// All returns every known name in lexical order.
func (x *Index) All() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]string, 0, len(x.all))
	for n := range x.all {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Frequency returns the use count of name.
func (x *Index) Frequency(name string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.frequency[name]
}

// Len returns the number of distinct names.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.all)
}

// TopRecommendations returns the n most used names, ties by name.
func (x *Index) TopRecommendations(n int) []Ranked {
	x.mu.Lock()
	ranked := make([]Ranked, 0, len(x.frequency))
	for name, c := range x.frequency {
		ranked = append(ranked, Ranked{Name: name, Count: c})
	}
	x.mu.Unlock()

	slices.SortFunc(ranked, func(a, b Ranked) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Rebuild replaces the name set and counts with what the outfits reference.
// The recently-used list is kept.
func (x *Index) Rebuild(ctx context.Context, outfits []models.Outfit) error {
	all := make(map[string]struct{})
	freq := make(map[string]int)
	for i := range outfits {
		for _, n := range outfits[i].ItemNames {
			if n = strings.TrimSpace(n); n != "" {
				all[n] = struct{}{}
				freq[n]++
			}
		}
	}

	x.mu.Lock()
	x.all = all
	x.frequency = freq
	x.mu.Unlock()

	x.logger.Info("name index rebuilt", "names", len(all), "outfits", len(outfits))
	return x.save(ctx)
}

// Bootstrap rebuilds from outfits only when the index holds no names. It
// reports whether a rebuild happened.
func (x *Index) Bootstrap(ctx context.Context, outfits []models.Outfit) (bool, error) {
	if x.Len() > 0 {
		return false, nil
	}
	return true, x.Rebuild(ctx, outfits)
}

func (x *Index) save(ctx context.Context) error {
	x.saveMu.Lock()
	defer x.saveMu.Unlock()

	x.mu.Lock()
	all := make([]string, 0, len(x.all))
	for n := range x.all {
		all = append(all, n)
	}
	slices.Sort(all)
	blobs := map[string]any{
		prefs.KeyAllItemNames:    all,
		prefs.KeyRecentItemNames: slices.Clone(x.recent),
		prefs.KeyItemFrequency:   maps.Clone(x.frequency),
	}
	x.mu.Unlock()

	for _, key := range []string{prefs.KeyAllItemNames, prefs.KeyRecentItemNames, prefs.KeyItemFrequency} {
		data, err := json.Marshal(blobs[key])
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if err := x.prefs.Set(ctx, key, data); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}
	return nil
}
