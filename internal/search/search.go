// Package search filters and sorts a snapshot of the outfit collection.
package search

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ajitpratap0/closetlog/internal/models"
)

// RecentWindow is how far back a wear counts as recent.
const RecentWindow = 7 * 24 * time.Hour

// SortOption selects the output order.
type SortOption string

const (
	SortDateAdded SortOption = "date_added"
	SortName      SortOption = "name"
	SortCategory  SortOption = "category"
	SortWearCount SortOption = "wear_count"
	SortLastWorn  SortOption = "last_worn"
)

// SortOptions lists every valid option in display order.
var SortOptions = []SortOption{SortDateAdded, SortName, SortCategory, SortWearCount, SortLastWorn}

// ParseSortOption returns the option named s. The empty string means date added.
func ParseSortOption(s string) (SortOption, error) {
	if s == "" {
		return SortDateAdded, nil
	}
	for _, o := range SortOptions {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// Query is a filter and sort configuration. Filters combine with AND; the
// zero Query keeps everything in date-added order.
type Query struct {
	Text             string     `json:"text,omitempty"`
	Categories       []string   `json:"categories,omitempty"`
	FavoritesOnly    bool       `json:"favoritesOnly,omitempty"`
	UnwornOnly       bool       `json:"unwornOnly,omitempty"`
	RecentlyWornOnly bool       `json:"recentlyWornOnly,omitempty"`
	Sort             SortOption `json:"sort,omitempty"`
}

// IsActive reports whether any filter is set. Sort order doesn't count.
func (q Query) IsActive() bool {
	return q.Text != "" || len(q.Categories) > 0 || q.FavoritesOnly || q.UnwornOnly || q.RecentlyWornOnly
}

// Clear drops every filter and keeps the sort.
func (q Query) Clear() Query {
	return Query{Sort: q.Sort}
}

// Options carries evaluation context that isn't part of the query.
type Options struct {
	// Locale drives name and category collation.
	Locale language.Tag
}

// Apply returns the outfits matching q in q's order. The input is not
// modified; ties keep their input order.
func Apply(outfits []models.Outfit, q Query, now time.Time, opts Options) []models.Outfit {
	out := make([]models.Outfit, 0, len(outfits))
	m := newMatcher(q, now)
	for i := range outfits {
		if m.match(&outfits[i]) {
			out = append(out, outfits[i])
		}
	}
	sortOutfits(out, q.Sort, opts.Locale)
	return out
}

type matcher struct {
	q       Query
	text    string
	fold    cases.Caser
	cats    map[string]struct{}
	recentF time.Time
}

func newMatcher(q Query, now time.Time) *matcher {
	m := &matcher{q: q, fold: cases.Fold(), recentF: now.Add(-RecentWindow)}
	if q.Text != "" {
		m.text = m.fold.String(q.Text)
	}
	if len(q.Categories) > 0 {
		m.cats = make(map[string]struct{}, len(q.Categories))
		for _, c := range q.Categories {
			m.cats[c] = struct{}{}
		}
	}
	return m
}

func (m *matcher) match(o *models.Outfit) bool {
	if m.text != "" && !m.matchText(o) {
		return false
	}
	if m.cats != nil {
		if _, ok := m.cats[o.Category]; !ok {
			return false
		}
	}
	if m.q.FavoritesOnly && !o.IsFavorite {
		return false
	}
	if m.q.UnwornOnly && len(o.WearHistory) > 0 {
		return false
	}
	if m.q.RecentlyWornOnly && !m.wornSince(o) {
		return false
	}
	return true
}

func (m *matcher) matchText(o *models.Outfit) bool {
	if m.contains(o.Name) || m.contains(o.Category) || m.contains(o.Memo) {
		return true
	}
	for _, n := range o.ItemNames {
		if m.contains(n) {
			return true
		}
	}
	return false
}

func (m *matcher) contains(s string) bool {
	return s != "" && strings.Contains(m.fold.String(s), m.text)
}

func (m *matcher) wornSince(o *models.Outfit) bool {
	for _, w := range o.WearHistory {
		if !w.Before(m.recentF) {
			return true
		}
	}
	return false
}

func sortOutfits(out []models.Outfit, by SortOption, locale language.Tag) {
	switch by {
	case SortName, SortCategory:
		col := collate.New(locale)
		key := func(o *models.Outfit) string { return o.Name }
		if by == SortCategory {
			key = func(o *models.Outfit) string { return o.Category }
		}
		slices.SortStableFunc(out, func(a, b models.Outfit) int {
			return col.CompareString(key(&a), key(&b))
		})
	case SortWearCount:
		slices.SortStableFunc(out, func(a, b models.Outfit) int {
			return len(b.WearHistory) - len(a.WearHistory)
		})
	case SortLastWorn:
		slices.SortStableFunc(out, func(a, b models.Outfit) int {
			la, oka := a.LastWorn()
			lb, okb := b.LastWorn()
			switch {
			case oka && okb:
				return lb.Compare(la)
			case oka:
				return -1
			case okb:
				return 1
			}
			return 0
		})
	default:
		slices.SortStableFunc(out, func(a, b models.Outfit) int {
			if models.CreatedBefore(&a, &b) {
				return -1
			}
			if models.CreatedBefore(&b, &a) {
				return 1
			}
			return 0
		})
	}
}
