package search

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/ajitpratap0/closetlog/internal/models"
)

// Engine memoizes the last result. A repeated query against the same
// collection revision within the same minute is served from the memo.
type Engine struct {
	opts Options
	loc  *time.Location

	mu       sync.Mutex
	lastKey  uint64
	lastOut  []models.Outfit
	hits     int
	computes int
}

// NewEngine returns an engine that evaluates calendar boundaries in loc.
func NewEngine(opts Options, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{opts: opts, loc: loc}
}

// Run filters and sorts outfits at revision. The returned slice is shared
// with the memo and must not be modified.
func (e *Engine) Run(outfits []models.Outfit, revision uint64, q Query, now time.Time) []models.Outfit {
	key := e.key(q, revision, len(outfits), now)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastOut != nil && key == e.lastKey {
		e.hits++
		return e.lastOut
	}
	e.computes++
	e.lastKey = key
	e.lastOut = Apply(outfits, q, now, e.opts)
	return e.lastOut
}

// Stats returns memo hits and full recomputations so far.
func (e *Engine) Stats() (hits, computes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits, e.computes
}

func (e *Engine) key(q Query, revision uint64, n int, now time.Time) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(q.Text)
	_, _ = d.WriteString("\x00")
	for _, c := range q.Categories {
		_, _ = d.WriteString(c)
		_, _ = d.WriteString("\x1f")
	}
	_, _ = d.WriteString("\x00")
	for _, b := range []bool{q.FavoritesOnly, q.UnwornOnly, q.RecentlyWornOnly} {
		if b {
			_, _ = d.WriteString("1")
		} else {
			_, _ = d.WriteString("0")
		}
	}
	_, _ = d.WriteString(string(q.Sort))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatUint(revision, 10))
	_, _ = d.WriteString(":")
	_, _ = d.WriteString(strconv.Itoa(n))
	_, _ = d.WriteString(":")
	// The recent window slides with the clock, so bucket by minute.
	_, _ = d.WriteString(now.In(e.loc).Truncate(time.Minute).Format(time.RFC3339))
	return d.Sum64()
}
