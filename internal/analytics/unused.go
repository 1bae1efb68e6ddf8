package analytics

import (
	"fmt"
	"slices"
	"time"

	"github.com/ajitpratap0/closetlog/internal/models"
)

// Thresholds for unused-item suggestions.
const (
	OldestUnusedLimit       = 5
	declutterThreshold      = 10
	categoryReviewThreshold = 3
)

// Unused describes outfits that have never been worn.
type Unused struct {
	TotalUnused int             `json:"totalUnusedItems"`
	ByCategory  map[string]int  `json:"unusedByCategory"`
	Oldest      []models.Outfit `json:"oldestUnusedItems"`
	Suggestions []string        `json:"suggestedActions"`
}

// AnalyzeUnused finds never-worn outfits, the oldest by creation order and
// rule-based suggestions.
func AnalyzeUnused(outfits []models.Outfit) Unused {
	u := Unused{ByCategory: map[string]int{}, Oldest: []models.Outfit{}, Suggestions: []string{}}

	var unused []models.Outfit
	var catOrder []string
	for i := range outfits {
		if len(outfits[i].WearHistory) > 0 {
			continue
		}
		unused = append(unused, outfits[i])
		cat := outfits[i].Category
		if _, seen := u.ByCategory[cat]; !seen {
			catOrder = append(catOrder, cat)
		}
		u.ByCategory[cat]++
	}
	u.TotalUnused = len(unused)

	slices.SortStableFunc(unused, func(a, b models.Outfit) int {
		if models.CreatedBefore(&a, &b) {
			return -1
		}
		if models.CreatedBefore(&b, &a) {
			return 1
		}
		return 0
	})
	for _, o := range unused[:min(OldestUnusedLimit, len(unused))] {
		u.Oldest = append(u.Oldest, o.Clone())
	}

	if u.TotalUnused > declutterThreshold {
		u.Suggestions = append(u.Suggestions, "Consider decluttering: many outfits have never been worn")
	}
	worst, worstCount := "", 0
	for _, cat := range catOrder {
		if u.ByCategory[cat] > worstCount {
			worst, worstCount = cat, u.ByCategory[cat]
		}
	}
	if worstCount > categoryReviewThreshold {
		u.Suggestions = append(u.Suggestions, fmt.Sprintf("Review the %s category", worst))
	}
	if u.TotalUnused*3 > len(outfits) {
		u.Suggestions = append(u.Suggestions, "A full wardrobe review may help: over a third of outfits are unworn")
	}
	return u
}

// Report aggregates every analysis for one snapshot.
type Report struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	Overall     Overall       `json:"overall"`
	Bands       []BandCount   `json:"bands"`
	Leaderboard []Frequency   `json:"leaderboard"`
	Seasons     []SeasonStats `json:"seasons"`
	Unused      Unused        `json:"unused"`
}

// Compute builds a Report with a leaderboard of up to top entries.
func Compute(outfits []models.Outfit, now time.Time, loc *time.Location, top int) Report {
	return Report{
		GeneratedAt: now,
		Overall:     ComputeOverall(outfits),
		Bands:       CountBands(outfits),
		Leaderboard: Leaderboard(Frequencies(outfits, loc), top),
		Seasons:     Seasonal(outfits, loc),
		Unused:      AnalyzeUnused(outfits),
	}
}
