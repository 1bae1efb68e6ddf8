package analytics

import (
	"slices"
	"time"

	"github.com/ajitpratap0/closetlog/internal/models"
)

// SeasonalTop is how many categories and outfits each season reports.
const SeasonalTop = 3

// Season is a fixed set of months.
type Season struct {
	Name   string       `json:"name"`
	Months []time.Month `json:"months"`
}

// Seasons in calendar order, northern hemisphere.
var Seasons = []Season{
	{Name: "spring", Months: []time.Month{time.March, time.April, time.May}},
	{Name: "summer", Months: []time.Month{time.June, time.July, time.August}},
	{Name: "autumn", Months: []time.Month{time.September, time.October, time.November}},
	{Name: "winter", Months: []time.Month{time.December, time.January, time.February}},
}

// SeasonStats summarizes wears whose month falls in a season.
type SeasonStats struct {
	Season        string          `json:"season"`
	TotalWears    int             `json:"totalWears"`
	TopCategories []string        `json:"topCategories"`
	TopOutfits    []models.Outfit `json:"topOutfits"`
}

// Seasonal returns one entry per season. Months are read in loc.
func Seasonal(outfits []models.Outfit, loc *time.Location) []SeasonStats {
	if loc == nil {
		loc = time.Local
	}
	out := make([]SeasonStats, 0, len(Seasons))
	for _, s := range Seasons {
		out = append(out, seasonStats(outfits, s, loc))
	}
	return out
}

type counted struct {
	idx   int
	key   string
	count int
}

func seasonStats(outfits []models.Outfit, s Season, loc *time.Location) SeasonStats {
	st := SeasonStats{Season: s.Name, TopCategories: []string{}, TopOutfits: []models.Outfit{}}

	var perOutfit []counted
	var perCat []counted
	catIdx := make(map[string]int)
	for i := range outfits {
		n := 0
		for _, w := range outfits[i].WearHistory {
			if slices.Contains(s.Months, w.In(loc).Month()) {
				n++
			}
		}
		if n == 0 {
			continue
		}
		st.TotalWears += n
		perOutfit = append(perOutfit, counted{idx: i, count: n})

		cat := outfits[i].Category
		j, ok := catIdx[cat]
		if !ok {
			j = len(perCat)
			catIdx[cat] = j
			perCat = append(perCat, counted{key: cat})
		}
		perCat[j].count += n
	}

	byCount := func(a, b counted) int { return b.count - a.count }
	slices.SortStableFunc(perCat, byCount)
	slices.SortStableFunc(perOutfit, byCount)

	for _, c := range perCat[:min(SeasonalTop, len(perCat))] {
		st.TopCategories = append(st.TopCategories, c.key)
	}
	for _, c := range perOutfit[:min(SeasonalTop, len(perOutfit))] {
		st.TopOutfits = append(st.TopOutfits, outfits[c.idx].Clone())
	}
	return st
}
