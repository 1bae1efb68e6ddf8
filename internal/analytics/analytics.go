// Package analytics computes read-only statistics over a collection snapshot.
// Every function is pure: no I/O and no mutation of the input.
package analytics

import (
	"slices"
	"time"

	"github.com/ajitpratap0/closetlog/internal/models"
)

// Band classifies an outfit by how often it has been worn.
type Band string

const (
	BandUnworn       Band = "unworn"
	BandRare         Band = "rare"
	BandOccasional   Band = "occasional"
	BandFrequent     Band = "frequent"
	BandVeryFrequent Band = "very frequent"
)

// Bands lists every band from least to most worn.
var Bands = []Band{BandUnworn, BandRare, BandOccasional, BandFrequent, BandVeryFrequent}

// BandFor returns the band for a wear count.
func BandFor(wears int) Band {
	switch {
	case wears <= 0:
		return BandUnworn
	case wears <= 3:
		return BandRare
	case wears <= 8:
		return BandOccasional
	case wears <= 15:
		return BandFrequent
	default:
		return BandVeryFrequent
	}
}

// Overall holds collection-wide KPIs.
type Overall struct {
	TotalOutfits     int            `json:"totalOutfits"`
	TotalWears       int            `json:"totalWears"`
	AverageWears     float64        `json:"averageWearsPerOutfit"`
	MostWorn         *models.Outfit `json:"mostWornOutfit,omitempty"`
	MostWornCategory string         `json:"mostWornCategory,omitempty"`
	UtilizationRate  float64        `json:"utilizationRate"`
}

// ComputeOverall returns the KPIs. MostWorn and MostWornCategory stay empty
// when nothing has been worn; ties go to the first encountered.
func ComputeOverall(outfits []models.Outfit) Overall {
	var o Overall
	o.TotalOutfits = len(outfits)

	worn := 0
	best := -1
	catWears := make(map[string]int)
	var catOrder []string
	for i := range outfits {
		n := len(outfits[i].WearHistory)
		o.TotalWears += n
		if n > 0 {
			worn++
		}
		if n > 0 && (best < 0 || n > len(outfits[best].WearHistory)) {
			best = i
		}
		cat := outfits[i].Category
		if _, seen := catWears[cat]; !seen {
			catOrder = append(catOrder, cat)
		}
		catWears[cat] += n
	}

	if o.TotalOutfits > 0 {
		o.AverageWears = float64(o.TotalWears) / float64(o.TotalOutfits)
		o.UtilizationRate = float64(worn) / float64(o.TotalOutfits)
	}
	if best >= 0 {
		mw := outfits[best].Clone()
		o.MostWorn = &mw
	}
	top := 0
	for _, cat := range catOrder {
		if catWears[cat] > top {
			top = catWears[cat]
			o.MostWornCategory = cat
		}
	}
	return o
}

// Frequency is the per-outfit wear profile.
type Frequency struct {
	Outfit         models.Outfit `json:"outfit"`
	WearCount      int           `json:"wearCount"`
	LastWorn       *time.Time    `json:"lastWorn,omitempty"`
	AvgDaysBetween *float64      `json:"averageDaysBetweenWears,omitempty"`
	Band           Band          `json:"band"`
}

// Frequencies profiles every outfit in input order. The average gap counts
// whole calendar days in loc and needs at least two wears.
func Frequencies(outfits []models.Outfit, loc *time.Location) []Frequency {
	out := make([]Frequency, 0, len(outfits))
	for i := range outfits {
		o := &outfits[i]
		f := Frequency{Outfit: o.Clone(), WearCount: len(o.WearHistory), Band: BandFor(len(o.WearHistory))}
		if last, ok := o.LastWorn(); ok {
			f.LastWorn = &last
		}
		f.AvgDaysBetween = averageGap(o.WearHistory, loc)
		out = append(out, f)
	}
	return out
}

func averageGap(history []time.Time, loc *time.Location) *float64 {
	if len(history) < 2 {
		return nil
	}
	sorted := slices.Clone(history)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	total := 0
	for i := 1; i < len(sorted); i++ {
		total += daysBetween(sorted[i-1], sorted[i], loc)
	}
	avg := float64(total) / float64(len(sorted)-1)
	return &avg
}

// daysBetween counts calendar days from a to b in loc.
func daysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	// Noon UTC keeps DST shifts out of the division.
	da := time.Date(ay, am, ad, 12, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 12, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// BandCount is the number of outfits in a band.
type BandCount struct {
	Band  Band `json:"band"`
	Count int  `json:"count"`
}

// CountBands returns one entry per band, in band order. The counts sum to the
// number of outfits.
func CountBands(outfits []models.Outfit) []BandCount {
	counts := make(map[Band]int, len(Bands))
	for i := range outfits {
		counts[BandFor(len(outfits[i].WearHistory))]++
	}
	out := make([]BandCount, len(Bands))
	for i, b := range Bands {
		out[i] = BandCount{Band: b, Count: counts[b]}
	}
	return out
}

// Leaderboard returns up to n outfits by descending wear count, unworn ones
// included. Ties keep input order. n <= 0 means no limit.
func Leaderboard(freqs []Frequency, n int) []Frequency {
	out := slices.Clone(freqs)
	slices.SortStableFunc(out, func(a, b Frequency) int { return b.WearCount - a.WearCount })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
