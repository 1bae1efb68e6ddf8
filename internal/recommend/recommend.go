// Package recommend ranks outfits for today given the weather-recommended
// category.
package recommend

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/ajitpratap0/closetlog/internal/category"
	"github.com/ajitpratap0/closetlog/internal/models"
)

// Weights controls the relative importance of each ranking factor.
type Weights struct {
	Category  float64 `json:"category" mapstructure:"category"`
	Staleness float64 `json:"staleness" mapstructure:"staleness"`
	Frequency float64 `json:"frequency" mapstructure:"frequency"`
	Favorite  float64 `json:"favorite" mapstructure:"favorite"`
}

// DefaultWeights returns the default ranking weights.
func DefaultWeights() Weights {
	return Weights{
		Category:  0.5,
		Staleness: 0.25,
		Frequency: 0.1,
		Favorite:  0.15,
	}
}

// stalenessHalfLife is the days since last wear at which staleness reaches 0.5.
const stalenessHalfLife = 14.0

// Recommendation is an outfit with its score breakdown.
type Recommendation struct {
	Outfit         models.Outfit `json:"outfit"`
	CategoryScore  float64       `json:"categoryScore"`
	StalenessScore float64       `json:"stalenessScore"`
	FrequencyScore float64       `json:"frequencyScore"`
	FavoriteBoost  float64       `json:"favoriteBoost"`
	FinalScore     float64       `json:"finalScore"`
}

// Recommender performs multi-factor ranking of outfits.
type Recommender struct {
	weights Weights
	bands   []string
	logger  *slog.Logger
}

// NewRecommender creates a recommender. Category closeness is measured on the
// default temperature bands.
func NewRecommender(weights Weights, logger *slog.Logger) *Recommender {
	return &Recommender{weights: weights, bands: category.Defaults(), logger: logger}
}

// Rank scores every outfit not already worn today and returns them best
// first. Equal scores keep input order.
func (r *Recommender) Rank(outfits []models.Outfit, recommended string, now time.Time, loc *time.Location) []Recommendation {
	ranked := make([]Recommendation, 0, len(outfits))
	for i := range outfits {
		o := &outfits[i]
		if o.IsWornOn(now, loc) {
			continue
		}
		rec := Recommendation{
			Outfit:         o.Clone(),
			CategoryScore:  r.categoryScore(o.Category, recommended),
			StalenessScore: stalenessScore(o, now),
			FrequencyScore: frequencyScore(o.WearCount()),
			FavoriteBoost:  favoriteBoost(o.IsFavorite),
		}
		rec.FinalScore = r.weights.Category*rec.CategoryScore +
			r.weights.Staleness*rec.StalenessScore +
			r.weights.Frequency*rec.FrequencyScore +
			r.weights.Favorite*rec.FavoriteBoost
		ranked = append(ranked, rec)
	}

	slices.SortStableFunc(ranked, func(a, b Recommendation) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		}
		return 0
	})

	r.logger.Debug("ranked outfits", "candidates", len(ranked), "recommended_category", recommended)
	return ranked
}

// Top returns the best n recommendations.
func (r *Recommender) Top(outfits []models.Outfit, recommended string, now time.Time, loc *time.Location, n int) []Recommendation {
	ranked := r.Rank(outfits, recommended, now, loc)
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// categoryScore is 1 for an exact match and 0.5 for a neighbouring band.
// Without a recommendation every outfit scores 0.5.
func (r *Recommender) categoryScore(cat, recommended string) float64 {
	if recommended == "" {
		return 0.5
	}
	if cat == recommended {
		return 1.0
	}
	ci, ri := slices.Index(r.bands, cat), slices.Index(r.bands, recommended)
	if ci >= 0 && ri >= 0 && (ci-ri == 1 || ri-ci == 1) {
		return 0.5
	}
	return 0.0
}

// stalenessScore grows toward 1 the longer an outfit sits unworn.
func stalenessScore(o *models.Outfit, now time.Time) float64 {
	last, ok := o.LastWorn()
	if !ok {
		return 0.8
	}
	days := now.Sub(last).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 1 - math.Exp(-0.693*days/stalenessHalfLife)
}

// frequencyScore uses log scale on wear count.
func frequencyScore(wears int) float64 {
	if wears <= 0 {
		return 0.0
	}
	return math.Min(1.0, math.Log2(float64(wears)+1)/10.0)
}

func favoriteBoost(fav bool) float64 {
	if fav {
		return 1.0
	}
	return 0.0
}
