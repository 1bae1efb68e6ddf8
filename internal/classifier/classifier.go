package classifier

import (
	"log/slog"
	"strings"

	"github.com/ajitpratap0/closetlog/internal/category"
)

// Classifier guesses the temperature category of an outfit.
type Classifier interface {
	Classify(name, memo string, items []string) string
}

// HeuristicClassifier uses keyword-based rules for classification.
type HeuristicClassifier struct {
	logger *slog.Logger
}

// NewClassifier creates a new heuristic-based classifier.
func NewClassifier(logger *slog.Logger) *HeuristicClassifier {
	return &HeuristicClassifier{logger: logger}
}

// keywords per category. Order in each list doesn't matter; every hit scores 1.
var keywords = map[string][]string{
	category.Freezing: {
		"down jacket", "parka", "puffer", "thermal", "snow", "ski wear", "fleece-lined",
		"heattech", "balaclava", "earmuff",
	},
	category.Cold: {
		"coat", "wool", "scarf", "gloves", "beanie", "turtleneck", "boots",
		"knit", "cashmere", "overcoat",
	},
	category.Cool: {
		"cardigan", "hoodie", "sweater", "jacket", "trench", "sweatshirt",
		"long sleeve", "denim jacket", "blazer", "chinos",
	},
	category.Warm: {
		"t-shirt", "tee", "polo", "blouse", "linen", "sneakers", "jeans",
		"skirt", "short sleeve",
	},
	category.Hot: {
		"shorts", "tank", "sandals", "sundress", "camisole", "sleeveless",
		"flip flops", "swim",
	},
	category.Sweltering: {
		"heatwave", "cooling", "uv protection", "breathable", "moisture-wicking",
	},
}

// order fixes tie-breaking on the default band order.
var order = category.Defaults()

// Classify returns the best scoring category, or "" without any signal.
func (c *HeuristicClassifier) Classify(name, memo string, items []string) string {
	lower := strings.ToLower(name + "\n" + memo + "\n" + strings.Join(items, "\n"))

	best := ""
	bestScore := 0
	for _, cat := range order {
		score := 0
		for _, k := range keywords[cat] {
			if strings.Contains(lower, k) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}

	c.logger.Debug("classified outfit", "category", best, "score", bestScore, "content_prefix", truncate(lower, 60))
	return best
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}
