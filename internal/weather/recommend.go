package weather

import "github.com/ajitpratap0/closetlog/internal/category"

// WideRange is the daily spread (°C) above which the average temperature
// decides the category instead of the high.
const WideRange = 10.0

// RecommendCategory maps today's low and high (°C) to a default category
// label. A wide spread favours layering around the average; otherwise the
// high decides.
func RecommendCategory(tempMin, tempMax float64) string {
	if tempMax-tempMin >= WideRange {
		avg := (tempMin + tempMax) / 2
		switch {
		case avg <= 5:
			return category.Cold
		case avg <= 15:
			return category.Cool
		case avg <= 25:
			return category.Warm
		default:
			return category.Hot
		}
	}

	switch {
	case tempMax <= 0:
		return category.Freezing
	case tempMax <= 10:
		return category.Cold
	case tempMax <= 20:
		return category.Cool
	case tempMax <= 28:
		return category.Warm
	case tempMax <= 35:
		return category.Hot
	default:
		return category.Sweltering
	}
}
