// Package priceopt locates the optimal grid-charge end moment in a day-ahead
// price sequence.
package priceopt

import (
	"strings"
	"time"

	"github.com/greenhaus/chargesched/model"
)

// minSamples is the minimum number of consecutive hourly samples required:
// the first candidate is index 3 (three earlier samples), plus the candidate
// hour and two hours of lookahead.
const minSamples = 6

// FindOptimalChargeEnd returns the earliest future timestamp at which
// charging should cease because the subsequent window is expensive relative
// to the preceding one, or ok=false if the curve never sharply rises.
//
// Requires prices to be monotone in StartsAt with no gaps; a malformed
// individual sample (non-finite Total) is skipped rather than aborting the
// whole scan.
func FindOptimalChargeEnd(prices []model.PriceSample, now time.Time, threshold1h, threshold3h float64) (time.Time, bool) {
	if len(prices) < minSamples {
		return time.Time{}, false
	}

	for i := 3; i < len(prices)-2; i++ {
		sample := prices[i]

		if !sample.StartsAt.After(now) {
			continue
		}

		p0 := sample.Total
		pMinus1 := prices[i-1].Total
		pMinus2 := prices[i-2].Total
		pPlus1 := prices[i+1].Total
		pPlus2 := prices[i+2].Total

		if !isFinite(p0) || !isFinite(pMinus1) || !isFinite(pMinus2) || !isFinite(pPlus1) || !isFinite(pPlus2) {
			continue
		}

		conditionA := p0 > pMinus1*(1+threshold1h)
		sum3hPast := p0 + pMinus1 + pMinus2
		sum3hFuture := p0 + pPlus1 + pPlus2
		conditionB := sum3hPast < sum3hFuture*(1+threshold3h)

		if conditionA && conditionB {
			return sample.StartsAt, true
		}
	}

	return time.Time{}, false
}

func isFinite(f float64) bool {
	return f == f && f < 1e308 && f > -1e308
}

// ClassifyLevel collapses a raw, possibly localized price-level string into
// the closed PriceLevel set, defaulting unrecognized values to Normal.
// Neither the status explainer nor the optimizer calls it; the optimizer
// relies solely on numerical prices.
func ClassifyLevel(raw string) model.PriceLevel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "VERY_CHEAP", "SEHR_GUENSTIG", "SEHR_GÜNSTIG":
		return model.PriceVeryCheap
	case "CHEAP", "GUENSTIG", "GÜNSTIG":
		return model.PriceCheap
	case "NORMAL":
		return model.PriceNormal
	case "EXPENSIVE", "TEUER":
		return model.PriceExpensive
	case "VERY_EXPENSIVE", "SEHR_TEUER":
		return model.PriceVeryExpensive
	default:
		return model.PriceNormal
	}
}
