package priceopt

import (
	"testing"
	"time"

	"github.com/greenhaus/chargesched/model"
)

func pricesFrom(base time.Time, totals []float64) []model.PriceSample {
	samples := make([]model.PriceSample, len(totals))
	for i, total := range totals {
		samples[i] = model.PriceSample{
			StartsAt: base.Add(time.Duration(i) * time.Hour),
			Total:    total,
			Level:    model.PriceNormal,
		}
	}
	return samples
}

func TestFindOptimalChargeEndMonotoneConstant(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	prices := pricesFrom(now, []float64{1, 1, 1, 1, 1, 1, 1})

	_, ok := FindOptimalChargeEnd(prices, now, 0.08, 0.08)
	if ok {
		t.Error("expected no optimal charge end for a constant price curve")
	}
}

func TestFindOptimalChargeEndSharpRise(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	prices := pricesFrom(now, []float64{1, 1, 1, 1, 10, 10, 10})

	end, ok := FindOptimalChargeEnd(prices, now, 0, 0)
	if !ok {
		t.Fatal("expected an optimal charge end")
	}
	expected := prices[4].StartsAt
	if !end.Equal(expected) {
		t.Errorf("got %v, expected %v (index 4)", end, expected)
	}
}

func TestFindOptimalChargeEndTooFewSamples(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	prices := pricesFrom(now, []float64{1, 1, 1, 1, 10})

	_, ok := FindOptimalChargeEnd(prices, now, 0.08, 0.08)
	if ok {
		t.Error("expected no result for fewer than 6 samples")
	}
}

func TestFindOptimalChargeEndScenario4(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	prices := pricesFrom(now, []float64{0.10, 0.10, 0.10, 0.11, 0.20, 0.22, 0.25})

	end, ok := FindOptimalChargeEnd(prices, now, 0.08, 0.08)
	if !ok {
		t.Fatal("expected an optimal charge end")
	}
	expected := prices[4].StartsAt
	if !end.Equal(expected) {
		t.Errorf("got %v, expected %v (index 4, price 0.20)", end, expected)
	}
}

func TestFindOptimalChargeEndIgnoresPast(t *testing.T) {
	now := time.Date(2024, 4, 1, 5, 0, 0, 0, time.UTC)
	prices := pricesFrom(now.Add(-5*time.Hour), []float64{1, 1, 1, 1, 10, 10, 10})

	// index 4's startsAt is now-1h, in the past, so it must not be returned.
	_, ok := FindOptimalChargeEnd(prices, now, 0, 0)
	if ok {
		t.Error("expected no result when the only qualifying index is in the past")
	}
}

func TestClassifyLevel(t *testing.T) {
	tests := []struct {
		raw      string
		expected model.PriceLevel
	}{
		{"VERY_CHEAP", model.PriceVeryCheap},
		{"SEHR_GUENSTIG", model.PriceVeryCheap},
		{"GUENSTIG", model.PriceCheap},
		{"TEUER", model.PriceExpensive},
		{"SEHR_TEUER", model.PriceVeryExpensive},
		{"", model.PriceNormal},
		{"unrecognized", model.PriceNormal},
	}

	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			got := ClassifyLevel(test.raw)
			if got != test.expected {
				t.Errorf("ClassifyLevel(%q) got %v, expected %v", test.raw, got, test.expected)
			}
		})
	}
}
