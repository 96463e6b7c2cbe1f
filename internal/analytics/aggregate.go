package analytics

import (
	"math"
	"sort"

	"github.com/grofit/backend/internal/contracts"
)

// MinHistoryDays is the minimum number of daily rows an item needs before it
// is considered for scoring at all. Below this the item is skipped for the
// date's analytics run entirely; insufficient data is a policy, not an error.
const MinHistoryDays = 7

// Window sizes, in days, for the rolling aggregates.
var windowDays = []int{7, 14, 30}

// windowLabels maps a window size to its persisted label.
func windowLabel(days int) string {
	switch days {
	case 7:
		return "7d"
	case 14:
		return "14d"
	default:
		return "30d"
	}
}

// ComputeAggregatedMetrics computes rolling statistics across the 7/14/30
// day windows from daily item stats. The history may arrive in any order;
// it is evaluated descending by date.
func ComputeAggregatedMetrics(history []contracts.DailyItemStats) contracts.AggregatedMetrics {
	sorted := sortedDescending(history)

	metrics := contracts.AggregatedMetrics{
		Window7:  computeWindow(sorted, 7),
		Window14: computeWindow(sorted, 14),
		Window30: computeWindow(sorted, 30),
	}
	if len(sorted) > 0 {
		metrics.Latest = sorted[0]
	}
	return metrics
}

// computeWindow evaluates one rolling window over the most recent N rows,
// filtered to those carrying the full metric set. A window with zero valid
// rows yields all-zero metrics.
func computeWindow(sorted []contracts.DailyItemStats, days int) contracts.TimeWindowMetrics {
	window := sorted
	if len(window) > days {
		window = window[:days]
	}

	valid := make([]contracts.DailyItemStats, 0, len(window))
	for _, d := range window {
		if d.Valid() {
			valid = append(valid, d)
		}
	}
	if len(valid) == 0 {
		return contracts.TimeWindowMetrics{}
	}

	var totalVolume, weightedSum float64
	prices := make([]float64, len(valid))
	minPrice := *valid[0].MinPrice
	maxPrice := *valid[0].MaxPrice
	for i, d := range valid {
		totalVolume += *d.Volume
		weightedSum += *d.AvgPrice * *d.Volume
		prices[i] = *d.AvgPrice
		minPrice = math.Min(minPrice, *d.MinPrice)
		maxPrice = math.Max(maxPrice, *d.MaxPrice)
	}

	vwap := 0.0
	if totalVolume > 0 {
		vwap = weightedSum / totalVolume
	}

	priceMean := mean(prices)
	volatility := 0.0
	if priceMean != 0 {
		volatility = stdev(prices) / priceMean
	}

	// Split the window in half by index: the first half is the most recent
	// rows, the second half the older remainder.
	half := len(valid) / 2
	firstHalf := valid[:half]
	secondHalf := valid[half:]

	firstHalfAvg := meanAvgPrice(firstHalf)
	secondHalfAvg := meanAvgPrice(secondHalf)

	priceTrend := 0.0
	if firstHalfAvg > 0 {
		priceTrend = (secondHalfAvg - firstHalfAvg) / firstHalfAvg
	}

	firstHalfVolume := sumVolume(firstHalf)
	secondHalfVolume := sumVolume(secondHalf)

	volumeTrend := 0.0
	if firstHalfVolume > 0 {
		volumeTrend = (secondHalfVolume - firstHalfVolume) / firstHalfVolume
	}

	return contracts.TimeWindowMetrics{
		Volume:        totalVolume,
		VWAP:          vwap,
		Volatility:    volatility,
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		PriceTrend:    priceTrend,
		VolumeTrend:   volumeTrend,
		TrendStrength: trendStrength(priceTrend, volumeTrend),
		SMA:           priceMean,
	}
}

// trendStrength folds the two trend components into a 0-1 indicator.
func trendStrength(priceTrend, volumeTrend float64) float64 {
	return math.Min(math.Abs(priceTrend)*(1+math.Abs(volumeTrend))/2, 1)
}

// SMA computes the simple moving average of avg price over the most recent
// N days of a descending-sorted history. Returns nil with fewer than N days
// or no priced days in range.
func SMA(history []contracts.DailyItemStats, days int) *float64 {
	if len(history) < days {
		return nil
	}

	var prices []float64
	for _, d := range history[:days] {
		if d.AvgPrice != nil {
			prices = append(prices, *d.AvgPrice)
		}
	}
	if len(prices) == 0 {
		return nil
	}

	avg := mean(prices)
	return &avg
}

// EMA computes the exponential moving average of avg price over the most
// recent N days of a descending-sorted history, seeded with the first value.
func EMA(history []contracts.DailyItemStats, days int) *float64 {
	if len(history) < days {
		return nil
	}

	var prices []float64
	for _, d := range history[:days] {
		if d.AvgPrice != nil {
			prices = append(prices, *d.AvgPrice)
		}
	}
	if len(prices) == 0 {
		return nil
	}

	multiplier := 2.0 / (float64(days) + 1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = (p-ema)*multiplier + ema
	}
	return &ema
}

// sortedDescending returns a copy of the history sorted by date descending.
func sortedDescending(history []contracts.DailyItemStats) []contracts.DailyItemStats {
	sorted := make([]contracts.DailyItemStats, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	return sorted
}

func meanAvgPrice(days []contracts.DailyItemStats) float64 {
	if len(days) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range days {
		sum += *d.AvgPrice
	}
	return sum / float64(len(days))
}

func sumVolume(days []contracts.DailyItemStats) float64 {
	sum := 0.0
	for _, d := range days {
		sum += *d.Volume
	}
	return sum
}

// mean is the arithmetic mean; zero for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdev is the population standard deviation; zero for an empty slice.
func stdev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)))
}
