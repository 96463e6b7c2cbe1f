package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/grofit/backend/internal/contracts"
)

// The four factor calculators are pure functions over aggregated metrics and
// raw history. Every sub-metric defaults to 0.5 (neutral) below its minimum
// sample threshold; this uniform policy determines early-lifecycle item
// scores and must hold across all calculators.

// CalculateTrendFactors extracts trend factors from the 30-day window.
func CalculateTrendFactors(metrics contracts.AggregatedMetrics) contracts.TrendFactors {
	month := metrics.Window30

	direction := contracts.TrendSideways
	if month.PriceTrend > 0.02 {
		direction = contracts.TrendBullish
	} else if month.PriceTrend < -0.02 {
		direction = contracts.TrendBearish
	}

	return contracts.TrendFactors{
		Strength:  trendStrength(month.PriceTrend, month.VolumeTrend),
		Direction: direction,
		Momentum:  month.VolumeTrend,
	}
}

// CalculatePerformanceFactors derives performance factors from history and
// the 30-day window.
func CalculatePerformanceFactors(history []contracts.DailyItemStats, metrics contracts.AggregatedMetrics) contracts.PerformanceFactors {
	month := metrics.Window30

	return contracts.PerformanceFactors{
		Rank: performanceRank(history),
		// Normalized against typical monthly volume
		VolumeRank: math.Min(month.Volume/1000, 1),
		Stability:  math.Max(0, 1-month.Volatility),
		Volatility: math.Min(month.Volatility, 1),
	}
}

// performanceRank maps the ~30-observation price change onto a 1-100 scale
// anchored at 50.
func performanceRank(history []contracts.DailyItemStats) float64 {
	if len(history) < MinHistoryDays {
		return 50
	}

	priced := make([]contracts.DailyItemStats, 0, len(history))
	for _, d := range history {
		if d.AvgPrice != nil {
			priced = append(priced, d)
		}
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].Date > priced[j].Date
	})

	if len(priced) < 2 {
		return 50
	}

	latest := *priced[0].AvgPrice
	back := len(priced) - 1
	if back > 29 {
		back = 29
	}
	monthAgo := *priced[back].AvgPrice
	if monthAgo == 0 {
		return 50
	}

	changePercent := (latest - monthAgo) / monthAgo * 100
	return math.Max(1, math.Min(100, 50+changePercent*2))
}

// CalculatePatternFactors measures day-of-week seasonality and the
// confidence of the pattern given data completeness and sample size.
func CalculatePatternFactors(history []contracts.DailyItemStats) contracts.PatternFactors {
	return contracts.PatternFactors{
		SeasonalStrength: seasonalStrength(history),
		Confidence:       patternConfidence(history),
	}
}

// seasonalStrength averages per-weekday volume predictability across
// buckets with at least two samples.
func seasonalStrength(history []contracts.DailyItemStats) float64 {
	if len(history) < 14 {
		return 0.5
	}

	buckets := make(map[time.Weekday][]float64)
	for _, d := range history {
		if d.Volume == nil || d.AvgPrice == nil {
			continue
		}
		day, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		buckets[day.Weekday()] = append(buckets[day.Weekday()], *d.Volume)
	}

	var strengths []float64
	for _, volumes := range buckets {
		if len(volumes) < 2 {
			continue
		}
		avg := mean(volumes)
		if avg <= 0 {
			strengths = append(strengths, 0)
			continue
		}
		// Lower variance = more predictable = stronger seasonal pattern
		strengths = append(strengths, math.Max(0, 1-stdev(volumes)/avg))
	}

	if len(strengths) == 0 {
		return 0.5
	}
	return mean(strengths)
}

// patternConfidence weighs data completeness (0.7) against sample size
// (0.3, saturating at 30 days).
func patternConfidence(history []contracts.DailyItemStats) float64 {
	totalDays := len(history)
	if totalDays == 0 {
		return 0
	}

	validDays := 0
	for _, d := range history {
		if d.Volume != nil && d.AvgPrice != nil {
			validDays++
		}
	}

	completeness := float64(validDays) / float64(totalDays)
	sampleSize := math.Min(float64(totalDays)/30, 1)

	return completeness*0.7 + sampleSize*0.3
}

// CalculateMarketHealthFactors blends liquidity, participation, and
// volatility-trend stability into one health score.
func CalculateMarketHealthFactors(history []contracts.DailyItemStats) contracts.MarketHealthFactors {
	return contracts.MarketHealthFactors{
		OverallScore: overallMarketHealth(history),
	}
}

func overallMarketHealth(history []contracts.DailyItemStats) float64 {
	if len(history) < MinHistoryDays {
		return 0.5
	}

	return liquidityScore(history)*0.4 +
		participationScore(history)*0.3 +
		marketStabilityScore(history)*0.3
}

// liquidityScore measures volume consistency over days with positive volume.
func liquidityScore(history []contracts.DailyItemStats) float64 {
	var volumes []float64
	for _, d := range history {
		if d.Volume != nil && *d.Volume > 0 {
			volumes = append(volumes, *d.Volume)
		}
	}
	if len(volumes) < MinHistoryDays {
		return 0.5
	}

	avg := mean(volumes)
	if avg <= 0 {
		return 0
	}
	// Lower coefficient of variation = more liquid
	return math.Max(0, 1-stdev(volumes)/avg)
}

// participationScore is the fraction of days with active trading.
func participationScore(history []contracts.DailyItemStats) float64 {
	if len(history) == 0 {
		return 0
	}

	active := 0
	for _, d := range history {
		if d.Volume != nil && *d.Volume > 0 && d.AvgPrice != nil {
			active++
		}
	}
	return float64(active) / float64(len(history))
}

// marketStabilityScore compares the most recent seven rolling 7-day
// volatilities against the preceding seven; decreasing volatility scores
// higher.
func marketStabilityScore(history []contracts.DailyItemStats) float64 {
	if len(history) < 14 {
		return 0.5
	}

	var volatilities []float64
	for i := 6; i < len(history); i++ {
		window := history[i-6 : i+1]

		var prices []float64
		for _, d := range window {
			if d.AvgPrice != nil {
				prices = append(prices, *d.AvgPrice)
			}
		}
		if len(prices) < 3 {
			continue
		}

		m := mean(prices)
		if m <= 0 {
			continue
		}
		volatilities = append(volatilities, stdev(prices)/m)
	}

	if len(volatilities) < 2 {
		return 0.5
	}

	recentStart := len(volatilities) - 7
	if recentStart < 0 {
		recentStart = 0
	}
	recent := volatilities[recentStart:]

	earlierStart := len(volatilities) - 14
	if earlierStart < 0 {
		earlierStart = 0
	}
	earlier := volatilities[earlierStart:recentStart]
	if len(earlier) == 0 {
		return 0.5
	}

	earlierAvg := mean(earlier)
	if earlierAvg == 0 {
		return 0.5
	}

	volatilityTrend := (mean(recent) - earlierAvg) / earlierAvg
	return math.Max(0, math.Min(1, 0.5-volatilityTrend))
}
