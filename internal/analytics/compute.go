package analytics

import (
	"sort"

	"github.com/grofit/backend/internal/contracts"
)

// ItemAnalytics bundles the three result types computed for one item in a
// single pass over its history.
type ItemAnalytics struct {
	Flip        contracts.FlipResult
	Trends      []contracts.MarketTrendData
	Performance contracts.ItemPerformanceData
}

// ComputeAllForItem processes one item's history once and derives flip
// analytics, market trends, and performance metrics together.
func ComputeAllForItem(itemName string, modRank int, history []contracts.DailyItemStats, date string) ItemAnalytics {
	metrics := ComputeAggregatedMetrics(history)

	return ItemAnalytics{
		Flip:        computeFlipResult(itemName, modRank, history, metrics),
		Trends:      computeMarketTrends(itemName, modRank, history, metrics, date),
		Performance: computeItemPerformance(itemName, modRank, history, metrics, date),
	}
}

// computeFlipResult derives all factor groups and the final weighted score.
func computeFlipResult(itemName string, modRank int, history []contracts.DailyItemStats, metrics contracts.AggregatedMetrics) contracts.FlipResult {
	inputs := contracts.FlipScoreInputs{
		Trend:       CalculateTrendFactors(metrics),
		Performance: CalculatePerformanceFactors(history, metrics),
		Pattern:     CalculatePatternFactors(history),
		Market:      CalculateMarketHealthFactors(history),
	}

	score := CalculateFlipScore(inputs)

	return contracts.FlipResult{
		ItemName:       itemName,
		ModRank:        modRank,
		OverallScore:   score.OverallScore,
		Recommendation: score.Recommendation,
		Confidence:     score.Confidence,
		Factors: contracts.FlipFactors{
			TrendStrength:      inputs.Trend.Strength,
			PerformanceRank:    inputs.Performance.Rank,
			StabilityScore:     inputs.Performance.Stability,
			VolumeRank:         inputs.Performance.VolumeRank,
			VolatilityScore:    inputs.Performance.Volatility,
			SeasonalMultiplier: inputs.Pattern.SeasonalStrength,
			MarketHealth:       inputs.Market.OverallScore,
			PatternConfidence:  inputs.Pattern.Confidence,
		},
	}
}

// computeMarketTrends emits one trend row per window.
func computeMarketTrends(itemName string, modRank int, history []contracts.DailyItemStats, metrics contracts.AggregatedMetrics, date string) []contracts.MarketTrendData {
	sorted := sortedDescending(history)

	trends := make([]contracts.MarketTrendData, 0, len(windowDays))
	for _, days := range windowDays {
		window := metrics.Window(windowLabel(days))

		direction := contracts.TrendSideways
		if window.PriceTrend > 0.02 {
			direction = contracts.TrendBullish
		} else if window.PriceTrend < -0.02 {
			direction = contracts.TrendBearish
		}

		trends = append(trends, contracts.MarketTrendData{
			ItemName:       itemName,
			ModRank:        modRank,
			Date:           date,
			Window:         windowLabel(days),
			TrendDirection: direction,
			TrendStrength:  window.TrendStrength,
			PriceChange:    window.PriceTrend,
			VolumeChange:   window.VolumeTrend,
			SMA:            window.SMA,
			EMA:            EMA(sorted, days),
			Volatility:     window.Volatility,
		})
	}
	return trends
}

// computeItemPerformance emits the per-item performance record.
func computeItemPerformance(itemName string, modRank int, history []contracts.DailyItemStats, metrics contracts.AggregatedMetrics, date string) contracts.ItemPerformanceData {
	month := metrics.Window30

	return contracts.ItemPerformanceData{
		ItemName:            itemName,
		ModRank:             modRank,
		Date:                date,
		PriceChangePercent:  priceChangePercent(history),
		VolumeChangePercent: month.VolumeTrend,
		StabilityScore:      1 - month.Volatility,
		PerformanceRank:     performanceRank(history),
		LiquidityScore:      liquidityScore(history),
		VolatilityScore:     month.Volatility,
	}
}

// priceChangePercent is the change between the oldest and newest priced day
// of the analysis period; nil when either endpoint is missing.
func priceChangePercent(history []contracts.DailyItemStats) *float64 {
	if len(history) < 2 {
		return nil
	}

	ascending := make([]contracts.DailyItemStats, len(history))
	copy(ascending, history)
	sort.SliceStable(ascending, func(i, j int) bool {
		return ascending[i].Date < ascending[j].Date
	})

	first := ascending[0].AvgPrice
	last := ascending[len(ascending)-1].AvgPrice
	if first == nil || last == nil || *first == 0 {
		return nil
	}

	change := (*last - *first) / *first * 100
	return &change
}
