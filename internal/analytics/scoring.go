package analytics

import (
	"math"

	"github.com/grofit/backend/internal/contracts"
)

// Factor group weights for the overall flip score.
const (
	weightTrend       = 0.30 // market momentum
	weightPerformance = 0.35 // historical performance
	weightPattern     = 0.15 // timing optimization
	weightMarket      = 0.20 // overall market conditions
)

// Recommendation thresholds; strictly greater-than, no hysteresis.
const (
	buyThreshold  = 0.7
	holdThreshold = 0.3
)

// ComputeOverallFlipScore folds all factor groups into one weighted score,
// roughly -1..1.
func ComputeOverallFlipScore(inputs contracts.FlipScoreInputs) float64 {
	directionMultiplier := 0.0
	switch inputs.Trend.Direction {
	case contracts.TrendBullish:
		directionMultiplier = 1.0
	case contracts.TrendBearish:
		directionMultiplier = -0.5
	}

	trendScore := inputs.Trend.Strength * directionMultiplier

	performanceScore := inputs.Performance.Stability*0.4 +
		inputs.Performance.VolumeRank*0.4 +
		(1-inputs.Performance.Volatility)*0.2

	patternScore := inputs.Pattern.SeasonalStrength * inputs.Pattern.Confidence
	marketScore := inputs.Market.OverallScore

	return trendScore*weightTrend +
		performanceScore*weightPerformance +
		patternScore*weightPattern +
		marketScore*weightMarket
}

// GenerateRecommendation maps a score onto the flip label.
func GenerateRecommendation(score float64) contracts.Recommendation {
	if score > buyThreshold {
		return contracts.RecommendationBuy
	}
	if score > holdThreshold {
		return contracts.RecommendationHold
	}
	return contracts.RecommendationAvoid
}

// CalculateConfidence scores factor consistency: low variance across the
// factor vector signals high confidence. Clamped to [0.1, 1.0].
func CalculateConfidence(inputs contracts.FlipScoreInputs) float64 {
	factors := []float64{
		inputs.Trend.Strength,
		inputs.Performance.Rank / 100,
		inputs.Performance.Stability,
		inputs.Performance.VolumeRank,
		1 - inputs.Performance.Volatility,
		inputs.Pattern.SeasonalStrength,
		inputs.Pattern.Confidence,
		inputs.Market.OverallScore,
	}

	return math.Max(0.1, math.Min(1.0, 1-stdev(factors)))
}

// FlipScore is the combined scoring outcome for one factor set.
type FlipScore struct {
	OverallScore   float64
	Recommendation contracts.Recommendation
	Confidence     float64
}

// CalculateFlipScore is the convenience wrapper combining score, label, and
// confidence.
func CalculateFlipScore(inputs contracts.FlipScoreInputs) FlipScore {
	score := ComputeOverallFlipScore(inputs)
	return FlipScore{
		OverallScore:   score,
		Recommendation: GenerateRecommendation(score),
		Confidence:     CalculateConfidence(inputs),
	}
}
