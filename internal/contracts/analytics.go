package contracts

// TrendDirection classifies the 30-day price trend.
type TrendDirection string

const (
	TrendBullish  TrendDirection = "bullish"
	TrendBearish  TrendDirection = "bearish"
	TrendSideways TrendDirection = "sideways"
)

// Recommendation is the flip label for an item.
type Recommendation string

const (
	RecommendationBuy   Recommendation = "BUY"
	RecommendationHold  Recommendation = "HOLD"
	RecommendationAvoid Recommendation = "AVOID"
)

// TrendFactors are derived from the 30-day window metrics.
type TrendFactors struct {
	Strength  float64        `json:"strength"` // 0-1
	Direction TrendDirection `json:"direction"`
	Momentum  float64        `json:"momentum"` // 30d volume trend, signed, unbounded
}

// PerformanceFactors are derived from history and the 30-day window.
type PerformanceFactors struct {
	Rank       float64 `json:"rank"`       // 1-100, 50 = neutral
	Stability  float64 `json:"stability"`  // 0-1
	VolumeRank float64 `json:"volumeRank"` // 0-1
	Volatility float64 `json:"volatility"` // 0-1
}

// PatternFactors capture day-of-week seasonality.
type PatternFactors struct {
	SeasonalStrength float64 `json:"seasonalStrength"` // 0-1
	Confidence       float64 `json:"confidence"`       // 0-1
}

// MarketHealthFactors blend liquidity, participation, and stability.
type MarketHealthFactors struct {
	OverallScore float64 `json:"overallScore"` // 0-1
}

// FlipScoreInputs is the composite of all factor groups, the primary input
// for the final scoring algorithm.
type FlipScoreInputs struct {
	Trend       TrendFactors
	Performance PerformanceFactors
	Pattern     PatternFactors
	Market      MarketHealthFactors
}

// FlipFactors is the flattened factor bag persisted alongside a result.
type FlipFactors struct {
	TrendStrength      float64 `json:"trendStrength"`
	PerformanceRank    float64 `json:"performanceRank"`
	StabilityScore     float64 `json:"stabilityScore"`
	VolumeRank         float64 `json:"volumeRank"`
	VolatilityScore    float64 `json:"volatilityScore"`
	SeasonalMultiplier float64 `json:"seasonalMultiplier"`
	MarketHealth       float64 `json:"marketHealth"`
	PatternConfidence  float64 `json:"patternConfidence"`
}

// FlipResult is the final recommendation for a single item+modRank.
// Results for a date are always replaced wholesale, never patched, so the
// persisted rank ordering stays consistent.
type FlipResult struct {
	ItemName       string         `json:"itemName"`
	ModRank        int            `json:"modRank"`
	Rank           int            `json:"rank"` // 1-based, assigned at persist time
	OverallScore   float64        `json:"overallScore"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Factors        FlipFactors    `json:"factors"`
}

// MarketTrendData is one per-window trend record for an item.
type MarketTrendData struct {
	ItemName       string         `json:"itemName"`
	ModRank        int            `json:"modRank"`
	Date           string         `json:"date"`
	Window         string         `json:"window"` // 7d, 14d, 30d
	TrendDirection TrendDirection `json:"trendDirection"`
	TrendStrength  float64        `json:"trendStrength"`
	PriceChange    float64        `json:"priceChange"`
	VolumeChange   float64        `json:"volumeChange"`
	SMA            float64        `json:"sma"`
	EMA            *float64       `json:"ema"`
	Volatility     float64        `json:"volatility"`
}

// ItemPerformanceData is the per-item performance record for a date.
type ItemPerformanceData struct {
	ItemName            string   `json:"itemName"`
	ModRank             int      `json:"modRank"`
	Date                string   `json:"date"`
	PriceChangePercent  *float64 `json:"priceChangePercent"`
	VolumeChangePercent float64  `json:"volumeChangePercent"`
	StabilityScore      float64  `json:"stabilityScore"`
	PerformanceRank     float64  `json:"performanceRank"`
	LiquidityScore      float64  `json:"liquidityScore"`
	VolatilityScore     float64  `json:"volatilityScore"`
}
