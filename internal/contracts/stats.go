package contracts

// DailyItemStats is one day of aggregated trading data for an item+modRank.
// All metric fields are nil when no trading data exists for that day.
type DailyItemStats struct {
	Date     string // YYYY-MM-DD
	ItemName string
	ModRank  int

	Volume   *float64
	MinPrice *float64
	MaxPrice *float64
	AvgPrice *float64
	Median   *float64
}

// Valid reports whether the day carries the full metric set required by the
// windowed aggregator.
func (d *DailyItemStats) Valid() bool {
	return d.Volume != nil && d.AvgPrice != nil && d.MinPrice != nil && d.MaxPrice != nil
}

// TimeWindowMetrics holds aggregated statistics over one rolling window.
type TimeWindowMetrics struct {
	Volume     float64 // sum of volumes
	VWAP       float64
	Volatility float64 // coefficient of variation of avg price
	MinPrice   float64
	MaxPrice   float64

	// PriceTrend is the relative change between the two index halves of the
	// window; VolumeTrend is the analogue on summed volume.
	PriceTrend  float64
	VolumeTrend float64

	TrendStrength float64 // 0-1
	SMA           float64
}

// AggregatedMetrics holds the three standard windows plus the most recent
// day regardless of window.
type AggregatedMetrics struct {
	Window7  TimeWindowMetrics
	Window14 TimeWindowMetrics
	Window30 TimeWindowMetrics
	Latest   DailyItemStats
}

// Window returns the metrics for a window label ("7d", "14d", "30d").
func (m *AggregatedMetrics) Window(label string) TimeWindowMetrics {
	switch label {
	case "7d":
		return m.Window7
	case "14d":
		return m.Window14
	default:
		return m.Window30
	}
}
