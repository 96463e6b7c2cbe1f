package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grofit/backend/internal/contracts"
)

func TestComputeAllForItem(t *testing.T) {
	history := flatHistory("2025-08-30", 30, 200, 100)

	result := ComputeAllForItem("Ash Prime Set", -1, history, "2025-08-30")

	t.Run("flip result", func(t *testing.T) {
		flip := result.Flip
		assert.Equal(t, "Ash Prime Set", flip.ItemName)
		assert.Equal(t, -1, flip.ModRank)
		assert.NotEmpty(t, flip.Recommendation)
		assert.GreaterOrEqual(t, flip.Confidence, 0.1)
		assert.LessOrEqual(t, flip.Confidence, 1.0)
	})

	t.Run("one trend per window", func(t *testing.T) {
		require.Len(t, result.Trends, 3)

		windows := map[string]bool{}
		for _, trend := range result.Trends {
			windows[trend.Window] = true
			assert.Equal(t, "2025-08-30", trend.Date)
			assert.Equal(t, contracts.TrendSideways, trend.TrendDirection)
			require.NotNil(t, trend.EMA)
			assert.InDelta(t, 100, *trend.EMA, 1e-9)
		}
		assert.Equal(t, map[string]bool{"7d": true, "14d": true, "30d": true}, windows)
	})

	t.Run("performance", func(t *testing.T) {
		perf := result.Performance
		assert.Equal(t, "2025-08-30", perf.Date)
		require.NotNil(t, perf.PriceChangePercent)
		assert.InDelta(t, 0, *perf.PriceChangePercent, 1e-9)
		assert.InDelta(t, 50, perf.PerformanceRank, 1e-9)
		assert.InDelta(t, 1, perf.StabilityScore, 1e-9)
	})
}

func TestPriceChangePercent(t *testing.T) {
	t.Run("single day", func(t *testing.T) {
		assert.Nil(t, priceChangePercent(flatHistory("2025-08-30", 1, 100, 15)))
	})

	t.Run("rising prices", func(t *testing.T) {
		history := []contracts.DailyItemStats{
			statDay("2025-08-30", 0, 100, 120), // newest
			statDay("2025-08-30", 1, 100, 110),
			statDay("2025-08-30", 2, 100, 100), // oldest
		}

		got := priceChangePercent(history)
		require.NotNil(t, got)
		assert.InDelta(t, 20, *got, 1e-9)
	})

	t.Run("zero start price", func(t *testing.T) {
		history := []contracts.DailyItemStats{
			statDay("2025-08-30", 0, 100, 50),
			statDay("2025-08-30", 1, 100, 0),
		}
		assert.Nil(t, priceChangePercent(history))
	})

	t.Run("missing endpoint price", func(t *testing.T) {
		history := flatHistory("2025-08-30", 5, 100, 15)
		history[len(history)-1].AvgPrice = nil
		assert.Nil(t, priceChangePercent(history))
	})
}
