package analytics

import (
	"sort"

	"github.com/grofit/backend/internal/contracts"
)

// ItemHistory is the daily closed-order history for one item+modRank pair,
// sorted most recent first.
type ItemHistory struct {
	ItemName string
	ModRank  int
	Days     []contracts.DailyItemStats
}

type itemKey struct {
	itemName string
	modRank  int
}

// BuildItemHistories groups per-entry daily stats by item and mod rank,
// collapsing each group to one row per date. Groups come back in
// deterministic (itemName, modRank) order so downstream ranking is stable.
func BuildItemHistories(rows []contracts.DailyItemStats) []ItemHistory {
	byItem := make(map[itemKey]map[string][]contracts.DailyItemStats)
	for _, row := range rows {
		key := itemKey{itemName: row.ItemName, modRank: row.ModRank}
		if byItem[key] == nil {
			byItem[key] = make(map[string][]contracts.DailyItemStats)
		}
		byItem[key][row.Date] = append(byItem[key][row.Date], row)
	}

	keys := make([]itemKey, 0, len(byItem))
	for key := range byItem {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].itemName != keys[j].itemName {
			return keys[i].itemName < keys[j].itemName
		}
		return keys[i].modRank < keys[j].modRank
	})

	histories := make([]ItemHistory, 0, len(keys))
	for _, key := range keys {
		byDate := byItem[key]

		days := make([]contracts.DailyItemStats, 0, len(byDate))
		for date, dateRows := range byDate {
			days = append(days, collapseDay(date, key, dateRows))
		}
		sort.Slice(days, func(i, j int) bool {
			return days[i].Date > days[j].Date
		})

		histories = append(histories, ItemHistory{
			ItemName: key.itemName,
			ModRank:  key.modRank,
			Days:     days,
		})
	}
	return histories
}

// collapseDay reduces the rows observed for one item on one date to a single
// stat row. Volume sums, averages take the mean, and min/max span the
// non-null observed values.
func collapseDay(date string, key itemKey, rows []contracts.DailyItemStats) contracts.DailyItemStats {
	stats := contracts.DailyItemStats{
		Date:     date,
		ItemName: key.itemName,
		ModRank:  key.modRank,
	}

	var (
		volume   float64
		avgSum   float64
		medSum   float64
		minPrice *float64
		maxPrice *float64
	)
	for _, row := range rows {
		if row.Volume != nil {
			volume += *row.Volume
		}
		if row.AvgPrice != nil {
			avgSum += *row.AvgPrice
		}
		if row.Median != nil {
			medSum += *row.Median
		}
		if row.MinPrice != nil {
			v := *row.MinPrice
			if minPrice == nil || v < *minPrice {
				minPrice = &v
			}
		}
		if row.MaxPrice != nil {
			v := *row.MaxPrice
			if maxPrice == nil || v > *maxPrice {
				maxPrice = &v
			}
		}
	}

	n := float64(len(rows))
	avg := avgSum / n
	med := medSum / n

	stats.Volume = &volume
	stats.AvgPrice = &avg
	stats.Median = &med
	stats.MinPrice = minPrice
	stats.MaxPrice = maxPrice
	return stats
}
