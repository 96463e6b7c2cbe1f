package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/grofit/backend/internal/contracts"
)

// NormalizeRows converts a raw provider payload into the full list of
// observation rows for a target date, one per valid entry. Entries with an
// unrecognized order side are dropped, matching CanonicalSHA256. The
// function is pure.
func NormalizeRows(payload contracts.RawPayload, date string) ([]contracts.ObservationRow, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid target date %q: %w", date, err)
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	rows := make([]contracts.ObservationRow, 0, payload.EntryCount())
	for itemName, entries := range payload {
		for _, raw := range entries {
			if raw == nil {
				continue
			}
			sideRaw, _ := raw["order_type"].(string)
			side, ok := contracts.ParseOrderSide(sideRaw)
			if !ok {
				continue
			}

			rows = append(rows, contracts.ObservationRow{
				Date:        date,
				Timestamp:   parseTimestamp(raw["datetime"], midnight),
				ItemName:    itemName,
				OrderSide:   side,
				ModRank:     normalizeModRank(raw["mod_rank"]),
				Volume:      toIntOrNull(raw["volume"]),
				MinPrice:    toIntOrNull(raw["min_price"]),
				MaxPrice:    toIntOrNull(raw["max_price"]),
				OpenPrice:   toIntOrNull(raw["open_price"]),
				ClosedPrice: toIntOrNull(raw["closed_price"]),
				AvgPrice:    toFloatOrNull(raw["avg_price"]),
				WaPrice:     toFloatOrNull(raw["wa_price"]),
				Median:      toFloatOrNull(raw["median"]),
				MovingAvg:   toFloatOrNull(raw["moving_avg"]),
				DonchTop:    toIntOrNull(raw["donch_top"]),
				DonchBot:    toIntOrNull(raw["donch_bot"]),
				EntryID:     rawID(raw["id"]),
			})
		}
	}

	return rows, nil
}

// parseTimestamp parses the provider datetime, defaulting to midnight UTC of
// the target date when missing or unparseable.
func parseTimestamp(v interface{}, fallback time.Time) time.Time {
	s := rawString(v)
	if s == "" {
		return fallback
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC()
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return ts.UTC()
	}
	return fallback
}

// normalizeModRank keeps a numeric mod_rank, parses a numeric string, and
// otherwise defaults to -1 (unranked).
func normalizeModRank(v interface{}) int {
	if f, ok := v.(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	if n := toIntOrNull(v); n != nil {
		return int(*n)
	}
	return -1
}

// toFloatOrNull parses a field as a number: already numeric and finite, or a
// non-empty string parsing to a finite number. Everything else is null.
func toFloatOrNull(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return &t
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// toIntOrNull is toFloatOrNull with truncation toward zero.
func toIntOrNull(v interface{}) *int64 {
	f := toFloatOrNull(v)
	if f == nil {
		return nil
	}
	n := int64(math.Trunc(*f))
	return &n
}
