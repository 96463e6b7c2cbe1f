package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/grofit/backend/internal/contracts"
)

// canonicalEntry is the flattened form of one raw trade-history entry,
// retaining only semantically meaningful fields. Field order is fixed by the
// struct and must not change: it defines the canonical serialization.
type canonicalEntry struct {
	ItemName    string   `json:"itemName"`
	OrderType   string   `json:"orderType"`
	ModRank     int      `json:"modRank"`
	Datetime    string   `json:"datetime"`
	Volume      *float64 `json:"volume"`
	MinPrice    *float64 `json:"min_price"`
	MaxPrice    *float64 `json:"max_price"`
	OpenPrice   *float64 `json:"open_price"`
	ClosedPrice *float64 `json:"closed_price"`
	AvgPrice    *float64 `json:"avg_price"`
	WaPrice     *float64 `json:"wa_price"`
	Median      *float64 `json:"median"`
	MovingAvg   *float64 `json:"moving_avg"`
	DonchTop    *float64 `json:"donch_top"`
	DonchBot    *float64 `json:"donch_bot"`
	EntryID     *string  `json:"entry_id"`
}

// CanonicalSHA256 produces a deterministic fingerprint of a raw payload's
// content. The digest is invariant under reordering of the outer map's keys
// and of each inner array, and sensitive to any change in entry content.
// Entries without a recognized order side are dropped, mirroring NormalizeRows.
func CanonicalSHA256(payload contracts.RawPayload) string {
	flattened := make([]canonicalEntry, 0, payload.EntryCount())

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

			flattened = append(flattened, canonicalEntry{
				ItemName:    itemName,
				OrderType:   string(side),
				ModRank:     rawModRank(raw["mod_rank"]),
				Datetime:    rawString(raw["datetime"]),
				Volume:      rawNumber(raw["volume"]),
				MinPrice:    rawNumber(raw["min_price"]),
				MaxPrice:    rawNumber(raw["max_price"]),
				OpenPrice:   rawNumber(raw["open_price"]),
				ClosedPrice: rawNumber(raw["closed_price"]),
				AvgPrice:    rawNumber(raw["avg_price"]),
				WaPrice:     rawNumber(raw["wa_price"]),
				Median:      rawNumber(raw["median"]),
				MovingAvg:   rawNumber(raw["moving_avg"]),
				DonchTop:    rawNumber(raw["donch_top"]),
				DonchBot:    rawNumber(raw["donch_bot"]),
				EntryID:     rawID(raw["id"]),
			})
		}
	}

	sort.Slice(flattened, func(i, j int) bool {
		a, b := &flattened[i], &flattened[j]

		an, bn := strings.ToLower(a.ItemName), strings.ToLower(b.ItemName)
		if an != bn {
			return an < bn
		}
		ar, br := contracts.OrderSide(a.OrderType).SideRank(), contracts.OrderSide(b.OrderType).SideRank()
		if ar != br {
			return ar < br
		}
		if a.ModRank != b.ModRank {
			return a.ModRank < b.ModRank
		}
		if a.Datetime != b.Datetime {
			return a.Datetime < b.Datetime
		}
		// nil entry id sorts first
		ai, bi := "", ""
		if a.EntryID != nil {
			ai = *a.EntryID
		}
		if b.EntryID != nil {
			bi = *b.EntryID
		}
		return ai < bi
	})

	// The struct field order gives a stable serialization; a marshal error is
	// impossible for this shape.
	encoded, _ := json.Marshal(flattened)

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// rawNumber coerces a raw field to number-or-null. Only JSON numbers count
// here; the normalizer is more lenient, but the hash operates on raw shape.
func rawNumber(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// rawModRank coerces mod_rank to an integer, defaulting to -1 (unranked).
func rawModRank(v interface{}) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return -1
}

// rawString coerces a field to its string form, empty when absent.
func rawString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// rawID coerces the provider id to string-or-null.
func rawID(v interface{}) *string {
	s := rawString(v)
	if s == "" {
		return nil
	}
	return &s
}
