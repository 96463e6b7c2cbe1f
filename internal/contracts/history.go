package contracts

import (
	"fmt"
	"time"
)

// OrderSide is the side of a trade-history sample.
type OrderSide string

const (
	OrderSideBuy    OrderSide = "buy"
	OrderSideSell   OrderSide = "sell"
	OrderSideClosed OrderSide = "closed"
)

// SideRank returns the fixed sort order for an order side. Unknown sides
// rank last; callers are expected to have dropped them already.
func (s OrderSide) SideRank() int {
	switch s {
	case OrderSideBuy:
		return 0
	case OrderSideSell:
		return 1
	case OrderSideClosed:
		return 2
	default:
		return 99
	}
}

// ParseOrderSide validates a raw order_type value. The same rule is applied
// by the hasher and the normalizer so that dropped entries never create
// content drift between the dedup check and the persisted rows.
func ParseOrderSide(raw string) (OrderSide, bool) {
	switch raw {
	case "buy":
		return OrderSideBuy, true
	case "sell":
		return OrderSideSell, true
	case "closed":
		return OrderSideClosed, true
	default:
		return "", false
	}
}

// RawPayload is the provider's daily snapshot: item name -> trade-history
// entries, decoded as-is from JSON.
type RawPayload map[string][]map[string]interface{}

// EntryCount returns the total number of entries across all items.
func (p RawPayload) EntryCount() int {
	total := 0
	for _, entries := range p {
		total += len(entries)
	}
	return total
}

// ObservationRow is one normalized trade-history sample. Rows are immutable
// once stored; uniqueness key is (date, timestamp, item, side, mod rank).
type ObservationRow struct {
	Date      string // calendar day, YYYY-MM-DD
	Timestamp time.Time
	ItemName  string
	OrderSide OrderSide
	ModRank   int // -1 = unranked

	Volume      *int64
	MinPrice    *int64
	MaxPrice    *int64
	OpenPrice   *int64
	ClosedPrice *int64
	AvgPrice    *float64
	WaPrice     *float64
	Median      *float64
	MovingAvg   *float64
	DonchTop    *int64
	DonchBot    *int64

	EntryID *string // provider-assigned id, as-is
}

// Key returns the composite uniqueness key of the row.
func (r *ObservationRow) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d",
		r.Date, r.Timestamp.UTC().Format(time.RFC3339Nano), r.ItemName, r.OrderSide, r.ModRank)
}

// RawSnapshot is the provider payload persisted verbatim for replayability,
// content-addressed by date and additionally keyed by hash.
type RawSnapshot struct {
	Date         string
	SHA256       string
	Payload      RawPayload
	ItemsCount   int
	EntriesCount int
}
