package contracts

import "testing"

func TestDailyItemStats_Valid(t *testing.T) {
	v := func(f float64) *float64 { return &f }

	full := DailyItemStats{
		Volume: v(10), AvgPrice: v(15), MinPrice: v(12), MaxPrice: v(18),
	}
	if !full.Valid() {
		t.Error("fully populated stats should be valid")
	}

	partials := []DailyItemStats{
		{AvgPrice: v(15), MinPrice: v(12), MaxPrice: v(18)},
		{Volume: v(10), MinPrice: v(12), MaxPrice: v(18)},
		{Volume: v(10), AvgPrice: v(15), MaxPrice: v(18)},
		{Volume: v(10), AvgPrice: v(15), MinPrice: v(12)},
		{},
	}
	for i, p := range partials {
		if p.Valid() {
			t.Errorf("partial stats %d should not be valid", i)
		}
	}
}
