package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grofit/backend/internal/contracts"
)

func entry(fields map[string]interface{}) map[string]interface{} {
	base := map[string]interface{}{
		"order_type": "closed",
		"datetime":   "2025-08-30T00:00:00.000+00:00",
		"volume":     float64(120),
		"min_price":  float64(10),
		"max_price":  float64(18),
		"avg_price":  14.2,
		"median":     14.0,
	}
	for k, v := range fields {
		base[k] = v
	}
	return base
}

func TestCanonicalSHA256_OrderInvariance(t *testing.T) {
	a := contracts.RawPayload{
		"Mirage Prime Set": {
			entry(map[string]interface{}{"order_type": "buy", "id": "b-1"}),
			entry(map[string]interface{}{"order_type": "sell", "id": "s-1"}),
			entry(map[string]interface{}{"id": "c-1"}),
		},
		"Ash Prime Set": {
			entry(map[string]interface{}{"id": "c-2", "mod_rank": float64(3)}),
		},
	}

	// Same content, different outer key iteration and inner array order.
	b := contracts.RawPayload{
		"Ash Prime Set": {
			entry(map[string]interface{}{"id": "c-2", "mod_rank": float64(3)}),
		},
		"Mirage Prime Set": {
			entry(map[string]interface{}{"id": "c-1"}),
			entry(map[string]interface{}{"order_type": "sell", "id": "s-1"}),
			entry(map[string]interface{}{"order_type": "buy", "id": "b-1"}),
		},
	}

	assert.Equal(t, CanonicalSHA256(a), CanonicalSHA256(b))
}

func TestCanonicalSHA256_ContentSensitivity(t *testing.T) {
	base := contracts.RawPayload{
		"Loki Prime Set": {
			entry(map[string]interface{}{"id": "1"}),
			entry(map[string]interface{}{"id": "2", "volume": float64(77)}),
		},
	}
	baseHash := CanonicalSHA256(base)

	t.Run("removed entry changes hash", func(t *testing.T) {
		trimmed := contracts.RawPayload{
			"Loki Prime Set": {
				entry(map[string]interface{}{"id": "1"}),
			},
		}
		assert.NotEqual(t, baseHash, CanonicalSHA256(trimmed))
	})

	t.Run("changed value changes hash", func(t *testing.T) {
		changed := contracts.RawPayload{
			"Loki Prime Set": {
				entry(map[string]interface{}{"id": "1"}),
				entry(map[string]interface{}{"id": "2", "volume": float64(78)}),
			},
		}
		assert.NotEqual(t, baseHash, CanonicalSHA256(changed))
	})

	t.Run("extra item changes hash", func(t *testing.T) {
		extra := contracts.RawPayload{
			"Loki Prime Set": {
				entry(map[string]interface{}{"id": "1"}),
				entry(map[string]interface{}{"id": "2", "volume": float64(77)}),
			},
			"Ember Prime Set": {
				entry(map[string]interface{}{"id": "3"}),
			},
		}
		assert.NotEqual(t, baseHash, CanonicalSHA256(extra))
	})
}

func TestCanonicalSHA256_DropsUnknownSides(t *testing.T) {
	clean := contracts.RawPayload{
		"Rhino Prime Set": {
			entry(map[string]interface{}{"id": "1"}),
		},
	}
	noisy := contracts.RawPayload{
		"Rhino Prime Set": {
			entry(map[string]interface{}{"id": "1"}),
			entry(map[string]interface{}{"id": "2", "order_type": "mystery"}),
			nil,
		},
	}

	assert.Equal(t, CanonicalSHA256(clean), CanonicalSHA256(noisy))
}

func TestCanonicalSHA256_ModRankDefault(t *testing.T) {
	// A missing mod_rank and an explicit -1 are the same unranked entry.
	missing := contracts.RawPayload{
		"Serration": {entry(map[string]interface{}{"id": "1"})},
	}
	explicit := contracts.RawPayload{
		"Serration": {entry(map[string]interface{}{"id": "1", "mod_rank": float64(-1)})},
	}

	assert.Equal(t, CanonicalSHA256(missing), CanonicalSHA256(explicit))
}

func TestCanonicalSHA256_EmptyPayload(t *testing.T) {
	first := CanonicalSHA256(contracts.RawPayload{})
	second := CanonicalSHA256(contracts.RawPayload{})

	assert.Len(t, first, 64)
	assert.Equal(t, first, second)
}
