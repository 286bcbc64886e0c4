package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValuation(t *testing.T) {
	tests := []struct {
		name     string
		qty      int
		unitCost string
		want     string
	}{
		{"simple", 10, "15.50", "155.00"},
		{"zero quantity", 0, "15.50", "0.00"},
		{"zero cost", 100, "0", "0"},
		{"no float drift", 3, "0.10", "0.30"},
		{"large", 100000, "999999.99", "99999999000.00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Valuation(tc.qty, dec(tc.unitCost))
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestSubtotalExactFixedPoint(t *testing.T) {
	// 0.1 + 0.2 style drift must not exist with decimal arithmetic.
	got := Subtotal(3, dec("19.99"))
	assert.Equal(t, "59.97", got.StringFixed(2))

	got = Subtotal(7, dec("0.10"))
	assert.Equal(t, "0.70", got.StringFixed(2))
}
