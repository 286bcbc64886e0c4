package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Request-shape validation happens before any transaction is opened,
// so these run against an Engine with no database at all.
func TestSettleRejectsMalformedRequests(t *testing.T) {
	e := &Engine{}
	ctx := context.Background()

	tests := []struct {
		name    string
		buyerID string
		lines   []LineRequest
	}{
		{"missing buyer", "", []LineRequest{{ProductID: "p1", Quantity: 1}}},
		{"empty lines", "buyer-1", nil},
		{"zero quantity", "buyer-1", []LineRequest{{ProductID: "p1", Quantity: 0}}},
		{"negative quantity", "buyer-1", []LineRequest{{ProductID: "p1", Quantity: -3}}},
		{"missing product id", "buyer-1", []LineRequest{{ProductID: "", Quantity: 1}}},
		{"bad line after good line", "buyer-1", []LineRequest{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 0}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o, err := e.Settle(ctx, tc.buyerID, tc.lines)
			require.Nil(t, o)
			var invalid *InvalidRequestError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestSortedProductIDs(t *testing.T) {
	lines := []LineRequest{
		{ProductID: "p9", Quantity: 1},
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p9", Quantity: 2}, // duplicate collapses for locking
		{ProductID: "p5", Quantity: 1},
	}
	assert.Equal(t, []string{"p1", "p5", "p9"}, sortedProductIDs(lines))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))

	for _, code := range []string{"55P03", "40P01", "40001", "57014"} {
		err := classify(&pgconn.PgError{Code: code})
		var transient *TransientError
		assert.ErrorAs(t, err, &transient, "code %s", code)
	}

	// constraint violations are not retryable as-is
	err := classify(&pgconn.PgError{Code: "23505"})
	var transient *TransientError
	assert.False(t, errors.As(err, &transient))

	assert.ErrorAs(t, classify(context.DeadlineExceeded), &transient)
}

func TestErrorMessagesCarryUserFacingDetail(t *testing.T) {
	insufficient := &InsufficientStockError{ProductID: "p1", Requested: 3, Available: 2}
	assert.Contains(t, insufficient.Error(), "p1")
	assert.Contains(t, insufficient.Error(), "available 2")
	assert.Contains(t, insufficient.Error(), "requested 3")

	oos := &OutOfStockError{ProductID: "p2"}
	assert.Contains(t, oos.Error(), "p2")
}
