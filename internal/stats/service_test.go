package stats

import (
	"context"
	"io"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	kafkax "github.com/ariefcatur/go-catalog-settlement.git/internal/kafka"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/orders"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Events of other types must be acked (nil) without touching Redis;
// the nil client here would panic otherwise.
func TestHandleIgnoresOtherEventTypes(t *testing.T) {
	s := &Service{Log: quietLog()}

	env := orders.Envelope{
		EventID:      "ev-1",
		EventType:    orders.EventOrderRejected,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
	}
	err := s.HandleOrderSettled(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)})
	assert.NoError(t, err)
}

func TestHandleRejectsMalformedEnvelope(t *testing.T) {
	s := &Service{Log: quietLog()}
	err := s.HandleOrderSettled(context.Background(), kafkago.Message{Value: []byte(`{`)})
	assert.Error(t, err)
}

// A line with an unparseable amount must fail before any counter is
// incremented; the nil Redis client here would panic if the handler
// touched Redis before finishing validation.
func TestHandleValidatesAmountsBeforeTouchingCounters(t *testing.T) {
	s := &Service{Log: quietLog()}

	env := orders.Envelope{
		EventID:      "ev-bad-amount",
		EventType:    orders.EventOrderSettled,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Payload: kafkax.MustMarshal(orders.OrderSettledPayload{
			OrderID: "o-1",
			BuyerID: "buyer-1",
			Lines: []orders.SettledLine{
				{ProductID: "p1", Qty: 2, UnitPrice: "3.00", Subtotal: "6.00"},
				{ProductID: "p2", Qty: 1, UnitPrice: "1.00", Subtotal: "not-a-number"},
			},
			TotalAmount: "7.00",
		}),
	}
	err := s.HandleOrderSettled(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "p2")
}
