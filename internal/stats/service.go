package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/go-catalog-settlement.git/internal/kafka"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/orders"
	"github.com/ariefcatur/go-catalog-settlement.git/internal/redisx"
)

// Service projects settled orders into Redis sales counters: units
// sold and revenue (in cents) per product. It is a read model only;
// the ledger and order rows in Postgres stay authoritative.
type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         *logrus.Logger
}

// HandleOrderSettled is installed as the consumer handler.
func (s *Service) HandleOrderSettled(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderSettled {
		return nil // ignore
	}

	p, err := kafkax.UnwrapPayload[orders.OrderSettledPayload](env.Payload)
	if err != nil {
		return err
	}

	// Parse every amount before touching any counter so a bad line
	// cannot leave a half-applied projection.
	type delta struct {
		productID string
		qty       int64
		cents     int64
	}
	deltas := make([]delta, 0, len(p.Lines))
	for _, ln := range p.Lines {
		sub, err := decimal.NewFromString(ln.Subtotal)
		if err != nil {
			return fmt.Errorf("bad subtotal %q for product %s: %w", ln.Subtotal, ln.ProductID, err)
		}
		deltas = append(deltas, delta{
			productID: ln.ProductID,
			qty:       int64(ln.Qty),
			cents:     sub.Mul(decimal.NewFromInt(100)).IntPart(),
		})
	}

	// dedup on event_id; redelivered messages are no-ops
	dkey := fmt.Sprintf(redisx.KeyDedup, "stats", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	// All counters and the dedup key land in one MULTI/EXEC, so a
	// redelivered event either sees the key or none of the counters.
	pipe := s.Redis.TxPipeline()
	for _, d := range deltas {
		pipe.HIncrBy(ctx, redisx.KeySalesQty, d.productID, d.qty)
		pipe.HIncrBy(ctx, redisx.KeySalesRevenue, d.productID, d.cents)
	}
	pipe.Set(ctx, dkey, "1", redisx.TTLDedup)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"order_id": p.OrderID,
		"buyer_id": p.BuyerID,
		"lines":    len(p.Lines),
		"total":    p.TotalAmount,
	}).Info("sales projection updated")
	return nil
}
