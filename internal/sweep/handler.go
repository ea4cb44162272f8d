package sweep

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "stockcore/internal/kafka"
	"stockcore/internal/redisx"
	"stockcore/internal/stock"
)

// Handler releases reservations for cancelled orders. The dedup key is
// written only after the release succeeds, so a transient failure returns
// the error and leaves the message eligible for redelivery.
type Handler struct {
	Redis   *redis.Client
	Manager *stock.Manager
	Lg      *zap.Logger
}

func (h *Handler) HandleOrderCancelled(ctx context.Context, m kafkago.Message) error {
	var env stock.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != stock.EventOrderCancelled {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "sweeper", env.EventID)
	if exists, _ := redisx.Exists(ctx, h.Redis, dkey); exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[stock.OrderCancelledPayload](env.Payload)
	if err != nil {
		return err
	}
	orderID, err := uuid.Parse(p.OrderID)
	if err != nil {
		// malformed event, commit and move on
		h.Lg.Warn("bad order id in cancel event", zap.String("order_id", p.OrderID))
		return nil
	}

	if err := h.Manager.Release(ctx, orderID); err != nil {
		return err
	}
	_ = h.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
